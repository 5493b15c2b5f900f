package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*gin.Engine, *Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := setupTestRepo(t)
	h := NewHandler(repo)
	r := gin.New()
	v1 := r.Group("/api/v1")
	h.RegisterRoutes(v1)
	h.RegisterOperatorRoutes(v1)
	return r, repo
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTenant(t *testing.T) {
	r, repo := setupRouter(t)
	rate := decimal.RequireFromString("6.5")

	w := doJSON(r, http.MethodPost, "/api/v1/ops/tenants", CreateTenantRequest{
		Name:                " Harbor Inn ",
		Currency:            "EUR",
		SubAccountID:        "acct_owner",
		CommissionRate:      &rate,
		OccupancyTaxEnabled: true,
		OccupancyTaxRate:    decimal.NewNullDecimal(decimal.NewFromInt(3)),
		CheckoutTime:        "11:00",
		Timezone:            "Europe/Paris",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out struct {
		Data Tenant `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	got, err := repo.GetTenant(context.Background(), out.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, "Harbor Inn", got.Name)
	assert.Equal(t, "eur", got.Currency)
	assert.True(t, got.CommissionRate.Equal(rate), got.CommissionRate.String())
	assert.False(t, got.DayUseCommissionRate.Valid)
	assert.True(t, got.OccupancyTaxRate.Decimal.Equal(decimal.NewFromInt(3)))
}

func TestCreateTenant_RejectsBadSettings(t *testing.T) {
	r, _ := setupRouter(t)
	six := decimal.NewFromInt(6)
	base := CreateTenantRequest{Name: "Inn", Currency: "eur", SubAccountID: "acct_1", CommissionRate: &six}
	above := decimal.NewFromInt(101)
	negative := decimal.NewFromInt(-1)

	cases := map[string]func(*CreateTenantRequest){
		"rate above 100":    func(q *CreateTenantRequest) { q.CommissionRate = &above },
		"negative day rate": func(q *CreateTenantRequest) { q.DayUseCommissionRate = decimal.NewNullDecimal(negative) },
		"missing rate":      func(q *CreateTenantRequest) { q.CommissionRate = nil },
		"tax without rate":  func(q *CreateTenantRequest) { q.OccupancyTaxEnabled = true },
		"bad checkout time": func(q *CreateTenantRequest) { q.CheckoutTime = "11am" },
		"unknown timezone":  func(q *CreateTenantRequest) { q.Timezone = "Mars/Olympus" },
		"bad currency":      func(q *CreateTenantRequest) { q.Currency = "euro" },
		"missing account":   func(q *CreateTenantRequest) { q.SubAccountID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := base
			mutate(&req)
			w := doJSON(r, http.MethodPost, "/api/v1/ops/tenants", req)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	t.Run("rate not decimal", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/ops/tenants", map[string]any{
			"name": "Inn", "currency": "eur", "sub_account_id": "acct_1", "commission_rate": "six",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})
}

func TestResourceLifecycle(t *testing.T) {
	r, repo := setupRouter(t)
	ctx := context.Background()
	tenant := &Tenant{Name: "Harbor Inn", CommissionRate: decimal.NewFromInt(6)}
	require.NoError(t, repo.CreateTenant(ctx, tenant))

	w := doJSON(r, http.MethodPost, fmt.Sprintf("/api/v1/ops/tenants/%d/resources", tenant.ID), CreateResourceRequest{
		Name: "Room 101", PriceMinor: 8900, PetAllowed: true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data Resource `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.Data.IsActive)

	w = doJSON(r, http.MethodGet, fmt.Sprintf("/api/v1/tenants/%d/resources?pets=true", tenant.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data ResourceListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Data.Resources, 1)

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/v1/ops/resources/%d/deactivate", created.Data.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, fmt.Sprintf("/api/v1/tenants/%d/resources", tenant.ID), nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list.Data.Resources)
}

func TestResourceRoutes_NotFound(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodGet, "/api/v1/tenants/99/resources", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/ops/tenants/99/resources", CreateResourceRequest{Name: "x", PriceMinor: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/ops/resources/99/deactivate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/tenants/abc/resources", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
