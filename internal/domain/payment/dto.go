package payment

type CheckoutRequest struct {
	ResourceID     int64  `json:"resource_id" binding:"required,gt=0"`
	Kind           string `json:"kind" binding:"omitempty,oneof=night_stay day_use classic"`
	CheckIn        string `json:"check_in" binding:"required"`
	CheckOut       string `json:"check_out"`
	GuestFirstName string `json:"guest_first_name" binding:"required"`
	GuestLastName  string `json:"guest_last_name" binding:"required"`
	GuestEmail     string `json:"guest_email" binding:"required,email"`
	GuestPhone     string `json:"guest_phone"`
	Locale         string `json:"locale"`
	Adults         int    `json:"adults" binding:"omitempty,min=1"`
	Children       int    `json:"children" binding:"omitempty,min=0"`
	AddonsMinor    int64  `json:"addons_minor" binding:"omitempty,min=0"`
	PaymentMethod  string `json:"payment_method"`
}

type CheckoutResponse struct {
	PaymentIntentID    string `json:"payment_intent_id"`
	ClientSecret       string `json:"client_secret"`
	Currency           string `json:"currency"`
	GrossMinor         int64  `json:"gross_minor"`
	CommissionMinor    int64  `json:"commission_minor"`
	OwnerMinor         int64  `json:"owner_minor"`
	OccupancyTaxMinor  int64  `json:"occupancy_tax_minor"`
	AddonsMinor        int64  `json:"addons_minor"`
	CommissionDeferred bool   `json:"commission_deferred"`
}

type ErrorResponse struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
