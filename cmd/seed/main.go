package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/domain/catalog"
	jwtsvc "staybook/internal/pkg/jwt"
)

func main() {
	hashToken := flag.String("hash-token", "", "print a bcrypt hash for INTERNAL_TOKEN_BCRYPT and exit")
	operator := flag.String("operator", "", "print an operator JWT for this subject")
	flag.Parse()

	if *hashToken != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*hashToken), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("bcrypt: %v", err)
		}
		fmt.Println(string(hash))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	ctx := context.Background()
	repo := catalog.NewRepository(db)

	tenants := []*catalog.Tenant{
		{
			Name:                 "Harbor Inn",
			Currency:             "eur",
			SubAccountID:         "acct_harbor_demo",
			CommissionRate:       decimal.NewFromInt(6),
			DayUseCommissionRate: decimal.NewNullDecimal(decimal.NewFromInt(10)),
			FixedFeeMinor:        150,
			OccupancyTaxEnabled:  true,
			OccupancyTaxRate:     decimal.NewNullDecimal(decimal.RequireFromString("3.5")),
			DayPassPriceMinor:    4500,
			CheckoutTime:         "11:00",
			Timezone:             "Europe/Paris",
		},
		{
			Name:           "Casa del Sol",
			Currency:       "eur",
			SubAccountID:   "acct_casa_demo",
			CommissionRate: decimal.RequireFromString("7.5"),
			CheckoutTime:   "12:00",
			Timezone:       "Europe/Madrid",
		},
	}

	for _, t := range tenants {
		if err := repo.CreateTenant(ctx, t); err != nil {
			log.Fatalf("tenant %q: %v", t.Name, err)
		}
		for i, price := range []int64{8900, 12900, 18900} {
			res := &catalog.Resource{
				TenantID:      t.ID,
				Name:          fmt.Sprintf("Room %d", 101+i),
				PriceMinor:    price,
				IsActive:      true,
				PetAllowed:    i == 0,
				DayUseAllowed: t.DayPassPriceMinor > 0,
			}
			if err := repo.CreateResource(ctx, res); err != nil {
				log.Fatalf("resource %q: %v", res.Name, err)
			}
		}
		log.Printf("Tenant created: id=%d name=%q sub_account=%s", t.ID, t.Name, t.SubAccountID)
	}

	if *operator != "" {
		token, err := jwtsvc.New(cfg.JWTSecret, 12*time.Hour).GenerateToken(*operator, "operator")
		if err != nil {
			log.Fatalf("jwt: %v", err)
		}
		fmt.Println(token)
	}

	log.Println("Seed completed")
}
