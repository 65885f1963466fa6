package service_test

import (
	"context"
	"testing"

	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/repository"
	"github.com/optionfolio/backend/internal/secrets"
	"github.com/optionfolio/backend/internal/service"
	"github.com/optionfolio/backend/internal/testutil"
)

func TestSettingDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestSettingService(t, db)

	// The schema seeds 30/10/20; the accessors read those values back.
	rate, err := svc.TaxRatePercent()
	if err != nil {
		t.Fatalf("TaxRatePercent failed: %v", err)
	}
	if rate != 30 {
		t.Errorf("expected tax rate 30, got %v", rate)
	}

	cost, err := svc.UnitCost()
	if err != nil {
		t.Fatalf("UnitCost failed: %v", err)
	}
	if cost != 10 {
		t.Errorf("expected unit cost 10, got %v", cost)
	}

	target, err := svc.TargetReturnPercent()
	if err != nil {
		t.Fatalf("TargetReturnPercent failed: %v", err)
	}
	if target != 20 {
		t.Errorf("expected target return 20, got %v", target)
	}
}

func TestSettingSetAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestSettingService(t, db)

	if err := svc.Set(context.Background(), model.SettingTaxRatePercent, "37.5"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	rate, err := svc.TaxRatePercent()
	if err != nil {
		t.Fatalf("TaxRatePercent failed: %v", err)
	}
	if rate != 37.5 {
		t.Errorf("expected updated rate 37.5, got %v", rate)
	}
}

func TestPriceFeedToken(t *testing.T) {
	t.Run("blank without a stored token", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSettingService(t, db)

		token, err := svc.PriceFeedToken()
		if err != nil {
			t.Fatalf("PriceFeedToken failed: %v", err)
		}
		if token != "" {
			t.Errorf("expected empty token, got %q", token)
		}
	})

	t.Run("encrypted at rest, masked in listings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)

		key, err := secrets.GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey failed: %v", err)
		}
		encryptor, err := secrets.NewEncryptor(key)
		if err != nil {
			t.Fatalf("NewEncryptor failed: %v", err)
		}
		svc := service.NewSettingService(repository.NewSettingRepository(db), encryptor)

		if err := svc.Set(context.Background(), model.SettingPriceFeedToken, "secret-token"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		stored, err := repository.NewSettingRepository(db).Get(model.SettingPriceFeedToken)
		if err != nil {
			t.Fatalf("failed to read stored token: %v", err)
		}
		if stored.Value == "secret-token" {
			t.Error("expected token encrypted at rest")
		}

		token, err := svc.PriceFeedToken()
		if err != nil {
			t.Fatalf("PriceFeedToken failed: %v", err)
		}
		if token != "secret-token" {
			t.Errorf("expected decrypted token, got %q", token)
		}

		settings, err := svc.GetAll()
		if err != nil {
			t.Fatalf("GetAll failed: %v", err)
		}
		for _, s := range settings {
			if s.Key == model.SettingPriceFeedToken && s.Value != "********" {
				t.Errorf("expected masked token, got %q", s.Value)
			}
		}
	})
}
