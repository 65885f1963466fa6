package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/repository"
	"github.com/optionfolio/backend/internal/secrets"
)

// Defaults applied when a setting key is missing from the store.
const (
	DefaultTaxRatePercent      = 30.0
	DefaultUnitCost            = 10.0
	DefaultTargetReturnPercent = 20.0
)

// SettingService handles key/value configuration: the tax rate, the fixed
// per-unit cost, the target return and the price feed token. The token is
// stored fernet-encrypted when an encryptor is configured.
type SettingService struct {
	settingRepo *repository.SettingRepository
	encryptor   *secrets.Encryptor
}

// NewSettingService creates a new SettingService. The encryptor may be nil,
// in which case the price feed token is stored in plain text.
func NewSettingService(settingRepo *repository.SettingRepository, encryptor *secrets.Encryptor) *SettingService {
	return &SettingService{
		settingRepo: settingRepo,
		encryptor:   encryptor,
	}
}

// GetAll retrieves all settings. The price feed token value is masked.
func (s *SettingService) GetAll() ([]model.Setting, error) {
	settings, err := s.settingRepo.GetAll()
	if err != nil {
		return nil, err
	}
	for i := range settings {
		if settings[i].Key == model.SettingPriceFeedToken && settings[i].Value != "" {
			settings[i].Value = "********"
		}
	}
	return settings, nil
}

// Set writes a setting value. The price feed token is encrypted before
// storage when an encryptor is configured.
func (s *SettingService) Set(ctx context.Context, key, value string) error {
	if key == model.SettingPriceFeedToken && s.encryptor != nil && value != "" {
		encrypted, err := s.encryptor.Encrypt(value)
		if err != nil {
			return err
		}
		value = encrypted
	}
	return s.settingRepo.Upsert(ctx, key, value)
}

func (s *SettingService) getFloat(key string, fallback float64) (float64, error) {
	setting, err := s.settingRepo.Get(key)
	if errors.Is(err, apperrors.ErrSettingNotFound) {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}

	value, err := strconv.ParseFloat(setting.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %s holds a non-numeric value %q: %w", key, setting.Value, err)
	}
	return value, nil
}

// TaxRatePercent returns the configured tax rate percentage.
func (s *SettingService) TaxRatePercent() (float64, error) {
	return s.getFloat(model.SettingTaxRatePercent, DefaultTaxRatePercent)
}

// UnitCost returns the fixed per-unit cost used for grant amounts and the
// cost basis of sales.
func (s *SettingService) UnitCost() (float64, error) {
	return s.getFloat(model.SettingUnitCost, DefaultUnitCost)
}

// TargetReturnPercent returns the configured target return percentage.
func (s *SettingService) TargetReturnPercent() (float64, error) {
	return s.getFloat(model.SettingTargetReturnPercent, DefaultTargetReturnPercent)
}

// PriceFeedToken returns the decrypted price feed token, or an empty string
// when none is configured.
func (s *SettingService) PriceFeedToken() (string, error) {
	setting, err := s.settingRepo.Get(model.SettingPriceFeedToken)
	if errors.Is(err, apperrors.ErrSettingNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if setting.Value == "" {
		return "", nil
	}
	if s.encryptor == nil {
		return setting.Value, nil
	}
	return s.encryptor.Decrypt(setting.Value)
}
