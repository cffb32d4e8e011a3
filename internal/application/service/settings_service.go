package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// SettingsService owns company settings and ad-hoc currency conversion
type SettingsService interface {
	Get(ctx context.Context) (*entity.Settings, error)
	Update(ctx context.Context, settings entity.Settings) (*entity.Settings, error)
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

type settingsServiceImpl struct {
	settingsRepo port.SettingsRepository
	rateProvider port.RateProvider
	logger       Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(settingsRepo port.SettingsRepository, rateProvider port.RateProvider, logger Logger) SettingsService {
	return &settingsServiceImpl{
		settingsRepo: settingsRepo,
		rateProvider: rateProvider,
		logger:       logger,
	}
}

func (s *settingsServiceImpl) Get(ctx context.Context) (*entity.Settings, error) {
	return s.settingsRepo.Get(ctx)
}

func (s *settingsServiceImpl) Update(ctx context.Context, settings entity.Settings) (*entity.Settings, error) {
	if strings.TrimSpace(settings.CompanyName) == "" {
		return nil, fmt.Errorf("company name is required")
	}
	if strings.TrimSpace(settings.DefaultCurrency) == "" {
		return nil, fmt.Errorf("default currency is required")
	}
	if settings.AutoApprovalLimit < 0 {
		return nil, fmt.Errorf("auto approval limit must not be negative")
	}
	settings.DefaultCurrency = strings.ToUpper(settings.DefaultCurrency)

	if err := s.settingsRepo.Update(ctx, &settings); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	s.logger.Info("Company settings updated",
		"default_currency", settings.DefaultCurrency,
		"auto_approval_limit", settings.AutoApprovalLimit)

	return &settings, nil
}

// Convert converts an amount between currencies using the live rate table
func (s *settingsServiceImpl) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return 0, fmt.Errorf("both source and target currencies are required")
	}

	rates, err := s.rateProvider.Rates(ctx, from)
	if err != nil {
		return 0, fmt.Errorf("failed to load exchange rates: %w", err)
	}

	return approval.Convert(amount, from, to, rates)
}
