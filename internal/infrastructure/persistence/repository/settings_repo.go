package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
)

// SettingsRepository implements port.SettingsRepository over the single
// company_settings row
type SettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB, logger *zap.Logger) port.SettingsRepository {
	return &SettingsRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the company settings
func (r *SettingsRepository) Get(ctx context.Context) (*entity.Settings, error) {
	query := `
		SELECT company_name, default_currency, country, auto_approval_limit
		FROM company_settings WHERE id = 1
	`

	var settings entity.Settings
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query).Scan(
		&settings.CompanyName,
		&settings.DefaultCurrency,
		&settings.Country,
		&settings.AutoApprovalLimit,
	)
	if err != nil {
		r.logger.Error("Failed to get company settings", zap.Error(err))
		return nil, fmt.Errorf("failed to get company settings: %w", err)
	}

	return &settings, nil
}

// Update replaces the company settings
func (r *SettingsRepository) Update(ctx context.Context, settings *entity.Settings) error {
	query := `
		UPDATE company_settings
		SET company_name = ?, default_currency = ?, country = ?, auto_approval_limit = ?
		WHERE id = 1
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		settings.CompanyName,
		settings.DefaultCurrency,
		settings.Country,
		settings.AutoApprovalLimit,
	)
	if err != nil {
		r.logger.Error("Failed to update company settings", zap.Error(err))
		return fmt.Errorf("failed to update company settings: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.SettingsRepository = (*SettingsRepository)(nil)
