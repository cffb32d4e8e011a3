// Package worker hosts background jobs that run alongside the HTTP server.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
)

// RateRefresherConfig holds configuration for the rate refresher
type RateRefresherConfig struct {
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
}

// DefaultRateRefresherConfig returns default configuration
func DefaultRateRefresherConfig() RateRefresherConfig {
	return RateRefresherConfig{
		RefreshInterval: 30 * time.Minute,
		RequestTimeout:  15 * time.Second,
	}
}

// RateRefresher keeps the exchange-rate cache warm for the company
// default currency so expense submissions rarely hit a cold cache.
// Refresh failures are logged and retried on the next tick; the
// provider falls back to its last good table in the meantime.
type RateRefresher struct {
	config RateRefresherConfig

	rateProvider port.RateProvider
	settingsRepo port.SettingsRepository
	logger       *zap.Logger

	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	isRunning    bool
	refreshCount int
	failedCount  int
}

// NewRateRefresher creates a new rate refresher
func NewRateRefresher(
	config RateRefresherConfig,
	rateProvider port.RateProvider,
	settingsRepo port.SettingsRepository,
	logger *zap.Logger,
) *RateRefresher {
	return &RateRefresher{
		config:       config,
		rateProvider: rateProvider,
		settingsRepo: settingsRepo,
		logger:       logger,
	}
}

// Start begins the refresh loop
func (w *RateRefresher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("rate refresher already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("RateRefresher started",
		zap.Duration("refresh_interval", w.config.RefreshInterval))

	go w.refreshLoop()

	return nil
}

// Stop gracefully terminates the refresher
func (w *RateRefresher) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("RateRefresher stopped",
		zap.Int("refresh_count", w.refreshCount),
		zap.Int("failed_count", w.failedCount))

	return nil
}

func (w *RateRefresher) refreshLoop() {
	// Warm the cache immediately rather than waiting a full interval
	w.refreshOnce()

	ticker := time.NewTicker(w.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.refreshOnce()
		}
	}
}

func (w *RateRefresher) refreshOnce() {
	ctx, cancel := context.WithTimeout(w.ctx, w.config.RequestTimeout)
	defer cancel()

	settings, err := w.settingsRepo.Get(ctx)
	if err != nil {
		w.recordFailure()
		w.logger.Warn("Rate refresh skipped, settings unavailable", zap.Error(err))
		return
	}

	if _, err := w.rateProvider.Rates(ctx, settings.DefaultCurrency); err != nil {
		w.recordFailure()
		w.logger.Warn("Rate refresh failed",
			zap.String("base", settings.DefaultCurrency),
			zap.Error(err))
		return
	}

	w.mu.Lock()
	w.refreshCount++
	w.mu.Unlock()

	w.logger.Debug("Exchange rates refreshed",
		zap.String("base", settings.DefaultCurrency))
}

func (w *RateRefresher) recordFailure() {
	w.mu.Lock()
	w.failedCount++
	w.mu.Unlock()
}
