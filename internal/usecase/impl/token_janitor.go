package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"notekeeper/config"
	"notekeeper/internal/domain/service"

	"go.uber.org/fx"
)

// TokenJanitor periodically deletes refresh tokens that expired longer ago than the retention window.
// Consumed tokens are kept until then so redemption history stays available for audit.
type TokenJanitor struct {
	ledger    service.RefreshTokenLedger
	interval  time.Duration
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// TokenJanitorParams holds dependencies for TokenJanitor, injected by Fx.
type TokenJanitorParams struct {
	fx.In
	fx.Lifecycle

	Ledger service.RefreshTokenLedger
	Config *config.Config
	Logger *slog.Logger
}

// NewTokenJanitor builds the janitor and ties its loop to the application lifecycle.
// A non-positive auth.purgeInterval disables the loop.
func NewTokenJanitor(params TokenJanitorParams) *TokenJanitor {
	janitor := &TokenJanitor{
		ledger:    params.Ledger,
		interval:  params.Config.Auth.PurgeInterval,
		retention: params.Config.Auth.PurgeRetention,
		timeout:   params.Config.Auth.StoreTimeout,
		now:       time.Now,
		logger:    params.Logger,
	}

	if janitor.interval <= 0 {
		params.Logger.Info("Refresh token janitor disabled")

		return janitor
	}

	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			janitor.start()

			return nil
		},
		OnStop: func(context.Context) error {
			janitor.stop()

			return nil
		},
	})

	return janitor
}

// RunOnce purges tokens that expired before now minus the retention window.
func (j *TokenJanitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)

	return callStore(ctx, j.timeout, func(storeCtx context.Context) (int64, error) {
		return j.ledger.PurgeExpired(storeCtx, cutoff)
	})
}

func (j *TokenJanitor) start() {
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := j.RunOnce(ctx)
				if err != nil {
					j.logger.Warn("Refresh token purge failed", slog.Any("error", err))

					continue
				}
				if removed > 0 {
					j.logger.Info("Purged expired refresh tokens", slog.Int64("removed", removed))
				}
			}
		}
	}()
}

func (j *TokenJanitor) stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}
