package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CleanupSchedule runs the token clean-up at the start of every hour
const CleanupSchedule = "0 * * * *"

const cleanupTimeout = time.Minute

// ExpiredPurger deletes rows that are no longer usable at now
type ExpiredPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Cleanup removes expired remember-me tokens and password resets
type Cleanup struct {
	rememberTokens ExpiredPurger
	passwordResets ExpiredPurger
	logger         *zap.Logger
	now            func() time.Time
}

// NewCleanup creates a new clean-up job
func NewCleanup(rememberTokens, passwordResets ExpiredPurger, logger *zap.Logger) *Cleanup {
	return &Cleanup{
		rememberTokens: rememberTokens,
		passwordResets: passwordResets,
		logger:         logger,
		now:            time.Now,
	}
}

// Schedule registers the job on scheduler with a standard five-field cron expression
func (c *Cleanup) Schedule(scheduler *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		c.Run(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("invalid cron expression: %w", err)
	}
	return id, nil
}

// Run performs one clean-up pass. Failures are logged; one table failing does not skip the other.
func (c *Cleanup) Run(ctx context.Context) {
	now := c.now()

	if n, err := c.rememberTokens.DeleteExpired(ctx, now); err != nil {
		c.logger.Error("failed to delete expired remember-me tokens", zap.Error(err))
	} else if n > 0 {
		c.logger.Info("deleted expired remember-me tokens", zap.Int("count", n))
	}

	if n, err := c.passwordResets.DeleteExpired(ctx, now); err != nil {
		c.logger.Error("failed to delete expired password resets", zap.Error(err))
	} else if n > 0 {
		c.logger.Info("deleted expired password resets", zap.Int("count", n))
	}
}
