// Package tasks holds the background jobs of the application: transactional
// emails delivered through an asynq queue and periodic token clean-up.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// TypeWelcomeEmail is sent once after registration
	TypeWelcomeEmail = "email:welcome"
	// TypePasswordResetEmail carries a password reset link
	TypePasswordResetEmail = "email:password_reset"

	// EmailQueueName is the asynq queue served by the worker
	EmailQueueName = "emails"

	emailMaxRetry = 5
	emailTimeout  = 30 * time.Second
)

// WelcomePayload is the payload of an email:welcome task
type WelcomePayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// PasswordResetPayload is the payload of an email:password_reset task
type PasswordResetPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	ResetURL string `json:"reset_url"`
}

// Enqueuer is the part of *asynq.Client used to schedule tasks
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EmailQueue schedules transactional emails for the worker
type EmailQueue struct {
	client Enqueuer
	logger *zap.Logger
}

// NewEmailQueue creates a new email queue on top of an asynq client
func NewEmailQueue(client Enqueuer, logger *zap.Logger) *EmailQueue {
	return &EmailQueue{
		client: client,
		logger: logger,
	}
}

// EnqueueWelcome schedules the welcome email of a new account
func (q *EmailQueue) EnqueueWelcome(ctx context.Context, email, username string) error {
	return q.enqueue(ctx, TypeWelcomeEmail, WelcomePayload{Email: email, Username: username})
}

// EnqueuePasswordReset schedules an email containing a password reset link
func (q *EmailQueue) EnqueuePasswordReset(ctx context.Context, email, username, resetURL string) error {
	return q.enqueue(ctx, TypePasswordResetEmail, PasswordResetPayload{Email: email, Username: username, ResetURL: resetURL})
}

func (q *EmailQueue) enqueue(ctx context.Context, taskType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", taskType, err)
	}

	task := asynq.NewTask(taskType, data)
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(EmailQueueName),
		asynq.MaxRetry(emailMaxRetry),
		asynq.Timeout(emailTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s task: %w", taskType, err)
	}

	q.logger.Debug("email task enqueued", zap.String("type", taskType), zap.String("task_id", info.ID))
	return nil
}
