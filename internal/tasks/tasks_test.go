package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// mockEnqueuer is a mock implementation of Enqueuer
type mockEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tasks = append(m.tasks, task)
	m.opts = append(m.opts, opts)
	return &asynq.TaskInfo{ID: "task-1", Queue: EmailQueueName}, nil
}

// mockMailer is a mock implementation of Mailer
type mockMailer struct {
	sent []*mail.Message
	err  error
}

func (m *mockMailer) DialAndSend(msgs ...*mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msgs...)
	return nil
}

// mockPurger is a mock implementation of ExpiredPurger
type mockPurger struct {
	calls []time.Time
	count int
	err   error
}

func (m *mockPurger) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.calls = append(m.calls, now)
	return m.count, m.err
}

func TestEmailQueue_EnqueueWelcome(t *testing.T) {
	client := &mockEnqueuer{}
	queue := NewEmailQueue(client, zap.NewNop())

	err := queue.EnqueueWelcome(context.Background(), "alice@example.com", "alice")

	require.NoError(t, err)
	require.Len(t, client.tasks, 1)
	assert.Equal(t, TypeWelcomeEmail, client.tasks[0].Type())
	assert.JSONEq(t, `{"email":"alice@example.com","username":"alice"}`, string(client.tasks[0].Payload()))
	assert.Len(t, client.opts[0], 3)
}

func TestEmailQueue_EnqueuePasswordReset(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := &mockEnqueuer{}
		queue := NewEmailQueue(client, zap.NewNop())

		err := queue.EnqueuePasswordReset(context.Background(), "alice@example.com", "alice", "http://localhost:8080/reset-password?token=abc")

		require.NoError(t, err)
		require.Len(t, client.tasks, 1)
		assert.Equal(t, TypePasswordResetEmail, client.tasks[0].Type())

		var payload PasswordResetPayload
		require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &payload))
		assert.Equal(t, "http://localhost:8080/reset-password?token=abc", payload.ResetURL)
	})

	t.Run("redis unavailable", func(t *testing.T) {
		queue := NewEmailQueue(&mockEnqueuer{err: errors.New("dial tcp: connection refused")}, zap.NewNop())

		err := queue.EnqueuePasswordReset(context.Background(), "alice@example.com", "alice", "http://x")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to enqueue email:password_reset task")
	})
}

func TestWorker_HandleWelcome(t *testing.T) {
	tests := []struct {
		name          string
		payload       string
		mailErr       error
		expectedSent  int
		expectedError bool
		skipRetry     bool
	}{
		{
			name:         "success",
			payload:      `{"email":"alice@example.com","username":"alice"}`,
			expectedSent: 1,
		},
		{
			name:          "malformed payload",
			payload:       `{"email":`,
			expectedError: true,
			skipRetry:     true,
		},
		{
			name:          "missing recipient",
			payload:       `{"username":"alice"}`,
			expectedError: true,
			skipRetry:     true,
		},
		{
			name:          "smtp failure is retried",
			payload:       `{"email":"alice@example.com","username":"alice"}`,
			mailErr:       errors.New("connection reset"),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &mockMailer{err: tt.mailErr}
			worker := NewWorker(mailer, "noreply@bloghut.local", zap.NewNop())

			err := worker.HandleWelcome(context.Background(), asynq.NewTask(TypeWelcomeEmail, []byte(tt.payload)))

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
			} else {
				require.NoError(t, err)
			}
			require.Len(t, mailer.sent, tt.expectedSent)
			if tt.expectedSent > 0 {
				msg := mailer.sent[0]
				assert.Equal(t, []string{"alice@example.com"}, msg.GetHeader("To"))
				assert.Equal(t, []string{"noreply@bloghut.local"}, msg.GetHeader("From"))
				assert.Equal(t, []string{"Welcome to Blog Hut"}, msg.GetHeader("Subject"))
			}
		})
	}
}

func TestWorker_HandlePasswordReset(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mailer := &mockMailer{}
		worker := NewWorker(mailer, "noreply@bloghut.local", zap.NewNop())
		payload := `{"email":"alice@example.com","username":"alice","reset_url":"http://localhost:8080/reset-password?token=abc"}`

		err := worker.HandlePasswordReset(context.Background(), asynq.NewTask(TypePasswordResetEmail, []byte(payload)))

		require.NoError(t, err)
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, []string{"Reset your Blog Hut password"}, mailer.sent[0].GetHeader("Subject"))
	})

	t.Run("missing link", func(t *testing.T) {
		mailer := &mockMailer{}
		worker := NewWorker(mailer, "noreply@bloghut.local", zap.NewNop())

		err := worker.HandlePasswordReset(context.Background(), asynq.NewTask(TypePasswordResetEmail, []byte(`{"email":"alice@example.com"}`)))

		require.Error(t, err)
		assert.ErrorIs(t, err, asynq.SkipRetry)
		assert.Empty(t, mailer.sent)
	})
}

func TestPasswordResetTemplate_EscapesUsername(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, passwordResetTemplate.Execute(&buf, PasswordResetPayload{
		Username: "<script>",
		ResetURL: "http://localhost:8080/reset-password?token=abc",
	}))

	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), `href="http://localhost:8080/reset-password?token=abc"`)
}

func TestCleanup_Run(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("both tables are purged", func(t *testing.T) {
		remember := &mockPurger{count: 3}
		resets := &mockPurger{count: 1}
		cleanup := NewCleanup(remember, resets, zap.NewNop())
		cleanup.now = func() time.Time { return now }

		cleanup.Run(context.Background())

		assert.Equal(t, []time.Time{now}, remember.calls)
		assert.Equal(t, []time.Time{now}, resets.calls)
	})

	t.Run("a failure does not skip the other table", func(t *testing.T) {
		remember := &mockPurger{err: errors.New("deadlock")}
		resets := &mockPurger{}
		cleanup := NewCleanup(remember, resets, zap.NewNop())

		cleanup.Run(context.Background())

		assert.Len(t, resets.calls, 1)
	})
}

func TestCleanup_Schedule(t *testing.T) {
	cleanup := NewCleanup(&mockPurger{}, &mockPurger{}, zap.NewNop())
	scheduler := cron.New()

	id, err := cleanup.Schedule(scheduler, CleanupSchedule)
	require.NoError(t, err)
	assert.True(t, scheduler.Entry(id).Valid())

	_, err = cleanup.Schedule(scheduler, "every hour")
	assert.Error(t, err)
}
