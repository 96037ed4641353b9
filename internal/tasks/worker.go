package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// Mailer delivers composed messages; *mail.Dialer implements it
type Mailer interface {
	DialAndSend(m ...*mail.Message) error
}

var (
	welcomeTemplate = template.Must(template.New("welcome").Parse(
		`<p>Hi {{.Username}},</p>
<p>Welcome to Blog Hut! Your account is ready and you have earned the <strong>Newcomer</strong> badge.</p>
<p>Start writing your first post whenever you like.</p>`))

	passwordResetTemplate = template.Must(template.New("password_reset").Parse(
		`<p>Hi {{.Username}},</p>
<p>We received a request to reset your Blog Hut password. Use the link below within one hour:</p>
<p><a href="{{.ResetURL}}">{{.ResetURL}}</a></p>
<p>If you did not ask for this, you can ignore this email.</p>`))
)

// Worker processes the email tasks
type Worker struct {
	mailer Mailer
	from   string
	logger *zap.Logger
}

// NewWorker creates a new worker instance
func NewWorker(mailer Mailer, from string, logger *zap.Logger) *Worker {
	return &Worker{
		mailer: mailer,
		from:   from,
		logger: logger,
	}
}

// Register adds the task handlers of the worker to mux
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeWelcomeEmail, w.HandleWelcome)
	mux.HandleFunc(TypePasswordResetEmail, w.HandlePasswordReset)
}

// HandleWelcome sends the welcome email
func (w *Worker) HandleWelcome(ctx context.Context, t *asynq.Task) error {
	var p WelcomePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to decode welcome payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.send(p.Email, "Welcome to Blog Hut", welcomeTemplate, p); err != nil {
		return err
	}

	w.logger.Info("welcome email sent", zap.String("username", p.Username))
	return nil
}

// HandlePasswordReset sends the password reset link
func (w *Worker) HandlePasswordReset(ctx context.Context, t *asynq.Task) error {
	var p PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to decode password reset payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.ResetURL == "" {
		return fmt.Errorf("password reset payload without link: %w", asynq.SkipRetry)
	}

	if err := w.send(p.Email, "Reset your Blog Hut password", passwordResetTemplate, p); err != nil {
		return err
	}

	w.logger.Info("password reset email sent", zap.String("username", p.Username))
	return nil
}

// send renders body and delivers it using gopkg.in/mail.v2
func (w *Worker) send(to, subject string, body *template.Template, data any) error {
	if to == "" {
		return fmt.Errorf("email task without recipient: %w", asynq.SkipRetry)
	}

	var buf bytes.Buffer
	if err := body.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render email: %v: %w", err, asynq.SkipRetry)
	}

	m := mail.NewMessage()
	m.SetHeader("From", w.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", buf.String())

	if err := w.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
