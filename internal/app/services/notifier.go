package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/pkg/email"
	"github.com/yigit/eduadmin/internal/pkg/metrics"
)

// StageNotifier tells an applicant's family that the application reached a
// workflow stage
type StageNotifier interface {
	NotifyStage(ctx context.Context, app *models.AdmissionApplication, stage models.WorkflowStage) error
}

// EmailStageNotifier mails the stage's configured title and content as is
type EmailStageNotifier struct {
	sender  email.Sender
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewEmailStageNotifier creates a new EmailStageNotifier
func NewEmailStageNotifier(sender email.Sender, m *metrics.Metrics, logger zerolog.Logger) *EmailStageNotifier {
	return &EmailStageNotifier{sender: sender, metrics: m, logger: logger}
}

// NotifyStage sends the stage email to every contact on the application.
// Stages without an email title are skipped.
func (n *EmailStageNotifier) NotifyStage(ctx context.Context, app *models.AdmissionApplication, stage models.WorkflowStage) error {
	recipients := applicationContacts(app)
	if stage.EmailTitle == "" || len(recipients) == 0 || !n.sender.Configured() {
		n.metrics.Notifications.WithLabelValues("skipped").Inc()
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.sender.Send(recipients, stage.EmailTitle, stage.EmailContent); err != nil {
		n.metrics.Notifications.WithLabelValues("failed").Inc()
		return err
	}
	n.metrics.Notifications.WithLabelValues("sent").Inc()
	n.logger.Info().
		Str("applicationNumber", app.ApplicationNumber).
		Str("status", stage.Status).
		Int("recipients", len(recipients)).
		Msg("Stage email sent")
	return nil
}

// applicationContacts lists the distinct email addresses on an application
func applicationContacts(app *models.AdmissionApplication) []string {
	seen := make(map[string]bool)
	var out []string
	for _, addr := range []string{app.FatherEmail, app.MotherEmail, app.GuardianEmail, app.Email} {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr)
	}
	return out
}
