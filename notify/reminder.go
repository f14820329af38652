package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mortgageflow/application"
	"mortgageflow/pipeline"
)

// ErrWindowClosed signals a reminder request for an application whose rate
// expiry is not inside the notification window.
var ErrWindowClosed = errors.New("notify: rate expiry outside reminder window")

// ApplicationLoader fetches the application a reminder concerns.
type ApplicationLoader interface {
	GetByID(ctx context.Context, id string) (application.Application, error)
}

// MarkerRecorder appends the audit-trail marker after a successful send.
type MarkerRecorder interface {
	RecordMarker(ctx context.Context, applicationID string, marker pipeline.Stage) error
}

// ReminderService sends the rate-expiry reminder email and records it on the
// application's history. The send happens first: a failed delivery leaves no
// marker behind.
type ReminderService struct {
	apps   ApplicationLoader
	stages MarkerRecorder
	mailer Mailer
	policy application.ExpiryPolicy
	now    func() time.Time
}

// NewReminderService builds a ReminderService with the default expiry policy.
func NewReminderService(apps ApplicationLoader, stages MarkerRecorder, mailer Mailer) *ReminderService {
	return &ReminderService{
		apps:   apps,
		stages: stages,
		mailer: mailer,
		policy: application.ExcludeExpired,
		now:    time.Now,
	}
}

// WithExpiryPolicy overrides how already-expired rates are treated.
func (s *ReminderService) WithExpiryPolicy(policy application.ExpiryPolicy) *ReminderService {
	s.policy = policy
	return s
}

// WithClock overrides the time source, for tests.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// SendRateExpiryReminder emails the client that their fixed rate ends within
// the reminder window and appends the reminder marker to the application
// history. Returns ErrWindowClosed when the expiry is missing or out of range.
func (s *ReminderService) SendRateExpiryReminder(ctx context.Context, applicationID string) error {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}

	now := s.now()
	if !application.ExpiringWithinWindow(app.InterestRateExpiryDate, now, s.policy) {
		return ErrWindowClosed
	}

	msg := Message{
		To:      app.ClientEmail,
		Subject: "Your mortgage rate is expiring soon",
		Body: fmt.Sprintf(
			"Hi %s,\n\nThe fixed rate of %.2f%% on your mortgage with %s ends on %s. Get in touch with your broker to review your options before it does.\n",
			app.ClientName, app.InterestRate, app.MortgageLender,
			app.InterestRateExpiryDate.Format("2 January 2006"),
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return err
	}

	return s.stages.RecordMarker(ctx, applicationID, pipeline.StageReminderSent)
}
