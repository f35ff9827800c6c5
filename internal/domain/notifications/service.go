package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trainerleave/internal/domain/leave"
	"trainerleave/internal/requestctx"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store        StoreAPI
	Mailer       Mailer
	Registry     *Registry
	EmailEnabled bool
	DefaultFrom  string
	Now          func() time.Time
}

func New(store StoreAPI, mailer Mailer, registry *Registry) *Service {
	return &Service{store: store, Mailer: mailer, Registry: registry, DefaultFrom: "no-reply@example.com", Now: time.Now}
}

// Notify stores one inbox entry per recipient, pushes it to live sessions and
// mails it when e-mail is enabled. Mail failures are only logged.
func (s *Service) Notify(ctx context.Context, recipients []string, event string, payload map[string]any) error {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	var errs []error
	seen := map[string]struct{}{}
	for _, userID := range recipients {
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		n := Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      event,
			Title:     title(event),
			Body:      describe(event, payload),
			Payload:   payload,
			CreatedAt: now,
		}
		if err := s.store.CreateNotification(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("store notification for %s: %w", userID, err))
			continue
		}
		if s.Registry != nil {
			s.Registry.Publish(userID, n)
		}
		s.sendEmail(ctx, n)
	}
	return errors.Join(errs...)
}

func (s *Service) sendEmail(ctx context.Context, n Notification) {
	if s.Mailer == nil || !s.EmailEnabled {
		return
	}
	email, err := s.store.UserEmail(ctx, n.UserID)
	if err != nil {
		requestctx.Logger(ctx).Warn("notification email lookup failed", "userId", n.UserID, "err", err)
		return
	}
	if email == "" {
		return
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, n.Title, n.Body); err != nil {
		requestctx.Logger(ctx).Warn("notification email send failed", "userId", n.UserID, "err", err)
	}
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.store.CountNotifications(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

func title(event string) string {
	if t, ok := titles[event]; ok {
		return t
	}
	return event
}

func describe(event string, payload map[string]any) string {
	switch v := payload["request"].(type) {
	case leave.LeaveRequest:
		line := fmt.Sprintf("%s leave from %s to %s (%d days) is now %s.",
			v.LeaveType, v.FromDate.Format("2006-01-02"), v.ToDate.Format("2006-01-02"), v.NumberOfDays, v.Status)
		if v.AdminRemarks != "" {
			line += "\nRemarks: " + v.AdminRemarks
		}
		return line
	}
	if event == TypeLeaveBalanceUpdated {
		if b, ok := payload["balance"].(leave.Balance); ok {
			if b.Unlimited {
				return fmt.Sprintf("%s balance is now unlimited.", b.LeaveType)
			}
			return fmt.Sprintf("%s balance is now %s days.", b.LeaveType, b.Available.String())
		}
	}
	return title(event)
}
