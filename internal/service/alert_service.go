package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eprison/visitor-management/internal/cache"
	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/internal/platform/mailer"
	"github.com/eprison/visitor-management/internal/repo/postgres"
	"github.com/eprison/visitor-management/pkg/events"
	"github.com/eprison/visitor-management/pkg/logger"
)

const minReasonLength = 10

// AlertService manages the facility-wide emergency broadcast: an append-only
// alert log with an active flag, staff email fan-out on trigger, and a cheap
// poll answer for every logged-in session.
type AlertService interface {
	Trigger(ctx context.Context, issuer *domain.User, reason, location string) (*domain.EmergencyAlert, error)
	Resolve(ctx context.Context, adminID, alertID int64) (*domain.EmergencyAlert, error)
	Reactivate(ctx context.Context, adminID, alertID int64) (*domain.EmergencyAlert, error)
	PollActive(ctx context.Context) (*domain.EmergencyAlert, error)
	List(ctx context.Context, filter domain.AlertFilter) ([]domain.EmergencyAlert, *domain.AlertStats, error)
}

type alertService struct {
	alerts        postgres.AlertRepo
	users         postgres.UserRepo
	mail          mailer.Service
	eventBus      events.Publisher
	activeCache   *cache.AlertCache
	fanoutTimeout time.Duration
	now           func() time.Time
}

func NewAlertService(
	alerts postgres.AlertRepo,
	users postgres.UserRepo,
	mail mailer.Service,
	eventBus events.Publisher,
	activeCache *cache.AlertCache,
	fanoutTimeout time.Duration,
) AlertService {
	return &alertService{
		alerts:        alerts,
		users:         users,
		mail:          mail,
		eventBus:      eventBus,
		activeCache:   activeCache,
		fanoutTimeout: fanoutTimeout,
		now:           time.Now,
	}
}

// ClassifyEmergency buckets the free-text reason into an emergency type by
// keyword. Falls through to GENERAL EMERGENCY.
func ClassifyEmergency(reason string) string {
	lower := strings.ToLower(reason)
	contains := func(keywords ...string) bool {
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("fight", "violence", "attack", "assault", "riot"):
		return "VIOLENCE/FIGHT"
	case contains("medical", "injury", "hurt", "sick", "health", "ambulance"):
		return "MEDICAL EMERGENCY"
	case contains("fire", "smoke", "burn", "flames"):
		return "FIRE EMERGENCY"
	case contains("escape", "missing", "fled", "breakout"):
		return "ESCAPE ATTEMPT"
	case contains("breach", "unauthorized", "security", "intruder"):
		return "SECURITY BREACH"
	case contains("lockdown", "lock down", "secure", "containment"):
		return "LOCKDOWN REQUIRED"
	case contains("weapon", "knife", "gun", "contraband"):
		return "WEAPON/CONTRABAND"
	default:
		return "GENERAL EMERGENCY"
	}
}

// Trigger creates a new active alert. Other active alerts are left untouched;
// the log is append-only and poll picks the most recent. Notification fan-out
// is fire-and-forget relative to the alert row.
func (s *alertService) Trigger(ctx context.Context, issuer *domain.User, reason, location string) (*domain.EmergencyAlert, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < minReasonLength {
		return nil, domain.Validation("reason", fmt.Sprintf("emergency reason must be at least %d characters long", minReasonLength))
	}
	if location == "" {
		location = "Security Dashboard"
	}

	emergencyType := ClassifyEmergency(reason)
	message := fmt.Sprintf(
		"FACILITY EMERGENCY ALERT\n\nEmergency Type: %s\nLocation: %s\nReported By: %s\n\n%s",
		emergencyType, location, issuer.FullName, reason,
	)

	alert, err := s.alerts.Create(ctx, message, issuer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create emergency alert: %w", err)
	}

	if err := s.activeCache.Invalidate(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to invalidate alert cache", "error", err)
	}

	// Fan-out must never fail or delay the alert record.
	go s.notifyStaff(alert, emergencyType, location, reason, issuer)

	event := events.AlertTriggeredEvent{
		AlertID:       alert.ID,
		EmergencyType: emergencyType,
		Location:      location,
		IssuedBy:      issuer.ID,
		IssuedAt:      alert.IssuedAt,
	}
	if err := s.eventBus.Publish(ctx, events.AlertTriggered, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish alert triggered event", "error", err, "alert_id", alert.ID)
	}

	logger.InfoContext(ctx, "Emergency alert activated",
		"alert_id", alert.ID,
		"emergency_type", emergencyType,
		"location", location,
		"issued_by", issuer.Username,
	)

	return alert, nil
}

func (s *alertService) notifyStaff(alert *domain.EmergencyAlert, emergencyType, location, reason string, issuer *domain.User) {
	ctx, cancel := context.WithTimeout(context.Background(), s.fanoutTimeout)
	defer cancel()

	emails, err := s.users.StaffEmails(ctx)
	if err != nil {
		logger.Error("Failed to load staff emails for alert fan-out", "error", err, "alert_id", alert.ID)
		return
	}

	subject := fmt.Sprintf("EMERGENCY ALERT #%d - IMMEDIATE RESPONSE REQUIRED", alert.ID)
	text := fmt.Sprintf(
		"FACILITY EMERGENCY ALERT\n\nAlert ID: #%d\nEmergency Type: %s\nLocation: %s\nReported By: %s\nTime: %s\n\nEMERGENCY DESCRIPTION:\n%s\n\nRespond immediately and follow emergency protocols.",
		alert.ID, emergencyType, location, issuer.FullName, alert.IssuedAt.Format("2006-01-02 15:04:05"), reason,
	)
	html := fmt.Sprintf(
		`<h2>FACILITY EMERGENCY ALERT</h2><p><strong>Alert ID:</strong> #%d</p><p><strong>Emergency Type:</strong> %s</p><p><strong>Location:</strong> %s</p><p><strong>Reported By:</strong> %s</p><p>%s</p>`,
		alert.ID, emergencyType, location, issuer.FullName, reason,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, email := range emails {
		email := email
		g.Go(func() error {
			if _, err := s.mail.Send(email, "", subject, text, html); err != nil {
				// Log and swallow: one bad mailbox must not stop the rest.
				logger.Error("Emergency notification failed", "error", err, "alert_id", alert.ID, "recipient", email)
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("Emergency notifications sent", "alert_id", alert.ID, "recipients", len(emails))
}

func (s *alertService) Resolve(ctx context.Context, adminID, alertID int64) (*domain.EmergencyAlert, error) {
	return s.setActive(ctx, adminID, alertID, false, events.AlertResolved)
}

func (s *alertService) Reactivate(ctx context.Context, adminID, alertID int64) (*domain.EmergencyAlert, error) {
	return s.setActive(ctx, adminID, alertID, true, events.AlertReactivated)
}

func (s *alertService) setActive(ctx context.Context, adminID, alertID int64, active bool, subject string) (*domain.EmergencyAlert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, domain.ErrNotFound
	}

	if alert.IsActive != active {
		if _, err := s.alerts.SetActive(ctx, alertID, active); err != nil {
			return nil, fmt.Errorf("failed to update alert state: %w", err)
		}
		alert.IsActive = active
	}

	if err := s.activeCache.Invalidate(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to invalidate alert cache", "error", err)
	}

	event := events.AlertStateChangedEvent{
		AlertID:   alertID,
		Active:    active,
		ChangedBy: adminID,
		ChangedAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish alert state event", "error", err, "alert_id", alertID)
	}

	return alert, nil
}

// PollActive returns the most recently issued active alert, or nil. The
// answer is cached with a short TTL; a cold or unavailable cache falls
// through to the database.
func (s *alertService) PollActive(ctx context.Context) (*domain.EmergencyAlert, error) {
	if alert, found := s.activeCache.GetActive(ctx); found {
		return alert, nil
	}

	alert, err := s.alerts.LatestActive(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.activeCache.SetActive(ctx, alert); err != nil {
		logger.WarnContext(ctx, "Failed to cache active alert", "error", err)
	}
	return alert, nil
}

func (s *alertService) List(ctx context.Context, filter domain.AlertFilter) ([]domain.EmergencyAlert, *domain.AlertStats, error) {
	alerts, err := s.alerts.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	stats, err := s.alerts.Stats(ctx, s.now())
	if err != nil {
		return nil, nil, err
	}
	return alerts, stats, nil
}
