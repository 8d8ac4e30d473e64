package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/pkg/events"
)

func newTestAlertService() (*alertService, *mockAlertRepo, *mockUserRepo, *mockMailer, *mockEventBus) {
	alerts := newMockAlertRepo()
	users := newMockUserRepo()
	mail := &mockMailer{}
	bus := &mockEventBus{}

	users.staffEmails = []string{"admin@central.test", "guard1@central.test", "guard2@central.test"}

	// nil cache: the poll path falls through to the repo
	svc := NewAlertService(alerts, users, mail, bus, nil, 5*time.Second).(*alertService)
	return svc, alerts, users, mail, bus
}

func testIssuer() *domain.User {
	return &domain.User{ID: 55, Username: "sgt.cole", FullName: "Sgt Cole", Role: domain.RoleSecurity, JailID: ptrInt64(1)}
}

func TestTrigger_ReasonTooShort(t *testing.T) {
	svc, _, _, _, _ := newTestAlertService()

	for _, reason := range []string{"", "fight", "   fire     "} {
		_, err := svc.Trigger(context.Background(), testIssuer(), reason, "Block C")
		if !domain.IsValidation(err) {
			t.Fatalf("reason %q: expected validation error, got %v", reason, err)
		}
	}
}

func TestTrigger_CreatesActiveAlert(t *testing.T) {
	svc, alerts, _, _, bus := newTestAlertService()

	alert, err := svc.Trigger(context.Background(), testIssuer(), "fight broke out in block C", "Block C")
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if !alert.IsActive {
		t.Fatal("new alert must be active")
	}
	if !strings.Contains(alert.Message, "VIOLENCE/FIGHT") {
		t.Fatalf("message not classified: %q", alert.Message)
	}
	if !strings.Contains(alert.Message, "Block C") {
		t.Fatal("message missing location")
	}
	if !bus.published(events.AlertTriggered) {
		t.Fatal("expected alert.triggered event")
	}
	if len(alerts.alerts) != 1 {
		t.Fatalf("expected 1 stored alert, got %d", len(alerts.alerts))
	}
}

func TestTrigger_DoesNotResolveOthers(t *testing.T) {
	svc, alerts, _, _, _ := newTestAlertService()

	first, err := svc.Trigger(context.Background(), testIssuer(), "medical emergency in the yard", "Yard")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Trigger(context.Background(), testIssuer(), "fire reported in the kitchen", "Kitchen"); err != nil {
		t.Fatal(err)
	}

	if !alerts.alerts[first.ID].IsActive {
		t.Fatal("a new alert must not deactivate earlier ones")
	}
}

func TestNotifyStaff_FansOutToAllStaff(t *testing.T) {
	svc, alerts, _, mail, _ := newTestAlertService()

	alert, _ := alerts.Create(context.Background(), "test alert", 55)
	svc.notifyStaff(alert, "GENERAL EMERGENCY", "Gate", "something happened here", testIssuer())

	if len(mail.recipients) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(mail.recipients))
	}
}

func TestNotifyStaff_SendFailureDoesNotStopOthers(t *testing.T) {
	svc, alerts, _, mail, _ := newTestAlertService()
	mail.sendErr = errors.New("smtp down")

	alert, _ := alerts.Create(context.Background(), "test alert", 55)
	svc.notifyStaff(alert, "GENERAL EMERGENCY", "Gate", "something happened here", testIssuer())

	if len(mail.recipients) != 3 {
		t.Fatalf("all sends should be attempted despite failures, got %d", len(mail.recipients))
	}
}

func TestClassifyEmergency(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"a fight broke out between inmates", "VIOLENCE/FIGHT"},
		{"visitor collapsed, needs ambulance", "MEDICAL EMERGENCY"},
		{"smoke coming from the kitchen", "FIRE EMERGENCY"},
		{"inmate missing from count", "ESCAPE ATTEMPT"},
		{"unauthorized person in the corridor", "SECURITY BREACH"},
		{"requesting lockdown of wing B", "LOCKDOWN REQUIRED"},
		{"knife found during search", "WEAPON/CONTRABAND"},
		{"something odd is going on", "GENERAL EMERGENCY"},
	}
	for _, tt := range tests {
		if got := ClassifyEmergency(tt.reason); got != tt.want {
			t.Errorf("ClassifyEmergency(%q) = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

func TestResolveAndReactivate(t *testing.T) {
	svc, alerts, _, _, bus := newTestAlertService()

	alert, err := svc.Trigger(context.Background(), testIssuer(), "fight broke out in block C", "Block C")
	if err != nil {
		t.Fatal(err)
	}

	resolved, err := svc.Resolve(context.Background(), 7, alert.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.IsActive {
		t.Fatal("resolved alert still active")
	}
	if alerts.alerts[alert.ID].IsActive {
		t.Fatal("stored alert still active")
	}
	if !bus.published(events.AlertResolved) {
		t.Fatal("expected alert.resolved event")
	}

	reactivated, err := svc.Reactivate(context.Background(), 7, alert.ID)
	if err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	if !reactivated.IsActive {
		t.Fatal("reactivated alert not active")
	}
	if !bus.published(events.AlertReactivated) {
		t.Fatal("expected alert.reactivated event")
	}
}

func TestResolve_UnknownAlert(t *testing.T) {
	svc, _, _, _, _ := newTestAlertService()

	_, err := svc.Resolve(context.Background(), 7, 999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	svc, _, _, _, _ := newTestAlertService()

	alert, err := svc.Trigger(context.Background(), testIssuer(), "fight broke out in block C", "Block C")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resolve(context.Background(), 7, alert.ID); err != nil {
		t.Fatal(err)
	}
	// Resolving an already-resolved alert is a no-op, not an error.
	out, err := svc.Resolve(context.Background(), 7, alert.ID)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if out.IsActive {
		t.Fatal("alert should remain resolved")
	}
}

func TestPollActive(t *testing.T) {
	svc, alerts, _, _, _ := newTestAlertService()

	got, err := svc.PollActive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected no active alert")
	}

	older, _ := alerts.Create(context.Background(), "older alert", 55)
	alerts.alerts[older.ID].IssuedAt = time.Now().Add(-time.Hour)
	newer, _ := alerts.Create(context.Background(), "newer alert", 55)

	got, err = svc.PollActive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != newer.ID {
		t.Fatal("poll should return the most recently issued active alert")
	}
}

func TestList_ReturnsStats(t *testing.T) {
	svc, _, _, _, _ := newTestAlertService()

	for _, reason := range []string{"fight broke out in block C", "medical emergency in the yard"} {
		if _, err := svc.Trigger(context.Background(), testIssuer(), reason, ""); err != nil {
			t.Fatal(err)
		}
	}
	a, err := svc.Trigger(context.Background(), testIssuer(), "smoke in the kitchen area", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resolve(context.Background(), 7, a.ID); err != nil {
		t.Fatal(err)
	}

	list, stats, err := svc.List(context.Background(), domain.AlertFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(list))
	}
	if stats.Total != 3 || stats.Active != 2 || stats.Resolved != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
