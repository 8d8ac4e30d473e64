package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/pkg/events"
)

var gateNow = time.Date(2026, 9, 15, 9, 30, 0, 0, time.UTC)

func newTestGateService() (*gateService, *mockVisitRepo, *mockEventBus) {
	visits := newMockVisitRepo()
	bus := &mockEventBus{}
	svc := NewGateService(visits, bus).(*gateService)
	svc.now = func() time.Time { return gateNow }
	return svc, visits, bus
}

func seedApprovedToday(visits *mockVisitRepo) *domain.VisitDetail {
	return visits.seed(domain.VisitDetail{
		Visit: domain.Visit{
			VisitorID: 100, PrisonerID: 10,
			VisitDate: dateAt(2026, 9, 15), TimeSlot: "10:00-11:00",
			Status: domain.VisitApproved,
		},
		VisitorName: "Vera Stone", JailID: 1, JailName: "Central Facility", HasPass: true,
	})
}

func TestVerify_AllLayersPass(t *testing.T) {
	svc, visits, _ := newTestGateService()
	d := seedApprovedToday(visits)

	report, err := svc.Verify(context.Background(), 1, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK {
		t.Fatalf("expected OK report, failed layer %q", report.FailedLayer)
	}
	if len(report.Layers) != 5 {
		t.Fatalf("expected 5 layers, got %d", len(report.Layers))
	}
	if report.Visit == nil || report.Visit.ID != d.ID {
		t.Fatal("expected visit detail in a passing report")
	}
}

func TestVerify_FailingLayers(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(visits *mockVisitRepo) int64
		failedLayer string
	}{
		{
			"unknown visit",
			func(visits *mockVisitRepo) int64 { return 999 },
			LayerExistence,
		},
		{
			"wrong facility",
			func(visits *mockVisitRepo) int64 {
				// operator is bound to jail 2 below
				return seedApprovedToday(visits).ID
			},
			LayerFacility,
		},
		{
			"still pending",
			func(visits *mockVisitRepo) int64 {
				d := seedApprovedToday(visits)
				visits.visits[d.ID].Status = domain.VisitPending
				return d.ID
			},
			LayerStatus,
		},
		{
			"wrong date",
			func(visits *mockVisitRepo) int64 {
				d := seedApprovedToday(visits)
				visits.visits[d.ID].VisitDate = dateAt(2026, 9, 16)
				return d.ID
			},
			LayerDate,
		},
		{
			"already inside",
			func(visits *mockVisitRepo) int64 {
				d := seedApprovedToday(visits)
				in := gateNow.Add(-time.Hour)
				visits.visits[d.ID].CheckInTime = &in
				return d.ID
			},
			LayerOccupancy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, visits, _ := newTestGateService()
			id := tt.setup(visits)

			operatorJail := int64(1)
			if tt.failedLayer == LayerFacility {
				operatorJail = 2
			}

			report, err := svc.Verify(context.Background(), operatorJail, id)
			if err != nil {
				t.Fatal(err)
			}
			if report.OK {
				t.Fatal("expected a failing report")
			}
			if report.FailedLayer != tt.failedLayer {
				t.Fatalf("failed layer = %q, want %q", report.FailedLayer, tt.failedLayer)
			}
		})
	}
}

func TestVerify_DoesNotMutate(t *testing.T) {
	svc, visits, _ := newTestGateService()
	d := seedApprovedToday(visits)

	if _, err := svc.Verify(context.Background(), 1, d.ID); err != nil {
		t.Fatal(err)
	}
	if visits.visits[d.ID].CheckInTime != nil {
		t.Fatal("verification must not check anyone in")
	}
}

func TestCheckIn_Success(t *testing.T) {
	svc, visits, bus := newTestGateService()
	d := seedApprovedToday(visits)

	out, err := svc.CheckIn(context.Background(), 55, 1, d.ID)
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if out.CheckInTime == nil {
		t.Fatal("expected check-in time set")
	}
	if !bus.published(events.VisitCheckedIn) {
		t.Fatal("expected visit.checked_in event")
	}
}

func TestCheckIn_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(visits *mockVisitRepo) int64
		jail    int64
		wantErr error
	}{
		{
			"unknown visit", func(visits *mockVisitRepo) int64 { return 999 }, 1, domain.ErrNotFound,
		},
		{
			"wrong facility", func(visits *mockVisitRepo) int64 { return seedApprovedToday(visits).ID }, 2, domain.ErrNotFound,
		},
		{
			"not approved",
			func(visits *mockVisitRepo) int64 {
				d := seedApprovedToday(visits)
				visits.visits[d.ID].Status = domain.VisitPending
				return d.ID
			},
			1, domain.ErrNotApproved,
		},
		{
			"wrong date",
			func(visits *mockVisitRepo) int64 {
				d := seedApprovedToday(visits)
				visits.visits[d.ID].VisitDate = dateAt(2026, 9, 14)
				return d.ID
			},
			1, domain.ErrWrongDate,
		},
		{
			"already checked in",
			func(visits *mockVisitRepo) int64 {
				d := seedApprovedToday(visits)
				in := gateNow.Add(-time.Hour)
				visits.visits[d.ID].CheckInTime = &in
				return d.ID
			},
			1, domain.ErrAlreadyCheckedIn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, visits, _ := newTestGateService()
			id := tt.setup(visits)
			_, err := svc.CheckIn(context.Background(), 55, tt.jail, id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckIn_RaceLoserGetsAlreadyCheckedIn(t *testing.T) {
	svc, visits, _ := newTestGateService()
	d := seedApprovedToday(visits)

	// The conditional update reports no rows touched, as if another operator
	// admitted the visitor between our read and write.
	visits.checkInOK = ptrBool(false)

	_, err := svc.CheckIn(context.Background(), 55, 1, d.ID)
	if !errors.Is(err, domain.ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn on a lost race, got %v", err)
	}
}

func TestCheckOut_Flow(t *testing.T) {
	svc, visits, bus := newTestGateService()
	d := seedApprovedToday(visits)

	_, err := svc.CheckOut(context.Background(), 55, 1, d.ID)
	if !errors.Is(err, domain.ErrNotCheckedIn) {
		t.Fatalf("expected ErrNotCheckedIn before admission, got %v", err)
	}

	if _, err := svc.CheckIn(context.Background(), 55, 1, d.ID); err != nil {
		t.Fatal(err)
	}

	out, err := svc.CheckOut(context.Background(), 55, 1, d.ID)
	if err != nil {
		t.Fatalf("check-out failed: %v", err)
	}
	if out.Status != domain.VisitCompleted {
		t.Fatalf("expected COMPLETED after check-out, got %s", out.Status)
	}
	if out.CheckOutTime == nil {
		t.Fatal("expected check-out time set")
	}
	if !bus.published(events.VisitCheckedOut) {
		t.Fatal("expected visit.checked_out event")
	}

	_, err = svc.CheckOut(context.Background(), 55, 1, d.ID)
	if !errors.Is(err, domain.ErrAlreadyCheckedOut) {
		t.Fatalf("expected ErrAlreadyCheckedOut on repeat, got %v", err)
	}
}

func TestCurrentOccupancy(t *testing.T) {
	svc, visits, _ := newTestGateService()
	d1 := seedApprovedToday(visits)
	d2 := seedApprovedToday(visits)
	seedApprovedToday(visits) // never admitted

	if _, err := svc.CheckIn(context.Background(), 55, 1, d1.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CheckIn(context.Background(), 55, 1, d2.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CheckOut(context.Background(), 55, 1, d2.ID); err != nil {
		t.Fatal(err)
	}

	inside, err := svc.CurrentOccupancy(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(inside) != 1 || inside[0].ID != d1.ID {
		t.Fatalf("expected only visit %d inside, got %d entries", d1.ID, len(inside))
	}
}
