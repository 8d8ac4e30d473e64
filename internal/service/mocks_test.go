package service

import (
	"context"
	"sync"
	"time"

	"github.com/eprison/visitor-management/internal/domain"
)

// ---------- Mocks ----------

type mockVisitRepo struct {
	nextID int64
	visits map[int64]*domain.VisitDetail

	// pass bytes keyed by visit ID
	passes map[int64][]byte

	lastEmergency *time.Time

	// forced results
	checkInOK  *bool
	checkOutOK *bool
}

func newMockVisitRepo() *mockVisitRepo {
	return &mockVisitRepo{
		nextID: 1,
		visits: make(map[int64]*domain.VisitDetail),
		passes: make(map[int64][]byte),
	}
}

func (m *mockVisitRepo) seed(d domain.VisitDetail) *domain.VisitDetail {
	if d.ID == 0 {
		d.ID = m.nextID
		m.nextID++
	} else if d.ID >= m.nextID {
		m.nextID = d.ID + 1
	}
	if d.Status == "" {
		d.Status = domain.VisitPending
	}
	m.visits[d.ID] = &d
	return &d
}

func (m *mockVisitRepo) Create(_ context.Context, visitorID, prisonerID int64, visitDate time.Time, timeSlot string, visitType domain.VisitType) (*domain.Visit, error) {
	d := m.seed(domain.VisitDetail{
		Visit: domain.Visit{
			VisitorID:  visitorID,
			PrisonerID: prisonerID,
			VisitDate:  visitDate,
			TimeSlot:   timeSlot,
			VisitType:  visitType,
			Status:     domain.VisitPending,
			CreatedAt:  time.Now(),
		},
	})
	v := d.Visit
	return &v, nil
}

func (m *mockVisitRepo) GetDetail(_ context.Context, id int64) (*domain.VisitDetail, error) {
	d, ok := m.visits[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *mockVisitRepo) GetDetailForJail(_ context.Context, id, jailID int64) (*domain.VisitDetail, error) {
	d, ok := m.visits[id]
	if !ok || d.JailID != jailID {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *mockVisitRepo) GetPendingForJail(_ context.Context, id, jailID int64) (*domain.VisitDetail, error) {
	d, ok := m.visits[id]
	if !ok || d.JailID != jailID || d.Status != domain.VisitPending {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *mockVisitRepo) ListByVisitor(_ context.Context, visitorID int64) ([]domain.VisitDetail, error) {
	var out []domain.VisitDetail
	for _, d := range m.visits {
		if d.VisitorID == visitorID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockVisitRepo) ListPendingForJail(_ context.Context, jailID int64) ([]domain.VisitDetail, error) {
	var out []domain.VisitDetail
	for _, d := range m.visits {
		if d.JailID == jailID && d.Status == domain.VisitPending {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockVisitRepo) ExistsDuplicate(_ context.Context, visitorID, prisonerID int64, visitDate time.Time, timeSlot string) (bool, error) {
	for _, d := range m.visits {
		if d.VisitorID != visitorID || d.PrisonerID != prisonerID || d.TimeSlot != timeSlot {
			continue
		}
		if !d.VisitDate.Equal(visitDate) {
			continue
		}
		if d.Status == domain.VisitPending || d.Status == domain.VisitApproved {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockVisitRepo) LastEmergencyDate(_ context.Context, _ int64) (*time.Time, error) {
	return m.lastEmergency, nil
}

func (m *mockVisitRepo) Approve(_ context.Context, id, jailID, adminID int64, passPNG []byte) (bool, error) {
	d, ok := m.visits[id]
	if !ok || d.JailID != jailID || d.Status != domain.VisitPending {
		return false, nil
	}
	d.Status = domain.VisitApproved
	d.DecidedBy = &adminID
	d.HasPass = true
	m.passes[id] = passPNG
	return true, nil
}

func (m *mockVisitRepo) Reject(_ context.Context, id, jailID, adminID int64) (bool, error) {
	d, ok := m.visits[id]
	if !ok || d.JailID != jailID || d.Status != domain.VisitPending {
		return false, nil
	}
	d.Status = domain.VisitRejected
	d.DecidedBy = &adminID
	return true, nil
}

func (m *mockVisitRepo) PassPNG(_ context.Context, id, jailID int64) ([]byte, error) {
	d, ok := m.visits[id]
	if !ok || d.JailID != jailID {
		return nil, nil
	}
	return m.passes[id], nil
}

func (m *mockVisitRepo) CheckIn(_ context.Context, id, jailID int64, today time.Time) (bool, error) {
	if m.checkInOK != nil {
		return *m.checkInOK, nil
	}
	d, ok := m.visits[id]
	if !ok || d.JailID != jailID || d.Status != domain.VisitApproved || d.CheckInTime != nil {
		return false, nil
	}
	if !d.VisitDate.Equal(today) {
		return false, nil
	}
	now := time.Now()
	d.CheckInTime = &now
	return true, nil
}

func (m *mockVisitRepo) CheckOut(_ context.Context, id, jailID int64) (bool, error) {
	if m.checkOutOK != nil {
		return *m.checkOutOK, nil
	}
	d, ok := m.visits[id]
	if !ok || d.JailID != jailID || d.CheckInTime == nil || d.CheckOutTime != nil {
		return false, nil
	}
	now := time.Now()
	d.CheckOutTime = &now
	d.Status = domain.VisitCompleted
	return true, nil
}

func (m *mockVisitRepo) CurrentlyInside(_ context.Context, jailID int64) ([]domain.VisitDetail, error) {
	var out []domain.VisitDetail
	for _, d := range m.visits {
		if d.JailID == jailID && d.CheckInTime != nil && d.CheckOutTime == nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockVisitRepo) TodaysApproved(_ context.Context, jailID int64, today time.Time) ([]domain.VisitDetail, error) {
	var out []domain.VisitDetail
	for _, d := range m.visits {
		if d.JailID == jailID && d.Status == domain.VisitApproved && d.VisitDate.Equal(today) {
			out = append(out, *d)
		}
	}
	return out, nil
}

type mockUserRepo struct {
	users       map[int64]*domain.User
	blacklisted map[int64]string
	staffEmails []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:       make(map[int64]*domain.User),
		blacklisted: make(map[int64]string),
	}
}

func (m *mockUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) IsBlacklisted(_ context.Context, userID int64) (bool, error) {
	_, ok := m.blacklisted[userID]
	return ok, nil
}

func (m *mockUserRepo) BlacklistEntry(_ context.Context, userID int64) (*domain.BlacklistEntry, error) {
	reason, ok := m.blacklisted[userID]
	if !ok {
		return nil, nil
	}
	return &domain.BlacklistEntry{UserID: userID, Reason: reason}, nil
}

func (m *mockUserRepo) StaffEmails(_ context.Context) ([]string, error) {
	return m.staffEmails, nil
}

type mockFacilityRepo struct {
	jails     map[int64]*domain.Jail
	prisoners map[int64]*domain.Prisoner
}

func newMockFacilityRepo() *mockFacilityRepo {
	return &mockFacilityRepo{
		jails:     make(map[int64]*domain.Jail),
		prisoners: make(map[int64]*domain.Prisoner),
	}
}

func (m *mockFacilityRepo) ListJails(_ context.Context) ([]domain.Jail, error) {
	var out []domain.Jail
	for _, j := range m.jails {
		out = append(out, *j)
	}
	return out, nil
}

func (m *mockFacilityRepo) GetJail(_ context.Context, id int64) (*domain.Jail, error) {
	return m.jails[id], nil
}

func (m *mockFacilityRepo) GetPrisoner(_ context.Context, id int64) (*domain.Prisoner, error) {
	return m.prisoners[id], nil
}

func (m *mockFacilityRepo) SearchPrisoners(_ context.Context, jailID int64, query string) ([]domain.Prisoner, error) {
	var out []domain.Prisoner
	for _, p := range m.prisoners {
		if p.JailID == jailID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockAlertRepo struct {
	nextID int64
	alerts map[int64]*domain.EmergencyAlert
}

func newMockAlertRepo() *mockAlertRepo {
	return &mockAlertRepo{nextID: 1, alerts: make(map[int64]*domain.EmergencyAlert)}
}

func (m *mockAlertRepo) Create(_ context.Context, message string, issuedBy int64) (*domain.EmergencyAlert, error) {
	a := &domain.EmergencyAlert{
		ID:       m.nextID,
		Message:  message,
		IssuedBy: &issuedBy,
		IssuedAt: time.Now(),
		IsActive: true,
	}
	m.nextID++
	m.alerts[a.ID] = a
	cp := *a
	return &cp, nil
}

func (m *mockAlertRepo) GetByID(_ context.Context, id int64) (*domain.EmergencyAlert, error) {
	a, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockAlertRepo) SetActive(_ context.Context, id int64, active bool) (bool, error) {
	a, ok := m.alerts[id]
	if !ok || a.IsActive == active {
		return false, nil
	}
	a.IsActive = active
	return true, nil
}

func (m *mockAlertRepo) LatestActive(_ context.Context) (*domain.EmergencyAlert, error) {
	var latest *domain.EmergencyAlert
	for _, a := range m.alerts {
		if !a.IsActive {
			continue
		}
		if latest == nil || a.IssuedAt.After(latest.IssuedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *mockAlertRepo) List(_ context.Context, filter domain.AlertFilter) ([]domain.EmergencyAlert, error) {
	var out []domain.EmergencyAlert
	for _, a := range m.alerts {
		if filter.Active != nil && a.IsActive != *filter.Active {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAlertRepo) Stats(_ context.Context, _ time.Time) (*domain.AlertStats, error) {
	s := &domain.AlertStats{}
	for _, a := range m.alerts {
		s.Total++
		if a.IsActive {
			s.Active++
		} else {
			s.Resolved++
		}
	}
	return s, nil
}

type mockEventBus struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockEventBus) Publish(_ context.Context, subject string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockEventBus) Close() error { return nil }

func (m *mockEventBus) published(subject string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

type mockMailer struct {
	mu         sync.Mutex
	recipients []string
	sendErr    error
}

func (m *mockMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipients = append(m.recipients, toEmail)
	return "mock-id", m.sendErr
}

func ptrInt64(v int64) *int64 { return &v }

func ptrBool(v bool) *bool { return &v }

func dateAt(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
