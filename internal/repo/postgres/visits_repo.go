package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eprison/visitor-management/internal/domain"
)

type VisitRepo interface {
	Create(ctx context.Context, visitorID, prisonerID int64, visitDate time.Time, timeSlot string, visitType domain.VisitType) (*domain.Visit, error)
	GetDetail(ctx context.Context, id int64) (*domain.VisitDetail, error)
	GetDetailForJail(ctx context.Context, id, jailID int64) (*domain.VisitDetail, error)
	GetPendingForJail(ctx context.Context, id, jailID int64) (*domain.VisitDetail, error)
	ListByVisitor(ctx context.Context, visitorID int64) ([]domain.VisitDetail, error)
	ListPendingForJail(ctx context.Context, jailID int64) ([]domain.VisitDetail, error)
	ExistsDuplicate(ctx context.Context, visitorID, prisonerID int64, visitDate time.Time, timeSlot string) (bool, error)
	LastEmergencyDate(ctx context.Context, visitorID int64) (*time.Time, error)
	Approve(ctx context.Context, id, jailID, adminID int64, passPNG []byte) (bool, error)
	Reject(ctx context.Context, id, jailID, adminID int64) (bool, error)
	PassPNG(ctx context.Context, id, jailID int64) ([]byte, error)
	CheckIn(ctx context.Context, id, jailID int64, today time.Time) (bool, error)
	CheckOut(ctx context.Context, id, jailID int64) (bool, error)
	CurrentlyInside(ctx context.Context, jailID int64) ([]domain.VisitDetail, error)
	TodaysApproved(ctx context.Context, jailID int64, today time.Time) ([]domain.VisitDetail, error)
}

type VisitRepoImpl struct{ pool *pgxpool.Pool }

func NewVisitRepo(pool *pgxpool.Pool) *VisitRepoImpl { return &VisitRepoImpl{pool: pool} }

const visitCols = `id, visitor_id, prisoner_id, visit_date, time_slot, visit_type, status,
check_in_time, check_out_time, decided_by, decided_at, created_at, updated_at`

const detailQuery = `
SELECT v.id, v.visitor_id, v.prisoner_id, v.visit_date, v.time_slot, v.visit_type, v.status,
       v.check_in_time, v.check_out_time, v.decided_by, v.decided_at, v.created_at, v.updated_at,
       u.full_name, u.username,
       p.first_name || ' ' || p.last_name, p.prisoner_number,
       j.id, j.name,
       v.pass_png IS NOT NULL
FROM visits v
JOIN users u ON u.id = v.visitor_id
JOIN prisoners p ON p.id = v.prisoner_id
JOIN jails j ON j.id = p.jail_id`

func scanVisit(row pgx.Row, v *domain.Visit) error {
	return row.Scan(
		&v.ID, &v.VisitorID, &v.PrisonerID, &v.VisitDate, &v.TimeSlot, &v.VisitType, &v.Status,
		&v.CheckInTime, &v.CheckOutTime, &v.DecidedBy, &v.DecidedAt, &v.CreatedAt, &v.UpdatedAt,
	)
}

func scanDetail(row pgx.Row, d *domain.VisitDetail) error {
	return row.Scan(
		&d.ID, &d.VisitorID, &d.PrisonerID, &d.VisitDate, &d.TimeSlot, &d.VisitType, &d.Status,
		&d.CheckInTime, &d.CheckOutTime, &d.DecidedBy, &d.DecidedAt, &d.CreatedAt, &d.UpdatedAt,
		&d.VisitorName, &d.VisitorUser,
		&d.PrisonerName, &d.PrisonerNumber,
		&d.JailID, &d.JailName,
		&d.HasPass,
	)
}

func (r *VisitRepoImpl) Create(ctx context.Context, visitorID, prisonerID int64, visitDate time.Time, timeSlot string, visitType domain.VisitType) (*domain.Visit, error) {
	const q = `INSERT INTO visits (visitor_id, prisoner_id, visit_date, time_slot, visit_type, status)
VALUES ($1, $2, $3, $4, $5, 'PENDING')
RETURNING ` + visitCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v domain.Visit
	if err := scanVisit(r.pool.QueryRow(ctx, q, visitorID, prisonerID, visitDate, timeSlot, visitType), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VisitRepoImpl) GetDetail(ctx context.Context, id int64) (*domain.VisitDetail, error) {
	q := detailQuery + ` WHERE v.id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var d domain.VisitDetail
	err := scanDetail(r.pool.QueryRow(ctx, q, id), &d)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *VisitRepoImpl) GetDetailForJail(ctx context.Context, id, jailID int64) (*domain.VisitDetail, error) {
	q := detailQuery + ` WHERE v.id = $1 AND j.id = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var d domain.VisitDetail
	err := scanDetail(r.pool.QueryRow(ctx, q, id, jailID), &d)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *VisitRepoImpl) GetPendingForJail(ctx context.Context, id, jailID int64) (*domain.VisitDetail, error) {
	q := detailQuery + ` WHERE v.id = $1 AND j.id = $2 AND v.status = 'PENDING'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var d domain.VisitDetail
	err := scanDetail(r.pool.QueryRow(ctx, q, id, jailID), &d)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *VisitRepoImpl) ListByVisitor(ctx context.Context, visitorID int64) ([]domain.VisitDetail, error) {
	q := detailQuery + ` WHERE v.visitor_id = $1 ORDER BY v.visit_date DESC, v.id DESC`
	return r.queryDetails(ctx, q, visitorID)
}

func (r *VisitRepoImpl) ListPendingForJail(ctx context.Context, jailID int64) ([]domain.VisitDetail, error) {
	// Oldest request first: the review queue is FIFO.
	q := detailQuery + ` WHERE j.id = $1 AND v.status = 'PENDING' ORDER BY v.visit_date ASC, v.id ASC`
	return r.queryDetails(ctx, q, jailID)
}

func (r *VisitRepoImpl) ExistsDuplicate(ctx context.Context, visitorID, prisonerID int64, visitDate time.Time, timeSlot string) (bool, error) {
	const q = `SELECT EXISTS (
SELECT 1 FROM visits
WHERE visitor_id = $1 AND prisoner_id = $2 AND visit_date = $3 AND time_slot = $4
  AND status IN ('PENDING', 'APPROVED'))`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, visitorID, prisonerID, visitDate, timeSlot).Scan(&exists)
	return exists, err
}

func (r *VisitRepoImpl) LastEmergencyDate(ctx context.Context, visitorID int64) (*time.Time, error) {
	const q = `SELECT visit_date FROM visits
WHERE visitor_id = $1 AND visit_type = 'EMERGENCY'
ORDER BY visit_date DESC LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var d time.Time
	err := r.pool.QueryRow(ctx, q, visitorID).Scan(&d)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Approve flips PENDING to APPROVED and attaches the pass in one statement so
// an approved visit can never exist without its pass. The PENDING predicate
// makes racing decisions lose cleanly with zero rows affected.
func (r *VisitRepoImpl) Approve(ctx context.Context, id, jailID, adminID int64, passPNG []byte) (bool, error) {
	const q = `UPDATE visits SET
status = 'APPROVED', pass_png = $4, decided_by = $3, decided_at = now(), updated_at = now()
WHERE id = $1 AND status = 'PENDING'
  AND prisoner_id IN (SELECT id FROM prisoners WHERE jail_id = $2)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, jailID, adminID, passPNG)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *VisitRepoImpl) Reject(ctx context.Context, id, jailID, adminID int64) (bool, error) {
	const q = `UPDATE visits SET
status = 'REJECTED', decided_by = $3, decided_at = now(), updated_at = now()
WHERE id = $1 AND status = 'PENDING'
  AND prisoner_id IN (SELECT id FROM prisoners WHERE jail_id = $2)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, jailID, adminID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *VisitRepoImpl) PassPNG(ctx context.Context, id, jailID int64) ([]byte, error) {
	const q = `SELECT v.pass_png FROM visits v
JOIN prisoners p ON p.id = v.prisoner_id
WHERE v.id = $1 AND p.jail_id = $2 AND v.pass_png IS NOT NULL`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var png []byte
	err := r.pool.QueryRow(ctx, q, id, jailID).Scan(&png)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return png, nil
}

// CheckIn is the atomic check-and-set behind gate admission: the IS NULL
// predicate guarantees two operators cannot both admit the same visitor.
func (r *VisitRepoImpl) CheckIn(ctx context.Context, id, jailID int64, today time.Time) (bool, error) {
	const q = `UPDATE visits SET check_in_time = now(), updated_at = now()
WHERE id = $1 AND check_in_time IS NULL AND status = 'APPROVED' AND visit_date = $3
  AND prisoner_id IN (SELECT id FROM prisoners WHERE jail_id = $2)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, jailID, today)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *VisitRepoImpl) CheckOut(ctx context.Context, id, jailID int64) (bool, error) {
	const q = `UPDATE visits SET check_out_time = now(), status = 'COMPLETED', updated_at = now()
WHERE id = $1 AND check_in_time IS NOT NULL AND check_out_time IS NULL
  AND prisoner_id IN (SELECT id FROM prisoners WHERE jail_id = $2)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, jailID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *VisitRepoImpl) CurrentlyInside(ctx context.Context, jailID int64) ([]domain.VisitDetail, error) {
	q := detailQuery + ` WHERE j.id = $1 AND v.check_in_time IS NOT NULL AND v.check_out_time IS NULL
ORDER BY v.check_in_time DESC`
	return r.queryDetails(ctx, q, jailID)
}

func (r *VisitRepoImpl) TodaysApproved(ctx context.Context, jailID int64, today time.Time) ([]domain.VisitDetail, error) {
	q := detailQuery + ` WHERE j.id = $1 AND v.status = 'APPROVED' AND v.visit_date = $2 AND v.check_in_time IS NULL
ORDER BY v.time_slot ASC`
	return r.queryDetails(ctx, q, jailID, today)
}

func (r *VisitRepoImpl) queryDetails(ctx context.Context, q string, args ...any) ([]domain.VisitDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ds := make([]domain.VisitDetail, 0, 16)
	for rows.Next() {
		var d domain.VisitDetail
		if err := scanDetail(rows, &d); err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return ds, rows.Err()
}

var _ VisitRepo = (*VisitRepoImpl)(nil)
