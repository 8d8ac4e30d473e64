package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eprison/visitor-management/internal/domain"
)

type AlertRepo interface {
	Create(ctx context.Context, message string, issuedBy int64) (*domain.EmergencyAlert, error)
	GetByID(ctx context.Context, id int64) (*domain.EmergencyAlert, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
	LatestActive(ctx context.Context) (*domain.EmergencyAlert, error)
	List(ctx context.Context, filter domain.AlertFilter) ([]domain.EmergencyAlert, error)
	Stats(ctx context.Context, today time.Time) (*domain.AlertStats, error)
}

type AlertRepoImpl struct{ pool *pgxpool.Pool }

func NewAlertRepo(pool *pgxpool.Pool) *AlertRepoImpl { return &AlertRepoImpl{pool: pool} }

const alertCols = `id, message, issued_by, issued_at, is_active`

func (r *AlertRepoImpl) Create(ctx context.Context, message string, issuedBy int64) (*domain.EmergencyAlert, error) {
	const q = `INSERT INTO emergency_alerts (message, issued_by, is_active)
VALUES ($1, $2, TRUE)
RETURNING ` + alertCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.EmergencyAlert
	err := r.pool.QueryRow(ctx, q, message, issuedBy).Scan(
		&a.ID, &a.Message, &a.IssuedBy, &a.IssuedAt, &a.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepoImpl) GetByID(ctx context.Context, id int64) (*domain.EmergencyAlert, error) {
	const q = `SELECT ` + alertCols + ` FROM emergency_alerts WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.EmergencyAlert
	err := r.pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.Message, &a.IssuedBy, &a.IssuedAt, &a.IsActive)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepoImpl) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	const q = `UPDATE emergency_alerts SET is_active = $2 WHERE id = $1 AND is_active <> $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, active)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// LatestActive picks the "current" alert from the append-only log: the most
// recently issued row that is still active.
func (r *AlertRepoImpl) LatestActive(ctx context.Context) (*domain.EmergencyAlert, error) {
	const q = `SELECT ` + alertCols + ` FROM emergency_alerts
WHERE is_active = TRUE ORDER BY issued_at DESC, id DESC LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.EmergencyAlert
	err := r.pool.QueryRow(ctx, q).Scan(&a.ID, &a.Message, &a.IssuedBy, &a.IssuedAt, &a.IsActive)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepoImpl) List(ctx context.Context, filter domain.AlertFilter) ([]domain.EmergencyAlert, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + alertCols + ` FROM emergency_alerts WHERE TRUE`
	args := []any{}
	n := 0
	next := func(v any) string {
		args = append(args, v)
		n++
		return "$" + strconv.Itoa(n)
	}

	if filter.Active != nil {
		q += ` AND is_active = ` + next(*filter.Active)
	}
	if !filter.DateFrom.IsZero() {
		q += ` AND issued_at >= ` + next(filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		q += ` AND issued_at < ` + next(filter.DateTo.AddDate(0, 0, 1))
	}
	if filter.Search != "" {
		q += ` AND message ILIKE ` + next("%"+filter.Search+"%")
	}
	q += ` ORDER BY issued_at DESC, id DESC LIMIT ` + next(limit) + ` OFFSET ` + next(offset)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	as := make([]domain.EmergencyAlert, 0, limit)
	for rows.Next() {
		var a domain.EmergencyAlert
		if err := rows.Scan(&a.ID, &a.Message, &a.IssuedBy, &a.IssuedAt, &a.IsActive); err != nil {
			return nil, err
		}
		as = append(as, a)
	}
	return as, rows.Err()
}

func (r *AlertRepoImpl) Stats(ctx context.Context, today time.Time) (*domain.AlertStats, error) {
	const q = `SELECT
count(*),
count(*) FILTER (WHERE is_active),
count(*) FILTER (WHERE NOT is_active),
count(*) FILTER (WHERE issued_at::date = $1::date)
FROM emergency_alerts`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.AlertStats
	err := r.pool.QueryRow(ctx, q, today).Scan(&s.Total, &s.Active, &s.Resolved, &s.Today)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

var _ AlertRepo = (*AlertRepoImpl)(nil)
