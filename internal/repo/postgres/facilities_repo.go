package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eprison/visitor-management/internal/domain"
)

type FacilityRepo interface {
	ListJails(ctx context.Context) ([]domain.Jail, error)
	GetJail(ctx context.Context, id int64) (*domain.Jail, error)
	GetPrisoner(ctx context.Context, id int64) (*domain.Prisoner, error)
	SearchPrisoners(ctx context.Context, jailID int64, query string) ([]domain.Prisoner, error)
}

type FacilityRepoImpl struct{ pool *pgxpool.Pool }

func NewFacilityRepo(pool *pgxpool.Pool) *FacilityRepoImpl { return &FacilityRepoImpl{pool: pool} }

const prisonerCols = `id, jail_id, first_name, last_name, prisoner_number, date_of_birth`

func (r *FacilityRepoImpl) ListJails(ctx context.Context) ([]domain.Jail, error) {
	const q = `SELECT id, name, location FROM jails ORDER BY name`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	js := make([]domain.Jail, 0, 8)
	for rows.Next() {
		var j domain.Jail
		if err := rows.Scan(&j.ID, &j.Name, &j.Location); err != nil {
			return nil, err
		}
		js = append(js, j)
	}
	return js, rows.Err()
}

func (r *FacilityRepoImpl) GetJail(ctx context.Context, id int64) (*domain.Jail, error) {
	const q = `SELECT id, name, location FROM jails WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var j domain.Jail
	err := r.pool.QueryRow(ctx, q, id).Scan(&j.ID, &j.Name, &j.Location)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *FacilityRepoImpl) GetPrisoner(ctx context.Context, id int64) (*domain.Prisoner, error) {
	const q = `SELECT ` + prisonerCols + ` FROM prisoners WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Prisoner
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.JailID, &p.FirstName, &p.LastName, &p.PrisonerNumber, &p.DateOfBirth,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchPrisoners matches by first name first, falling back to the prisoner
// number when the name search comes up empty.
func (r *FacilityRepoImpl) SearchPrisoners(ctx context.Context, jailID int64, query string) ([]domain.Prisoner, error) {
	byName := `SELECT ` + prisonerCols + ` FROM prisoners
WHERE jail_id = $1 AND first_name ILIKE $2
ORDER BY first_name, last_name`

	ps, err := r.queryPrisoners(ctx, byName, jailID, "%"+query+"%")
	if err != nil {
		return nil, err
	}
	if len(ps) > 0 {
		return ps, nil
	}

	byNumber := `SELECT ` + prisonerCols + ` FROM prisoners
WHERE jail_id = $1 AND prisoner_number ILIKE $2
ORDER BY first_name, last_name`
	return r.queryPrisoners(ctx, byNumber, jailID, "%"+query+"%")
}

func (r *FacilityRepoImpl) queryPrisoners(ctx context.Context, q string, args ...any) ([]domain.Prisoner, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ps := make([]domain.Prisoner, 0, 16)
	for rows.Next() {
		var p domain.Prisoner
		if err := rows.Scan(&p.ID, &p.JailID, &p.FirstName, &p.LastName, &p.PrisonerNumber, &p.DateOfBirth); err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, rows.Err()
}

var _ FacilityRepo = (*FacilityRepoImpl)(nil)
