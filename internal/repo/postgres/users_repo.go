package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eprison/visitor-management/internal/domain"
)

type UserRepo interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	IsBlacklisted(ctx context.Context, userID int64) (bool, error)
	BlacklistEntry(ctx context.Context, userID int64) (*domain.BlacklistEntry, error)
	StaffEmails(ctx context.Context) ([]string, error)
}

type UserRepoImpl struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *UserRepoImpl { return &UserRepoImpl{pool: pool} }

const userCols = `id, username, password_hash, full_name, email, role, jail_id,
is_family_member, related_prisoner_id, relationship, created_at`

func scanUser(row pgx.Row, u *domain.User) error {
	var relationship *string
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Email, &u.Role, &u.JailID,
		&u.IsFamilyMember, &u.RelatedPrisonerID, &relationship, &u.CreatedAt,
	)
	if relationship != nil {
		u.Relationship = *relationship
	}
	return err
}

func (r *UserRepoImpl) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE username = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	err := scanUser(r.pool.QueryRow(ctx, q, username), &u)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepoImpl) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	err := scanUser(r.pool.QueryRow(ctx, q, id), &u)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepoImpl) IsBlacklisted(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM blacklist WHERE user_id = $1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, userID).Scan(&exists)
	return exists, err
}

func (r *UserRepoImpl) BlacklistEntry(ctx context.Context, userID int64) (*domain.BlacklistEntry, error) {
	const q = `SELECT user_id, reason, created_at FROM blacklist WHERE user_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var e domain.BlacklistEntry
	err := r.pool.QueryRow(ctx, q, userID).Scan(&e.UserID, &e.Reason, &e.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// StaffEmails feeds the emergency-alert fan-out: every admin and security
// principal with a usable address.
func (r *UserRepoImpl) StaffEmails(ctx context.Context) ([]string, error) {
	const q = `SELECT email FROM users
WHERE role IN ('admin', 'security') AND email <> ''
ORDER BY email`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := make([]string, 0, 16)
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

var _ UserRepo = (*UserRepoImpl)(nil)
