package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals that the profile does not exist.
	ErrNotFound = errors.New("profile: not found")
	// ErrDuplicateEmail signals that the email is already registered.
	ErrDuplicateEmail = errors.New("profile: email already exists")
)

// Repository handles data access for profiles.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id string, params UpdateParams) (User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, mustChange bool) error
	Delete(ctx context.Context, id string) error
}

// CreateParams contains write parameters for creating profiles.
type CreateParams struct {
	Name               string
	Email              string
	PasswordHash       string
	Role               Role
	ContactNumber      *string
	CurrentAddress     *string
	CompanyName        *string
	IsAdmin            bool
	IsTeamManager      bool
	IsBrokerAdmin      bool
	MustChangePassword bool
	CreatedBy          *string
}

// UpdateParams contains the mutable profile fields. Email is immutable after
// creation.
type UpdateParams struct {
	Name           string
	ContactNumber  *string
	CurrentAddress *string
	CompanyName    *string
	IsAdmin        bool
	IsTeamManager  bool
	IsBrokerAdmin  bool
}

const userColumns = `id, name, email, password_hash, role, contact_number, current_address, company_name,
		is_admin, is_team_manager, is_broker_admin, must_change_password, created_by, created_at, updated_at`

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed profile repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a new profile row.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (User, error) {
	insertSQL := fmt.Sprintf(`
		INSERT INTO profiles (name, email, password_hash, role, contact_number, current_address, company_name,
			is_admin, is_team_manager, is_broker_admin, must_change_password, created_by)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s
	`, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, insertSQL,
		params.Name,
		params.Email,
		params.PasswordHash,
		params.Role,
		params.ContactNumber,
		params.CurrentAddress,
		params.CompanyName,
		params.IsAdmin,
		params.IsTeamManager,
		params.IsBrokerAdmin,
		params.MustChangePassword,
		params.CreatedBy,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("profile: create: %w", err)
	}

	return user, nil
}

// GetByID retrieves a profile by primary key.
func (r *PGRepository) GetByID(ctx context.Context, id string) (User, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM profiles WHERE id = $1`, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("profile: get by id: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a profile by email. Lookup is case-insensitive; emails
// are stored lowercased.
func (r *PGRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM profiles WHERE email = lower($1)`, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("profile: get by email: %w", err)
	}

	return user, nil
}

// List returns all profiles, newest first.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM profiles ORDER BY created_at DESC`, userColumns)

	rows, err := r.pool.Query(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("profile: list: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("profile: scan: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile: iterate: %w", err)
	}

	return users, nil
}

// Update writes the mutable profile fields.
func (r *PGRepository) Update(ctx context.Context, id string, params UpdateParams) (User, error) {
	updateSQL := fmt.Sprintf(`
		UPDATE profiles
		SET name = $2,
		    contact_number = $3,
		    current_address = $4,
		    company_name = $5,
		    is_admin = $6,
		    is_team_manager = $7,
		    is_broker_admin = $8,
		    updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, updateSQL,
		id,
		params.Name,
		params.ContactNumber,
		params.CurrentAddress,
		params.CompanyName,
		params.IsAdmin,
		params.IsTeamManager,
		params.IsBrokerAdmin,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("profile: update: %w", err)
	}

	return user, nil
}

// UpdatePassword replaces the stored hash and sets the must-change flag.
func (r *PGRepository) UpdatePassword(ctx context.Context, id, passwordHash string, mustChange bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET password_hash = $2, must_change_password = $3, updated_at = now()
		WHERE id = $1
	`, id, passwordHash, mustChange)
	if err != nil {
		return fmt.Errorf("profile: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a profile row.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("profile: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.ContactNumber,
		&user.CurrentAddress,
		&user.CompanyName,
		&user.IsAdmin,
		&user.IsTeamManager,
		&user.IsBrokerAdmin,
		&user.MustChangePassword,
		&user.CreatedBy,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}
