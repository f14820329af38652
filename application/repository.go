package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mortgageflow/pipeline"
)

var (
	// ErrNotFound signals the requested application does not exist.
	ErrNotFound = errors.New("application: not found")
)

// Repository handles data access for applications and their history.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Application, error)
	GetByID(ctx context.Context, id string) (Application, error)
	List(ctx context.Context) ([]Application, error)
	ListByBrokerID(ctx context.Context, brokerID string) ([]Application, error)
	GetByClientID(ctx context.Context, clientID string) (Application, error)
	Update(ctx context.Context, id string, params UpdateParams) (Application, error)
	Delete(ctx context.Context, id string) error
	CountByClientID(ctx context.Context, clientID string) (int, error)
}

// CreateParams contains write parameters for a new application. The initial
// stage is recorded both as the current stage and as the first history entry.
type CreateParams struct {
	ClientID               string
	BrokerID               string
	ClientName             string
	ClientEmail            string
	ClientContactNumber    string
	ClientCurrentAddress   string
	PropertyAddress        string
	LoanAmount             float64
	Stage                  pipeline.Stage
	MortgageLender         string
	InterestRate           float64
	InterestRateExpiryDate *time.Time
	Solicitor              Solicitor
	Notes                  string
}

// UpdateParams contains the mutable application fields. ClientID and
// ClientEmail are immutable after creation; field edits never touch history.
type UpdateParams struct {
	BrokerID               string
	ClientName             string
	ClientContactNumber    string
	ClientCurrentAddress   string
	PropertyAddress        string
	LoanAmount             float64
	MortgageLender         string
	InterestRate           float64
	InterestRateExpiryDate *time.Time
	Solicitor              Solicitor
	Notes                  string
}

const appColumns = `id, client_id, broker_id, client_name, client_email, client_contact_number,
		client_current_address, property_address, loan_amount, stage, mortgage_lender,
		interest_rate, interest_rate_expiry_date, solicitor_firm_name, solicitor_name,
		solicitor_contact_number, solicitor_email, notes, created_at, updated_at`

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed application repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts the application row and its initial history entry in one
// transaction. History is never empty after creation.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Application, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Application{}, fmt.Errorf("application: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insertSQL := fmt.Sprintf(`
		INSERT INTO applications (client_id, broker_id, client_name, client_email, client_contact_number,
			client_current_address, property_address, loan_amount, stage, mortgage_lender,
			interest_rate, interest_rate_expiry_date, solicitor_firm_name, solicitor_name,
			solicitor_contact_number, solicitor_email, notes)
		VALUES ($1, $2, $3, lower($4), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING %s
	`, appColumns)

	app, err := scanApplication(tx.QueryRow(ctx, insertSQL,
		params.ClientID,
		params.BrokerID,
		params.ClientName,
		params.ClientEmail,
		params.ClientContactNumber,
		params.ClientCurrentAddress,
		params.PropertyAddress,
		params.LoanAmount,
		params.Stage,
		params.MortgageLender,
		params.InterestRate,
		params.InterestRateExpiryDate,
		params.Solicitor.FirmName,
		params.Solicitor.SolicitorName,
		params.Solicitor.ContactNumber,
		params.Solicitor.Email,
		params.Notes,
	))
	if err != nil {
		return Application{}, fmt.Errorf("application: insert: %w", err)
	}

	var entry HistoryEntry
	if err := tx.QueryRow(ctx, `
		INSERT INTO application_history (application_id, stage)
		VALUES ($1, $2)
		RETURNING stage, recorded_at
	`, app.ID, params.Stage).Scan(&entry.Stage, &entry.Timestamp); err != nil {
		return Application{}, fmt.Errorf("application: insert initial history: %w", err)
	}
	app.History = []HistoryEntry{entry}

	if err := tx.Commit(ctx); err != nil {
		return Application{}, fmt.Errorf("application: commit create: %w", err)
	}

	return app, nil
}

// GetByID fetches a single application with its history.
func (r *PGRepository) GetByID(ctx context.Context, id string) (Application, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, appColumns)

	app, err := scanApplication(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, fmt.Errorf("application: get by id: %w", err)
	}

	history, err := r.loadHistory(ctx, []string{app.ID})
	if err != nil {
		return Application{}, err
	}
	app.History = history[app.ID]

	return app, nil
}

// List fetches every application, newest first, with history attached.
func (r *PGRepository) List(ctx context.Context) ([]Application, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM applications ORDER BY created_at DESC`, appColumns)
	return r.queryApplications(ctx, selectSQL)
}

// ListByBrokerID fetches the applications owned by one broker.
func (r *PGRepository) ListByBrokerID(ctx context.Context, brokerID string) ([]Application, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM applications WHERE broker_id = $1 ORDER BY created_at DESC`, appColumns)
	return r.queryApplications(ctx, selectSQL, brokerID)
}

// GetByClientID fetches the client's most recent application.
func (r *PGRepository) GetByClientID(ctx context.Context, clientID string) (Application, error) {
	selectSQL := fmt.Sprintf(`
		SELECT %s FROM applications
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, appColumns)

	app, err := scanApplication(r.pool.QueryRow(ctx, selectSQL, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, fmt.Errorf("application: get by client id: %w", err)
	}

	history, err := r.loadHistory(ctx, []string{app.ID})
	if err != nil {
		return Application{}, err
	}
	app.History = history[app.ID]

	return app, nil
}

// Update writes the mutable fields. No history entry is appended; stage
// changes go through the StageService instead.
func (r *PGRepository) Update(ctx context.Context, id string, params UpdateParams) (Application, error) {
	updateSQL := fmt.Sprintf(`
		UPDATE applications
		SET broker_id = $2,
		    client_name = $3,
		    client_contact_number = $4,
		    client_current_address = $5,
		    property_address = $6,
		    loan_amount = $7,
		    mortgage_lender = $8,
		    interest_rate = $9,
		    interest_rate_expiry_date = $10,
		    solicitor_firm_name = $11,
		    solicitor_name = $12,
		    solicitor_contact_number = $13,
		    solicitor_email = $14,
		    notes = $15,
		    updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, appColumns)

	app, err := scanApplication(r.pool.QueryRow(ctx, updateSQL,
		id,
		params.BrokerID,
		params.ClientName,
		params.ClientContactNumber,
		params.ClientCurrentAddress,
		params.PropertyAddress,
		params.LoanAmount,
		params.MortgageLender,
		params.InterestRate,
		params.InterestRateExpiryDate,
		params.Solicitor.FirmName,
		params.Solicitor.SolicitorName,
		params.Solicitor.ContactNumber,
		params.Solicitor.Email,
		params.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, fmt.Errorf("application: update: %w", err)
	}

	history, err := r.loadHistory(ctx, []string{app.ID})
	if err != nil {
		return Application{}, err
	}
	app.History = history[app.ID]

	return app, nil
}

// Delete removes the application and cascades to its history rows.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("application: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// The schema cascades on delete; the explicit history delete keeps the
	// invariant visible and works against databases restored without the
	// constraint.
	if _, err := tx.Exec(ctx, `DELETE FROM application_history WHERE application_id = $1`, id); err != nil {
		return fmt.Errorf("application: delete history: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("application: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("application: commit delete: %w", err)
	}
	return nil
}

// CountByClientID reports how many applications a client owns.
func (r *PGRepository) CountByClientID(ctx context.Context, clientID string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applications WHERE client_id = $1`, clientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("application: count by client id: %w", err)
	}
	return count, nil
}

func (r *PGRepository) queryApplications(ctx context.Context, query string, args ...any) ([]Application, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("application: query: %w", err)
	}
	defer rows.Close()

	apps := []Application{}
	ids := []string{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("application: scan: %w", err)
		}
		apps = append(apps, app)
		ids = append(ids, app.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("application: iterate: %w", err)
	}

	history, err := r.loadHistory(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		apps[i].History = history[apps[i].ID]
	}

	return apps, nil
}

// loadHistory fetches history for a batch of applications in one round trip.
func (r *PGRepository) loadHistory(ctx context.Context, ids []string) (map[string][]HistoryEntry, error) {
	out := make(map[string][]HistoryEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT application_id, stage, recorded_at
		FROM application_history
		WHERE application_id = ANY($1)
		ORDER BY recorded_at ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("application: load history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			appID string
			entry HistoryEntry
		)
		if err := rows.Scan(&appID, &entry.Stage, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("application: scan history: %w", err)
		}
		out[appID] = append(out[appID], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("application: iterate history: %w", err)
	}

	return out, nil
}

func scanApplication(row pgx.Row) (Application, error) {
	var app Application
	err := row.Scan(
		&app.ID,
		&app.ClientID,
		&app.BrokerID,
		&app.ClientName,
		&app.ClientEmail,
		&app.ClientContactNumber,
		&app.ClientCurrentAddress,
		&app.PropertyAddress,
		&app.LoanAmount,
		&app.Stage,
		&app.MortgageLender,
		&app.InterestRate,
		&app.InterestRateExpiryDate,
		&app.Solicitor.FirmName,
		&app.Solicitor.SolicitorName,
		&app.Solicitor.ContactNumber,
		&app.Solicitor.Email,
		&app.Notes,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return Application{}, err
	}
	return app, nil
}
