package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mortgageflow/pipeline"
)

var (
	// ErrInvalidStage signals a stage value outside the pipeline enumeration.
	ErrInvalidStage = errors.New("application: invalid stage")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// StageStore defines the transactional writes behind a stage change.
type StageStore interface {
	CurrentStageForUpdate(ctx context.Context, tx pgx.Tx, applicationID string) (pipeline.Stage, error)
	SetStage(ctx context.Context, tx pgx.Tx, applicationID string, stage pipeline.Stage) error
	AppendHistory(ctx context.Context, tx pgx.Tx, applicationID string, stage pipeline.Stage, at time.Time) error
}

// StageService applies stage changes, keeping the current-stage column and the
// append-only history in the same transaction. Either both writes land or
// neither does.
type StageService struct {
	pool     TxBeginner
	store    StageStore
	skipNoop bool
	now      func() time.Time
}

// NewStageService builds a StageService. When store is nil a pgx-backed store
// is used.
func NewStageService(pool TxBeginner, store StageStore) *StageService {
	if store == nil {
		store = &pgStageStore{}
	}
	return &StageService{
		pool:  pool,
		store: store,
		now:   time.Now,
	}
}

// WithNoopSkip makes ChangeStage return without writing when the new stage
// equals the current one. Off by default: the audit trail records repeated
// assignments unless configured otherwise.
func (s *StageService) WithNoopSkip(skip bool) *StageService {
	s.skipNoop = skip
	return s
}

// WithClock overrides the history timestamp source, for tests.
func (s *StageService) WithClock(now func() time.Time) *StageService {
	s.now = now
	return s
}

// ChangeStage moves the application to next and appends a history entry.
// The pipeline imposes no transition restrictions: any stage may be assigned
// from any other. Markers are rejected; they are appended via RecordMarker.
func (s *StageService) ChangeStage(ctx context.Context, applicationID string, next pipeline.Stage) error {
	if !next.Valid() || next.Marker() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, next)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("application: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.store.CurrentStageForUpdate(ctx, tx, applicationID)
	if err != nil {
		return err
	}

	if s.skipNoop && current == next {
		return nil
	}

	if err := s.store.SetStage(ctx, tx, applicationID, next); err != nil {
		return err
	}
	if err := s.store.AppendHistory(ctx, tx, applicationID, next, s.now()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("application: commit stage change: %w", err)
	}

	return nil
}

// RecordMarker appends an audit-only history entry without touching the
// current stage. Used for the rate-expiry reminder trail.
func (s *StageService) RecordMarker(ctx context.Context, applicationID string, marker pipeline.Stage) error {
	if !marker.Marker() {
		return fmt.Errorf("%w: %q is not a marker", ErrInvalidStage, marker)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("application: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock doubles as the existence check.
	if _, err := s.store.CurrentStageForUpdate(ctx, tx, applicationID); err != nil {
		return err
	}
	if err := s.store.AppendHistory(ctx, tx, applicationID, marker, s.now()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("application: commit marker: %w", err)
	}

	return nil
}

type pgStageStore struct{}

func (pgStageStore) CurrentStageForUpdate(ctx context.Context, tx pgx.Tx, applicationID string) (pipeline.Stage, error) {
	var stage pipeline.Stage
	err := tx.QueryRow(ctx, `SELECT stage FROM applications WHERE id = $1 FOR UPDATE`, applicationID).Scan(&stage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("application: fetch current stage: %w", err)
	}
	return stage, nil
}

func (pgStageStore) SetStage(ctx context.Context, tx pgx.Tx, applicationID string, stage pipeline.Stage) error {
	if _, err := tx.Exec(ctx, `
		UPDATE applications SET stage = $2, updated_at = now() WHERE id = $1
	`, applicationID, stage); err != nil {
		return fmt.Errorf("application: update stage: %w", err)
	}
	return nil
}

func (pgStageStore) AppendHistory(ctx context.Context, tx pgx.Tx, applicationID string, stage pipeline.Stage, at time.Time) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO application_history (application_id, stage, recorded_at) VALUES ($1, $2, $3)
	`, applicationID, stage, at); err != nil {
		return fmt.Errorf("application: insert history: %w", err)
	}
	return nil
}
