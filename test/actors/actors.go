// Package actors holds the concurrent workloads the stress test throws at a
// live database. Each actor loops until stop closes, exercising one write or
// read path through the real service code.
package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mortgageflow/application"
	"mortgageflow/pipeline"
)

// StageChanger hammers one application with random stage assignments through
// the StageService, so the current-stage column and the history trail race
// under the same row lock the production path uses.
func StageChanger(ctx context.Context, pool *pgxpool.Pool, applicationID string, stop <-chan struct{}) error {
	svc := application.NewStageService(pool, nil)
	stages := pipeline.Ordered()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		next := stages[rand.Intn(len(stages))]
		if err := svc.ChangeStage(ctx, applicationID, next); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("stage changer: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// MarkerWriter appends reminder markers between stage changes. Markers must
// interleave into the history without ever becoming the current stage.
func MarkerWriter(ctx context.Context, pool *pgxpool.Pool, applicationID string, stop <-chan struct{}) error {
	svc := application.NewStageService(pool, nil)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		if err := svc.RecordMarker(ctx, applicationID, pipeline.StageReminderSent); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("marker writer: %w", err)
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
}

// FieldEditor rewrites the mutable application fields concurrently with the
// stage changers. Edits must never touch the history.
func FieldEditor(ctx context.Context, pool *pgxpool.Pool, applicationID, brokerID string, stop <-chan struct{}) error {
	repo := application.NewRepository(pool)

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		_, err := repo.Update(ctx, applicationID, application.UpdateParams{
			BrokerID:        brokerID,
			ClientName:      fmt.Sprintf("Stress Client %d", i),
			PropertyAddress: fmt.Sprintf("%d Stress Street", i),
			LoanAmount:      float64(100000 + rand.Intn(400000)),
			MortgageLender:  "Halifax",
			InterestRate:    3 + rand.Float64()*3,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("field editor: %w", err)
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Reader repeatedly loads the application with its history, checking the
// read path never observes an application without history.
func Reader(ctx context.Context, pool *pgxpool.Pool, applicationID string, stop <-chan struct{}) error {
	repo := application.NewRepository(pool)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		app, err := repo.GetByID(ctx, applicationID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("reader: %w", err)
		}
		if len(app.History) == 0 {
			return fmt.Errorf("reader: application %s observed with empty history", applicationID)
		}
		time.Sleep(time.Duration(15+rand.Intn(30)) * time.Millisecond)
	}
}
