package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"mortgageflow/application"
	"mortgageflow/pipeline"
	"mortgageflow/profile"
	"mortgageflow/test/actors"
	"mortgageflow/test/chaos"
	"mortgageflow/test/infra"
	"mortgageflow/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 60*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent stage changers")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func TestPipelineConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	rand.Seed(seed)

	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if !dockerAvailable(ctx) {
			t.Skip("docker unavailable and no DSN provided")
		}
		pgC, dsn, err = infra.StartPostgres16(ctx, "")
		if err != nil {
			t.Fatalf("start postgres: %v", err)
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	seedData := mustSeed(t, ctx, pool)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error {
			return actors.StageChanger(ctx2, pool, seedData.applicationID, stop)
		})
	}
	g.Go(func() error { return actors.MarkerWriter(ctx2, pool, seedData.applicationID, stop) })
	g.Go(func() error {
		return actors.FieldEditor(ctx2, pool, seedData.applicationID, seedData.brokerID, stop)
	})
	g.Go(func() error { return actors.Reader(ctx2, pool, seedData.applicationID, stop) })
	g.Go(func() error { return actors.Reader(ctx2, pool, seedData.applicationID, stop) })
	go chaos.TerminateRandomBackend(ctx2, pool, stop)

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool, seedData.applicationID)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	brokerID      string
	clientID      string
	applicationID string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seedIDs {
	t.Helper()

	profiles := profile.NewService(profile.NewRepository(pool), nil)

	broker, err := profiles.CreateBroker(ctx, profile.CreateBrokerParams{
		Name:        "Stress Broker",
		Email:       fmt.Sprintf("broker+%d@example.com", rand.Int63()),
		Password:    "stresspass1",
		CompanyName: "Stress Mortgages",
	})
	if err != nil {
		t.Fatalf("seed broker: %v", err)
	}

	client, err := profiles.CreateClient(ctx, profile.CreateClientParams{
		Name:      "Stress Client",
		Email:     fmt.Sprintf("client+%d@example.com", rand.Int63()),
		Password:  "stresspass1",
		CreatedBy: broker.ID,
	})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}

	registry := application.NewRegistry(application.NewRepository(pool), nil)
	app, err := registry.Create(ctx, application.NewApplicationParams{
		ClientID:       client.ID,
		BrokerID:       broker.ID,
		ClientName:     client.Name,
		ClientEmail:    client.Email,
		LoanAmount:     250000,
		Stage:          pipeline.StageNew,
		MortgageLender: "Halifax",
		InterestRate:   4.5,
	})
	if err != nil {
		t.Fatalf("seed application: %v", err)
	}

	return seedIDs{brokerID: broker.ID, clientID: client.ID, applicationID: app.ID}
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool, applicationID string) {
	t.Helper()

	rows, err := pool.Query(ctx, `
		SELECT id, stage, recorded_at FROM application_history
		WHERE application_id = $1 ORDER BY id DESC LIMIT 50`, applicationID)
	if err != nil {
		t.Logf("dump history error: %v", err)
		return
	}
	defer rows.Close()

	t.Logf("-- application_history (newest first) --")
	for rows.Next() {
		vals, _ := rows.Values()
		t.Logf("%v", vals)
	}

	var stage string
	if err := pool.QueryRow(ctx, `SELECT stage FROM applications WHERE id = $1`, applicationID).Scan(&stage); err == nil {
		t.Logf("current stage: %s", stage)
	}
}
