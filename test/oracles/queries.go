// Package oracles defines the SQL invariants the stress test checks while the
// actors run. Every query returns rows only when an invariant is broken.
package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_history_never_empty",
			SQL: `SELECT a.id FROM applications a
                  WHERE NOT EXISTS (
                      SELECT 1 FROM application_history h WHERE h.application_id = a.id)`,
		},
		{
			Name: "O2_current_stage_matches_trail",
			SQL: `WITH latest AS (
                      SELECT DISTINCT ON (application_id) application_id, stage
                      FROM application_history
                      WHERE stage <> 'rate-expiry-reminder-sent'
                      ORDER BY application_id, id DESC)
                  SELECT a.id, a.stage, latest.stage
                  FROM applications a
                  JOIN latest ON latest.application_id = a.id
                  WHERE a.stage <> latest.stage`,
		},
		{
			Name: "O3_history_stages_valid",
			SQL: `SELECT id, application_id, stage FROM application_history
                  WHERE stage NOT IN ('new', 'documents-requested', 'submitted-to-lender',
                      'aip-in-progress', 'aip-approved', 'full-application', 'mortgage-offer',
                      'contracts-exchanged', 'completed', 'rate-expiry-reminder-sent')`,
		},
		{
			Name: "O4_marker_never_current",
			SQL:  `SELECT id FROM applications WHERE stage = 'rate-expiry-reminder-sent'`,
		},
		{
			Name: "O5_history_orphans",
			SQL: `SELECT h.id FROM application_history h
                  WHERE NOT EXISTS (SELECT 1 FROM applications a WHERE a.id = h.application_id)`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and a sample
// row) or an empty name when all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
