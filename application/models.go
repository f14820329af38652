// Package application manages mortgage application records: creation, edits,
// deletion, the append-only stage history, role-based visibility, and the
// in-memory search/sort used by the dashboards.
package application

import (
	"sort"
	"time"

	"mortgageflow/pipeline"
)

// Solicitor is the embedded conveyancing contact on an application. All fields
// are optional, but Email must be well-formed when present.
type Solicitor struct {
	FirmName      string
	SolicitorName string
	ContactNumber string
	Email         string
}

// HistoryEntry is an immutable record of a past stage assignment. Entries are
// append-only; ordering for display is by timestamp, never by insertion index.
type HistoryEntry struct {
	Stage     pipeline.Stage
	Timestamp time.Time
}

// Application mirrors the applications table plus its child history rows.
type Application struct {
	ID                     string
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
	History                []HistoryEntry
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// LastUpdated returns the most recent history timestamp. Timestamps may arrive
// out of order, so the maximum is computed rather than trusting array order.
// An application with no history reports the zero time and sorts last.
func (a Application) LastUpdated() time.Time {
	var latest time.Time
	for _, entry := range a.History {
		if entry.Timestamp.After(latest) {
			latest = entry.Timestamp
		}
	}
	return latest
}

// HistoryNewestFirst returns a copy of the history sorted descending by
// timestamp, the order the dashboards display it in.
func (a Application) HistoryNewestFirst() []HistoryEntry {
	out := make([]HistoryEntry, len(a.History))
	copy(out, a.History)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
