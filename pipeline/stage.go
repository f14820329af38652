// Package pipeline defines the closed set of mortgage application lifecycle
// stages, their presentation order, and their display names.
//
// The pipeline is deliberately an open state machine: any stage may be assigned
// from any other stage. Callers only need a stage to be a member of the
// enumeration; they never consult a transition table.
package pipeline

// Stage is one token from the closed lifecycle enumeration. Values are stored
// verbatim in the applications and application_history tables.
type Stage string

const (
	StageNew                Stage = "new"
	StageDocumentsRequested Stage = "documents-requested"
	StageSubmittedToLender  Stage = "submitted-to-lender"
	StageAIPInProgress      Stage = "aip-in-progress"
	StageAIPApproved        Stage = "aip-approved"
	StageFullApplication    Stage = "full-application"
	StageMortgageOffer      Stage = "mortgage-offer"
	StageContractsExchanged Stage = "contracts-exchanged"
	StageCompleted          Stage = "completed"

	// StageReminderSent is an audit marker appended to an application's history
	// when a rate-expiry reminder email goes out. It is not a pipeline position
	// and never becomes an application's current stage.
	StageReminderSent Stage = "rate-expiry-reminder-sent"
)

// ordered lists the pipeline positions from intake to completion. Progress
// rendering treats every index <= the current index as completed.
var ordered = []Stage{
	StageNew,
	StageDocumentsRequested,
	StageSubmittedToLender,
	StageAIPInProgress,
	StageAIPApproved,
	StageFullApplication,
	StageMortgageOffer,
	StageContractsExchanged,
	StageCompleted,
}

var displayNames = map[Stage]string{
	StageNew:                "New",
	StageDocumentsRequested: "Awaiting Documents",
	StageSubmittedToLender:  "Submitted to Lender",
	StageAIPInProgress:      "AIP in Progress",
	StageAIPApproved:        "AIP Approved",
	StageFullApplication:    "Full Application Submitted",
	StageMortgageOffer:      "Mortgage Offered",
	StageContractsExchanged: "Contracts Exchanged",
	StageCompleted:          "Purchase Completed",
	StageReminderSent:       "Rate Expiry Reminder Sent",
}

// Ordered returns the pipeline positions in presentation order. Audit markers
// are excluded. The returned slice is a copy and safe to mutate.
func Ordered() []Stage {
	out := make([]Stage, len(ordered))
	copy(out, ordered)
	return out
}

// Valid reports whether s is a member of the enumeration, markers included.
func (s Stage) Valid() bool {
	_, ok := displayNames[s]
	return ok
}

// Marker reports whether s is an audit-only marker rather than a pipeline
// position.
func (s Stage) Marker() bool {
	return s == StageReminderSent
}

// Index returns the zero-based pipeline position of s, or -1 for markers and
// unknown values. Used for progress rendering and for status-keyed sorting.
func (s Stage) Index() int {
	for i, stage := range ordered {
		if stage == s {
			return i
		}
	}
	return -1
}

// DisplayName returns the human label for s, or the raw token when s is not a
// member of the enumeration.
func (s Stage) DisplayName() string {
	if name, ok := displayNames[s]; ok {
		return name
	}
	return string(s)
}
