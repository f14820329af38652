package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mortgageflow/pipeline"
	"mortgageflow/profile"
)

var (
	// ErrValidation wraps client-side validation failures. These never reach
	// the database.
	ErrValidation = errors.New("application: validation failed")
)

// ValidationError identifies the offending field so the presentation layer
// can render it inline.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("application: %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrValidation }

// ClientDirectory creates or reuses the client profile an application belongs
// to. Implemented by profile.Service.
type ClientDirectory interface {
	EnsureClient(ctx context.Context, params profile.CreateClientParams) (profile.User, error)
}

// Registry manages application records. Stage changes live on StageService;
// the registry handles creation, field edits, lookups, and deletion.
type Registry struct {
	repo    Repository
	clients ClientDirectory
}

// NewRegistry builds a Registry. clients may be nil when callers always
// supply an existing ClientID.
func NewRegistry(repo Repository, clients ClientDirectory) *Registry {
	return &Registry{repo: repo, clients: clients}
}

// NewApplicationParams is the broker-supplied input for opening an
// application. When ClientID is empty a client profile is created or reused,
// keyed by ClientEmail.
type NewApplicationParams struct {
	ClientID               string
	ClientPassword         string
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

// Create validates the input, resolves the owning client, and persists the
// application together with its initial history entry.
func (r *Registry) Create(ctx context.Context, params NewApplicationParams) (Application, error) {
	if params.Stage == "" {
		params.Stage = pipeline.StageNew
	}
	if err := validateNew(params); err != nil {
		return Application{}, err
	}

	clientID := params.ClientID
	if clientID == "" {
		if r.clients == nil {
			return Application{}, ValidationError{Field: "clientId", Message: "is required"}
		}
		client, err := r.clients.EnsureClient(ctx, profile.CreateClientParams{
			Name:           params.ClientName,
			Email:          params.ClientEmail,
			Password:       params.ClientPassword,
			ContactNumber:  params.ClientContactNumber,
			CurrentAddress: params.ClientCurrentAddress,
			CreatedBy:      params.BrokerID,
		})
		if err != nil {
			return Application{}, err
		}
		clientID = client.ID
	}

	return r.repo.Create(ctx, CreateParams{
		ClientID:               clientID,
		BrokerID:               params.BrokerID,
		ClientName:             strings.TrimSpace(params.ClientName),
		ClientEmail:            strings.ToLower(strings.TrimSpace(params.ClientEmail)),
		ClientContactNumber:    params.ClientContactNumber,
		ClientCurrentAddress:   params.ClientCurrentAddress,
		PropertyAddress:        params.PropertyAddress,
		LoanAmount:             params.LoanAmount,
		Stage:                  params.Stage,
		MortgageLender:         params.MortgageLender,
		InterestRate:           params.InterestRate,
		InterestRateExpiryDate: params.InterestRateExpiryDate,
		Solicitor:              params.Solicitor,
		Notes:                  params.Notes,
	})
}

// Update validates and writes the mutable fields. History is untouched.
func (r *Registry) Update(ctx context.Context, id string, params UpdateParams) (Application, error) {
	if err := validateUpdate(params); err != nil {
		return Application{}, err
	}
	return r.repo.Update(ctx, id, params)
}

// GetByID returns one application with history.
func (r *Registry) GetByID(ctx context.Context, id string) (Application, error) {
	return r.repo.GetByID(ctx, id)
}

// List returns every application. Callers apply VisibleApplications before
// showing the result to an actor.
func (r *Registry) List(ctx context.Context) ([]Application, error) {
	return r.repo.List(ctx)
}

// ListByBrokerID returns one broker's book.
func (r *Registry) ListByBrokerID(ctx context.Context, brokerID string) ([]Application, error) {
	return r.repo.ListByBrokerID(ctx, brokerID)
}

// GetByClientID returns the client's most recent application.
func (r *Registry) GetByClientID(ctx context.Context, clientID string) (Application, error) {
	return r.repo.GetByClientID(ctx, clientID)
}

// CountByClientID satisfies profile.ApplicationCounter.
func (r *Registry) CountByClientID(ctx context.Context, clientID string) (int, error) {
	return r.repo.CountByClientID(ctx, clientID)
}

// Delete removes the application and its history.
func (r *Registry) Delete(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, id)
}

func validateNew(params NewApplicationParams) error {
	if strings.TrimSpace(params.ClientName) == "" {
		return ValidationError{Field: "clientName", Message: "is required"}
	}
	if !profile.ValidEmail(params.ClientEmail) {
		return ValidationError{Field: "clientEmail", Message: "must be a valid email address"}
	}
	if params.BrokerID == "" {
		return ValidationError{Field: "brokerId", Message: "is required"}
	}
	if params.LoanAmount <= 0 {
		return ValidationError{Field: "loanAmount", Message: "must be greater than zero"}
	}
	if params.InterestRate < 0 {
		return ValidationError{Field: "interestRate", Message: "must not be negative"}
	}
	if !params.Stage.Valid() || params.Stage.Marker() {
		return ValidationError{Field: "stage", Message: fmt.Sprintf("unknown stage %q", params.Stage)}
	}
	return validateSolicitor(params.Solicitor)
}

func validateUpdate(params UpdateParams) error {
	if strings.TrimSpace(params.ClientName) == "" {
		return ValidationError{Field: "clientName", Message: "is required"}
	}
	if params.BrokerID == "" {
		return ValidationError{Field: "brokerId", Message: "is required"}
	}
	if params.LoanAmount <= 0 {
		return ValidationError{Field: "loanAmount", Message: "must be greater than zero"}
	}
	if params.InterestRate < 0 {
		return ValidationError{Field: "interestRate", Message: "must not be negative"}
	}
	return validateSolicitor(params.Solicitor)
}

func validateSolicitor(s Solicitor) error {
	if s.Email != "" && !profile.ValidEmail(s.Email) {
		return ValidationError{Field: "solicitor.email", Message: "must be a valid email address"}
	}
	return nil
}
