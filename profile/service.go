package profile

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidEmail signals a malformed email address.
	ErrInvalidEmail = errors.New("profile: invalid email address")
	// ErrClientFlags signals elevated flags on a client profile.
	ErrClientFlags = errors.New("profile: client role cannot carry elevated flags")
	// ErrClientHasApplications blocks deleting a client that still owns applications.
	ErrClientHasApplications = errors.New("profile: client still has applications")
)

// ApplicationCounter reports how many applications a client owns. Defined here
// so the service does not depend on the application package.
type ApplicationCounter interface {
	CountByClientID(ctx context.Context, clientID string) (int, error)
}

// Service handles user management: broker, team manager, and client creation,
// profile edits, and deletion.
type Service struct {
	repo Repository
	apps ApplicationCounter
}

// NewService builds a Service using the provided repository. apps may be nil,
// in which case client deletion skips the remaining-applications guard.
func NewService(repo Repository, apps ApplicationCounter) *Service {
	return &Service{repo: repo, apps: apps}
}

// CreateBrokerParams carries the fields an elevated actor supplies when adding
// a broker to its book.
type CreateBrokerParams struct {
	Name          string
	Email         string
	Password      string
	CompanyName   string
	ContactNumber string
	IsTeamManager bool
	IsBrokerAdmin bool
	CreatedBy     string
}

// CreateBroker registers a new broker profile. New brokers must change the
// password handed to them on first login.
func (s *Service) CreateBroker(ctx context.Context, params CreateBrokerParams) (User, error) {
	if err := validateIdentity(params.Name, params.Email); err != nil {
		return User{}, err
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return User{}, err
	}

	return s.repo.Create(ctx, CreateParams{
		Name:               strings.TrimSpace(params.Name),
		Email:              normalizeEmail(params.Email),
		PasswordHash:       hash,
		Role:               RoleBroker,
		ContactNumber:      optional(params.ContactNumber),
		CompanyName:        optional(params.CompanyName),
		IsTeamManager:      params.IsTeamManager,
		IsBrokerAdmin:      params.IsBrokerAdmin,
		MustChangePassword: true,
		CreatedBy:          optional(params.CreatedBy),
	})
}

// CreateTeamManager registers a broker with the team-manager flag set.
func (s *Service) CreateTeamManager(ctx context.Context, params CreateBrokerParams) (User, error) {
	params.IsTeamManager = true
	params.IsBrokerAdmin = false
	return s.CreateBroker(ctx, params)
}

// CreateClientParams carries the fields a broker supplies when opening a
// client record alongside an application.
type CreateClientParams struct {
	Name           string
	Email          string
	Password       string
	ContactNumber  string
	CurrentAddress string
	CreatedBy      string
}

// CreateClient registers a client profile. Clients never carry elevated flags.
func (s *Service) CreateClient(ctx context.Context, params CreateClientParams) (User, error) {
	if err := validateIdentity(params.Name, params.Email); err != nil {
		return User{}, err
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return User{}, err
	}

	return s.repo.Create(ctx, CreateParams{
		Name:               strings.TrimSpace(params.Name),
		Email:              normalizeEmail(params.Email),
		PasswordHash:       hash,
		Role:               RoleClient,
		ContactNumber:      optional(params.ContactNumber),
		CurrentAddress:     optional(params.CurrentAddress),
		MustChangePassword: true,
		CreatedBy:          optional(params.CreatedBy),
	})
}

// EnsureClient returns the existing client with the given email or creates a
// new one. Application creation keys clients by email.
func (s *Service) EnsureClient(ctx context.Context, params CreateClientParams) (User, error) {
	existing, err := s.repo.GetByEmail(ctx, params.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	return s.CreateClient(ctx, params)
}

// GetByID retrieves a profile by id.
func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every profile, newest first.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Update edits the mutable profile fields, enforcing the client-flag invariant.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (User, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if current.Role == RoleClient && (params.IsAdmin || params.IsTeamManager || params.IsBrokerAdmin) {
		return User{}, ErrClientFlags
	}
	if strings.TrimSpace(params.Name) == "" {
		return User{}, fmt.Errorf("profile: name is required")
	}
	return s.repo.Update(ctx, id, params)
}

// Delete removes a profile. A client with remaining applications is refused;
// brokers and clients without applications are removed outright.
func (s *Service) Delete(ctx context.Context, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.Role == RoleClient && s.apps != nil {
		count, err := s.apps.CountByClientID(ctx, id)
		if err != nil {
			return fmt.Errorf("profile: count applications: %w", err)
		}
		if count > 0 {
			return ErrClientHasApplications
		}
	}

	return s.repo.Delete(ctx, id)
}

func validateIdentity(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("profile: name is required")
	}
	if !ValidEmail(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidEmail reports whether addr parses as a bare RFC 5322 address.
func ValidEmail(addr string) bool {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return false
	}
	parsed, err := mail.ParseAddress(trimmed)
	return err == nil && parsed.Address == trimmed
}

func hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("profile: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("profile: hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
