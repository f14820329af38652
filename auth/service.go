// Package auth issues and verifies session tokens for profiles and owns the
// password lifecycle: login, forced first-login changes, and resets.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mortgageflow/profile"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
	// ErrInvalidRole signals a registration role outside CLIENT/BROKER.
	ErrInvalidRole = errors.New("auth: role must be CLIENT or BROKER")
)

const tokenTTL = 24 * time.Hour

// Store is the subset of profile persistence the auth service needs.
type Store interface {
	Create(ctx context.Context, params profile.CreateParams) (profile.User, error)
	GetByEmail(ctx context.Context, email string) (profile.User, error)
	GetByID(ctx context.Context, id string) (profile.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, mustChange bool) error
}

// Mailer delivers the temporary password issued by a reset. Single attempt,
// no retry; a failed send is surfaced to the caller.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, tempPassword string) error
}

// Service handles authentication business logic.
type Service struct {
	store       Store
	mailer      Mailer
	jwtSecret   []byte
	genPassword func() (string, error)
	now         func() time.Time
}

// LoginResult bundles the token and domain user returned after a successful login.
type LoginResult struct {
	Token string
	User  profile.User
}

// NewService creates a new authentication service. mailer may be nil when
// password resets are not exposed.
func NewService(store Store, mailer Mailer, jwtSecret string) *Service {
	return &Service{
		store:       store,
		mailer:      mailer,
		jwtSecret:   []byte(jwtSecret),
		genPassword: generateTempPassword,
		now:         time.Now,
	}
}

// WithPasswordGenerator overrides the temporary-password source, for tests.
func (s *Service) WithPasswordGenerator(gen func() (string, error)) *Service {
	s.genPassword = gen
	return s
}

// WithClock overrides the token clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterParams is the self-registration input. Role is chosen on the form
// and limited to the two base roles; elevated flags are only ever granted
// through profile management.
type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Role     profile.Role
}

// Register creates a profile for a self-registered user. The account signs in
// with the password it chose, so the must-change flag stays clear. A taken
// email surfaces as profile.ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, params RegisterParams) (profile.User, error) {
	if strings.TrimSpace(params.Name) == "" {
		return profile.User{}, fmt.Errorf("auth: name is required")
	}
	if !profile.ValidEmail(params.Email) {
		return profile.User{}, profile.ErrInvalidEmail
	}
	if params.Role != profile.RoleClient && params.Role != profile.RoleBroker {
		return profile.User{}, ErrInvalidRole
	}
	if len(params.Password) < 8 {
		return profile.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return profile.User{}, fmt.Errorf("auth: hash password: %w", err)
	}

	return s.store.Create(ctx, profile.CreateParams{
		Name:         strings.TrimSpace(params.Name),
		Email:        strings.ToLower(strings.TrimSpace(params.Email)),
		PasswordHash: string(hash),
		Role:         params.Role,
	})
}

// Login authenticates a user and returns a JWT token. The caller decides how
// to act on User.MustChangePassword.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.generateToken(user.ID, user.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}

	return LoginResult{Token: token, User: user}, nil
}

// UpdatePassword replaces the user's password and clears the must-change flag.
func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}

	return s.store.UpdatePassword(ctx, userID, string(hash), false)
}

// ResetPassword issues a temporary password, persists it with the must-change
// flag set, and delivers it by email. The persistence write happens before the
// send so a delivery failure leaves the account in a recoverable state.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	tempPassword, err := s.genPassword()
	if err != nil {
		return fmt.Errorf("auth: generate temporary password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash temporary password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, user.ID, string(hash), true); err != nil {
		return err
	}

	if s.mailer == nil {
		return fmt.Errorf("auth: no mailer configured for password reset")
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, tempPassword); err != nil {
		return fmt.Errorf("auth: send reset email: %w", err)
	}

	return nil
}

// VerifyToken validates a JWT token and returns the user ID and role.
func (s *Service) VerifyToken(tokenString string) (string, profile.Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("auth: parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("auth: invalid token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", "", fmt.Errorf("auth: invalid user_id in token")
	}
	roleStr, ok := claims["role"].(string)
	if !ok {
		return "", "", fmt.Errorf("auth: invalid role in token")
	}
	role := profile.Role(roleStr)
	if role != profile.RoleClient && role != profile.RoleBroker {
		return "", "", fmt.Errorf("auth: invalid role %q in token", roleStr)
	}

	return userID, role, nil
}

// CurrentUser resolves the profile behind a verified token. A missing profile
// is fatal to the session and reported as profile.ErrNotFound so callers can
// force a sign-out.
func (s *Service) CurrentUser(ctx context.Context, tokenString string) (profile.User, error) {
	userID, _, err := s.VerifyToken(tokenString)
	if err != nil {
		return profile.User{}, err
	}
	return s.store.GetByID(ctx, userID)
}

func (s *Service) generateToken(userID string, role profile.Role) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"jti":     uuid.NewString(),
		"exp":     jwt.NewNumericDate(s.now().Add(tokenTTL)),
		"iat":     jwt.NewNumericDate(s.now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

const (
	tempPasswordLength  = 12
	tempPasswordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
)

func generateTempPassword() (string, error) {
	out := make([]byte, tempPasswordLength)
	max := big.NewInt(int64(len(tempPasswordCharset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordCharset[n.Int64()]
	}
	return string(out), nil
}
