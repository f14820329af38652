package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mortgageflow/application"
	"mortgageflow/auth"
	"mortgageflow/notify"
	"mortgageflow/pipeline"
	"mortgageflow/profile"
	"mortgageflow/realtime"
)

type authService interface {
	Register(ctx context.Context, params auth.RegisterParams) (profile.User, error)
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	UpdatePassword(ctx context.Context, userID, newPassword string) error
	ResetPassword(ctx context.Context, email string) error
	CurrentUser(ctx context.Context, token string) (profile.User, error)
}

type profileService interface {
	CreateBroker(ctx context.Context, params profile.CreateBrokerParams) (profile.User, error)
	CreateTeamManager(ctx context.Context, params profile.CreateBrokerParams) (profile.User, error)
	GetByID(ctx context.Context, id string) (profile.User, error)
	List(ctx context.Context) ([]profile.User, error)
	Update(ctx context.Context, id string, params profile.UpdateParams) (profile.User, error)
	Delete(ctx context.Context, id string) error
}

type applicationService interface {
	Create(ctx context.Context, params application.NewApplicationParams) (application.Application, error)
	GetByID(ctx context.Context, id string) (application.Application, error)
	List(ctx context.Context) ([]application.Application, error)
	GetByClientID(ctx context.Context, clientID string) (application.Application, error)
	Update(ctx context.Context, id string, params application.UpdateParams) (application.Application, error)
	Delete(ctx context.Context, id string) error
}

type stageService interface {
	ChangeStage(ctx context.Context, applicationID string, next pipeline.Stage) error
}

type reminderService interface {
	SendRateExpiryReminder(ctx context.Context, applicationID string) error
}

type ctxKey int

const ctxKeyUser ctxKey = iota

// Server exposes the HTTP API. Handlers resolve the acting user from the
// request context; the authenticate middleware puts it there.
type Server struct {
	authService        authService
	profileService     profileService
	applicationService applicationService
	stageService       stageService
	reminderService    reminderService
	events             *realtime.Hub
	log                *zap.Logger
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/reset", s.handleResetPassword)
	mux.HandleFunc("/api/auth/password", s.authenticate(s.handleUpdatePassword))
	mux.HandleFunc("/api/me", s.authenticate(s.handleMe))
	mux.HandleFunc("/api/applications", s.authenticate(s.handleApplications))
	mux.HandleFunc("/api/applications/", s.authenticate(s.handleApplicationDetail))
	mux.HandleFunc("/api/brokers", s.authenticate(s.handleBrokers))
	mux.HandleFunc("/api/brokers/", s.authenticate(s.handleBrokerDetail))
	mux.HandleFunc("/api/events", s.authenticate(s.handleEvents))
	return mux
}

// handleEvents streams change signals over server-sent events. The payload is
// empty on purpose: the client refetches through the list endpoints, which
// reapply visibility filtering for its session.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use GET")
		return
	}
	if s.events == nil {
		writeError(w, http.StatusNotFound, "not-found", "event stream not enabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	signals, cancel := s.events.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-signals:
			if _, err := w.Write([]byte("event: change\ndata: {}\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// authenticate resolves the bearer token to a profile and stores it in the
// request context. A token whose profile row is gone invalidates the session
// with a distinct error code so clients can force a sign-out.
func (s *Server) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		user, err := s.authService.CurrentUser(r.Context(), token)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "database-not-set-up", "no profile exists for this session")
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUser, user)))
	}
}

func actorFrom(ctx context.Context) (profile.User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(profile.User)
	return user, ok
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use POST")
		return
	}

	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad-request", "invalid json body")
		return
	}

	user, err := s.authService.Register(r.Context(), auth.RegisterParams{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Role:     profile.Role(body.Role),
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use POST")
		return
	}

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad-request", "invalid json body")
		return
	}

	result, err := s.authService.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use POST")
		return
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad-request", "invalid json body")
		return
	}

	if err := s.authService.ResetPassword(r.Context(), body.Email); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use POST")
		return
	}
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}

	var body struct {
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad-request", "invalid json body")
		return
	}

	if err := s.authService.UpdatePassword(r.Context(), actor.ID, body.NewPassword); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use GET")
		return
	}
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(actor))
}

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListApplications(w, r)
	case http.MethodPost:
		s.handleCreateApplication(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use GET or POST")
	}
}

// handleListApplications returns the actor's visible slice of the book,
// filtered and sorted server-side. Clients get their own latest application
// as a single-element list.
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}

	if actor.Role == profile.RoleClient {
		app, err := s.applicationService.GetByClientID(r.Context(), actor.ID)
		if err != nil {
			if errors.Is(err, application.ErrNotFound) {
				writeJSON(w, http.StatusOK, applicationListResponse{Items: []applicationResponse{}})
				return
			}
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, applicationListResponse{
			Items: []applicationResponse{toApplicationResponse(app)},
			Total: 1,
		})
		return
	}

	apps, err := s.applicationService.List(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	users, err := s.profileService.List(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	// The drill-down widens a plain broker's view, so only elevated actors
	// may use it. Visibility only ever narrows for everyone else.
	var viewedBroker *profile.User
	if brokerID := r.URL.Query().Get("brokerId"); brokerID != "" {
		if !actor.Elevated() {
			writeError(w, http.StatusForbidden, "forbidden", "requires an elevated role")
			return
		}
		viewed, err := s.profileService.GetByID(r.Context(), brokerID)
		if err != nil {
			s.respondError(w, err)
			return
		}
		viewedBroker = &viewed
	}

	visible := application.VisibleApplications(actor, apps, users, viewedBroker)

	var sortCfg *application.SortConfig
	if key := r.URL.Query().Get("sortKey"); key != "" {
		if !application.ValidSortKey(key) {
			writeError(w, http.StatusBadRequest, "bad-request", "unknown sort key")
			return
		}
		sortCfg = &application.SortConfig{
			Key:        key,
			Descending: r.URL.Query().Get("sortOrder") == "desc",
		}
	}

	filtered := application.FilterAndSort(visible,
		r.URL.Query().Get("status"),
		r.URL.Query().Get("search"),
		sortCfg,
	)

	items := make([]applicationResponse, len(filtered))
	for i, app := range filtered {
		items[i] = toApplicationResponse(app)
	}
	writeJSON(w, http.StatusOK, applicationListResponse{Items: items, Total: len(items)})
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok || actor.Role != profile.RoleBroker {
		writeError(w, http.StatusForbidden, "forbidden", "brokers only")
		return
	}

	var body applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad-request", "invalid json body")
		return
	}

	app, err := s.applicationService.Create(r.Context(), application.NewApplicationParams{
		ClientID:               body.ClientID,
		ClientPassword:         body.ClientPassword,
		BrokerID:               actor.ID,
		ClientName:             body.ClientName,
		ClientEmail:            body.ClientEmail,
		ClientContactNumber:    body.ClientContactNumber,
		ClientCurrentAddress:   body.ClientCurrentAddress,
		PropertyAddress:        body.PropertyAddress,
		LoanAmount:             body.LoanAmount,
		Stage:                  pipeline.Stage(body.Status),
		MortgageLender:         body.MortgageLender,
		InterestRate:           body.InterestRate,
		InterestRateExpiryDate: body.InterestRateExpiryDate,
		Solicitor:              body.solicitor(),
		Notes:                  body.Notes,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplicationResponse(app))
}

func (s *Server) handleApplicationDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/applications/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad-request", "missing application id")
		return
	}

	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}

	app, err := s.applicationService.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}

	allowed, err := s.canAccessApplication(r.Context(), actor, app)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if !allowed {
		// Same response as a missing record, so the check leaks nothing.
		writeError(w, http.StatusNotFound, "not-found", "application not found")
		return
	}

	mutating := sub != "" || r.Method != http.MethodGet
	if mutating && actor.Role != profile.RoleBroker {
		writeError(w, http.StatusForbidden, "forbidden", "brokers only")
		return
	}

	switch sub {
	case "":
	case "stage":
		s.handleChangeStage(w, r, id)
		return
	case "reminder":
		s.handleSendReminder(w, r, id)
		return
	default:
		writeError(w, http.StatusNotFound, "not-found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toApplicationResponse(app))
	case http.MethodPut:
		var body applicationRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad-request", "invalid json body")
			return
		}
		app, err := s.applicationService.Update(r.Context(), id, application.UpdateParams{
			BrokerID:               body.BrokerID,
			ClientName:             body.ClientName,
			ClientContactNumber:    body.ClientContactNumber,
			ClientCurrentAddress:   body.ClientCurrentAddress,
			PropertyAddress:        body.PropertyAddress,
			LoanAmount:             body.LoanAmount,
			MortgageLender:         body.MortgageLender,
			InterestRate:           body.InterestRate,
			InterestRateExpiryDate: body.InterestRateExpiryDate,
			Solicitor:              body.solicitor(),
			Notes:                  body.Notes,
		})
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toApplicationResponse(app))
	case http.MethodDelete:
		if err := s.applicationService.Delete(r.Context(), id); err != nil {
			s.respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use GET, PUT, or DELETE")
	}
}

// canAccessApplication applies the visibility tiers to a single record.
// Clients reach their own application; brokers reach their book, their
// company's book when elevated, or everything as admin.
func (s *Server) canAccessApplication(ctx context.Context, actor profile.User, app application.Application) (bool, error) {
	if actor.Role == profile.RoleClient {
		return app.ClientID == actor.ID, nil
	}
	if actor.IsAdmin || app.BrokerID == actor.ID {
		return true, nil
	}
	if actor.IsTeamManager || actor.IsBrokerAdmin {
		users, err := s.profileService.List(ctx)
		if err != nil {
			return false, err
		}
		visible := application.VisibleApplications(actor, []application.Application{app}, users, nil)
		return len(visible) == 1, nil
	}
	return false, nil
}

func (s *Server) handleChangeStage(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use POST")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad-request", "invalid json body")
		return
	}

	if err := s.stageService.ChangeStage(r.Context(), id, pipeline.Stage(body.Status)); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendReminder(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use POST")
		return
	}

	if err := s.reminderService.SendRateExpiryReminder(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBrokers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}

	switch r.Method {
	case http.MethodGet:
		users, err := s.profileService.List(r.Context())
		if err != nil {
			s.respondError(w, err)
			return
		}
		visible := profile.VisibleBrokers(actor, users)
		items := make([]userResponse, len(visible))
		for i, u := range visible {
			items[i] = toUserResponse(u)
		}
		writeJSON(w, http.StatusOK, userListResponse{Items: items, Total: len(items)})
	case http.MethodPost:
		if !actor.Elevated() {
			writeError(w, http.StatusForbidden, "forbidden", "requires an elevated role")
			return
		}

		var body brokerRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad-request", "invalid json body")
			return
		}

		params := profile.CreateBrokerParams{
			Name:          body.Name,
			Email:         body.Email,
			Password:      body.Password,
			CompanyName:   body.CompanyName,
			ContactNumber: body.ContactNumber,
			CreatedBy:     actor.ID,
		}
		var (
			user profile.User
			err  error
		)
		if body.IsTeamManager {
			user, err = s.profileService.CreateTeamManager(r.Context(), params)
		} else {
			params.IsBrokerAdmin = body.IsBrokerAdmin
			user, err = s.profileService.CreateBroker(r.Context(), params)
		}
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUserResponse(user))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use GET or POST")
	}
}

func (s *Server) handleBrokerDetail(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/brokers/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad-request", "invalid broker id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.profileService.GetByID(r.Context(), id)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	case http.MethodPut:
		if !actor.Elevated() && actor.ID != id {
			writeError(w, http.StatusForbidden, "forbidden", "cannot edit another profile")
			return
		}

		var body brokerRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad-request", "invalid json body")
			return
		}

		current, err := s.profileService.GetByID(r.Context(), id)
		if err != nil {
			s.respondError(w, err)
			return
		}

		// Role flags carry over from the stored profile. Elevated actors may
		// change the team-manager and broker-admin flags; the admin flag is
		// only ever granted by an admin.
		params := profile.UpdateParams{
			Name:           body.Name,
			ContactNumber:  optionalField(body.ContactNumber),
			CurrentAddress: optionalField(body.CurrentAddress),
			CompanyName:    optionalField(body.CompanyName),
			IsAdmin:        current.IsAdmin,
			IsTeamManager:  current.IsTeamManager,
			IsBrokerAdmin:  current.IsBrokerAdmin,
		}
		if actor.Elevated() {
			params.IsTeamManager = body.IsTeamManager
			params.IsBrokerAdmin = body.IsBrokerAdmin
		}
		if actor.IsAdmin {
			params.IsAdmin = body.IsAdmin
		}

		user, err := s.profileService.Update(r.Context(), id, params)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	case http.MethodDelete:
		if !actor.Elevated() {
			writeError(w, http.StatusForbidden, "forbidden", "requires an elevated role")
			return
		}
		if err := s.profileService.Delete(r.Context(), id); err != nil {
			s.respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "use GET, PUT, or DELETE")
	}
}

// respondError maps domain sentinels onto HTTP statuses. Anything unmapped is
// a 500 and gets logged; mapped errors are the client's fault and are not.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, "not-found", err.Error())
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, application.ErrInvalidStage),
		errors.Is(err, profile.ErrInvalidEmail),
		errors.Is(err, profile.ErrClientFlags),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "bad-request", err.Error())
	case errors.Is(err, profile.ErrDuplicateEmail),
		errors.Is(err, profile.ErrClientHasApplications),
		errors.Is(err, notify.ErrWindowClosed):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid-credentials", "wrong email or password")
	default:
		if s.log != nil {
			s.log.Error("request failed", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Role               string `json:"role"`
	ContactNumber      string `json:"contactNumber,omitempty"`
	CurrentAddress     string `json:"currentAddress,omitempty"`
	CompanyName        string `json:"companyName,omitempty"`
	IsAdmin            bool   `json:"isAdmin"`
	IsTeamManager      bool   `json:"isTeamManager"`
	IsBrokerAdmin      bool   `json:"isBrokerAdmin"`
	MustChangePassword bool   `json:"mustChangePassword"`
	CreatedAt          string `json:"createdAt"`
}

type userListResponse struct {
	Items []userResponse `json:"items"`
	Total int            `json:"total"`
}

type historyResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type solicitorResponse struct {
	FirmName      string `json:"firmName"`
	SolicitorName string `json:"solicitorName"`
	ContactNumber string `json:"contactNumber"`
	Email         string `json:"email"`
}

type applicationResponse struct {
	ID                     string            `json:"id"`
	ClientID               string            `json:"clientId"`
	BrokerID               string            `json:"brokerId"`
	ClientName             string            `json:"clientName"`
	ClientEmail            string            `json:"clientEmail"`
	ClientContactNumber    string            `json:"clientContactNumber"`
	ClientCurrentAddress   string            `json:"clientCurrentAddress"`
	PropertyAddress        string            `json:"propertyAddress"`
	LoanAmount             float64           `json:"loanAmount"`
	Status                 string            `json:"status"`
	StatusDisplay          string            `json:"statusDisplay"`
	MortgageLender         string            `json:"mortgageLender"`
	InterestRate           float64           `json:"interestRate"`
	InterestRateExpiryDate string            `json:"interestRateExpiryDate,omitempty"`
	Solicitor              solicitorResponse `json:"solicitor"`
	Notes                  string            `json:"notes"`
	History                []historyResponse `json:"history"`
	CreatedAt              string            `json:"createdAt"`
	UpdatedAt              string            `json:"updatedAt"`
}

type applicationListResponse struct {
	Items []applicationResponse `json:"items"`
	Total int                   `json:"total"`
}

type applicationRequest struct {
	ClientID               string     `json:"clientId"`
	ClientPassword         string     `json:"clientPassword"`
	BrokerID               string     `json:"brokerId"`
	ClientName             string     `json:"clientName"`
	ClientEmail            string     `json:"clientEmail"`
	ClientContactNumber    string     `json:"clientContactNumber"`
	ClientCurrentAddress   string     `json:"clientCurrentAddress"`
	PropertyAddress        string     `json:"propertyAddress"`
	LoanAmount             float64    `json:"loanAmount"`
	Status                 string     `json:"status"`
	MortgageLender         string     `json:"mortgageLender"`
	InterestRate           float64    `json:"interestRate"`
	InterestRateExpiryDate *time.Time `json:"interestRateExpiryDate"`
	SolicitorFirmName      string     `json:"solicitorFirmName"`
	SolicitorName          string     `json:"solicitorName"`
	SolicitorContactNumber string     `json:"solicitorContactNumber"`
	SolicitorEmail         string     `json:"solicitorEmail"`
	Notes                  string     `json:"notes"`
}

func (r applicationRequest) solicitor() application.Solicitor {
	return application.Solicitor{
		FirmName:      r.SolicitorFirmName,
		SolicitorName: r.SolicitorName,
		ContactNumber: r.SolicitorContactNumber,
		Email:         r.SolicitorEmail,
	}
}

type brokerRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	CompanyName    string `json:"companyName"`
	ContactNumber  string `json:"contactNumber"`
	CurrentAddress string `json:"currentAddress"`
	IsAdmin        bool   `json:"isAdmin"`
	IsTeamManager  bool   `json:"isTeamManager"`
	IsBrokerAdmin  bool   `json:"isBrokerAdmin"`
}

func toUserResponse(u profile.User) userResponse {
	return userResponse{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Role:               string(u.Role),
		ContactNumber:      deref(u.ContactNumber),
		CurrentAddress:     deref(u.CurrentAddress),
		CompanyName:        deref(u.CompanyName),
		IsAdmin:            u.IsAdmin,
		IsTeamManager:      u.IsTeamManager,
		IsBrokerAdmin:      u.IsBrokerAdmin,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          u.CreatedAt.Format(time.RFC3339),
	}
}

func toApplicationResponse(app application.Application) applicationResponse {
	history := make([]historyResponse, len(app.History))
	for i, entry := range app.History {
		history[i] = historyResponse{
			Status:    string(entry.Stage),
			Timestamp: entry.Timestamp.Format(time.RFC3339),
		}
	}

	expiry := ""
	if app.InterestRateExpiryDate != nil {
		expiry = app.InterestRateExpiryDate.Format(time.RFC3339)
	}

	return applicationResponse{
		ID:                     app.ID,
		ClientID:               app.ClientID,
		BrokerID:               app.BrokerID,
		ClientName:             app.ClientName,
		ClientEmail:            app.ClientEmail,
		ClientContactNumber:    app.ClientContactNumber,
		ClientCurrentAddress:   app.ClientCurrentAddress,
		PropertyAddress:        app.PropertyAddress,
		LoanAmount:             app.LoanAmount,
		Status:                 string(app.Stage),
		StatusDisplay:          app.Stage.DisplayName(),
		MortgageLender:         app.MortgageLender,
		InterestRate:           app.InterestRate,
		InterestRateExpiryDate: expiry,
		Solicitor: solicitorResponse{
			FirmName:      app.Solicitor.FirmName,
			SolicitorName: app.Solicitor.SolicitorName,
			ContactNumber: app.Solicitor.ContactNumber,
			Email:         app.Solicitor.Email,
		},
		Notes:     app.Notes,
		History:   history,
		CreatedAt: app.CreatedAt.Format(time.RFC3339),
		UpdatedAt: app.UpdatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalField(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
