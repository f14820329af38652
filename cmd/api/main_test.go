package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mortgageflow/application"
	"mortgageflow/auth"
	"mortgageflow/notify"
	"mortgageflow/pipeline"
	"mortgageflow/profile"
)

type stubAuthService struct {
	loginResult  auth.LoginResult
	loginErr     error
	currentUser  profile.User
	currentErr   error
	updateErr    error
	resetErr     error
	registered   []auth.RegisterParams
	registerUser profile.User
	registerErr  error
}

func (s *stubAuthService) Register(_ context.Context, params auth.RegisterParams) (profile.User, error) {
	if s.registerErr != nil {
		return profile.User{}, s.registerErr
	}
	s.registered = append(s.registered, params)
	return s.registerUser, nil
}

func (s *stubAuthService) Login(_ context.Context, _, _ string) (auth.LoginResult, error) {
	return s.loginResult, s.loginErr
}

func (s *stubAuthService) UpdatePassword(_ context.Context, _, _ string) error {
	return s.updateErr
}

func (s *stubAuthService) ResetPassword(_ context.Context, _ string) error {
	return s.resetErr
}

func (s *stubAuthService) CurrentUser(_ context.Context, _ string) (profile.User, error) {
	return s.currentUser, s.currentErr
}

type stubProfileService struct {
	users     []profile.User
	user      profile.User
	err       error
	deleteErr error
	updated   []profile.UpdateParams
}

func (s *stubProfileService) CreateBroker(_ context.Context, _ profile.CreateBrokerParams) (profile.User, error) {
	return s.user, s.err
}

func (s *stubProfileService) CreateTeamManager(_ context.Context, _ profile.CreateBrokerParams) (profile.User, error) {
	return s.user, s.err
}

func (s *stubProfileService) GetByID(_ context.Context, id string) (profile.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	if s.err != nil {
		return profile.User{}, s.err
	}
	return profile.User{}, profile.ErrNotFound
}

func (s *stubProfileService) List(_ context.Context) ([]profile.User, error) {
	return s.users, s.err
}

func (s *stubProfileService) Update(_ context.Context, _ string, params profile.UpdateParams) (profile.User, error) {
	s.updated = append(s.updated, params)
	return s.user, s.err
}

func (s *stubProfileService) Delete(_ context.Context, _ string) error {
	return s.deleteErr
}

type stubApplicationService struct {
	apps      []application.Application
	app       application.Application
	err       error
	clientApp application.Application
	clientErr error
}

func (s *stubApplicationService) Create(_ context.Context, _ application.NewApplicationParams) (application.Application, error) {
	return s.app, s.err
}

func (s *stubApplicationService) GetByID(_ context.Context, _ string) (application.Application, error) {
	return s.app, s.err
}

func (s *stubApplicationService) List(_ context.Context) ([]application.Application, error) {
	return s.apps, s.err
}

func (s *stubApplicationService) GetByClientID(_ context.Context, _ string) (application.Application, error) {
	return s.clientApp, s.clientErr
}

func (s *stubApplicationService) Update(_ context.Context, _ string, _ application.UpdateParams) (application.Application, error) {
	return s.app, s.err
}

func (s *stubApplicationService) Delete(_ context.Context, _ string) error {
	return s.err
}

type stubStageService struct {
	err     error
	changed []pipeline.Stage
}

func (s *stubStageService) ChangeStage(_ context.Context, _ string, next pipeline.Stage) error {
	if s.err != nil {
		return s.err
	}
	s.changed = append(s.changed, next)
	return nil
}

type stubReminderService struct {
	err  error
	sent []string
}

func (s *stubReminderService) SendRateExpiryReminder(_ context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, id)
	return nil
}

func withActor(req *http.Request, actor profile.User) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), ctxKeyUser, actor))
}

func TestHandleRegister_Success(t *testing.T) {
	svc := &stubAuthService{
		registerUser: profile.User{ID: "c1", Name: "Carol", Email: "carol@example.com", Role: profile.RoleClient},
	}
	server := &Server{authService: svc}

	body := `{"name":"Carol","email":"carol@example.com","password":"chosen-by-me","role":"CLIENT"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	server.handleRegister(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(svc.registered) != 1 || svc.registered[0].Role != profile.RoleClient {
		t.Fatalf("unexpected register call: %+v", svc.registered)
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	server := &Server{authService: &stubAuthService{registerErr: profile.ErrDuplicateEmail}}

	body := `{"name":"Carol","email":"taken@example.com","password":"chosen-by-me","role":"CLIENT"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	server.handleRegister(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandleRegister_InvalidRole(t *testing.T) {
	server := &Server{authService: &stubAuthService{registerErr: auth.ErrInvalidRole}}

	body := `{"name":"Carol","email":"c@example.com","password":"chosen-by-me","role":"SUPERUSER"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	server.handleRegister(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleLogin_Success(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	server := &Server{
		authService: &stubAuthService{
			loginResult: auth.LoginResult{
				Token: "tok",
				User:  profile.User{ID: "b1", Name: "Beatrix", Email: "bea@acme.test", Role: profile.RoleBroker, CreatedAt: now},
			},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"bea@acme.test","password":"secret123"}`))
	rec := httptest.NewRecorder()

	server.handleLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token != "tok" || resp.User.ID != "b1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if resp.User.CreatedAt != now.Format(time.RFC3339) {
		t.Fatalf("expected createdAt %s, got %s", now.Format(time.RFC3339), resp.User.CreatedAt)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	server := &Server{
		authService: &stubAuthService{loginErr: auth.ErrInvalidCredentials},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"x@y.test","password":"nope"}`))
	rec := httptest.NewRecorder()

	server.handleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_MissingToken(t *testing.T) {
	server := &Server{authService: &stubAuthService{}}

	handler := server.authenticate(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_MissingProfileInvalidatesSession(t *testing.T) {
	server := &Server{authService: &stubAuthService{currentErr: profile.ErrNotFound}}

	handler := server.authenticate(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "database-not-set-up") {
		t.Fatalf("expected the distinct error code, got %s", rec.Body.String())
	}
}

func TestHandleListApplications_BrokerSeesOwnOnly(t *testing.T) {
	broker := profile.User{ID: "b1", Role: profile.RoleBroker}
	server := &Server{
		applicationService: &stubApplicationService{
			apps: []application.Application{
				{ID: "a1", BrokerID: "b1"},
				{ID: "a2", BrokerID: "b2"},
			},
		},
		profileService: &stubProfileService{
			users: []profile.User{broker, {ID: "b2", Role: profile.RoleBroker}},
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/applications", nil), broker)
	rec := httptest.NewRecorder()

	server.handleApplications(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload applicationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Total != 1 || payload.Items[0].ID != "a1" {
		t.Fatalf("broker should see only its own book: %+v", payload)
	}
}

func TestHandleListApplications_DrillDown(t *testing.T) {
	admin := profile.User{ID: "adm", Role: profile.RoleBroker, IsAdmin: true}
	b2 := profile.User{ID: "b2", Role: profile.RoleBroker}
	server := &Server{
		applicationService: &stubApplicationService{
			apps: []application.Application{
				{ID: "a1", BrokerID: "adm"},
				{ID: "a2", BrokerID: "b2"},
			},
		},
		profileService: &stubProfileService{users: []profile.User{admin, b2}},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/applications?brokerId=b2", nil), admin)
	rec := httptest.NewRecorder()

	server.handleApplications(rec, req)

	var payload applicationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Total != 1 || payload.Items[0].ID != "a2" {
		t.Fatalf("drill-down should narrow to b2's book: %+v", payload)
	}
}

func TestHandleListApplications_DrillDownRequiresElevation(t *testing.T) {
	plain := profile.User{ID: "b1", Role: profile.RoleBroker}
	server := &Server{
		applicationService: &stubApplicationService{
			apps: []application.Application{
				{ID: "a1", BrokerID: "b1"},
				{ID: "a2", BrokerID: "b2"},
			},
		},
		profileService: &stubProfileService{
			users: []profile.User{plain, {ID: "b2", Role: profile.RoleBroker}},
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/applications?brokerId=b2", nil), plain)
	rec := httptest.NewRecorder()

	server.handleApplications(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("a plain broker must not widen its view via brokerId, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "a2") {
		t.Fatal("another broker's application leaked into the response")
	}
}

func TestHandleListApplications_InvalidSortKey(t *testing.T) {
	broker := profile.User{ID: "b1", Role: profile.RoleBroker}
	server := &Server{
		applicationService: &stubApplicationService{},
		profileService:     &stubProfileService{users: []profile.User{broker}},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/applications?sortKey=notes", nil), broker)
	rec := httptest.NewRecorder()

	server.handleApplications(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleListApplications_ClientGetsOwn(t *testing.T) {
	client := profile.User{ID: "c1", Role: profile.RoleClient}
	server := &Server{
		applicationService: &stubApplicationService{
			clientApp: application.Application{ID: "a9", ClientID: "c1", Stage: pipeline.StageNew},
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/applications", nil), client)
	rec := httptest.NewRecorder()

	server.handleApplications(rec, req)

	var payload applicationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Total != 1 || payload.Items[0].ID != "a9" {
		t.Fatalf("client should get its own application: %+v", payload)
	}
	if payload.Items[0].StatusDisplay != "New" {
		t.Fatalf("expected friendly status, got %q", payload.Items[0].StatusDisplay)
	}
}

func TestHandleListApplications_ClientWithNoApplication(t *testing.T) {
	client := profile.User{ID: "c1", Role: profile.RoleClient}
	server := &Server{
		applicationService: &stubApplicationService{clientErr: application.ErrNotFound},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/applications", nil), client)
	rec := httptest.NewRecorder()

	server.handleApplications(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("a client without an application gets an empty list, got %d", rec.Code)
	}
}

func TestHandleCreateApplication_ForbidClientRole(t *testing.T) {
	client := profile.User{ID: "c1", Role: profile.RoleClient}
	server := &Server{applicationService: &stubApplicationService{}}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/applications", strings.NewReader(`{}`)), client)
	rec := httptest.NewRecorder()

	server.handleApplications(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleCreateApplication_ValidationError(t *testing.T) {
	broker := profile.User{ID: "b1", Role: profile.RoleBroker}
	server := &Server{
		applicationService: &stubApplicationService{
			err: application.ValidationError{Field: "loanAmount", Message: "must be greater than zero"},
		},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/applications", strings.NewReader(`{"clientName":"Alice"}`)), broker)
	rec := httptest.NewRecorder()

	server.handleApplications(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleChangeStage_Success(t *testing.T) {
	broker := profile.User{ID: "b1", Role: profile.RoleBroker}
	stages := &stubStageService{}
	server := &Server{
		stageService:       stages,
		applicationService: &stubApplicationService{app: application.Application{ID: "a1", BrokerID: "b1"}},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/applications/a1/stage", strings.NewReader(`{"status":"mortgage-offer"}`)), broker)
	rec := httptest.NewRecorder()

	server.handleApplicationDetail(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(stages.changed) != 1 || stages.changed[0] != pipeline.StageMortgageOffer {
		t.Fatalf("unexpected stage change: %v", stages.changed)
	}
}

func TestHandleChangeStage_InvalidStage(t *testing.T) {
	broker := profile.User{ID: "b1", Role: profile.RoleBroker}
	server := &Server{
		stageService:       &stubStageService{err: application.ErrInvalidStage},
		applicationService: &stubApplicationService{app: application.Application{ID: "a1", BrokerID: "b1"}},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/applications/a1/stage", strings.NewReader(`{"status":"bogus"}`)), broker)
	rec := httptest.NewRecorder()

	server.handleApplicationDetail(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSendReminder_WindowClosed(t *testing.T) {
	broker := profile.User{ID: "b1", Role: profile.RoleBroker}
	server := &Server{
		reminderService:    &stubReminderService{err: notify.ErrWindowClosed},
		applicationService: &stubApplicationService{app: application.Application{ID: "a1", BrokerID: "b1"}},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/applications/a1/reminder", nil), broker)
	rec := httptest.NewRecorder()

	server.handleApplicationDetail(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandleSendReminder_Success(t *testing.T) {
	broker := profile.User{ID: "b1", Role: profile.RoleBroker}
	reminders := &stubReminderService{}
	server := &Server{
		reminderService:    reminders,
		applicationService: &stubApplicationService{app: application.Application{ID: "a1", BrokerID: "b1"}},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/applications/a1/reminder", nil), broker)
	rec := httptest.NewRecorder()

	server.handleApplicationDetail(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(reminders.sent) != 1 || reminders.sent[0] != "a1" {
		t.Fatalf("unexpected reminder calls: %v", reminders.sent)
	}
}

func TestHandleApplicationDetail_ForeignBookHidden(t *testing.T) {
	plain := profile.User{ID: "b1", Role: profile.RoleBroker}
	server := &Server{
		applicationService: &stubApplicationService{app: application.Application{ID: "a2", BrokerID: "b2"}},
		profileService:     &stubProfileService{},
	}

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := withActor(httptest.NewRequest(method, "/api/applications/a2", strings.NewReader(`{}`)), plain)
		rec := httptest.NewRecorder()

		server.handleApplicationDetail(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: another broker's application must read as missing, got %d", method, rec.Code)
		}
	}
}

func TestHandleApplicationDetail_CompanyTierReaches(t *testing.T) {
	company := "Acme"
	tm := profile.User{ID: "tm", Role: profile.RoleBroker, CompanyName: &company, IsTeamManager: true}
	server := &Server{
		applicationService: &stubApplicationService{app: application.Application{ID: "a1", BrokerID: "b1"}},
		profileService: &stubProfileService{
			users: []profile.User{tm, {ID: "b1", Role: profile.RoleBroker, CompanyName: &company}},
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/applications/a1", nil), tm)
	rec := httptest.NewRecorder()

	server.handleApplicationDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("team manager should reach a company broker's application, got %d", rec.Code)
	}
}

func TestHandleApplicationDetail_ClientReadsOwnButCannotMutate(t *testing.T) {
	client := profile.User{ID: "c1", Role: profile.RoleClient}
	server := &Server{
		applicationService: &stubApplicationService{app: application.Application{ID: "a9", ClientID: "c1", BrokerID: "b1"}},
		stageService:       &stubStageService{},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/applications/a9", nil), client)
	rec := httptest.NewRecorder()
	server.handleApplicationDetail(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("client should read its own application, got %d", rec.Code)
	}

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/applications/a9"},
		{http.MethodPut, "/api/applications/a9"},
		{http.MethodPost, "/api/applications/a9/stage"},
	} {
		req := withActor(httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`)), client)
		rec := httptest.NewRecorder()

		server.handleApplicationDetail(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: clients must not mutate applications, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestHandleBrokers_ListIsFiltered(t *testing.T) {
	company := "Acme"
	tm := profile.User{ID: "tm", Role: profile.RoleBroker, CompanyName: &company, IsTeamManager: true}
	other := "Other"
	server := &Server{
		profileService: &stubProfileService{
			users: []profile.User{
				tm,
				{ID: "b1", Role: profile.RoleBroker, CompanyName: &company},
				{ID: "b3", Role: profile.RoleBroker, CompanyName: &other},
			},
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/brokers", nil), tm)
	rec := httptest.NewRecorder()

	server.handleBrokers(rec, req)

	var payload userListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Total != 2 {
		t.Fatalf("team manager should see the Acme brokers only: %+v", payload)
	}
	for _, item := range payload.Items {
		if item.ID == "b3" {
			t.Fatal("another company's broker leaked into the list")
		}
	}
}

func TestHandleBrokers_CreateRequiresElevation(t *testing.T) {
	plain := profile.User{ID: "b1", Role: profile.RoleBroker}
	server := &Server{profileService: &stubProfileService{}}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/brokers", strings.NewReader(`{"name":"New"}`)), plain)
	rec := httptest.NewRecorder()

	server.handleBrokers(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleBrokerDetail_SelfEditCannotRaiseFlags(t *testing.T) {
	plain := profile.User{ID: "b1", Name: "Bea", Role: profile.RoleBroker}
	profiles := &stubProfileService{users: []profile.User{plain}, user: plain}
	server := &Server{profileService: profiles}

	body := `{"name":"Bea","isAdmin":true,"isTeamManager":true,"isBrokerAdmin":true}`
	req := withActor(httptest.NewRequest(http.MethodPut, "/api/brokers/b1", strings.NewReader(body)), plain)
	rec := httptest.NewRecorder()

	server.handleBrokerDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("self-edit should succeed, got %d", rec.Code)
	}
	if len(profiles.updated) != 1 {
		t.Fatalf("expected one update call, got %d", len(profiles.updated))
	}
	got := profiles.updated[0]
	if got.IsAdmin || got.IsTeamManager || got.IsBrokerAdmin {
		t.Fatalf("a plain broker granted itself flags: %+v", got)
	}
}

func TestHandleBrokerDetail_OnlyAdminGrantsAdmin(t *testing.T) {
	company := "Acme"
	tm := profile.User{ID: "tm", Role: profile.RoleBroker, CompanyName: &company, IsTeamManager: true}
	target := profile.User{ID: "b1", Name: "Bea", Role: profile.RoleBroker, CompanyName: &company}
	profiles := &stubProfileService{users: []profile.User{tm, target}, user: target}
	server := &Server{profileService: profiles}

	body := `{"name":"Bea","isAdmin":true,"isBrokerAdmin":true}`
	req := withActor(httptest.NewRequest(http.MethodPut, "/api/brokers/b1", strings.NewReader(body)), tm)
	rec := httptest.NewRecorder()

	server.handleBrokerDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := profiles.updated[0]
	if !got.IsBrokerAdmin {
		t.Fatal("an elevated actor should be able to set the broker-admin flag")
	}
	if got.IsAdmin {
		t.Fatal("only an admin may grant the admin flag")
	}
}

func TestHandleBrokerDetail_DeleteClientWithApplications(t *testing.T) {
	admin := profile.User{ID: "adm", Role: profile.RoleBroker, IsAdmin: true}
	server := &Server{
		profileService: &stubProfileService{deleteErr: profile.ErrClientHasApplications},
	}

	req := withActor(httptest.NewRequest(http.MethodDelete, "/api/brokers/c1", nil), admin)
	rec := httptest.NewRecorder()

	server.handleBrokerDetail(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRespondError_Unmapped(t *testing.T) {
	server := &Server{}
	rec := httptest.NewRecorder()

	server.respondError(rec, errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
