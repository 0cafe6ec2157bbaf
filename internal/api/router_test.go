package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/hackgods/clinic-queue/internal/auth"
	"github.com/hackgods/clinic-queue/internal/broadcast"
	"github.com/hackgods/clinic-queue/internal/clinic"
	"github.com/hackgods/clinic-queue/internal/clinic/memstore"
	"github.com/hackgods/clinic-queue/internal/config"
)

type adminStore struct {
	mu     sync.Mutex
	admins map[string]*auth.Admin
}

func (s *adminStore) GetAdminByUsername(_ context.Context, username string) (*auth.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[username]
	if !ok {
		return nil, auth.ErrAdminNotFound
	}
	return a, nil
}

func (s *adminStore) UpsertAdmin(_ context.Context, username, hash string) (*auth.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &auth.Admin{ID: int64(len(s.admins) + 1), Username: username, PasswordHash: hash}
	s.admins[username] = a
	return a, nil
}

type testServer struct {
	handler  http.Handler
	recorder *broadcast.Recorder
	token    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Config{EtaOverheadMinutes: 10, EtaServiceMinutes: 12, EtaProviders: 2}
	rec := &broadcast.Recorder{}
	svc := clinic.NewService(memstore.New(), memstore.NewLocker(), rec, nil, cfg)

	authSvc := auth.NewService(&adminStore{admins: map[string]*auth.Admin{}}, "test-secret", time.Hour)
	if _, err := authSvc.UpsertAdmin(context.Background(), "admin", "front-desk"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	login, err := authSvc.Login(context.Background(), "admin", "front-desk")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	return &testServer{
		handler:  NewRouter(RouterConfig{Service: svc, Auth: authSvc, Env: "test", Version: "test"}),
		recorder: rec,
		token:    login.Token,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestCheckInAndQueue(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/checkin", map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"temp":      "37.2",
		"spo2":      98,
		"hr":        "",
	}, false)
	expectStatus(t, rec, http.StatusCreated)

	res := decode[clinic.CheckInResult](t, rec)
	if res.QueueNumber != "0000" {
		t.Errorf("queue number = %q, want 0000", res.QueueNumber)
	}
	if res.EtaMinutes != 10 {
		t.Errorf("eta = %d, want 10", res.EtaMinutes)
	}
	if res.Patient.Temp == nil || *res.Patient.Temp != 37.2 {
		t.Errorf("temp = %v, want 37.2", res.Patient.Temp)
	}
	if res.Patient.HR != nil {
		t.Errorf("blank hr should stay absent, got %v", *res.Patient.HR)
	}

	rec = s.do(t, http.MethodGet, "/api/queue/current", nil, false)
	expectStatus(t, rec, http.StatusOK)
	if queue := decode[[]clinic.QueueView](t, rec); len(queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(queue))
	}

	rec = s.do(t, http.MethodGet, "/api/waittime/estimate", nil, false)
	expectStatus(t, rec, http.StatusOK)
	preview := decode[clinic.EtaPreview](t, rec)
	if preview.QueueLength != 1 || preview.EtaMinutes != 22 {
		t.Errorf("preview = %+v, want length 1 eta 22", preview)
	}

	if _, ok := s.recorder.Last(clinic.TopicNewPatient); !ok {
		t.Error("expected a new_patient broadcast")
	}
}

func TestCheckInValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"missing last name", map[string]any{"firstName": "Ada"}, "validation_error"},
		{"bad temperature", map[string]any{"firstName": "Ada", "lastName": "L", "temp": "warm"}, "validation_error"},
		{"fractional pulse", map[string]any{"firstName": "Ada", "lastName": "L", "hr": 71.5}, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/checkin", tt.body, false)
			expectStatus(t, rec, http.StatusBadRequest)
			if got := decode[ErrorResponse](t, rec); got.Error != tt.code {
				t.Errorf("error = %q, want %q", got.Error, tt.code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/checkin", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decode[ErrorResponse](t, rec); got.Error != "invalid_request_body" {
		t.Errorf("error = %q, want invalid_request_body", got.Error)
	}
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	routes := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/rooms/add"},
		{http.MethodPost, "/api/rooms/assign"},
		{http.MethodPost, "/api/rooms/auto-assign"},
		{http.MethodDelete, "/api/rooms/1"},
		{http.MethodGet, "/api/queue/history"},
		{http.MethodPost, "/api/payment/call-next"},
		{http.MethodPost, "/api/pharmacy/complete"},
		{http.MethodGet, "/api/appointments"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := s.do(t, rt.method, rt.path, nil, false)
			expectStatus(t, rec, http.StatusUnauthorized)
		})
	}

	rec := s.do(t, http.MethodGet, "/api/payment/queue", nil, false)
	expectStatus(t, rec, http.StatusOK)
}

func TestConsultationToPharmacyFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/rooms/add", RoomNameRequest{Name: "  Room A "}, true)
	expectStatus(t, rec, http.StatusCreated)
	room := decode[clinic.Room](t, rec)
	if room.Name != "Room A" {
		t.Errorf("room name = %q, want trimmed", room.Name)
	}

	rec = s.do(t, http.MethodPost, "/api/checkin", map[string]any{"firstName": "Grace", "lastName": "Hopper"}, false)
	expectStatus(t, rec, http.StatusCreated)

	rec = s.do(t, http.MethodPost, "/api/rooms/auto-assign", nil, true)
	expectStatus(t, rec, http.StatusOK)
	assigned := decode[clinic.Assignment](t, rec)
	if assigned.Entry.Status != clinic.QueueCalled || assigned.Room.IsAvailable {
		t.Fatalf("unexpected assignment %+v / %+v", assigned.Entry, assigned.Room)
	}

	rec = s.do(t, http.MethodPost, "/api/rooms/auto-assign", nil, true)
	expectStatus(t, rec, http.StatusConflict)
	if got := decode[ErrorResponse](t, rec); got.Error != "no_waiting_patients" {
		t.Errorf("error = %q, want no_waiting_patients", got.Error)
	}

	rec = s.do(t, http.MethodDelete, "/api/rooms/"+strconv.FormatInt(room.ID, 10), nil, true)
	expectStatus(t, rec, http.StatusConflict)

	rec = s.do(t, http.MethodPost, "/api/rooms/finish", FinishRoomRequest{RoomID: room.ID}, true)
	expectStatus(t, rec, http.StatusOK)
	finished := decode[clinic.FinishResult](t, rec)
	if finished.Payment == nil {
		t.Fatal("expected a payment hand-off")
	}

	rec = s.do(t, http.MethodPost, "/api/payment/call-next", nil, true)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodPost, "/api/payment/complete", map[string]any{"paymentId": finished.Payment.ID}, true)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodPost, "/api/payment/complete", map[string]any{"paymentId": finished.Payment.ID}, true)
	expectStatus(t, rec, http.StatusConflict)

	rec = s.do(t, http.MethodGet, "/api/pharmacy/queue", nil, false)
	expectStatus(t, rec, http.StatusOK)
	pharmacy := decode[[]clinic.StageView](t, rec)
	if len(pharmacy) != 1 {
		t.Fatalf("pharmacy queue length = %d, want 1", len(pharmacy))
	}

	rec = s.do(t, http.MethodPost, "/api/pharmacy/call-next", nil, true)
	expectStatus(t, rec, http.StatusOK)
	rec = s.do(t, http.MethodPost, "/api/pharmacy/call-next", nil, true)
	expectStatus(t, rec, http.StatusConflict)
	if got := decode[ErrorResponse](t, rec); got.Details != "no pharmacy patients waiting" {
		t.Errorf("details = %q", got.Details)
	}

	rec = s.do(t, http.MethodGet, "/api/queue/history?limit=500", nil, true)
	expectStatus(t, rec, http.StatusOK)
	history := decode[clinic.HistoryPage](t, rec)
	if len(history.History) != 1 || history.Pagination.Limit != 200 || history.Pagination.HasMore {
		t.Errorf("history = %+v", history)
	}
}

func TestRoomErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPatch, "/api/rooms/999", RoomNameRequest{Name: "X"}, true)
	expectStatus(t, rec, http.StatusNotFound)
	if got := decode[ErrorResponse](t, rec); got.Error != "room_not_found" {
		t.Errorf("error = %q", got.Error)
	}

	rec = s.do(t, http.MethodPatch, "/api/rooms/abc", RoomNameRequest{Name: "X"}, true)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(t, http.MethodPost, "/api/rooms/add", RoomNameRequest{Name: "   "}, true)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(t, http.MethodPost, "/api/rooms/add", RoomNameRequest{Name: "Room A"}, true)
	expectStatus(t, rec, http.StatusCreated)
	rec = s.do(t, http.MethodPost, "/api/rooms/add", RoomNameRequest{Name: "Room A"}, true)
	expectStatus(t, rec, http.StatusConflict)

	rec = s.do(t, http.MethodPost, "/api/rooms/assign", AssignRoomRequest{QueueID: 42, RoomID: 1}, true)
	expectStatus(t, rec, http.StatusNotFound)

	rec = s.do(t, http.MethodPost, "/api/rooms/assign", AssignRoomRequest{}, true)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestHeartbeat(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/pi/status", nil, false)
	expectStatus(t, rec, http.StatusNotFound)
	if got := decode[ErrorResponse](t, rec); got.Error != "no_heartbeat" {
		t.Errorf("error = %q", got.Error)
	}

	rec = s.do(t, http.MethodPost, "/api/pi/heartbeat", map[string]any{"spo2": "97"}, false)
	expectStatus(t, rec, http.StatusCreated)

	rec = s.do(t, http.MethodGet, "/api/pi/status", nil, false)
	expectStatus(t, rec, http.StatusOK)
	log := decode[clinic.SensorLog](t, rec)
	if log.PiIdentifier != "pi-main" || log.Status != "online" {
		t.Errorf("unexpected heartbeat %+v", log)
	}
	if _, ok := s.recorder.Last(clinic.TopicPiStatus); !ok {
		t.Error("expected a pi_status broadcast")
	}
}

func TestAdminLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: "admin", Password: "front-desk"}, false)
	expectStatus(t, rec, http.StatusOK)
	if res := decode[auth.LoginResult](t, rec); res.Token == "" {
		t.Error("expected a token")
	}

	rec = s.do(t, http.MethodPost, "/api/admin/login", LoginRequest{Username: "admin", Password: "wrong"}, false)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = s.do(t, http.MethodPost, "/api/admin/login", LoginRequest{}, false)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health/live", nil, false)
	expectStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("X-Request-ID"); got == "" {
		t.Error("expected a generated request id")
	}

	rec = s.do(t, http.MethodGet, "/health/ready", nil, false)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[ReadinessResponse](t, rec); got.Status != "ok" {
		t.Errorf("status = %q", got.Status)
	}
}

func TestReadinessReportsDependencies(t *testing.T) {
	down := func(context.Context) error { return context.DeadlineExceeded }
	up := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		postgres   Pinger
		redis      Pinger
		wantStatus string
		wantCode   int
	}{
		{"all up", up, up, "ok", http.StatusOK},
		{"redis down", up, down, "degraded", http.StatusOK},
		{"postgres down", down, up, "error", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HealthHandler{postgres: tt.postgres, redis: tt.redis}
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			expectStatus(t, rec, tt.wantCode)
			if got := decode[ReadinessResponse](t, rec); got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
		})
	}
}
