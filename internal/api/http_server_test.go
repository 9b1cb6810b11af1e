package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"amenityhub/internal/artifact"
	"amenityhub/internal/availability"
	"amenityhub/internal/catalog"
	"amenityhub/internal/config"
	"amenityhub/internal/database"
	"amenityhub/internal/export"
	"amenityhub/internal/models"
	"amenityhub/internal/repository"
	"amenityhub/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var base = time.Now().UTC().Add(48 * time.Hour).Truncate(24 * time.Hour)

func hour(h, m int) time.Time {
	return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func newTestHTTPServer(t *testing.T, cfg config.APIConfig) http.Handler {
	t.Helper()
	logger := zerolog.Nop()
	ctx := context.Background()

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.SeedResources(ctx, []models.Resource{
		{ID: "court", Name: "Tennis court", Active: true},
		{ID: "closed", Name: "Old sauna", Active: false},
	}))

	issuer, err := artifact.NewIssuer("0123456789abcdef0123456789abcdef", "amenityhub-test")
	require.NoError(t, err)

	cat := catalog.NewService(db, repository.NewMemoryResourceCache(time.Minute), &logger)
	booking := service.NewBookingService(db, cat, issuer, availability.NewIndex(), nil,
		service.BookingOptions{Managers: []string{"manager"}}, &logger)
	queries := service.NewQueryService(db)

	srv := NewHTTPServer(cfg, Deps{
		Booking:  booking,
		Queries:  queries,
		Catalog:  cat,
		Exporter: export.NewScheduleExporter(queries),
	}, &logger)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, requester string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if requester != "" {
		req.Header.Set("X-Requester-ID", requester)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createBody(resourceID string, start, end time.Time) map[string]string {
	return map[string]string{
		"resource_id": resourceID,
		"start":       start.Format(time.RFC3339),
		"end":         end.Format(time.RFC3339),
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	h := newTestHTTPServer(t, config.APIConfig{})
	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateReservationScenario(t *testing.T) {
	h := newTestHTTPServer(t, config.APIConfig{})

	rec := do(t, h, http.MethodPost, "/api/v1/reservations", "alice", createBody("court", hour(9, 0), hour(10, 0)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[reservationResponse](t, rec)
	assert.Equal(t, "confirmed", first.Status)
	assert.NotEmpty(t, first.ConfirmationRef)
	assert.Equal(t, "Tennis court", first.ResourceName)

	rec = do(t, h, http.MethodPost, "/api/v1/reservations", "bob", createBody("court", hour(9, 30), hour(10, 30)))
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[errorResponse](t, rec)
	assert.Equal(t, "conflict", conflict.Error)
	assert.Equal(t, []string{first.ID}, conflict.Conflicts)

	rec = do(t, h, http.MethodPost, "/api/v1/reservations", "bob", createBody("court", hour(10, 0), hour(11, 0)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, decode[reservationResponse](t, rec).ConfirmationRef)
}

func TestCreateReservationErrors(t *testing.T) {
	h := newTestHTTPServer(t, config.APIConfig{})

	tests := []struct {
		name      string
		requester string
		body      any
		status    int
		code      string
	}{
		{"missing requester", "", createBody("court", hour(9, 0), hour(10, 0)), http.StatusUnauthorized, errMissingRequester.Error()},
		{"malformed json", "alice", "{", http.StatusBadRequest, "bad_request"},
		{"unknown field", "alice", map[string]string{"resource_id": "court", "start": "x", "end": "y", "seats": "2"}, http.StatusBadRequest, "bad_request"},
		{"missing end", "alice", map[string]string{"resource_id": "court", "start": hour(9, 0).Format(time.RFC3339)}, http.StatusBadRequest, "bad_request"},
		{"bad timestamp", "alice", map[string]string{"resource_id": "court", "start": "9am", "end": "10am"}, http.StatusBadRequest, "invalid_interval"},
		{"reversed interval", "alice", createBody("court", hour(10, 0), hour(9, 0)), http.StatusBadRequest, "invalid_interval"},
		{"unknown resource", "alice", createBody("pool", hour(9, 0), hour(10, 0)), http.StatusUnprocessableEntity, "resource_unavailable"},
		{"inactive resource", "alice", createBody("closed", hour(9, 0), hour(10, 0)), http.StatusUnprocessableEntity, "resource_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/reservations", tt.requester, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestRescheduleReservation(t *testing.T) {
	h := newTestHTTPServer(t, config.APIConfig{})

	rec := do(t, h, http.MethodPost, "/api/v1/reservations", "alice", createBody("court", hour(9, 0), hour(10, 0)))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[reservationResponse](t, rec)
	rec = do(t, h, http.MethodPost, "/api/v1/reservations", "bob", createBody("court", hour(12, 0), hour(13, 0)))
	require.Equal(t, http.StatusCreated, rec.Code)

	path := "/api/v1/reservations/" + created.ID
	moveBody := func(start, end time.Time) map[string]string {
		return map[string]string{"start": start.Format(time.RFC3339), "end": end.Format(time.RFC3339)}
	}

	rec = do(t, h, http.MethodPut, path, "manager", moveBody(hour(11, 0), hour(12, 0)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPut, path, "alice", map[string]string{"start": hour(11, 0).Format(time.RFC3339)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode[errorResponse](t, rec).Error)

	rec = do(t, h, http.MethodPut, path, "alice", moveBody(hour(12, 30), hour(13, 30)))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decode[errorResponse](t, rec).Error)

	rec = do(t, h, http.MethodPut, path, "alice", moveBody(hour(11, 0), hour(12, 0)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decode[reservationResponse](t, rec)
	assert.True(t, moved.Start.Equal(hour(11, 0)))
	assert.True(t, moved.End.Equal(hour(12, 0)))
	assert.NotEqual(t, created.ConfirmationRef, moved.ConfirmationRef)

	rec = do(t, h, http.MethodGet, "/api/v1/artifacts/"+created.ConfirmationRef, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/v1/artifacts/"+moved.ConfirmationRef, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[artifactResponse](t, rec).ReservationID)

	rec = do(t, h, http.MethodPost, "/api/v1/reservations", "carol", createBody("court", hour(9, 0), hour(10, 0)))
	assert.Equal(t, http.StatusCreated, rec.Code, "the old slot is free again")
}

func TestCancelAndGetReservation(t *testing.T) {
	h := newTestHTTPServer(t, config.APIConfig{})

	rec := do(t, h, http.MethodPost, "/api/v1/reservations", "alice", createBody("court", hour(9, 0), hour(10, 0)))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[reservationResponse](t, rec)
	path := "/api/v1/reservations/" + created.ID

	rec = do(t, h, http.MethodGet, path, "mallory", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, path, "manager", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ConfirmationRef, decode[reservationResponse](t, rec).ConfirmationRef)

	rec = do(t, h, http.MethodPost, path+"/confirm", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, "confirming a confirmed reservation is a no-op")

	rec = do(t, h, http.MethodDelete, path, "mallory", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	for i := 0; i < 2; i++ {
		rec = do(t, h, http.MethodDelete, path, "alice", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		ack := decode[cancelResponse](t, rec)
		assert.Equal(t, cancelResponse{ID: created.ID, Status: "cancelled"}, ack)
	}

	rec = do(t, h, http.MethodPost, path+"/confirm", "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[errorResponse](t, rec).Error)

	rec = do(t, h, http.MethodDelete, "/api/v1/reservations/missing", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorResponse](t, rec).Error)
}

func TestListReservations(t *testing.T) {
	h := newTestHTTPServer(t, config.APIConfig{})

	require.Equal(t, http.StatusCreated,
		do(t, h, http.MethodPost, "/api/v1/reservations", "alice", createBody("court", hour(9, 0), hour(10, 0))).Code)
	require.Equal(t, http.StatusCreated,
		do(t, h, http.MethodPost, "/api/v1/reservations", "bob", createBody("court", hour(11, 0), hour(12, 0))).Code)

	type listResponse struct {
		Reservations []reservationResponse `json:"reservations"`
	}

	rec := do(t, h, http.MethodGet, "/api/v1/reservations", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[listResponse](t, rec).Reservations
	require.Len(t, mine, 1)
	assert.Equal(t, "alice", mine[0].RequesterID)

	q := url.Values{}
	q.Set("resource_id", "court")
	q.Set("from", hour(0, 0).Format(time.RFC3339))
	q.Set("to", hour(23, 0).Format(time.RFC3339))
	rec = do(t, h, http.MethodGet, "/api/v1/reservations?"+q.Encode(), "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[listResponse](t, rec).Reservations
	require.Len(t, all, 2)
	assert.NotEmpty(t, all[0].ConfirmationRef)
	assert.Empty(t, all[1].ConfirmationRef, "references of other requesters stay hidden")

	rec = do(t, h, http.MethodGet, "/api/v1/reservations?"+q.Encode(), "manager", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[listResponse](t, rec).Reservations[1].ConfirmationRef)

	rec = do(t, h, http.MethodGet, "/api/v1/reservations?resource_id=court", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateArtifactEndpoint(t *testing.T) {
	h := newTestHTTPServer(t, config.APIConfig{})

	rec := do(t, h, http.MethodPost, "/api/v1/reservations", "alice", createBody("court", hour(9, 0), hour(10, 0)))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[reservationResponse](t, rec)

	rec = do(t, h, http.MethodGet, "/api/v1/artifacts/"+created.ConfirmationRef, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[artifactResponse](t, rec).ReservationID)

	rec = do(t, h, http.MethodGet, "/api/v1/artifacts/not-a-token", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "invalid_artifact", decode[errorResponse](t, rec).Error)
}

func TestAvailabilityAndScheduleExport(t *testing.T) {
	h := newTestHTTPServer(t, config.APIConfig{})

	require.Equal(t, http.StatusCreated,
		do(t, h, http.MethodPost, "/api/v1/reservations", "alice", createBody("court", hour(9, 0), hour(10, 0))).Code)

	q := url.Values{}
	q.Set("from", hour(0, 0).Format(time.RFC3339))
	q.Set("to", hour(23, 0).Format(time.RFC3339))

	rec := do(t, h, http.MethodGet, "/api/v1/resources/court/availability?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	avail := decode[availabilityResponse](t, rec)
	require.Len(t, avail.Busy, 1)
	assert.True(t, avail.Busy[0].Start.Equal(hour(9, 0)))

	rec = do(t, h, http.MethodGet, "/api/v1/resources/court/availability", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/resources/pool/availability?"+q.Encode(), "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/resources/court/schedule.xlsx?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "schedule_court_")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Schedule")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestHTTPAuth(t *testing.T) {
	cfg := config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "front", Extra: "desk", Name: "front desk"},
				{Key: "kiosk", Extra: "lobby", Name: "lobby kiosk", Permissions: []string{permReadAvailability}},
			},
		},
	}
	h := newTestHTTPServer(t, cfg)
	path := fmt.Sprintf("/api/v1/resources/court/availability?from=%s&to=%s",
		url.QueryEscape(hour(0, 0).Format(time.RFC3339)), url.QueryEscape(hour(23, 0).Format(time.RFC3339)))

	tests := []struct {
		name    string
		method  string
		path    string
		headers []string
		status  int
	}{
		{"no credentials", http.MethodGet, path, nil, http.StatusUnauthorized},
		{"unknown key", http.MethodGet, path, []string{"X-API-Key", "nope", "X-API-Extra", "desk"}, http.StatusUnauthorized},
		{"wrong extra", http.MethodGet, path, []string{"X-API-Key", "front", "X-API-Extra", "lobby"}, http.StatusUnauthorized},
		{"full access", http.MethodGet, path, []string{"X-API-Key", "front", "X-API-Extra", "desk"}, http.StatusOK},
		{"scoped key reads", http.MethodGet, path, []string{"X-API-Key", "kiosk", "X-API-Extra", "lobby"}, http.StatusOK},
		{"scoped key cannot book", http.MethodPost, "/api/v1/reservations", []string{"X-API-Key", "kiosk", "X-API-Extra", "lobby"}, http.StatusForbidden},
		{"health is public", http.MethodGet, "/healthz", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, "alice", createBody("court", hour(9, 0), hour(10, 0)), tt.headers...)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestHTTPRateLimit(t *testing.T) {
	h := newTestHTTPServer(t, config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 0.001, Burst: 1}})

	rec := do(t, h, http.MethodGet, "/api/v1/reservations", "alice", nil, "X-API-Key", "k1")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/v1/reservations", "alice", nil, "X-API-Key", "k1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/v1/reservations", "alice", nil, "X-API-Key", "k2")
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per client key")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{models.InvalidIntervalf("x"), http.StatusBadRequest, "invalid_interval"},
		{&models.ConflictError{ResourceID: "r"}, http.StatusConflict, "conflict"},
		{fmt.Errorf("wrap: %w", models.ErrResourceUnavailable), http.StatusUnprocessableEntity, "resource_unavailable"},
		{models.ErrForbidden, http.StatusForbidden, "forbidden"},
		{models.ErrNotFound, http.StatusNotFound, "not_found"},
		{models.ErrTooLateToCancel, http.StatusConflict, "too_late_to_cancel"},
		{models.ErrTooLateToReschedule, http.StatusConflict, "too_late_to_reschedule"},
		{models.ErrInvalidArtifact, http.StatusNotFound, "invalid_artifact"},
		{models.ErrHoldExpired, http.StatusGone, "hold_expired"},
		{models.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{fmt.Errorf("%w: %w", models.ErrTransientStorage, context.DeadlineExceeded), http.StatusServiceUnavailable, "transient_storage"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, code := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
