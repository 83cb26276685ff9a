package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pronounce/internal/database"
	"pronounce/internal/feedback"
	"pronounce/internal/models"
	"pronounce/internal/repository"
	"pronounce/internal/security"
	"pronounce/internal/service"
	"pronounce/internal/session"
	"pronounce/internal/wordbank"
)

const testSecret = "test-secret"

func testBank(t *testing.T) *wordbank.Bank {
	t.Helper()
	catalog := wordbank.Catalog{
		Assessments: []models.AssessmentDefinition{
			{ID: "fr-basics", Title: "French Basics", Language: "fr", Level: models.LevelBeginner, WordCount: 2, PassingScore: 70},
			{ID: "fr-next", Title: "French Next", Language: "fr", Level: models.LevelIntermediate, WordCount: 1, PassingScore: 70, Prerequisite: "fr-basics"},
		},
		Pools: map[wordbank.PoolKey][]models.WordItem{
			{Language: "fr", Level: models.LevelBeginner}: {
				{ID: 1, Text: "bonjour"}, {ID: 2, Text: "merci"},
			},
			{Language: "fr", Level: models.LevelIntermediate}: {
				{ID: 1, Text: "grenouille"},
			},
		},
	}
	bank, err := wordbank.NewBank(catalog, wordbank.WithRand(rand.New(rand.NewPCG(3, 4))))
	if err != nil {
		t.Fatalf("NewBank() error = %v", err)
	}
	return bank
}

// newTestServer wires the API over an in-memory SQLite store
func newTestServer(t *testing.T, opts ...service.Option) *httptest.Server {
	t.Helper()
	return newLimitedTestServer(t, nil, opts...)
}

func newLimitedTestServer(t *testing.T, limiter *security.RateLimiter, opts ...service.Option) *httptest.Server {
	t.Helper()

	db, err := database.Initialize(":memory:")
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	catalog, err := feedback.New("en")
	if err != nil {
		t.Fatalf("feedback.New() error = %v", err)
	}
	svc := service.NewAssessmentService(testBank(t), repository.NewProgressRepository(db), catalog, opts...)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", Health)
	NewAssessmentHandler(svc, "/audio/").Register(mux, NewMiddleware(testSecret, limiter))

	server := httptest.NewServer(Logging(mux))
	t.Cleanup(server.Close)
	return server
}

func signToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func userToken(t *testing.T, userID string) string {
	return signToken(t, userClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Lou",
	})
}

type client struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("Marshal() error = %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	if err != nil {
		c.t.Fatalf("NewRequest() error = %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.server.Client().Do(req)
	if err != nil {
		c.t.Fatalf("%s %s error = %v", method, path, err)
	}
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s status = %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want)
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.Client().Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
}

func TestRequireAuth(t *testing.T) {
	server := newTestServer(t)

	expired := signToken(t, userClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	noSubject := signToken(t, userClaims{Email: "a@example.com"})
	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte("other"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic dTE6cGFzcw==", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"alg none", "Bearer " + unsigned, http.StatusUnauthorized},
		{"valid", "Bearer " + userToken(t, "u1"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/assessments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := server.Client().Do(req)
			if err != nil {
				t.Fatalf("request error = %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestAssessmentLifecycle(t *testing.T) {
	server := newTestServer(t)
	c := &client{t: t, server: server, token: userToken(t, "u1")}

	resp := c.do(http.MethodGet, "/api/assessments", nil)
	expectStatus(t, resp, http.StatusOK)
	list := decode[[]models.AssessmentSummary](t, resp)
	if len(list) != 2 || !list[0].Unlocked || list[1].Unlocked {
		t.Fatalf("initial catalog = %+v, want first unlocked and second locked", list)
	}

	resp = c.do(http.MethodPost, "/api/assessments/fr-next/start", nil)
	expectStatus(t, resp, http.StatusForbidden)
	if body := decode[errorBody](t, resp); body.Code != "locked" {
		t.Errorf("locked code = %q", body.Code)
	}

	resp = c.do(http.MethodPost, "/api/assessments/fr-basics/start", nil)
	expectStatus(t, resp, http.StatusOK)
	view := decode[session.View](t, resp)
	if view.State != session.StateActiveFresh || view.CurrentWord == nil {
		t.Fatalf("start view = %+v", view)
	}

	var last service.AttemptOutcome
	for view.CurrentWord != nil {
		resp = c.do(http.MethodPost, "/api/assessments/fr-basics/attempt", map[string]string{"transcript": view.CurrentWord.Text})
		expectStatus(t, resp, http.StatusOK)
		last = decode[service.AttemptOutcome](t, resp)
		if last.Feedback == "" {
			t.Error("attempt feedback is empty")
		}
		view = last.View
	}
	if last.Result == nil || last.Result.AverageScore != 100 || !last.Result.Passed {
		t.Fatalf("final result = %+v, want passed with 100", last.Result)
	}
	if last.Summary == "" || last.Warning != "" {
		t.Errorf("summary = %q warning = %q", last.Summary, last.Warning)
	}

	resp = c.do(http.MethodGet, "/api/assessments/fr-basics/result", nil)
	expectStatus(t, resp, http.StatusOK)
	result := decode[models.FinalResult](t, resp)
	if result.ID != last.Result.ID || len(result.Attempts) != 2 {
		t.Errorf("stored result = %+v", result)
	}

	resp = c.do(http.MethodGet, "/api/assessments", nil)
	list = decode[[]models.AssessmentSummary](t, resp)
	if !list[0].Completed || !list[1].Unlocked {
		t.Errorf("catalog after pass = %+v", list)
	}

	// Another user is unaffected
	other := &client{t: t, server: server, token: userToken(t, "u2")}
	resp = other.do(http.MethodGet, "/api/assessments/fr-basics/result", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestSkipAndDiscard(t *testing.T) {
	server := newTestServer(t)
	c := &client{t: t, server: server, token: userToken(t, "u1")}

	expectStatus(t, c.do(http.MethodPost, "/api/assessments/fr-basics/start", nil), http.StatusOK)

	resp := c.do(http.MethodPost, "/api/assessments/fr-basics/skip", nil)
	expectStatus(t, resp, http.StatusOK)
	out := decode[service.AttemptOutcome](t, resp)
	if out.Attempt.Outcome != models.OutcomeSkipped || out.Attempt.Score != 0 {
		t.Errorf("skip attempt = %+v", out.Attempt)
	}

	expectStatus(t, c.do(http.MethodDelete, "/api/assessments/fr-basics/session", nil), http.StatusNoContent)
	expectStatus(t, c.do(http.MethodPost, "/api/assessments/fr-basics/skip", nil), http.StatusConflict)

	resp = c.do(http.MethodPost, "/api/assessments/fr-basics/resume", nil)
	expectStatus(t, resp, http.StatusNotFound)
	if body := decode[errorBody](t, resp); body.Code != "no_session" {
		t.Errorf("resume code = %q, want no_session", body.Code)
	}

	resp = c.do(http.MethodPost, "/api/assessments/fr-basics/fresh", nil)
	expectStatus(t, resp, http.StatusOK)
	if view := decode[session.View](t, resp); view.State != session.StateActiveFresh || view.Progress.Attempted != 0 {
		t.Errorf("fresh view = %+v", view)
	}
}

func TestAttemptErrors(t *testing.T) {
	server := newTestServer(t)
	c := &client{t: t, server: server, token: userToken(t, "u1")}

	expectStatus(t, c.do(http.MethodPost, "/api/assessments/fr-basics/start", nil), http.StatusOK)

	tests := []struct {
		name      string
		body      any
		want      int
		code      string
		retryable bool
	}{
		{"no speech", map[string]string{"error": "no-speech"}, http.StatusUnprocessableEntity, "no-speech", true},
		{"permission denied", map[string]string{"error": "permission-denied"}, http.StatusUnprocessableEntity, "permission-denied", true},
		{"unknown code", map[string]string{"error": "network"}, http.StatusBadRequest, "invalid_input", false},
		{"missing transcript", map[string]string{}, http.StatusBadRequest, "invalid_input", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := c.do(http.MethodPost, "/api/assessments/fr-basics/attempt", tt.body)
			expectStatus(t, resp, tt.want)
			body := decode[errorBody](t, resp)
			if body.Code != tt.code || body.Retryable != tt.retryable {
				t.Errorf("body = %+v, want code %q retryable %v", body, tt.code, tt.retryable)
			}
		})
	}

	// None of the failures advanced the session
	resp := c.do(http.MethodPost, "/api/assessments/fr-basics/start", nil)
	if view := decode[session.View](t, resp); view.Progress.Attempted != 0 {
		t.Errorf("attempted = %d after failures, want 0", view.Progress.Attempted)
	}
}

func TestErrorStatuses(t *testing.T) {
	server := newTestServer(t)
	c := &client{t: t, server: server, token: userToken(t, "u1")}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown assessment", http.MethodPost, "/api/assessments/xx/start", nil, http.StatusNotFound},
		{"attempt without session", http.MethodPost, "/api/assessments/fr-basics/attempt", map[string]string{"transcript": "bonjour"}, http.StatusConflict},
		{"no result yet", http.MethodGet, "/api/assessments/fr-basics/result", nil, http.StatusNotFound},
		{"speak disabled", http.MethodGet, "/api/assessments/fr-basics/speak", nil, http.StatusServiceUnavailable},
		{"bad rate", http.MethodGet, "/api/assessments/fr-basics/speak?rate=fast", nil, http.StatusBadRequest},
		{"nan rate", http.MethodGet, "/api/assessments/fr-basics/speak?rate=NaN", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, c.do(tt.method, tt.path, tt.body), tt.want)
		})
	}
}

func TestAttemptAudioWithoutRecognizer(t *testing.T) {
	server := newTestServer(t)
	c := &client{t: t, server: server, token: userToken(t, "u1")}
	expectStatus(t, c.do(http.MethodPost, "/api/assessments/fr-basics/start", nil), http.StatusOK)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "utterance.webm")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	part.Write([]byte("not really audio"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/assessments/fr-basics/attempt", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusServiceUnavailable)
}

func TestAcceptLanguages(t *testing.T) {
	tests := []struct {
		header string
		want   []string
	}{
		{"", nil},
		{"es", []string{"es"}},
		{"fr-CA,fr;q=0.9,en;q=0.8", []string{"fr-CA", "fr", "en"}},
		{"en;q=0.5,es", []string{"es", "en"}},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got := acceptLanguages(tt.header)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("acceptLanguages(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestRateLimitPerUser(t *testing.T) {
	server := newLimitedTestServer(t, security.NewRateLimiter(2, time.Minute))
	c := &client{t: t, server: server, token: userToken(t, "u1")}
	expectStatus(t, c.do(http.MethodPost, "/api/assessments/fr-basics/start", nil), http.StatusOK)

	noSpeech := map[string]string{"error": "no-speech"}
	for range 2 {
		expectStatus(t, c.do(http.MethodPost, "/api/assessments/fr-basics/attempt", noSpeech), http.StatusUnprocessableEntity)
	}

	resp := c.do(http.MethodPost, "/api/assessments/fr-basics/attempt", noSpeech)
	expectStatus(t, resp, http.StatusTooManyRequests)
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	// Other routes and other users are not throttled
	expectStatus(t, c.do(http.MethodPost, "/api/assessments/fr-basics/start", nil), http.StatusOK)
	other := &client{t: t, server: server, token: userToken(t, "u2")}
	expectStatus(t, other.do(http.MethodPost, "/api/assessments/fr-basics/attempt", noSpeech), http.StatusConflict)
}
