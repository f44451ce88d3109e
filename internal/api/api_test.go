package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/fraud"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/microrel"
	"github.com/banking/risk-analytics/internal/pkg/logger"
	"github.com/banking/risk-analytics/internal/repository/memory"
	"github.com/banking/risk-analytics/internal/scoring"
	"github.com/banking/risk-analytics/internal/service"
)

const testSecret = "test-secret"

type testServer struct {
	handler http.Handler
	alerts  *memory.AlertStore
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Security.JWTSecret = secret
	cfg.Security.JWTIssuer = ""
	log := logger.NewNop()

	g := graph.NewGraph()
	_, err := g.AddNode(graph.LabelSME, "sme-1", graph.Properties{graph.PropRiskScore: 5.0})
	require.NoError(t, err)
	_, err = g.AddNode(graph.LabelInstitution, "bank-1", graph.Properties{graph.PropRiskScore: 3.0})
	require.NoError(t, err)

	analyzer := graph.NewAnalyzer(graph.NewMemoryStoreFrom(g), &cfg.Graph, log)
	alerts := memory.NewAlertStore()
	history := memory.NewHistoryStore(100)
	profiles := memory.NewProfileStore()

	svc := service.New(service.Params{
		Scorer:    scoring.NewScorer(scoring.NewModel(&cfg.Scoring), profiles, log),
		Detector:  fraud.NewDetector(history, alerts, &cfg.Fraud, log),
		History:   history,
		Graph:     analyzer,
		Portfolio: microrel.NewAnalyzer(analyzer.Store(), &cfg.MicroRel, log),
		Profiles:  profiles,
		Alerts:    alerts,
		Config:    &cfg.Graph,
		Logger:    log,
	})
	return &testServer{handler: NewServer(svc, cfg, log), alerts: alerts}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func signToken(t *testing.T, secret, subject string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "analyst",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testSecret)
	rec := srv.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t, testSecret)

	tests := []struct {
		name    string
		token   string
		header  string
		want    int
		message string
	}{
		{name: "missing header", want: http.StatusUnauthorized, message: "missing authorization header"},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized, message: "invalid authorization format"},
		{name: "wrong secret", token: signToken(t, "other", "op-1", time.Hour), want: http.StatusUnauthorized, message: "invalid token"},
		{name: "expired", token: signToken(t, testSecret, "op-1", -time.Hour), want: http.StatusUnauthorized, message: "token expired"},
		{name: "valid", token: signToken(t, testSecret, "op-1", time.Hour), want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
			switch {
			case tt.header != "":
				req.Header.Set("Authorization", tt.header)
			case tt.token != "":
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			srv.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, decodeError(t, rec))
			}
		})
	}
}

func TestProcessTransaction(t *testing.T) {
	srv := newTestServer(t, "")

	t.Run("invalid transaction", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/v1/transactions", `{"id":"tx-1","entity_id":"sme-1","entity_type":"SME","amount":-5}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/v1/transactions", `{"amount":`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("valid transaction", func(t *testing.T) {
		body := `{"id":"tx-2","entity_id":"sme-1","entity_type":"SME","amount":1500,` +
			`"timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `","location":{"province":"Kinshasa"}}`
		rec := srv.do(t, http.MethodPost, "/api/v1/transactions", body, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result service.TransactionResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "tx-2", result.TransactionID)
		require.NotNil(t, result.Profile)
		assert.Equal(t, "sme-1", result.Profile.EntityID)
	})
}

func TestProfiles(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.do(t, http.MethodGet, "/api/v1/profiles/SME/unknown", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/profiles/Planet/x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/profiles", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := `{"entity_id":"sme-1","entity_type":"SME","inputs":{"business":{"sector":"mining"},"location":{"province":"Kinshasa"}}}`
	rec = srv.do(t, http.MethodPost, "/api/v1/profiles/score", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile domain.RiskProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, 7.5, profile.RiskFactors.Market)

	rec = srv.do(t, http.MethodGet, "/api/v1/profiles/SME/sme-1", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/profiles?province=Kinshasa", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sme-1")
}

func TestAlertStatus(t *testing.T) {
	srv := newTestServer(t, testSecret)
	token := signToken(t, testSecret, "op-7", time.Hour)

	id := uuid.New()
	_, err := srv.alerts.Save(context.Background(), &domain.FraudAlert{
		ID:         id,
		EntityID:   "sme-1",
		EntityType: domain.EntitySME,
		FraudType:  domain.FraudUnusualTransaction,
		RiskScore:  0.8,
		Status:     domain.AlertStatusActive,
		DetectedAt: time.Now(),
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "bad id", path: "/api/v1/alerts/not-a-uuid/status", body: `{"status":"investigating"}`, want: http.StatusBadRequest},
		{name: "unknown alert", path: "/api/v1/alerts/" + uuid.NewString() + "/status", body: `{"status":"investigating"}`, want: http.StatusNotFound},
		{name: "invalid transition", path: "/api/v1/alerts/" + id.String() + "/status", body: `{"status":"resolved"}`, want: http.StatusConflict},
		{name: "investigate", path: "/api/v1/alerts/" + id.String() + "/status", body: `{"status":"investigating"}`, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPut, tt.path, tt.body, token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	alert, err := srv.alerts.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusInvestigating, alert.Status)
	assert.Equal(t, "op-7", alert.ReviewedBy)

	rec := srv.do(t, http.MethodGet, "/api/v1/alerts/"+uuid.NewString(), "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStressScenario(t *testing.T) {
	srv := newTestServer(t, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "unknown shock", body: `{"shock_type":"METEOR","magnitude":5,"target_entities":["sme-1"]}`, want: http.StatusBadRequest},
		{name: "magnitude out of range", body: `{"shock_type":"FRAUD_EXPOSURE","magnitude":11,"target_entities":["sme-1"]}`, want: http.StatusBadRequest},
		{name: "no targets", body: `{"shock_type":"FRAUD_EXPOSURE","magnitude":5,"target_entities":[]}`, want: http.StatusBadRequest},
		{name: "valid", body: `{"shock_type":"FRAUD_EXPOSURE","magnitude":5,"target_entities":["sme-1"]}`, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/v1/graph/stress", tt.body, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestGraphReads(t *testing.T) {
	srv := newTestServer(t, "")

	for _, path := range []string{
		"/api/v1/graph/systemic",
		"/api/v1/graph/patterns",
		"/api/v1/graph/centrality?limit=5",
		"/api/v1/graph/communities",
		"/api/v1/graph/resilience",
		"/api/v1/graph/contagion/sme-1",
		"/api/v1/portfolios",
	} {
		t.Run(path, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, path, "", "")
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}

	rec := srv.do(t, http.MethodGet, "/api/v1/graph/centrality?limit=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidTransaction, http.StatusBadRequest},
		{domain.ErrProfileNotFound, http.StatusNotFound},
		{graph.ErrNodeNotFound, http.StatusNotFound},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
