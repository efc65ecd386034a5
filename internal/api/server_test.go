package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"

	"github.com/emergency-assist/hospital-recommender/internal/alerts"
	"github.com/emergency-assist/hospital-recommender/internal/catalog"
	"github.com/emergency-assist/hospital-recommender/internal/domain"
	"github.com/emergency-assist/hospital-recommender/internal/service"
)

const testSecret = "api-test-secret"

type failingCatalog struct{}

func (failingCatalog) ListActiveProviders(context.Context) ([]domain.ProviderRecord, error) {
	return nil, domain.ErrCatalogUnavailable
}

func (failingCatalog) GetProvider(context.Context, string) (*domain.ProviderRecord, error) {
	return nil, domain.ErrCatalogUnavailable
}

type stubStatus string

func (s stubStatus) BreakerState() string { return string(s) }

type APITestSuite struct {
	suite.Suite
	store       *alerts.SQLiteStore
	recommender *service.RecommendationService
	handler     http.Handler
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func newRecommender(cat domain.ProviderCatalog, logger *logrus.Logger, opts ...service.RecommendationOption) *service.RecommendationService {
	return service.NewRecommendationService(
		service.NewSymptomClassifier(nil, logger),
		cat,
		service.NewProximityRanker(service.DefaultRankingConfig(), logger),
		service.NewAttributeRanker(3, logger),
		logger,
		opts...,
	)
}

func (s *APITestSuite) SetupTest() {
	logger := quietLogger()

	cat, err := catalog.NewSeedCatalog("")
	s.Require().NoError(err)

	store, err := alerts.NewSQLiteStore(":memory:")
	s.Require().NoError(err)
	s.store = store

	cfg := &domain.Config{
		Auth: domain.AuthConfig{Enabled: true, JWTSecret: testSecret},
	}
	alertService := service.NewAlertService(store, alerts.NopPublisher{}, alerts.DefaultExporters(), logger)
	s.recommender = newRecommender(cat, logger,
		service.WithAuditRecorder(service.NewAuditRecorder(store, alerts.NopPublisher{}, logger), time.Second),
	)
	server := NewServer(cfg, s.recommender, logger,
		WithAlertService(alertService),
		WithCatalogStatus(stubStatus("closed")),
	)
	s.handler = server.Handler()
}

func (s *APITestSuite) TearDownTest() {
	s.recommender.Drain()
	s.store.Close()
}

func (s *APITestSuite) token(subject string) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	s.Require().NoError(err)
	return signed
}

func (s *APITestSuite) request(method, path string, body interface{}, user string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			encoded, err := json.Marshal(b)
			s.Require().NoError(err)
			reader = bytes.NewReader(encoded)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(user))
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *APITestSuite) TestHealth() {
	w := s.request(http.MethodGet, "/health", nil, "")
	s.Equal(http.StatusOK, w.Code)

	var body map[string]interface{}
	s.decode(w, &body)
	s.Equal("healthy", body["status"])
	s.Equal("closed", body["catalog_breaker"])
	s.NotEmpty(w.Header().Get("X-Correlation-ID"))
}

func (s *APITestSuite) TestClassify() {
	w := s.request(http.MethodPost, "/api/v1/symptoms/classify", map[string]string{"free_text": "severe chest pain"}, "")
	s.Require().Equal(http.StatusOK, w.Code)

	var analysis domain.ConditionAnalysis
	s.decode(w, &analysis)
	s.Equal(domain.CategoryHeart, analysis.ConditionType)

	w = s.request(http.MethodPost, "/api/v1/symptoms/classify", map[string]string{"free_text": "   "}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	var errBody domain.ServiceError
	s.decode(w, &errBody)
	s.Equal(domain.ErrCodeValidation, errBody.Code)
	s.Equal("free_text", errBody.Details)

	w = s.request(http.MethodPost, "/api/v1/symptoms/classify", "{not json", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestRecommend() {
	w := s.request(http.MethodPost, "/api/v1/hospitals/recommend", map[string]interface{}{
		"free_text":     "chest pain",
		"user_location": map[string]float64{"lat": 33.6844, "lng": 73.0479},
	}, "")
	s.Require().Equal(http.StatusOK, w.Code)

	var resp service.RecommendResponse
	s.decode(w, &resp)
	s.Equal(domain.StrategyProximityFirst, resp.Strategy)
	s.Require().NotEmpty(resp.Recommendations)
	s.Equal("hosp2", resp.Recommendations[0].ID)
	s.False(resp.NoProviders)

	w = s.request(http.MethodPost, "/api/v1/hospitals/recommend", map[string]interface{}{
		"free_text": "chest pain",
		"strategy":  "cheapest",
	}, "")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/api/v1/hospitals/recommend", map[string]interface{}{
		"free_text":     "chest pain",
		"user_location": map[string]float64{"lat": 123, "lng": 73},
	}, "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestRecommendHalfLocation() {
	for _, location := range []map[string]float64{{"lat": 33.6844}, {"lng": 73.0479}} {
		w := s.request(http.MethodPost, "/api/v1/hospitals/recommend", map[string]interface{}{
			"free_text":     "severe chest pain",
			"user_location": location,
		}, "")
		s.Require().Equal(http.StatusBadRequest, w.Code, w.Body.String())

		var errBody domain.ServiceError
		s.decode(w, &errBody)
		s.Equal(domain.ErrCodeValidation, errBody.Code)
		s.Equal("user_location", errBody.Details)
	}
}

func (s *APITestSuite) TestRecommendAuditOwner() {
	ctx := context.Background()
	body := map[string]interface{}{
		"free_text": "severe chest pain",
		"user_id":   "victim",
	}

	w := s.request(http.MethodPost, "/api/v1/hospitals/recommend", body, "")
	s.Require().Equal(http.StatusOK, w.Code)
	w = s.request(http.MethodPost, "/api/v1/hospitals/recommend", body, "user-1")
	s.Require().Equal(http.StatusOK, w.Code)
	s.recommender.Drain()

	stored, err := s.store.ListByUser(ctx, "victim", 10)
	s.Require().NoError(err)
	s.Empty(stored, "a body user_id never owns an audit record")

	stored, err = s.store.ListByUser(ctx, "user-1", 10)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(domain.AlertTypeMedicalAssistance, stored[0].AlertType)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hospitals/recommend", bytes.NewBufferString(`{"free_text":"chest pain"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer forged")
	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestHospitals() {
	w := s.request(http.MethodGet, "/api/v1/hospitals", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		Hospitals []domain.ProviderRecord `json:"hospitals"`
		Count     int                     `json:"count"`
	}
	s.decode(w, &list)
	s.Equal(12, list.Count)

	w = s.request(http.MethodGet, "/api/v1/hospitals/hosp5", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var provider domain.ProviderRecord
	s.decode(w, &provider)
	s.Equal("hosp5", provider.ID)

	w = s.request(http.MethodGet, "/api/v1/hospitals/unknown", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestAlertLifecycle() {
	w := s.request(http.MethodPost, "/api/v1/alerts", map[string]interface{}{
		"alert_type":  "AMBULANCE",
		"description": "road accident on Margalla Road",
		"location":    map[string]interface{}{"lat": 33.7, "lng": 73.05, "address": "Margalla Road"},
	}, "user-1")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created domain.EmergencyAlert
	s.decode(w, &created)
	s.Equal("user-1", created.UserID, "user id comes from the token")
	s.Equal(domain.AlertStatusPending, created.Status)

	w = s.request(http.MethodGet, "/api/v1/alerts/"+created.ID, nil, "user-1")
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodGet, "/api/v1/alerts/"+created.ID, nil, "user-2")
	s.Equal(http.StatusNotFound, w.Code, "other users cannot see the alert")

	w = s.request(http.MethodPatch, "/api/v1/alerts/"+created.ID+"/status", map[string]string{"status": "PROCESSING"}, "user-1")
	s.Require().Equal(http.StatusOK, w.Code)
	var updated domain.EmergencyAlert
	s.decode(w, &updated)
	s.Equal(domain.AlertStatusProcessing, updated.Status)

	w = s.request(http.MethodPatch, "/api/v1/alerts/"+created.ID+"/status", map[string]string{"status": "DONE"}, "user-1")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodGet, "/api/v1/alerts?limit=10", nil, "user-1")
	s.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		Alerts []domain.EmergencyAlert `json:"alerts"`
		Count  int                     `json:"count"`
	}
	s.decode(w, &list)
	s.Equal(1, list.Count)

	w = s.request(http.MethodGet, "/api/v1/alerts?limit=many", nil, "user-1")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestAlertsRequireToken() {
	w := s.request(http.MethodGet, "/api/v1/alerts", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestAlertValidation() {
	w := s.request(http.MethodPost, "/api/v1/alerts", map[string]interface{}{
		"alert_type":  "TAXI",
		"description": "x",
	}, "user-1")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestExport() {
	w := s.request(http.MethodPost, "/api/v1/alerts", map[string]interface{}{
		"alert_type":  "MEDICAL_ASSISTANCE",
		"description": "high fever",
	}, "user-1")
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.request(http.MethodGet, "/api/v1/alerts/export?format=json", nil, "user-1")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Header().Get("Content-Disposition"), ".json")
	var doc alerts.AlertExport
	s.decode(w, &doc)
	s.Equal(1, doc.Count)

	w = s.request(http.MethodGet, "/api/v1/alerts/export?format=xlsx", nil, "user-1")
	s.Require().Equal(http.StatusOK, w.Code)
	f, err := excelize.OpenReader(w.Body)
	s.Require().NoError(err)
	rows, err := f.GetRows("Alerts")
	s.Require().NoError(err)
	s.Len(rows, 2)
	f.Close()

	w = s.request(http.MethodGet, "/api/v1/alerts/export?format=pdf", nil, "user-1")
	s.Equal(http.StatusBadRequest, w.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestCatalogOutage(t *testing.T) {
	logger := quietLogger()
	server := NewServer(&domain.Config{}, newRecommender(failingCatalog{}, logger), logger)
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/hospitals", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := bytes.NewBufferString(`{"free_text":"chest pain"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/hospitals/recommend", body)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp service.RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.NoProviders)
	assert.Empty(t, resp.Recommendations)

	// Alert routes are absent without an alert service
	req = httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"Validation", domain.NewValidationError("f", "bad", nil), http.StatusBadRequest, domain.ErrCodeValidation},
		{"Invalid_Status", domain.ErrInvalidStatus, http.StatusBadRequest, domain.ErrCodeInvalidInput},
		{"Not_Found", errors.Join(errors.New("x"), domain.ErrNotFound), http.StatusNotFound, domain.ErrCodeNotFound},
		{"Catalog", domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, domain.ErrCodeCatalogUnavailable},
		{"Other", errors.New("boom"), http.StatusInternalServerError, domain.ErrCodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
