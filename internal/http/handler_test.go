package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate-service/internal/auth"
	"plate-service/internal/db/dbtest"
	"plate-service/internal/http/middleware"
	"plate-service/internal/model"
	"plate-service/internal/recognition"
	"plate-service/internal/repository"
	"plate-service/internal/service"
)

const testSecret = "test-secret"

type frameReader struct {
	texts []recognition.Text
}

func (r *frameReader) ReadRegion(context.Context, recognition.Region) (string, error) {
	return "", recognition.ErrNoPlateDetected
}

func (r *frameReader) ReadFrame(context.Context, []byte) ([]recognition.Text, error) {
	return r.texts, nil
}

type testServer struct {
	router   *gin.Engine
	parser   *auth.Parser
	vehicles *repository.VehicleRepository
	owner    *model.Employee
}

func newTestServer(t *testing.T, frameTexts ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database := dbtest.New(t)
	vehicleRepo := repository.NewVehicleRepository(database)
	employeeRepo := repository.NewEmployeeRepository(database)
	dependencyRepo := repository.NewDependencyRepository(database)
	registry := repository.NewCachedRegistry(vehicleRepo, time.Minute)

	texts := make([]recognition.Text, 0, len(frameTexts))
	for _, text := range frameTexts {
		texts = append(texts, recognition.Text{Value: text})
	}

	reg := prometheus.NewRegistry()
	metrics, err := recognition.NewMetrics(reg)
	require.NoError(t, err)

	recognizer := recognition.NewRecognizer(nil, &frameReader{texts: texts}, registry,
		recognition.DefaultOptions(), zerolog.Nop(), metrics)

	handler := NewHandler(
		service.NewRecognitionService(recognizer, repository.NewRecognitionEventRepository(database), nil, zerolog.Nop()),
		service.NewVehicleService(vehicleRepo, employeeRepo, registry),
		service.NewEmployeeService(employeeRepo, dependencyRepo),
		service.NewDirectoryService(vehicleRepo, employeeRepo, dependencyRepo),
		1<<20,
		zerolog.Nop(),
	)
	parser := auth.NewParser(testSecret)

	owner := &model.Employee{Document: "100", FirstName: "Ana", LastName: "Ruiz", Active: true}
	require.NoError(t, employeeRepo.Create(context.Background(), owner))

	return &testServer{
		router:   NewRouter(handler, middleware.Auth(parser), "test", reg),
		parser:   parser,
		vehicles: vehicleRepo,
		owner:    owner,
	}
}

func (s *testServer) token(t *testing.T, role model.UserRole) string {
	t.Helper()
	token, err := s.parser.Issue(uuid.New(), role, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, req *http.Request, role model.UserRole) *httptest.ResponseRecorder {
	t.Helper()
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, role))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any, role model.UserRole) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req, role)
}

func uploadRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "frame.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/recognitions", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func pngFrame(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/stats", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = s.do(t, req, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecognize_MatchesRegisteredVehicle(t *testing.T) {
	s := newTestServer(t, "UNIV", "A8C-123")

	rec := s.doJSON(t, http.MethodPost, "/vehicles", gin.H{
		"employee_id":  s.owner.ID.String(),
		"plate_number": "abc123",
		"type":         "CARRO",
		"brand":        "Renault",
	}, model.UserRoleAdmin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, uploadRequest(t, pngFrame(t)), model.UserRoleGuard)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outcome recognition.Outcome
	decodeData(t, rec, &outcome)
	assert.Equal(t, recognition.StatusMatched, outcome.Status)
	assert.Equal(t, "ABC123", outcome.Plate)
	assert.Equal(t, recognition.MethodVariant, outcome.Method)
	require.NotNil(t, outcome.Vehicle)
	assert.Equal(t, "Renault", outcome.Vehicle.Brand)
	assert.NotEmpty(t, outcome.RequestID)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `plate_recognition_outcomes_total{method="VARIANT",status="MATCHED"} 1`)
}

func TestRecognize_NotDetected(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, uploadRequest(t, pngFrame(t)), model.UserRoleGuard)
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome recognition.Outcome
	decodeData(t, rec, &outcome)
	assert.Equal(t, recognition.StatusNotDetected, outcome.Status)
	assert.Empty(t, outcome.Plate)
}

func TestRecognize_RejectsBadUploads(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, uploadRequest(t, []byte("plain text")), model.UserRoleGuard)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported image format")

	rec = s.do(t, uploadRequest(t, bytes.Repeat([]byte{1}, 2<<20)), model.UserRoleGuard)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/recognitions", nil)
	rec = s.do(t, req, model.UserRoleGuard)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestRecognize_OversizedBodyCutOff(t *testing.T) {
	s := newTestServer(t)

	upload := uploadRequest(t, bytes.Repeat([]byte{1}, 8<<20))
	body := &countingReader{r: upload.Body}
	req := httptest.NewRequest(http.MethodPost, "/recognitions", body)
	req.Header.Set("Content-Type", upload.Header.Get("Content-Type"))

	rec := s.do(t, req, model.UserRoleGuard)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "image is too large")
	assert.LessOrEqual(t, body.n, 1<<20+multipartOverhead+1)
}

func TestVehicles(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/vehicles", gin.H{
		"employee_id": s.owner.ID.String(), "plate_number": "XYZ987", "type": "MOTO",
	}, model.UserRoleGuard)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.doJSON(t, http.MethodPost, "/vehicles", gin.H{
		"employee_id": s.owner.ID.String(), "plate_number": "XY9876", "type": "MOTO",
	}, model.UserRoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.doJSON(t, http.MethodPost, "/vehicles", gin.H{
		"employee_id": s.owner.ID.String(), "plate_number": "XYZ987", "type": "MOTO",
	}, model.UserRoleAdmin)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.doJSON(t, http.MethodPost, "/vehicles", gin.H{
		"employee_id": s.owner.ID.String(), "plate_number": "xyz-987", "type": "CARRO",
	}, model.UserRoleAdmin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/vehicles/xyz987", nil), model.UserRoleGuard)
	require.Equal(t, http.StatusOK, rec.Code)
	var vehicle model.Vehicle
	decodeData(t, rec, &vehicle)
	assert.Equal(t, "XYZ987", vehicle.PlateNumber)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/vehicles/ABC123", nil), model.UserRoleGuard)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/vehicles?type=MOTO&active=true", nil), model.UserRoleGuard)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Vehicle
	decodeData(t, rec, &list)
	assert.Len(t, list, 1)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/vehicles?active=maybe", nil), model.UserRoleGuard)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmployees(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/employees", gin.H{
		"document": "200", "first_name": "Luis", "last_name": "Mora",
	}, model.UserRoleAdmin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var employee model.Employee
	decodeData(t, rec, &employee)

	rec = s.doJSON(t, http.MethodPost, "/employees", gin.H{
		"document": "200", "first_name": "Otro", "last_name": "Mora",
	}, model.UserRoleAdmin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.doJSON(t, http.MethodPut, "/employees/"+employee.ID.String(), gin.H{
		"document": "201", "first_name": "Luis", "last_name": "Mora",
	}, model.UserRoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.doJSON(t, http.MethodPut, "/employees/"+employee.ID.String()+"/deactivate", nil, model.UserRoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.doJSON(t, http.MethodPut, "/employees/not-an-id/activate", nil, model.UserRoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.doJSON(t, http.MethodPut, "/employees/"+uuid.NewString()+"/activate", nil, model.UserRoleAdmin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/employees", nil), model.UserRoleGuard)
	require.Equal(t, http.StatusOK, rec.Code)
	var employees []model.Employee
	decodeData(t, rec, &employees)
	assert.Len(t, employees, 2)
}

func TestStatsAndDependencies(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/stats", nil), model.UserRoleGuard)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats service.Stats
	decodeData(t, rec, &stats)
	assert.EqualValues(t, 1, stats.Employees)
	assert.Zero(t, stats.Vehicles)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/dependencies", nil), model.UserRoleGuard)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzePlate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/plates/%5BTL%3A885/analysis", nil), model.UserRoleGuard)
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis service.PlateAnalysis
	decodeData(t, rec, &analysis)
	assert.Equal(t, "JTL885", analysis.Corrected)
	assert.True(t, analysis.Misread)
	assert.True(t, analysis.Valid)
}

func TestRecognitionJournal(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 2; i++ {
		rec := s.do(t, uploadRequest(t, pngFrame(t)), model.UserRoleGuard)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/recognitions?status=NOT_DETECTED&limit=1", nil), model.UserRoleGuard)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []model.RecognitionEvent
	decodeData(t, rec, &events)
	assert.Len(t, events, 1)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/recognitions?limit=abc", nil), model.UserRoleGuard)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/recognitions?from=yesterday", nil), model.UserRoleGuard)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
