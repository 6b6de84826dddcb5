package http

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"plate-service/internal/http/middleware"
	"plate-service/internal/model"
	"plate-service/internal/plate"
	"plate-service/internal/service"
)

const (
	defaultUploadMaxBytes = 10 << 20

	// multipartOverhead: запас на заголовки частей и прочие поля формы.
	multipartOverhead = 64 << 10
)

type Handler struct {
	recognitionService *service.RecognitionService
	vehicleService     *service.VehicleService
	employeeService    *service.EmployeeService
	directoryService   *service.DirectoryService
	uploadMaxBytes     int64
	log                zerolog.Logger
}

func NewHandler(
	recognitionService *service.RecognitionService,
	vehicleService *service.VehicleService,
	employeeService *service.EmployeeService,
	directoryService *service.DirectoryService,
	uploadMaxBytes int64,
	log zerolog.Logger,
) *Handler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = defaultUploadMaxBytes
	}
	return &Handler{
		recognitionService: recognitionService,
		vehicleService:     vehicleService,
		employeeService:    employeeService,
		directoryService:   directoryService,
		uploadMaxBytes:     uploadMaxBytes,
		log:                log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := r.Group("/")
	protected.Use(authMiddleware)

	// Распознавание на въезде
	protected.POST("/recognitions", h.recognize)
	protected.GET("/recognitions", h.listRecognitions)
	protected.GET("/plates/:text/analysis", h.analyzePlate)

	adminOnly := middleware.RequireRole(model.UserRoleAdmin)

	vehicles := protected.Group("/vehicles")
	{
		vehicles.GET("", h.listVehicles)
		vehicles.POST("", adminOnly, h.registerVehicle)
		vehicles.GET("/:plate", h.getVehicle)
	}

	employees := protected.Group("/employees")
	{
		employees.GET("", h.listEmployees)
		employees.POST("", adminOnly, h.registerEmployee)
		employees.PUT("/:id", adminOnly, h.updateEmployee)
		employees.PUT("/:id/activate", adminOnly, h.setEmployeeActive(true))
		employees.PUT("/:id/deactivate", adminOnly, h.setEmployeeActive(false))
	}

	protected.GET("/dependencies", h.listDependencies)
	protected.GET("/stats", h.getStats)
}

func (h *Handler) recognize(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	data, status, err := h.readUpload(c, "file")
	if err != nil {
		c.JSON(status, errorResponse(err.Error()))
		return
	}

	outcome, err := h.recognitionService.Recognize(c.Request.Context(), principal, data)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(outcome))
}

func (h *Handler) listRecognitions(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	input := service.JournalInput{
		Status: c.Query("status"),
		Plate:  c.Query("plate"),
		From:   c.Query("from"),
		To:     c.Query("to"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse("invalid limit"))
			return
		}
		input.Limit = limit
	}

	events, err := h.recognitionService.Journal(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(events))
}

// readUpload читает изображение из multipart-формы и проверяет формат (jpeg, png, webp).
func (h *Handler) readUpload(c *gin.Context, field string) ([]byte, int, error) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadMaxBytes+multipartOverhead)
	}

	fileHeader, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, errors.New("image is too large")
		}
		return nil, http.StatusBadRequest, errors.New("image file is required")
	}
	if fileHeader.Size > h.uploadMaxBytes {
		return nil, http.StatusRequestEntityTooLarge, errors.New("image is too large")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("failed to open image")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.uploadMaxBytes+1))
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("failed to read image")
	}
	if int64(len(data)) > h.uploadMaxBytes {
		return nil, http.StatusRequestEntityTooLarge, errors.New("image is too large")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, http.StatusBadRequest, errors.New("unsupported image format")
	}
	return data, http.StatusOK, nil
}

func (h *Handler) analyzePlate(c *gin.Context) {
	analysis, err := service.AnalyzePlate(strings.TrimSpace(c.Param("text")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(analysis))
}

func (h *Handler) listVehicles(c *gin.Context) {
	input := service.ListVehiclesInput{
		Type:       c.Query("type"),
		EmployeeID: c.Query("employee_id"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid active filter"))
			return
		}
		input.Active = &active
	}

	vehicles, err := h.vehicleService.List(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(vehicles))
}

func (h *Handler) registerVehicle(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		EmployeeID  string `json:"employee_id" binding:"required"`
		PlateNumber string `json:"plate_number" binding:"required"`
		Brand       string `json:"brand"`
		Model       string `json:"model"`
		Type        string `json:"type" binding:"required"`
		Color       string `json:"color"`
		Photo       []byte `json:"photo"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	vehicle, err := h.vehicleService.Register(c.Request.Context(), principal, service.RegisterVehicleInput{
		EmployeeID:  req.EmployeeID,
		PlateNumber: req.PlateNumber,
		Brand:       req.Brand,
		Model:       req.Model,
		Type:        req.Type,
		Color:       req.Color,
		Photo:       req.Photo,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(vehicle))
}

func (h *Handler) getVehicle(c *gin.Context) {
	vehicle, err := h.vehicleService.Get(c.Request.Context(), c.Param("plate"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(vehicle))
}

type employeeRequest struct {
	Document     string `json:"document" binding:"required"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	DependencyID string `json:"dependency_id"`
	Photo        []byte `json:"photo"`
}

func (r employeeRequest) input() service.EmployeeInput {
	return service.EmployeeInput{
		Document:     r.Document,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		DependencyID: r.DependencyID,
		Photo:        r.Photo,
	}
}

func (h *Handler) listEmployees(c *gin.Context) {
	employees, err := h.employeeService.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(employees))
}

func (h *Handler) registerEmployee(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req employeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	employee, err := h.employeeService.Register(c.Request.Context(), principal, req.input())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(employee))
}

func (h *Handler) updateEmployee(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid employee id"))
		return
	}

	var req employeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	employee, err := h.employeeService.Update(c.Request.Context(), principal, id, req.input())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(employee))
}

func (h *Handler) setEmployeeActive(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid employee id"))
			return
		}

		if err := h.employeeService.SetActive(c.Request.Context(), principal, id, active); err != nil {
			h.handleError(c, err)
			return
		}

		c.JSON(http.StatusOK, successResponse(gin.H{"id": id, "active": active}))
	}
}

func (h *Handler) listDependencies(c *gin.Context) {
	dependencies, err := h.directoryService.Dependencies(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(dependencies))
}

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.directoryService.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, plate.ErrGrammarRejected):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
