package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventcraft/service-booking/internal/application"
	"github.com/eventcraft/service-booking/internal/platform/apperror"
	"github.com/eventcraft/service-booking/internal/platform/auth"
	"github.com/eventcraft/service-booking/internal/platform/middleware"
	"github.com/eventcraft/service-booking/internal/platform/pagination"
	"github.com/eventcraft/service-booking/internal/platform/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	providerOnly := middleware.RequireRole(auth.RoleProvider)

	api := r.Group("/api/v1")
	api.Use(authMW)
	{
		api.GET("/providers/:providerId/bookings", providerOnly, h.ListBookings)
		api.POST("/bookings", middleware.RequireRole(auth.RoleCustomer, auth.RoleAdmin), h.CreateBooking)
		api.GET("/bookings/:id", providerOnly, h.GetBooking)
		api.POST("/bookings/:id/cancel", providerOnly, h.CancelBooking)
		api.POST("/bookings/:id/mark-paid", providerOnly, h.MarkFullyPaid)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/providers/:providerId/bookings.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	providerID, err := uuid.Parse(c.Param("providerId"))
	if err != nil {
		response.BadRequest(c, "invalid provider ID")
		return
	}

	page, limit := parsePagination(c)
	result, err := h.service.ListBookings(c.Request.Context(), actorID, providerID, application.ListQuery{
		Status: c.Query("status"),
		Query:  c.Query("q"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, actorID, ok := bookingAndActor(c)
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel. The body is optional.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, actorID, ok := bookingAndActor(c)
	if !ok {
		return
	}

	var req application.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), bookingID, actorID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// MarkFullyPaid handles POST /api/v1/bookings/:id/mark-paid.
func (h *BookingHandler) MarkFullyPaid(c *gin.Context) {
	bookingID, actorID, ok := bookingAndActor(c)
	if !ok {
		return
	}

	result, err := h.service.MarkFullyPaid(c.Request.Context(), bookingID, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// --- Helpers ---

// bindError reports a body that could not be decoded. A value of the wrong
// JSON type is reported against its field.
func bindError(c *gin.Context, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		response.Error(c, apperror.NewValidationError("invalid request body", apperror.FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("must be of type %s, got %s", typeErr.Type, typeErr.Value),
		}))
		return
	}
	response.BadRequest(c, "invalid request body")
}

func bookingAndActor(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return uuid.Nil, uuid.Nil, false
	}

	actorID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	return bookingID, actorID, true
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(pagination.DefaultLimit)))
	return pagination.Normalize(page, limit)
}
