// Package response writes the JSON envelopes returned by every endpoint.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eventcraft/service-booking/internal/platform/apperror"
)

// Envelope is the top-level response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// Meta carries pagination information.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// ErrorBody is the error part of an envelope.
type ErrorBody struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Fields  []apperror.FieldError `json:"fields,omitempty"`
	Details map[string]string     `json:"details,omitempty"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes 200 with a page of items and its meta.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta:    &Meta{Total: total, Page: page, Limit: limit, TotalPages: totalPages},
	})
}

// BadRequest writes 400 with a validation error code.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, &ErrorBody{Code: string(apperror.KindValidation), Message: message})
}

// Unauthorized writes 401.
func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, &ErrorBody{Code: string(apperror.KindUnauthorized), Message: message})
}

// Forbidden writes 403.
func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, &ErrorBody{Code: string(apperror.KindForbidden), Message: message})
}

// Error maps err to its HTTP status and writes the error envelope.
// Causes of internal and store failures are not exposed.
func Error(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, &ErrorBody{
			Code:    string(apperror.KindInternal),
			Message: "internal server error",
		})
		return
	}

	body := &ErrorBody{
		Code:    string(appErr.Kind),
		Message: appErr.Message,
		Fields:  appErr.Fields,
		Details: appErr.Details,
	}
	switch appErr.Kind {
	case apperror.KindInternal:
		_ = c.Error(err)
		body.Message = "internal server error"
	case apperror.KindStoreUnavailable:
		_ = c.Error(err)
		body.Message = "booking store is temporarily unavailable, retry later"
	}
	abort(c, StatusFor(appErr.Kind), body)
}

// StatusFor returns the HTTP status used for an error kind.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInvalidTransition,
		apperror.KindCancellationWindowExpired,
		apperror.KindAlreadySettled,
		apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, body *ErrorBody) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: body})
}
