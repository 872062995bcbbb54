package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/domain/inventory"
	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/internal/domain/provider"
	"github.com/careslot/careslot/internal/domain/record"
	"github.com/careslot/careslot/internal/domain/reservation"
	"github.com/careslot/careslot/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, reservation.ErrNotFound),
		errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, provider.ErrProviderNotFound),
		errors.Is(err, inventory.ErrMedicationNotFound),
		errors.Is(err, record.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrSlotUnavailable),
		errors.Is(err, inventory.ErrMedicationExists),
		errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, booking.ErrPastSlot),
		errors.Is(err, booking.ErrHorizonExceeded),
		errors.Is(err, booking.ErrOutOfHours),
		errors.Is(err, booking.ErrUnknownProvider),
		errors.Is(err, booking.ErrRescheduleFailed),
		errors.Is(err, reservation.ErrInvalidTransition),
		errors.Is(err, patient.ErrPatientInactive),
		errors.Is(err, provider.ErrProviderInactive),
		errors.Is(err, patient.ErrInvalidGender),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrNoReplenishmentPending),
		errors.Is(err, record.ErrInvalidEntryType):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})

	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseReservationID(c *gin.Context, param string) (uint64, bool) {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a positive integer"})
		return 0, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
