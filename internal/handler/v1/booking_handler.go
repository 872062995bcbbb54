package v1

import (
	"net/http"
	"time"

	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/domain/reservation"
	"github.com/careslot/careslot/internal/domain/schedule"
	"github.com/careslot/careslot/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	bookingSvc *service.BookingService
}

func NewBookingHandler(bookingSvc *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

type requestReservationRequest struct {
	RequesterID uuid.UUID `json:"requester_id" binding:"required"`
	ProviderID  uuid.UUID `json:"provider_id" binding:"required"`
	At          time.Time `json:"at" binding:"required"`
	Notes       string    `json:"notes"`
}

func (h *BookingHandler) RequestReservation(c *gin.Context) {
	var req requestReservationRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.bookingSvc.RequestReservation(c.Request.Context(), &service.RequestReservationCommand{
		RequesterID: req.RequesterID,
		ProviderID:  req.ProviderID,
		At:          req.At,
		Notes:       req.Notes,
	}, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, r)
}

type decideRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (h *BookingHandler) DecideReservation(c *gin.Context) {
	id, ok := parseReservationID(c, "id")
	if !ok {
		return
	}
	var req decideRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.bookingSvc.DecideReservation(c.Request.Context(), id, *req.Accept, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !*req.Accept {
		respondOK(c, gin.H{"rejected": true, "reservation_id": r.ID})
		return
	}
	respondOK(c, r)
}

func (h *BookingHandler) CancelReservation(c *gin.Context) {
	id, ok := parseReservationID(c, "id")
	if !ok {
		return
	}

	r, err := h.bookingSvc.CancelReservation(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

type completeRequest struct {
	Notes string         `json:"notes"`
	Items map[string]int `json:"items"`
}

func (h *BookingHandler) CompleteReservation(c *gin.Context) {
	id, ok := parseReservationID(c, "id")
	if !ok {
		return
	}
	var req completeRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.bookingSvc.CompleteReservation(c.Request.Context(), id, booking.Outcome{
		Notes: req.Notes,
		Items: req.Items,
	}, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

type rescheduleRequest struct {
	ProviderID uuid.UUID `json:"provider_id" binding:"required"`
	At         time.Time `json:"at" binding:"required"`
	Notes      string    `json:"notes"`
}

func (h *BookingHandler) RescheduleReservation(c *gin.Context) {
	id, ok := parseReservationID(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.bookingSvc.RescheduleReservation(c.Request.Context(), id, req.ProviderID, req.At, req.Notes, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, r)
}

func (h *BookingHandler) GetReservation(c *gin.Context) {
	id, ok := parseReservationID(c, "id")
	if !ok {
		return
	}

	r, err := h.bookingSvc.GetReservation(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

func (h *BookingHandler) ListUpcoming(c *gin.Context) {
	out, err := h.bookingSvc.ListUpcoming(callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

func (h *BookingHandler) ListByStatus(c *gin.Context) {
	status := reservation.Status(c.Query("status"))
	out, err := h.bookingSvc.ListByStatus(status, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

func (h *BookingHandler) ListPending(c *gin.Context) {
	providerID, ok := parseUUID(c, "provider_id")
	if !ok {
		return
	}

	out, err := h.bookingSvc.ListPending(providerID, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

func (h *BookingHandler) ListAvailableSlots(c *gin.Context) {
	providerID, ok := parseUUID(c, "provider_id")
	if !ok {
		return
	}
	day, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	respondOK(c, h.bookingSvc.ListAvailableSlots(providerID, day))
}

func (h *BookingHandler) CheckSlot(c *gin.Context) {
	providerID, ok := parseUUID(c, "provider_id")
	if !ok {
		return
	}
	at, err := time.Parse(time.RFC3339, c.Query("at"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "at must be RFC3339")
		return
	}

	respondOK(c, gin.H{"available": h.bookingSvc.IsSlotAvailable(providerID, at)})
}

type setScheduleRequest struct {
	Blocks []scheduleBlock `json:"blocks"`
}

type scheduleBlock struct {
	Date  string `json:"date" binding:"required"`
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
	Label string `json:"label"`
}

func (h *BookingHandler) SetSchedule(c *gin.Context) {
	providerID, ok := parseUUID(c, "provider_id")
	if !ok {
		return
	}
	var req setScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	blocks := make([]schedule.DayBlock, 0, len(req.Blocks))
	for _, b := range req.Blocks {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			respondError(c, http.StatusBadRequest, "block date must be YYYY-MM-DD")
			return
		}
		start, err := schedule.ParseTimeOfDay(b.Start)
		if err != nil {
			respondError(c, http.StatusBadRequest, "block start must be HH:MM")
			return
		}
		end, err := schedule.ParseTimeOfDay(b.End)
		if err != nil {
			respondError(c, http.StatusBadRequest, "block end must be HH:MM")
			return
		}
		iv, err := schedule.NewLabeledInterval(start, end, b.Label)
		if err != nil {
			respondError(c, http.StatusBadRequest, "block start must precede end")
			return
		}
		blocks = append(blocks, schedule.DayBlock{Date: date, Interval: iv})
	}

	if err := h.bookingSvc.SetSchedule(c.Request.Context(), providerID, blocks, callerFrom(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"blocks": len(blocks)})
}

func (h *BookingHandler) GetSchedule(c *gin.Context) {
	providerID, ok := parseUUID(c, "provider_id")
	if !ok {
		return
	}

	blocks := h.bookingSvc.ProviderBlocks(providerID)
	out := make([]scheduleBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, scheduleBlock{
			Date:  b.Date.Format("2006-01-02"),
			Start: b.Interval.Start.String(),
			End:   b.Interval.End.String(),
			Label: b.Interval.Label,
		})
	}
	respondOK(c, out)
}
