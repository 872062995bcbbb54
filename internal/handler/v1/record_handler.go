package v1

import (
	"net/http"

	"github.com/careslot/careslot/internal/domain/record"
	"github.com/careslot/careslot/internal/service"
	"github.com/gin-gonic/gin"
)

type RecordHandler struct {
	recordSvc *service.RecordService
}

func NewRecordHandler(recordSvc *service.RecordService) *RecordHandler {
	return &RecordHandler{recordSvc: recordSvc}
}

type appendEntryRequest struct {
	Type          string  `json:"type" binding:"required"`
	Content       string  `json:"content" binding:"required"`
	ReservationID *uint64 `json:"reservation_id"`
}

func (h *RecordHandler) AppendEntry(c *gin.Context) {
	patientID, ok := parseUUID(c, "patient_id")
	if !ok {
		return
	}
	var req appendEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerFrom(c)
	if caller.ProviderID == nil && caller.Role != "admin" {
		respondError(c, http.StatusForbidden, "access denied")
		return
	}

	cmd := &record.AppendEntryCommand{
		PatientID:     patientID,
		Type:          record.EntryType(req.Type),
		Content:       req.Content,
		ReservationID: req.ReservationID,
	}
	if caller.ProviderID != nil {
		cmd.ProviderID = *caller.ProviderID
	}

	e, err := h.recordSvc.AppendEntry(c.Request.Context(), cmd, caller)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, e)
}

func (h *RecordHandler) ListByPatient(c *gin.Context) {
	patientID, ok := parseUUID(c, "patient_id")
	if !ok {
		return
	}

	entries, err := h.recordSvc.ListByPatient(c.Request.Context(), patientID, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, entries)
}

type addAddendumRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *RecordHandler) AddAddendum(c *gin.Context) {
	entryID, ok := parseUUID(c, "entry_id")
	if !ok {
		return
	}
	var req addAddendumRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.recordSvc.AddAddendum(c.Request.Context(), &record.AddAddendumCommand{
		EntryID: entryID,
		Content: req.Content,
	}, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}
