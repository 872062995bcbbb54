package v1

import (
	"net/http"
	"time"

	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/internal/domain/provider"
	"github.com/careslot/careslot/internal/service"
	"github.com/gin-gonic/gin"
)

type DirectoryHandler struct {
	directorySvc *service.DirectoryService
}

func NewDirectoryHandler(directorySvc *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directorySvc: directorySvc}
}

type createPatientRequest struct {
	FirstName   string `json:"first_name" binding:"required"`
	LastName    string `json:"last_name" binding:"required"`
	DateOfBirth string `json:"date_of_birth" binding:"required"`
	Gender      string `json:"gender" binding:"required"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

func (h *DirectoryHandler) CreatePatient(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		respondError(c, http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
		return
	}

	p, err := h.directorySvc.CreatePatient(c.Request.Context(), &patient.CreatePatientCommand{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: dob,
		Gender:      patient.Gender(req.Gender),
		Phone:       req.Phone,
		Email:       req.Email,
	}, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *DirectoryHandler) GetPatient(c *gin.Context) {
	id, ok := parseUUID(c, "patient_id")
	if !ok {
		return
	}

	p, err := h.directorySvc.GetPatient(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *DirectoryHandler) ListPatients(c *gin.Context) {
	page := parseQueryInt(c, "page", 1)
	pageSize := parseQueryInt(c, "page_size", 20)

	out, err := h.directorySvc.ListPatients(c.Request.Context(), page, pageSize, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

func (h *DirectoryHandler) DeactivatePatient(c *gin.Context) {
	id, ok := parseUUID(c, "patient_id")
	if !ok {
		return
	}

	if err := h.directorySvc.DeactivatePatient(c.Request.Context(), id, callerFrom(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deactivated": true})
}

type createProviderRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Specialty string `json:"specialty" binding:"required"`
	Email     string `json:"email"`
}

func (h *DirectoryHandler) CreateProvider(c *gin.Context) {
	var req createProviderRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.directorySvc.CreateProvider(c.Request.Context(), &provider.CreateProviderCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Specialty: req.Specialty,
		Email:     req.Email,
	}, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *DirectoryHandler) GetProvider(c *gin.Context) {
	id, ok := parseUUID(c, "provider_id")
	if !ok {
		return
	}

	p, err := h.directorySvc.GetProvider(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *DirectoryHandler) ListProviders(c *gin.Context) {
	out, err := h.directorySvc.ListProviders(c.Request.Context(), c.Query("specialty"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}
