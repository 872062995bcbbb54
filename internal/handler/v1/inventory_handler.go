package v1

import (
	"github.com/careslot/careslot/internal/domain/inventory"
	"github.com/careslot/careslot/internal/service"
	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventorySvc *service.InventoryService
}

func NewInventoryHandler(inventorySvc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventorySvc: inventorySvc}
}

type createMedicationRequest struct {
	Code              string `json:"code" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

func (h *InventoryHandler) CreateMedication(c *gin.Context) {
	var req createMedicationRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.inventorySvc.CreateMedication(c.Request.Context(), &inventory.CreateMedicationCommand{
		Code:              req.Code,
		Name:              req.Name,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
	}, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, m)
}

func (h *InventoryHandler) GetMedication(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	m, err := h.inventorySvc.GetMedication(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, m)
}

func (h *InventoryHandler) ListMedications(c *gin.Context) {
	q := &inventory.ListMedicationsQuery{
		LowStockOnly:          c.Query("low_stock") == "true",
		WithReplenishmentOnly: c.Query("replenishing") == "true",
		Page:                  parseQueryInt(c, "page", 1),
		PageSize:              parseQueryInt(c, "page_size", 20),
	}

	out, err := h.inventorySvc.ListMedications(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

type adjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req adjustStockRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.inventorySvc.AdjustStock(c.Request.Context(), id, req.Delta, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, m)
}

type thresholdRequest struct {
	Threshold int `json:"threshold"`
}

func (h *InventoryHandler) SetLowStockThreshold(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req thresholdRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.inventorySvc.SetLowStockThreshold(c.Request.Context(), id, req.Threshold, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, m)
}

type replenishRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *InventoryHandler) RequestReplenishment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req replenishRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.inventorySvc.RequestReplenishment(c.Request.Context(), id, req.Quantity, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, m)
}

func (h *InventoryHandler) FulfillReplenishment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	m, err := h.inventorySvc.FulfillReplenishment(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, m)
}

func (h *InventoryHandler) DeleteMedication(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.inventorySvc.DeleteMedication(c.Request.Context(), id, callerFrom(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}
