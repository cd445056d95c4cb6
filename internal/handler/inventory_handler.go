package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/service"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

// InventoryHandler exposes inventory endpoints.
type InventoryHandler struct {
	inventory *service.InventoryService
}

// NewInventoryHandler constructs InventoryHandler.
func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// List godoc
// @Summary List inventory
// @Description List available units per bank and blood group
// @Tags Inventory
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	records, err := h.inventory.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, records, len(records))
}

// ListByGroup godoc
// @Summary List inventory for one blood group
// @Tags Inventory
// @Produce json
// @Param group path string true "Blood group"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /inventory/blood-group/{group} [get]
func (h *InventoryHandler) ListByGroup(c *gin.Context) {
	records, err := h.inventory.ListByGroup(c.Request.Context(), c.Param("group"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, records, len(records))
}

// Expiring godoc
// @Summary List donations nearing expiry
// @Tags Inventory
// @Produce json
// @Param days query int false "Window in days"
// @Success 200 {object} response.Envelope
// @Router /inventory/expiring [get]
func (h *InventoryHandler) Expiring(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be a positive integer"))
			return
		}
		days = parsed
	}

	donations, err := h.inventory.Expiring(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, donations, len(donations))
}

// Adjust godoc
// @Summary Adjust inventory manually
// @Description Add or subtract units for a bank and blood group
// @Tags Inventory
// @Accept json
// @Produce json
// @Param payload body service.AdjustInventoryRequest true "Adjustment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /inventory/update [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req service.AdjustInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.inventory.Adjust(c.Request.Context(), req, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "inventory updated", nil)
}

// Report godoc
// @Summary Export inventory report
// @Description Download the current inventory as CSV or PDF
// @Tags Inventory
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /inventory/report [get]
func (h *InventoryHandler) Report(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.inventory.Report(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := "csv"
	if contentType == "application/pdf" {
		ext = "pdf"
	}
	filename := fmt.Sprintf("inventory-report-%s.%s", time.Now().UTC().Format("2006-01-02"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
