package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/service"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

// BankHandler exposes blood bank endpoints.
type BankHandler struct {
	banks *service.BankService
}

// NewBankHandler constructs BankHandler.
func NewBankHandler(banks *service.BankService) *BankHandler {
	return &BankHandler{banks: banks}
}

// List godoc
// @Summary List blood banks
// @Tags Banks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /banks [get]
func (h *BankHandler) List(c *gin.Context) {
	banks, err := h.banks.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, banks, len(banks))
}

// Get godoc
// @Summary Get blood bank detail
// @Tags Banks
// @Produce json
// @Param id path string true "Bank ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /banks/{id} [get]
func (h *BankHandler) Get(c *gin.Context) {
	bank, err := h.banks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bank)
}

// Create godoc
// @Summary Register blood bank
// @Tags Banks
// @Accept json
// @Produce json
// @Param payload body service.BankRequest true "Bank payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /banks [post]
func (h *BankHandler) Create(c *gin.Context) {
	var req service.BankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	bank, err := h.banks.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bank)
}

// Update godoc
// @Summary Update blood bank
// @Tags Banks
// @Accept json
// @Produce json
// @Param id path string true "Bank ID"
// @Param payload body service.BankRequest true "Bank payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /banks/{id} [put]
func (h *BankHandler) Update(c *gin.Context) {
	var req service.BankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	bank, err := h.banks.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bank)
}

// Delete godoc
// @Summary Delete blood bank
// @Tags Banks
// @Produce json
// @Param id path string true "Bank ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /banks/{id} [delete]
func (h *BankHandler) Delete(c *gin.Context) {
	if err := h.banks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
