package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/service"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

// RecipientHandler exposes recipient endpoints.
type RecipientHandler struct {
	recipients *service.RecipientService
}

// NewRecipientHandler constructs RecipientHandler.
func NewRecipientHandler(recipients *service.RecipientService) *RecipientHandler {
	return &RecipientHandler{recipients: recipients}
}

// List godoc
// @Summary List recipients
// @Tags Recipients
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /recipients [get]
func (h *RecipientHandler) List(c *gin.Context) {
	recipients, err := h.recipients.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, recipients, len(recipients))
}

// Get godoc
// @Summary Get recipient detail
// @Tags Recipients
// @Produce json
// @Param id path string true "Recipient ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /recipients/{id} [get]
func (h *RecipientHandler) Get(c *gin.Context) {
	recipient, err := h.recipients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, recipient)
}

// Create godoc
// @Summary Register recipient
// @Tags Recipients
// @Accept json
// @Produce json
// @Param payload body service.RecipientRequest true "Recipient payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /recipients [post]
func (h *RecipientHandler) Create(c *gin.Context) {
	var req service.RecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	recipient, err := h.recipients.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, recipient)
}

// Update godoc
// @Summary Update recipient
// @Tags Recipients
// @Accept json
// @Produce json
// @Param id path string true "Recipient ID"
// @Param payload body service.RecipientRequest true "Recipient payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /recipients/{id} [put]
func (h *RecipientHandler) Update(c *gin.Context) {
	var req service.RecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	recipient, err := h.recipients.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, recipient)
}

// Delete godoc
// @Summary Delete recipient
// @Tags Recipients
// @Produce json
// @Param id path string true "Recipient ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /recipients/{id} [delete]
func (h *RecipientHandler) Delete(c *gin.Context) {
	if err := h.recipients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
