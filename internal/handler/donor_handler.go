package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/internal/service"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

// DonorHandler exposes donor endpoints.
type DonorHandler struct {
	donors *service.DonorService
}

// NewDonorHandler constructs DonorHandler.
func NewDonorHandler(donors *service.DonorService) *DonorHandler {
	return &DonorHandler{donors: donors}
}

// List godoc
// @Summary List donors
// @Tags Donors
// @Produce json
// @Param blood_group query string false "Filter by blood group"
// @Param search query string false "Search by name or email"
// @Success 200 {object} response.Envelope
// @Router /donors [get]
func (h *DonorHandler) List(c *gin.Context) {
	filter := models.DonorFilter{
		BloodGroup: c.Query("blood_group"),
		Search:     strings.TrimSpace(c.Query("search")),
	}

	donors, err := h.donors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, donors, len(donors))
}

// Get godoc
// @Summary Get donor detail
// @Tags Donors
// @Produce json
// @Param id path string true "Donor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /donors/{id} [get]
func (h *DonorHandler) Get(c *gin.Context) {
	donor, err := h.donors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donor)
}

// Create godoc
// @Summary Register donor
// @Tags Donors
// @Accept json
// @Produce json
// @Param payload body service.CreateDonorRequest true "Donor payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /donors [post]
func (h *DonorHandler) Create(c *gin.Context) {
	var req service.CreateDonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	donor, err := h.donors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, donor)
}

// Update godoc
// @Summary Update donor
// @Tags Donors
// @Accept json
// @Produce json
// @Param id path string true "Donor ID"
// @Param payload body service.UpdateDonorRequest true "Donor payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /donors/{id} [put]
func (h *DonorHandler) Update(c *gin.Context) {
	var req service.UpdateDonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	donor, err := h.donors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donor)
}

// Delete godoc
// @Summary Delete donor
// @Tags Donors
// @Produce json
// @Param id path string true "Donor ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /donors/{id} [delete]
func (h *DonorHandler) Delete(c *gin.Context) {
	if err := h.donors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
