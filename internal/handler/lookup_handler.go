package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uni-ombuds/case-api/internal/service"
	"github.com/uni-ombuds/case-api/pkg/response"
)

// LookupHandler serves the unauthenticated tracking endpoint.
type LookupHandler struct {
	lookup *service.LookupService
}

// NewLookupHandler constructs a lookup handler.
func NewLookupHandler(lookup *service.LookupService) *LookupHandler {
	return &LookupHandler{lookup: lookup}
}

// Track godoc
// @Summary Track a case by its public code
// @Description Returns the redacted public projection of a case and its visible trail
// @Tags Public
// @Produce json
// @Param code path string true "Tracking code"
// @Success 200 {object} response.Envelope
// @Router /public/tracking/{code} [get]
func (h *LookupHandler) Track(c *gin.Context) {
	view, err := h.lookup.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
