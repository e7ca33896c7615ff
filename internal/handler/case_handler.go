package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uni-ombuds/case-api/internal/dto"
	"github.com/uni-ombuds/case-api/internal/service"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
	"github.com/uni-ombuds/case-api/pkg/response"
)

// CaseHandler exposes case registry and lifecycle endpoints.
type CaseHandler struct {
	registry   *service.RegistryService
	lifecycle  *service.LifecycleService
	assignment *service.AssignmentService
}

// NewCaseHandler constructs a case handler.
func NewCaseHandler(registry *service.RegistryService, lifecycle *service.LifecycleService, assignment *service.AssignmentService) *CaseHandler {
	return &CaseHandler{registry: registry, lifecycle: lifecycle, assignment: assignment}
}

// Create godoc
// @Summary Register a case
// @Description Registers a complaint, grievance or denunciation from an intake payload
// @Tags Cases
// @Accept json
// @Produce json
// @Param payload body dto.CreateCaseRequest true "Intake payload"
// @Success 201 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Create(c *gin.Context) {
	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.registry.Create(c.Request.Context(), req, currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List cases
// @Tags Cases
// @Produce json
// @Param type query string false "Filter by case type"
// @Param state query string false "Filter by state"
// @Param priority query string false "Filter by priority"
// @Param assignedTo query string false "Filter by handler"
// @Param search query string false "Search tracking code or complainant"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cases [get]
func (h *CaseHandler) List(c *gin.Context) {
	var q dto.CaseQuery
	q.Type = c.Query("type")
	q.State = c.Query("state")
	q.Priority = c.Query("priority")
	q.AssignedTo = c.Query("assignedTo")
	q.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		q.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		q.PageSize = size
	}
	q.SortBy = c.Query("sort")
	q.SortOrder = c.Query("order")

	cases, pagination, err := h.registry.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases, pagination)
}

// Get godoc
// @Summary Get a case
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	found, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, found, nil)
}

// Transition godoc
// @Summary Change case state
// @Description Applies a lifecycle state change; supervisors may override the graph
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/transition [post]
func (h *CaseHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.lifecycle.Transition(c.Request.Context(), c.Param("id"), req, currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// SetPriority godoc
// @Summary Change case priority
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.PriorityRequest true "Priority payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/priority [post]
func (h *CaseHandler) SetPriority(c *gin.Context) {
	var req dto.PriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.lifecycle.SetPriority(c.Request.Context(), c.Param("id"), req, currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Assign godoc
// @Summary Reassign a case
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.AssignRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/assign [post]
func (h *CaseHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.assignment.Assign(c.Request.Context(), c.Param("id"), req, currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Hard-delete a case
// @Description Administrative escape hatch, supervisors only
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 204
// @Router /cases/{id} [delete]
func (h *CaseHandler) Delete(c *gin.Context) {
	if err := h.registry.Delete(c.Request.Context(), c.Param("id"), currentActor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
