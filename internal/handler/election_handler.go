package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"pollsight/datahub/internal/service"
	"pollsight/datahub/pkg/response"
)

type ElectionHandler struct {
	electionService service.ElectionService
}

func NewElectionHandler(electionService service.ElectionService) *ElectionHandler {
	return &ElectionHandler{electionService: electionService}
}

// ListConstituencies returns all constituencies, optionally filtered by region.
func (h *ElectionHandler) ListConstituencies(c *gin.Context) {
	constituencies, err := h.electionService.ListConstituencies(c.Request.Context(), c.Query("region"))
	if err != nil {
		response.InternalError(c, "failed to list constituencies")
		return
	}
	response.Success(c, constituencies)
}

// GetConstituency returns one constituency with its result table. The year
// query parameter defaults to the most recent election on record.
func (h *ElectionHandler) GetConstituency(c *gin.Context) {
	var year int
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(c, "invalid year")
			return
		}
		year = parsed
	}

	detail, err := h.electionService.GetConstituency(c.Request.Context(), c.Param("code"), year)
	if err != nil {
		if errors.Is(err, service.ErrConstituencyNotFound) {
			response.NotFound(c, "constituency not found")
			return
		}
		response.InternalError(c, "failed to load constituency")
		return
	}
	response.Success(c, detail)
}

// ListYears returns the election years present in the results table, newest first.
func (h *ElectionHandler) ListYears(c *gin.Context) {
	years, err := h.electionService.Years(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to list years")
		return
	}
	response.Success(c, years)
}

// SearchContacts searches constituency office contacts by name or office.
func (h *ElectionHandler) SearchContacts(c *gin.Context) {
	contacts, err := h.electionService.SearchContacts(c.Request.Context(), c.Query("constituency"), c.Query("q"))
	if err != nil {
		response.InternalError(c, "failed to search contacts")
		return
	}
	response.Success(c, contacts)
}
