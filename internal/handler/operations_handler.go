package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"pollsight/datahub/internal/service"
	"pollsight/datahub/pkg/asyncop"
	"pollsight/datahub/pkg/response"
)

// OperationsHandler exposes the dataset loading state machine: current state,
// manual refresh and cancel, and a server-sent-events stream of state changes.
type OperationsHandler struct {
	datasetService service.DatasetService
	manager        *asyncop.Manager
}

func NewOperationsHandler(datasetService service.DatasetService, manager *asyncop.Manager) *OperationsHandler {
	return &OperationsHandler{
		datasetService: datasetService,
		manager:        manager,
	}
}

type operationState struct {
	Dataset string               `json:"dataset"`
	State   asyncop.LoadingState `json:"state"`
}

// ListActive returns the datasets that currently have a load in flight.
func (h *OperationsHandler) ListActive(c *gin.Context) {
	active := make([]operationState, 0)
	for _, dataset := range h.datasetService.Datasets() {
		state, err := h.datasetService.Status(dataset)
		if err != nil {
			continue
		}
		if state.IsLoading || state.Error != "" {
			active = append(active, operationState{Dataset: dataset, State: state})
		}
	}
	response.Success(c, gin.H{
		"busy":       h.manager.HasActiveOperations(),
		"operations": active,
	})
}

// GetState returns the loading state of one dataset.
func (h *OperationsHandler) GetState(c *gin.Context) {
	dataset := c.Param("dataset")
	state, err := h.datasetService.Status(dataset)
	if err != nil {
		if errors.Is(err, service.ErrUnknownDataset) {
			response.NotFound(c, "unknown dataset")
			return
		}
		response.InternalError(c, "failed to read state")
		return
	}
	response.Success(c, operationState{Dataset: dataset, State: state})
}

// Refresh triggers a fresh load of one dataset, clearing any exhausted-retries
// state first. The call blocks until the attempt completes; automatic retries
// after a failure continue in the background.
func (h *OperationsHandler) Refresh(c *gin.Context) {
	dataset := c.Param("dataset")
	summary, err := h.datasetService.RetryRefresh(c.Request.Context(), dataset)
	if err != nil {
		if errors.Is(err, service.ErrUnknownDataset) {
			response.NotFound(c, "unknown dataset")
			return
		}
		response.Error(c, 502, 502, "dataset load failed: "+err.Error())
		return
	}
	response.Success(c, summary)
}

// Cancel aborts tracking of an in-flight load and suppresses pending retries.
func (h *OperationsHandler) Cancel(c *gin.Context) {
	if err := h.datasetService.CancelRefresh(c.Param("dataset")); err != nil {
		if errors.Is(err, service.ErrUnknownDataset) {
			response.NotFound(c, "unknown dataset")
			return
		}
		response.InternalError(c, "failed to cancel")
		return
	}
	response.Success(c, nil)
}

// Events streams loading-state changes for one dataset as server-sent events.
// The first event carries the current state; the stream ends when the client
// disconnects.
func (h *OperationsHandler) Events(c *gin.Context) {
	dataset := c.Param("dataset")
	if _, err := h.datasetService.Status(dataset); err != nil {
		response.NotFound(c, "unknown dataset")
		return
	}

	binding := asyncop.Bind(h.manager, service.OperationID(dataset))
	defer binding.Close()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.SSEvent("state", operationState{Dataset: dataset, State: binding.State()})
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case state, ok := <-binding.Updates():
			if !ok {
				return false
			}
			c.SSEvent("state", operationState{Dataset: dataset, State: state})
			return true
		case <-clientGone:
			return false
		}
	})
}
