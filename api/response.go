package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alan791205/ohara/connectors"
	"github.com/alan791205/ohara/graphs"
	"github.com/alan791205/ohara/jars"
	"github.com/alan791205/ohara/jdbc_infos"
	"github.com/alan791205/ohara/pipelines"
	"github.com/alan791205/ohara/workers"
)

var errBadRequest = errors.New("bad request")

type successResponse struct {
	Result    any  `json:"result"`
	IsSuccess bool `json:"isSuccess"`
}

type errorResponse struct {
	ErrorMessage string `json:"errorMessage"`
	IsSuccess    bool   `json:"isSuccess"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeResult(w http.ResponseWriter, status int, result any) {
	writeJSON(w, status, successResponse{Result: result, IsSuccess: true})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{ErrorMessage: err.Error()})
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{pipelines.ErrPipelineNotFound, http.StatusNotFound},
	{pipelines.ErrConnectorNotFound, http.StatusNotFound},
	{graphs.ErrNodeNotFound, http.StatusNotFound},
	{workers.ErrWorkerNotFound, http.StatusNotFound},
	{jdbc_infos.ErrInfoNotFound, http.StatusNotFound},
	{jars.ErrJarNotFound, http.StatusNotFound},

	{pipelines.ErrPipelineRunning, http.StatusConflict},
	{graphs.ErrDuplicateNode, http.StatusConflict},
	{workers.ErrWorkerExists, http.StatusConflict},
	{jars.ErrDuplicateJar, http.StatusConflict},

	{errBadRequest, http.StatusBadRequest},
	{pipelines.ErrUnknownKind, http.StatusBadRequest},
	{pipelines.ErrNotTopic, http.StatusBadRequest},
	{pipelines.ErrNoTopic, http.StatusBadRequest},
	{pipelines.ErrInvalidName, http.StatusBadRequest},
	{graphs.ErrDanglingReference, http.StatusBadRequest},
	{graphs.ErrInvalidNodeID, http.StatusBadRequest},
	{graphs.ErrInvalidNodeType, http.StatusBadRequest},
	{workers.ErrInvalidWorker, http.StatusBadRequest},
	{jdbc_infos.ErrInvalidInfo, http.StatusBadRequest},
	{jars.ErrNotJar, http.StatusBadRequest},
	{jars.ErrInvalidName, http.StatusBadRequest},
	{connectors.ErrMissingSetting, http.StatusBadRequest},
	{connectors.ErrUnsupportedURL, http.StatusBadRequest},
	{connectors.ErrInvalidDataType, http.StatusBadRequest},
	{connectors.ErrColumnNotFound, http.StatusBadRequest},
	{connectors.ErrInvalidColumnOp, http.StatusBadRequest},

	{connectors.ErrConnectionFailed, http.StatusBadGateway},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

func statusOf(err error) int {
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into v and runs its validate tags.
func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
