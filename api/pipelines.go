package api

import (
	"fmt"
	"net/http"

	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/connectors"
	"github.com/alan791205/ohara/graphs"
	"github.com/alan791205/ohara/pipelines"
)

type createPipelineRequest struct {
	Name              string `json:"name" validate:"required,max=100"`
	WorkerClusterName string `json:"workerClusterName"`
}

type renamePipelineRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type addNodeRequest struct {
	Kind string `json:"kind" validate:"required"`
	Name string `json:"name"`
}

type addNodeResponse struct {
	Pipeline pipelines.Pipeline `json:"pipeline"`
	Node     graphs.GraphNode   `json:"node"`
}

type selectTopicRequest struct {
	TopicID config.ID `json:"topicId"`
	// Role overrides the role derived from the connector class.
	Role graphs.Role `json:"role,omitempty" validate:"omitempty,oneof=source sink"`
}

// editConnectorRequest carries one form change. Omitted fields are left alone.
type editConnectorRequest struct {
	Name    *string                `json:"name,omitempty" validate:"omitnil,max=100"`
	Configs connectors.Config      `json:"configs,omitempty"`
	Schema  []connectors.Column    `json:"schema,omitempty"`
	Column  *connectors.ColumnEdit `json:"column,omitempty" validate:"omitnil"`
}

func (req editConnectorRequest) edit() pipelines.ConnectorEdit {
	return pipelines.ConnectorEdit{
		Name:    req.Name,
		Configs: req.Configs,
		Schema:  req.Schema,
		Column:  req.Column,
	}
}

func (req editConnectorRequest) empty() bool {
	return req.Name == nil && len(req.Configs) == 0 && req.Schema == nil && req.Column == nil
}

func pathID(r *http.Request, name string) config.ID {
	return config.ID(r.PathValue(name))
}

// ----- Pipelines -----

func (h *Handler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.Pipelines.List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if all == nil {
		all = []pipelines.Pipeline{}
	}
	writeResult(w, http.StatusOK, all)
}

func (h *Handler) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	var req createPipelineRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.WorkerClusterName != "" && h.svc.Workers != nil {
		if _, err := h.svc.Workers.Get(req.WorkerClusterName); err != nil {
			writeError(w, r, err)
			return
		}
	}
	p, err := h.svc.Pipelines.Create(req.Name, req.WorkerClusterName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, p)
}

func (h *Handler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Pipelines.Get(pathID(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

func (h *Handler) RenamePipeline(w http.ResponseWriter, r *http.Request) {
	var req renamePipelineRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.Pipelines.Rename(pathID(r, "id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

func (h *Handler) DeletePipeline(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Pipelines.Delete(pathID(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) StartPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Pipelines.Start(pathID(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

func (h *Handler) StopPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Pipelines.Stop(pathID(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

// ----- Graph -----

func (h *Handler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, node, err := h.svc.Pipelines.AddNode(pathID(r, "id"), req.Kind, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, addNodeResponse{Pipeline: p, Node: node})
}

func (h *Handler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Pipelines.RemoveNode(pathID(r, "id"), pathID(r, "nodeId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

func (h *Handler) ActivateNode(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Pipelines.Activate(pathID(r, "id"), pathID(r, "nodeId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

// ----- Connectors -----

func (h *Handler) GetConnector(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Pipelines.Connector(pathID(r, "id"), pathID(r, "connectorId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, c)
}

func (h *Handler) SaveConnector(w http.ResponseWriter, r *http.Request) {
	var c connectors.Connector
	if err := h.decode(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = pathID(r, "connectorId")
	p, err := h.svc.Pipelines.SaveConnector(pathID(r, "id"), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

// EditConnector merges form changes into the connector draft. The draft is
// saved after the form has been idle for a moment.
func (h *Handler) EditConnector(w http.ResponseWriter, r *http.Request) {
	var req editConnectorRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.empty() {
		writeError(w, r, fmt.Errorf("%w: nothing to edit", errBadRequest))
		return
	}
	c, err := h.svc.Pipelines.EditConnector(pathID(r, "id"), pathID(r, "connectorId"), req.edit())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusAccepted, c)
}

func (h *Handler) SelectTopic(w http.ResponseWriter, r *http.Request) {
	var req selectTopicRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, connectorID := pathID(r, "id"), pathID(r, "connectorId")
	role := req.Role
	if role == "" {
		c, err := h.svc.Pipelines.Connector(id, connectorID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		role = pipelines.RoleOf(c.ClassName)
	}
	p, err := h.svc.Pipelines.SelectTopic(id, connectorID, req.TopicID, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

func (h *Handler) StartConnector(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Pipelines.StartConnector(pathID(r, "id"), pathID(r, "connectorId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}

func (h *Handler) StopConnector(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Pipelines.StopConnector(pathID(r, "id"), pathID(r, "connectorId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, p)
}
