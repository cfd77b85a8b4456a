package api

import (
	"net/http"

	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/connectors"
	"github.com/alan791205/ohara/jdbc_infos"
	"github.com/alan791205/ohara/workers"
)

type validateFtpRequest struct {
	connectors.FtpInfo
	Folders []string `json:"folders"`
}

// ----- Worker clusters -----

func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.Workers.List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if all == nil {
		all = []workers.Worker{}
	}
	writeResult(w, http.StatusOK, all)
}

func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req workers.Worker
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	worker, err := h.svc.Workers.Create(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, worker)
}

func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker, err := h.svc.Workers.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, worker)
}

func (h *Handler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Workers.Delete(r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListWorkerConnectors(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.Workers.Connectors(r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if all == nil {
		all = []workers.Connector{}
	}
	writeResult(w, http.StatusOK, all)
}

// ----- Test connection -----

func (h *Handler) ValidateFtp(w http.ResponseWriter, r *http.Request) {
	var req validateFtpRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Checker.ValidateFtp(r.Context(), req.FtpInfo, req.Folders...); err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]bool{"pass": true})
}

func (h *Handler) ValidateRdb(w http.ResponseWriter, r *http.Request) {
	var req connectors.RdbInfo
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.JdbcInfos.Validate(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]bool{"pass": true})
}

// QueryRdb lists the tables of an unsaved connection.
func (h *Handler) QueryRdb(w http.ResponseWriter, r *http.Request) {
	var req connectors.RdbInfo
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tables, err := h.svc.Checker.QueryTables(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tables == nil {
		tables = []connectors.Table{}
	}
	writeResult(w, http.StatusOK, tables)
}

// ----- Saved database connections -----

func (h *Handler) ListJdbcInfos(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.JdbcInfos.List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if all == nil {
		all = []jdbc_infos.Info{}
	}
	writeResult(w, http.StatusOK, all)
}

func (h *Handler) CreateJdbcInfo(w http.ResponseWriter, r *http.Request) {
	var req jdbc_infos.Info
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	info, err := h.svc.JdbcInfos.Create(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, info)
}

func (h *Handler) GetJdbcInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.JdbcInfos.Get(config.ID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, info)
}

func (h *Handler) UpdateJdbcInfo(w http.ResponseWriter, r *http.Request) {
	var req jdbc_infos.Info
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.ID = config.ID(r.PathValue("id"))
	info, err := h.svc.JdbcInfos.Update(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, info)
}

func (h *Handler) DeleteJdbcInfo(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.JdbcInfos.Delete(config.ID(r.PathValue("id"))); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) JdbcTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.svc.JdbcInfos.Tables(r.Context(), config.ID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tables == nil {
		tables = []connectors.Table{}
	}
	writeResult(w, http.StatusOK, tables)
}
