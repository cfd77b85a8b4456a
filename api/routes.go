// Package api serves the REST surface of the pipeline console.
package api

import (
	"context"
	"net/http"

	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/connectors"
	"github.com/alan791205/ohara/event_server"
	"github.com/alan791205/ohara/jars"
	"github.com/alan791205/ohara/jdbc_infos"
	"github.com/alan791205/ohara/pipelines"
	"github.com/alan791205/ohara/workers"
	"github.com/go-playground/validator/v10"
)

const Version = "v0.1.0"

// Checker runs the test-connection checks of the connector forms.
type Checker interface {
	ValidateFtp(ctx context.Context, info connectors.FtpInfo, folders ...string) error
	ValidateRdb(ctx context.Context, info connectors.RdbInfo) error
	QueryTables(ctx context.Context, info connectors.RdbInfo) ([]connectors.Table, error)
}

// Services are the backends the handlers delegate to. Events is optional.
type Services struct {
	Pipelines *pipelines.Service
	Workers   *workers.Registry
	JdbcInfos *jdbc_infos.Service
	Jars      *jars.Service
	Checker   Checker
	Events    *event_server.EventServer
}

type Handler struct {
	svc      Services
	validate *validator.Validate
}

func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// NewRouter registers every route. The REST routes live under /api; the
// event streams are long lived and skip the request timeout.
func NewRouter(svc Services, cfg config.ServerConfig) http.Handler {
	h := NewHandler(svc)
	routes := http.NewServeMux()

	routes.HandleFunc("GET /api/health", h.Health)

	// Pipelines
	routes.HandleFunc("GET /api/pipelines", h.ListPipelines)
	routes.HandleFunc("POST /api/pipelines", h.CreatePipeline)
	routes.HandleFunc("GET /api/pipelines/{id}", h.GetPipeline)
	routes.HandleFunc("PUT /api/pipelines/{id}", h.RenamePipeline)
	routes.HandleFunc("DELETE /api/pipelines/{id}", h.DeletePipeline)
	routes.HandleFunc("PUT /api/pipelines/{id}/start", h.StartPipeline)
	routes.HandleFunc("PUT /api/pipelines/{id}/stop", h.StopPipeline)

	// Graph
	routes.HandleFunc("POST /api/pipelines/{id}/nodes", h.AddNode)
	routes.HandleFunc("DELETE /api/pipelines/{id}/nodes/{nodeId}", h.RemoveNode)
	routes.HandleFunc("PUT /api/pipelines/{id}/nodes/{nodeId}/activate", h.ActivateNode)

	// Connectors
	routes.HandleFunc("GET /api/pipelines/{id}/connectors/{connectorId}", h.GetConnector)
	routes.HandleFunc("PUT /api/pipelines/{id}/connectors/{connectorId}", h.SaveConnector)
	routes.HandleFunc("PATCH /api/pipelines/{id}/connectors/{connectorId}", h.EditConnector)
	routes.HandleFunc("PUT /api/pipelines/{id}/connectors/{connectorId}/topic", h.SelectTopic)
	routes.HandleFunc("PUT /api/pipelines/{id}/connectors/{connectorId}/start", h.StartConnector)
	routes.HandleFunc("PUT /api/pipelines/{id}/connectors/{connectorId}/stop", h.StopConnector)

	// Test connection
	routes.HandleFunc("POST /api/validate/ftp", h.ValidateFtp)
	routes.HandleFunc("POST /api/validate/rdb", h.ValidateRdb)
	routes.HandleFunc("POST /api/query/rdb", h.QueryRdb)

	// Worker clusters
	routes.HandleFunc("GET /api/workers", h.ListWorkers)
	routes.HandleFunc("POST /api/workers", h.CreateWorker)
	routes.HandleFunc("GET /api/workers/{name}", h.GetWorker)
	routes.HandleFunc("DELETE /api/workers/{name}", h.DeleteWorker)
	routes.HandleFunc("GET /api/workers/{name}/connectors", h.ListWorkerConnectors)

	// Saved database connections
	routes.HandleFunc("GET /api/jdbc", h.ListJdbcInfos)
	routes.HandleFunc("POST /api/jdbc", h.CreateJdbcInfo)
	routes.HandleFunc("GET /api/jdbc/{id}", h.GetJdbcInfo)
	routes.HandleFunc("PUT /api/jdbc/{id}", h.UpdateJdbcInfo)
	routes.HandleFunc("DELETE /api/jdbc/{id}", h.DeleteJdbcInfo)
	routes.HandleFunc("GET /api/jdbc/{id}/tables", h.JdbcTables)

	// Stream-app jars
	routes.HandleFunc("GET /api/jars", h.ListJars)
	routes.HandleFunc("POST /api/jars", h.UploadJar)
	routes.HandleFunc("GET /api/jars/{name}", h.DownloadJar)
	routes.HandleFunc("PUT /api/jars/{name}", h.RenameJar)
	routes.HandleFunc("DELETE /api/jars/{name}", h.DeleteJar)

	mux := http.NewServeMux()
	mux.Handle("/api/", WithDefaults(routes, cfg.RequestTimeout))
	if svc.Events != nil {
		sse, ws := svc.Events.Paths()
		events := LoggingMiddleware(svc.Events.Handler())
		mux.Handle("GET "+sse, events)
		mux.Handle("GET "+ws, events)
	}
	return mux
}

// ----- Health -----

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}
