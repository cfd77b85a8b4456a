package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alan791205/ohara/jars"
)

const maxUploadMemory = 32 << 20

type renameJarRequest struct {
	Name string `json:"name" validate:"required"`
}

// ----- Stream-app jars -----

func (h *Handler) ListJars(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.Jars.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if all == nil {
		all = []jars.Jar{}
	}
	writeResult(w, http.StatusOK, all)
}

// UploadJar stores the "file" part of a multipart form under its file name.
func (h *Handler) UploadJar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: file: %v", errBadRequest, err))
		return
	}
	defer file.Close()

	jar, err := h.svc.Jars.Upload(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, jar)
}

func (h *Handler) DownloadJar(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rc, err := h.svc.Jars.Open(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/java-archive")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("jar download interrupted", "name", name, "error", err)
	}
}

func (h *Handler) RenameJar(w http.ResponseWriter, r *http.Request) {
	var req renameJarRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	jar, err := h.svc.Jars.Rename(r.Context(), r.PathValue("name"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, jar)
}

func (h *Handler) DeleteJar(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Jars.Delete(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
