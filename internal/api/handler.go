package api

import (
	"WindowSpectra/internal/ingest"
	"WindowSpectra/internal/model"
	"WindowSpectra/internal/query"
	"WindowSpectra/internal/store"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler holds the dependencies for API handlers.
type Handler struct {
	ingest   *ingest.Service
	store    *store.Store
	querier  query.Querier // optional, enables the ClickHouse routes
	gatherer prometheus.Gatherer
}

// NewHandler creates a Handler. querier and gatherer may be nil.
func NewHandler(svc *ingest.Service, st *store.Store, q query.Querier, g prometheus.Gatherer) *Handler {
	return &Handler{ingest: svc, store: st, querier: q, gatherer: g}
}

// Router returns the HTTP routes of the API server.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthHandler).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/upload", h.uploadHandler).Methods("POST")
	v1.HandleFunc("/sessions", h.listSessionsHandler).Methods("GET")
	v1.HandleFunc("/sessions/{id}", h.getSessionHandler).Methods("GET")
	v1.HandleFunc("/sessions/{id}/windows", h.listWindowsHandler).Methods("GET")

	if h.querier != nil {
		v1.HandleFunc("/clickhouse/sessions", h.chSessionsHandler).Methods("GET")
		v1.HandleFunc("/clickhouse/sessions/{id}", h.chSummaryHandler).Methods("GET")
		v1.HandleFunc("/clickhouse/sessions/{id}/windows", h.chWindowsHandler).Methods("GET")
	}

	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// UploadResponse is returned by a successful upload.
type UploadResponse struct {
	SessionID string                      `json:"session_id"`
	Session   *store.PcapSession          `json:"session"`
	Packets   uint64                      `json:"packets"`
	Windows   []model.WindowFeatureRecord `json:"windows"`
}

// WindowView is a stored window with its position in the session.
type WindowView struct {
	WindowID int `json:"window_id"`
	model.WindowFeatureRecord
}

func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadHandler streams the multipart "file" field into the ingest service.
func (h *Handler) uploadHandler(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("expected a multipart upload: %v", err))
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			writeError(w, http.StatusBadRequest, "missing form field 'file'")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		filename := part.FileName()
		if filename == "" {
			filename = "upload.pcap"
		}
		out, err := h.ingest.Upload(r.Context(), filename, part)
		part.Close()
		if err != nil {
			if errors.Is(err, ingest.ErrUploadTooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, UploadResponse{
			SessionID: out.Session.SessionID,
			Session:   out.Session,
			Packets:   out.Result.Packets,
			Windows:   out.Result.Records,
		})
		return
	}
}

func (h *Handler) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := paging(q.Get("limit"), q.Get("offset"), 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessions, err := h.store.ListSessions(r.Context(), q.Get("status"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) listWindowsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()
	limit, offset, err := paging(q.Get("limit"), q.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.store.GetSession(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	rows, err := h.store.ListWindows(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]WindowView, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].Record()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		views = append(views, WindowView{WindowID: rows[i].WindowID, WindowFeatureRecord: rec})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) chSessionsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _, err := paging(r.URL.Query().Get("limit"), "", 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summaries, err := h.querier.ListSessionSummaries(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query sessions: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) chSummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.querier.SessionSummary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query session: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) chWindowsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := paging(q.Get("limit"), q.Get("offset"), 1000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var minPackets uint64
	if v := q.Get("min_packets"); v != "" {
		if minPackets, err = strconv.ParseUint(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid min_packets %q", v))
			return
		}
	}

	records, err := h.querier.ListWindows(r.Context(), query.WindowFilter{
		SessionID:  mux.Vars(r)["id"],
		MinPackets: minPackets,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query windows: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// paging parses optional limit and offset query values.
func paging(limitStr, offsetStr string, defaultLimit int) (int, int, error) {
	limit, offset := defaultLimit, 0
	var err error
	if limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("invalid limit %q", limitStr)
		}
	}
	if offsetStr != "" {
		if offset, err = strconv.Atoi(offsetStr); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", offsetStr)
		}
	}
	return limit, offset, nil
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
