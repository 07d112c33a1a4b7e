package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/msolakov/pdns-facade/pdns"
	"github.com/msolakov/pdns-facade/provision"
)

// dataResponse wraps a successful result for JSON serialisation.
type dataResponse struct {
	Data any `json:"data"`
}

// errorResponse wraps an error message for JSON serialisation.
type errorResponse struct {
	Error string `json:"error"`
}

type createDomainRequest struct {
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
	TTL       int    `json:"ttl,omitempty"`
}

type updateDomainRequest struct {
	IPAddress string `json:"ip_address"`
}

type createRecordRequest struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl,omitempty"`
}

// Server serves the provisioning REST API.
type Server struct {
	facade *provision.Facade
	logger *slog.Logger
	listen string
	server *http.Server
}

// NewServer creates an API server (not yet started).
func NewServer(facade *provision.Facade, listen string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		facade: facade,
		logger: logger,
		listen: listen,
	}
}

// Handler builds the http.Handler with routing and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /domains", s.handleCreateDomain)
	mux.HandleFunc("PUT /domains/{zone}", s.handleUpdateDomain)
	mux.HandleFunc("GET /domains/{zone}", s.handleGetDomain)
	mux.HandleFunc("DELETE /domains/{zone}", s.handleDeleteDomain)
	mux.HandleFunc("GET /domains/{zone}/records", s.handleListRecords)
	mux.HandleFunc("POST /domains/{zone}/records", s.handleCreateRecord)
	mux.HandleFunc("GET /domains/{zone}/records/{type}", s.handleListRecordsByType)
	mux.HandleFunc("GET /domains/{zone}/records/{type}/{name}", s.handleGetRecord)
	mux.HandleFunc("DELETE /domains/{zone}/records/{type}/{name}", s.handleDeleteRecord)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withRequestLog(mux)
}

// Start begins serving the REST API in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %v", s.listen, err)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", err)
		}
	}()

	s.logger.Info("api server listening", "addr", ln.Addr().String())

	return nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleCreateDomain(w http.ResponseWriter, r *http.Request) {
	var req createDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("invalid request body: %v", err))
		return
	}

	if err := s.facade.CreateDomain(r.Context(), req.Name, req.IPAddress, req.TTL); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusCreated, "")
}

func (s *Server) handleUpdateDomain(w http.ResponseWriter, r *http.Request) {
	var req updateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("invalid request body: %v", err))
		return
	}

	if err := s.facade.UpdateDomainIP(r.Context(), r.PathValue("zone"), req.IPAddress); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusOK, "")
}

func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	zone, err := s.facade.GetDomain(r.Context(), r.PathValue("zone"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusOK, zone)
}

func (s *Server) handleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := s.facade.DeleteDomain(r.Context(), r.PathValue("zone")); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusOK, "")
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	filter := provision.RecordFilter{
		Type: r.URL.Query().Get("type"),
		Name: r.URL.Query().Get("name"),
		TTL:  r.URL.Query().Get("ttl"),
	}

	records, err := s.facade.ListRecords(r.Context(), r.PathValue("zone"), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusOK, records)
}

func (s *Server) handleListRecordsByType(w http.ResponseWriter, r *http.Request) {
	records, err := s.facade.ListRecordsByType(r.Context(), r.PathValue("zone"), r.PathValue("type"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusOK, records)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := s.facade.GetRecord(r.Context(), r.PathValue("zone"), r.PathValue("type"), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	// record is nil when the zone has no such rrset; the envelope then
	// carries data: null rather than an error.
	s.writeData(w, http.StatusOK, record)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("invalid request body: %v", err))
		return
	}

	err := s.facade.CreateRecord(r.Context(), r.PathValue("zone"), req.Type, req.Name, req.Content, req.TTL)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusOK, "")
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	err := s.facade.DeleteRecord(r.Context(), r.PathValue("zone"), r.PathValue("type"), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeData(w, http.StatusOK, "")
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError converts any application error into the uniform envelope with
// status 400. The message comes from the typed error raised at the origin.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	upstreamErrorCount.WithLabelValues(errorKind(err)).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	if encErr := json.NewEncoder(w).Encode(errorResponse{Error: err.Error()}); encErr != nil {
		s.logger.Error("failed to encode error response", "error", encErr)
	}
}

func errorKind(err error) string {
	var remoteErr *pdns.RemoteError
	var validationErr *provision.ValidationError
	var snapshotErr *provision.SnapshotError

	switch {
	case errors.As(err, &remoteErr):
		return "remote"
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &snapshotErr):
		return "snapshot"
	default:
		return "other"
	}
}
