// ABOUTME: REST API server for stages, deals, activity schedules, customers and documents
// ABOUTME: Serves /api/ routes as JSON with token authentication and structured request logs
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/harperreed/dealflow/db"
	"github.com/harperreed/dealflow/models"
	"go.uber.org/zap"
)

type Server struct {
	repos  *db.Repositories
	logger *zap.Logger
	mux    *http.ServeMux
}

func NewServer(repos *db.Repositories, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		repos:  repos,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Stages
	s.mux.HandleFunc("GET /api/stages/{$}", s.handleListStages)
	s.mux.HandleFunc("POST /api/stages/{$}", s.handleCreateStage)
	s.mux.HandleFunc("PATCH /api/stages/{id}/{$}", s.handleUpdateStage)
	s.mux.HandleFunc("DELETE /api/stages/{id}/{$}", s.handleDeleteStage)

	// Deals
	s.mux.HandleFunc("GET /api/deals/{$}", s.handleListDeals)
	s.mux.HandleFunc("POST /api/deals/{$}", s.handleCreateDeal)
	s.mux.HandleFunc("GET /api/deals/{id}/{$}", s.handleGetDeal)
	s.mux.HandleFunc("PATCH /api/deals/{id}/{$}", s.handleUpdateDeal)
	s.mux.HandleFunc("DELETE /api/deals/{id}/{$}", s.handleDeleteDeal)

	// Activity schedules
	s.mux.HandleFunc("GET /api/activity_schedules/{$}", s.handleListSchedules)
	s.mux.HandleFunc("POST /api/activity_schedules/{$}", s.handleCreateSchedule)
	s.mux.HandleFunc("PATCH /api/activity_schedules/{id}/{$}", s.handleUpdateSchedule)
	s.mux.HandleFunc("DELETE /api/activity_schedules/{id}/{$}", s.handleDeleteSchedule)

	// Customers
	s.mux.HandleFunc("GET /api/customers/{$}", s.handleListCustomers)
	s.mux.HandleFunc("POST /api/customers/{$}", s.handleCreateCustomer)
	s.mux.HandleFunc("GET /api/customers/{id}/{$}", s.handleGetCustomer)
	s.mux.HandleFunc("PATCH /api/customers/{id}/{$}", s.handleUpdateCustomer)
	s.mux.HandleFunc("DELETE /api/customers/{id}/{$}", s.handleDeleteCustomer)

	// Documents
	s.mux.HandleFunc("GET /api/documents/{$}", s.handleListDocuments)
	s.mux.HandleFunc("POST /api/documents/{$}", s.handleCreateDocument)
	s.mux.HandleFunc("DELETE /api/documents/{id}/{$}", s.handleDeleteDocument)
}

// Handler returns the API wrapped in authentication and request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.authenticate(s.mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutting down API server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}

// authenticate requires "Authorization: Token <t>" once any token has been issued.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, err := s.repos.Tokens.Count(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if count == 0 {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Token ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
			return
		}
		valid, err := s.repos.Tokens.Valid(r.Context(), strings.TrimSpace(token))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !valid {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps repository errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, db.ErrDuplicateStage):
		status = http.StatusConflict
	case errors.Is(err, db.ErrUnknownStage), errors.Is(err, db.ErrInvalid), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %v: %w", err, errBadRequest)
	}
	return nil
}

// Stages

func (s *Server) handleListStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.repos.Stages.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

func (s *Server) handleCreateStage(w http.ResponseWriter, r *http.Request) {
	var stage models.Stage
	if err := decode(r, &stage); err != nil {
		s.writeError(w, r, err)
		return
	}
	stage.Deals = nil
	if err := s.repos.Stages.Create(r.Context(), &stage); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stage)
}

func (s *Server) handleUpdateStage(w http.ResponseWriter, r *http.Request) {
	var patch models.StagePatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repos.Stages.Update(r.Context(), r.PathValue("id"), patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteStage(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Stages.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deals

func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := s.repos.Deals.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deals)
}

func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := s.repos.Deals.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	schedules, err := s.repos.Schedules.ListForDeal(r.Context(), deal.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	deal.ActivitySchedules = schedules
	writeJSON(w, http.StatusOK, deal)
}

func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	var deal models.Deal
	if err := decode(r, &deal); err != nil {
		s.writeError(w, r, err)
		return
	}
	deal.ActivitySchedules = nil
	if err := s.repos.Deals.Create(r.Context(), &deal); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, deal)
}

func (s *Server) handleUpdateDeal(w http.ResponseWriter, r *http.Request) {
	var patch models.DealPatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repos.Deals.Update(r.Context(), r.PathValue("id"), patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDeal(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Deals.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activity schedules

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	var (
		schedules []models.ActivitySchedule
		err       error
	)
	if dealID := r.URL.Query().Get("deal"); dealID != "" {
		schedules, err = s.repos.Schedules.ListForDeal(r.Context(), dealID)
	} else {
		schedules, err = s.repos.Schedules.List(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var sched models.ActivitySchedule
	if err := decode(r, &sched); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repos.Schedules.Create(r.Context(), &sched); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sched)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var patch models.SchedulePatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repos.Schedules.Update(r.Context(), r.PathValue("id"), patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Schedules.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Customers

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.repos.Customers.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := s.repos.Customers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var customer models.Customer
	if err := decode(r, &customer); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repos.Customers.Create(r.Context(), &customer); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var patch models.CustomerPatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repos.Customers.Update(r.Context(), r.PathValue("id"), patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Customers.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Documents

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseDocumentKind(r.URL.Query().Get("kind"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%v: %w", err, errBadRequest))
		return
	}
	docs, err := s.repos.Documents.List(r.Context(), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var doc models.Document
	if err := decode(r, &doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repos.Documents.Create(r.Context(), &doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Documents.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
