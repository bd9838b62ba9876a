// Package http exposes the REST API: auth, per-user finance resources and
// dashboard statistics, all under /api/v1.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"budgy/internal/cache"
	"budgy/internal/core"
	"budgy/internal/services"
	"budgy/internal/storage"
)

const (
	rateLimitPerMinute = 60
	statsCacheSize     = 256
	statsCacheTTL      = 30 * time.Second
	cleanupInterval    = time.Minute
)

// Server wires the HTTP stack around the service layer.
type Server struct {
	http.Server

	users        *services.UserService
	transactions *services.TransactionService
	dashboard    *services.DashboardService
	storage      *storage.SQLiteRepository

	limiter    *rateLimiter
	statsCache *cache.LRU[core.DashboardStats]

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

func NewServer(port string, users *services.UserService, transactions *services.TransactionService, dashboard *services.DashboardService, store *storage.SQLiteRepository) *Server {
	s := &Server{
		Server: http.Server{
			Addr:         ":" + port,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		users:        users,
		transactions: transactions,
		dashboard:    dashboard,
		storage:      store,
		limiter:      newRateLimiter(rateLimitPerMinute, time.Minute),
		statsCache:   cache.NewLRU[core.DashboardStats](statsCacheSize, statsCacheTTL),
		stopCleanup:  make(chan struct{}),
	}
	s.Handler = s.routes()

	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withRequestLogging)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/validate-token", s.handleValidateToken).Methods(http.MethodGet)

	user := api.PathPrefix("/users/{userId:[0-9]+}").Subrouter()
	user.Use(s.withAuth)

	user.HandleFunc("/dashboard/stats", s.handleDashboardStats).Methods(http.MethodGet)

	user.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	user.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	user.HandleFunc("/transactions/date-range", s.handleTransactionsInRange).Methods(http.MethodGet)
	user.HandleFunc("/transactions/type/{type}", s.handleTransactionsByType).Methods(http.MethodGet)
	user.HandleFunc("/transactions/{id:[0-9]+}", s.handleUpdateTransaction).Methods(http.MethodPut)
	user.HandleFunc("/transactions/{id:[0-9]+}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	user.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	user.HandleFunc("/budgets", s.handleCreateBudget).Methods(http.MethodPost)
	user.HandleFunc("/budgets/{id:[0-9]+}", s.handleUpdateBudget).Methods(http.MethodPut)
	user.HandleFunc("/budgets/{id:[0-9]+}", s.handleDeleteBudget).Methods(http.MethodDelete)

	user.HandleFunc("/saving-pots", s.handleListSavingPots).Methods(http.MethodGet)
	user.HandleFunc("/saving-pots", s.handleCreateSavingPot).Methods(http.MethodPost)
	user.HandleFunc("/saving-pots/{id:[0-9]+}", s.handleUpdateSavingPot).Methods(http.MethodPut)
	user.HandleFunc("/saving-pots/{id:[0-9]+}", s.handleDeleteSavingPot).Methods(http.MethodDelete)

	user.HandleFunc("/recurring-bills", s.handleListRecurringBills).Methods(http.MethodGet)
	user.HandleFunc("/recurring-bills", s.handleCreateRecurringBill).Methods(http.MethodPost)
	user.HandleFunc("/recurring-bills/{id:[0-9]+}", s.handleUpdateRecurringBill).Methods(http.MethodPut)
	user.HandleFunc("/recurring-bills/{id:[0-9]+}", s.handleDeleteRecurringBill).Methods(http.MethodDelete)

	return r
}

// Start runs the server until ListenAndServe returns.
func (s *Server) Start() error {
	go s.cleanupLoop()

	slog.Info("HTTP server listening", "addr", s.Addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.limiter.cleanStale()
			if cleaned := s.statsCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Expired cache entries removed", "count", cleaned)
			}
		case <-s.stopCleanup:
			return
		}
	}
}

// Shutdown stops background maintenance and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.stopCleanup)
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
