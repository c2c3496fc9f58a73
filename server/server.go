// server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/chhz0/dispatchr/app"
	"github.com/chhz0/dispatchr/core"
	"github.com/chhz0/dispatchr/order"
	"github.com/chhz0/dispatchr/storage"
	"github.com/chhz0/dispatchr/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

type Server struct {
	root       *app.Root
	logger     *zap.Logger
	httpServer *http.Server
}

type Config struct {
	HTTPAddr string
}

func NewServer(cfg Config, root *app.Root) *Server {
	logger := root.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{root: root, logger: logger.Named("server")}
	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start 阻塞直到 ctx 取消或收到 SIGINT/SIGTERM，然后优雅关闭
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("admin server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Handler 管理 API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.root.Metrics, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /keys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.root.Keys())
	})

	mux.HandleFunc("POST /orders", s.createOrder)
	mux.HandleFunc("GET /orders", s.listOrders)
	mux.HandleFunc("GET /orders/{id}", s.getOrder)
	mux.HandleFunc("POST /bonus", s.bonus)

	return mux
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var o types.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.root.Orders.Process(r.Context(), o)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	recs, err := s.root.Store.ListOrders(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	rec, err := s.root.Store.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) bonus(w http.ResponseWriter, r *http.Request) {
	var e types.Employee
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := s.root.Bonus.Dispatch(r.Context(), e.Role, e)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"role": e.Role, "bonus": amount})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, storage.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidOrder):
		return http.StatusBadRequest
	}
	switch core.KindOf(err) {
	case core.KindUnknownKey:
		return http.StatusUnprocessableEntity
	case core.KindBehaviorFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
