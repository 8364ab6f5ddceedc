// Package metrics содержит счетчики Prometheus и HTTP-сервер для их выдачи.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	ResultOK          = "ok"
	ResultUnavailable = "unavailable"
	ResultNotFound    = "not_found"
	ResultError       = "error"
)

var (
	ListingsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "market_listings_created_total",
		Help: "Listings committed by the sell wizard",
	}, []string{"result"})

	Purchases = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "market_purchases_total",
		Help: "Purchase attempts by result",
	}, []string{"result"})

	Deletions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "market_deletions_total",
		Help: "Delete attempts by result",
	}, []string{"result"})

	SweptListings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "market_swept_listings_total",
		Help: "Listings removed by the expiry sweeper",
	})

	Updates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "market_updates_total",
		Help: "Telegram updates handled by kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(ListingsCreated)
	prometheus.MustRegister(Purchases)
	prometheus.MustRegister(Deletions)
	prometheus.MustRegister(SweptListings)
	prometheus.MustRegister(Updates)
}

// Server отдает /metrics
type Server struct {
	addr   string
	logger *zap.Logger
}

func NewServer(addr string, logger *zap.Logger) *Server {
	return &Server{
		addr:   addr,
		logger: logger.With(zap.String("component", "metrics_server")),
	}
}

// Run блокируется до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting metrics server", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("stopping metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
