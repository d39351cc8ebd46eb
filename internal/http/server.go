// Package http serves the JSON API: the query pipeline over the ledger,
// monthly summaries, and the lookup table.
package http

import (
	"context"
	"net/http"
	"sync"

	"tally/internal/log"
	"tally/internal/services"
)

type Server struct {
	http.Server
	transactions *services.TransactionService
	summaries    *services.SummaryService
	rateLimiter  *rateLimiter
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, transactions *services.TransactionService, summaries *services.SummaryService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		transactions: transactions,
		summaries:    summaries,
		rateLimiter:  newRateLimiter(),
		logger:       logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/transactions", s.withSecurityHeaders(s.handleTransactions))
	mux.HandleFunc("/transactions/", s.withSecurityHeaders(s.handleTransactionByID))
	mux.HandleFunc("/summary/", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("/lookups", s.withSecurityHeaders(s.handleLookups))

	return s
}

// Shutdown stops the rate limiter's cleanup goroutine and drains the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
