// Package api exposes the resolver over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"

	"companyresolver/resolver"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Resolver resolves a single request.
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) resolver.Result
}

// BatchRunner resolves an ordered list of requests.
type BatchRunner interface {
	Run(ctx context.Context, runID string, reqs []resolver.Request) ([]resolver.Result, error)
}

type server struct {
	resolver Resolver
	batch    BatchRunner
	maxBatch int
	log      logrus.FieldLogger
}

// MaxBatchSize bounds the number of requests accepted by one batch call.
const MaxBatchSize = 100

// NewRouter wires the endpoints and middleware.
func NewRouter(res Resolver, batch BatchRunner, log logrus.FieldLogger) http.Handler {
	s := &server{resolver: res, batch: batch, maxBatch: MaxBatchSize, log: log}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/resolve", s.resolve).Methods(http.MethodPost)
	router.HandleFunc("/resolve/batch", s.resolveBatch).Methods(http.MethodPost)

	var h http.Handler = router
	h = compress(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(log), handlers.PrintRecoveryStack(false))(h)
	h = handlers.CombinedLoggingHandler(accessLog{log: log}, h)
	return h
}

// accessLog forwards access log lines to the structured logger.
type accessLog struct {
	log logrus.FieldLogger
}

func (a accessLog) Write(p []byte) (int, error) {
	a.log.WithField("component", "http").Info(strings.TrimSpace(string(p)))
	return len(p), nil
}
