package sqlstmt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/logging"
)

type metricServer struct {
	port int
	srv  *http.Server
}

func newMetricServer(port int, handler http.Handler) *metricServer {
	return &metricServer{
		port: port,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (m *metricServer) Run(logger logging.Logger) {
	logger.Logf("Starting metrics server on port: %d", m.port)

	if err := m.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("error while listening to metrics server, err: %v", err)
	}
}

func (m *metricServer) Shutdown(ctx context.Context) error {
	return ShutdownWithContext(ctx, func(ctx context.Context) error {
		return m.srv.Shutdown(ctx)
	}, nil)
}
