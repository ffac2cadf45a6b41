package sqlstmt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sqlstmtHTTP "github.com/sllt/sqlstmt/pkg/sqlstmt/http"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/http/middleware"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/logging"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/metrics"
)

type httpServer struct {
	router *sqlstmtHTTP.Router
	port   int
	srv    *http.Server
}

func newHTTPServer(logger logging.Logger, m metrics.Manager, handler *sqlstmtHTTP.Handler, port int) *httpServer {
	r := sqlstmtHTTP.NewRouter()

	r.UseMiddleware(
		middleware.Logging(logger),
		middleware.Metrics(m),
	)

	handler.Register(r)

	return &httpServer{
		router: r,
		port:   port,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *httpServer) run(logger logging.Logger) {
	logger.Logf("Starting server on port: %d", s.port)

	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("error while listening to http server, err: %v", err)
	}
}

func (s *httpServer) Shutdown(ctx context.Context) error {
	return ShutdownWithContext(ctx, func(ctx context.Context) error {
		return s.srv.Shutdown(ctx)
	}, s.srv.Close)
}
