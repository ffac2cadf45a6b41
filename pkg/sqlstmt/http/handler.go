package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	resTypes "github.com/sllt/sqlstmt/pkg/sqlstmt/http/response"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/logging"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/render"
)

const (
	defaultMaxBodyBytes = 1 << 20
	defaultMaxBatch     = 1000
	defaultWorkers      = 4
)

var errRouteNotFound = statusError{err: errors.New("route not registered"), status: http.StatusNotFound}

// Handler serves the statement endpoints.
type Handler struct {
	renderer *render.Renderer
	logger   logging.Logger

	workers  int
	maxBody  int64
	maxBatch int
}

// HandlerOption tunes a Handler.
type HandlerOption func(*Handler)

// WithWorkers sets how many requests of a batch render concurrently.
func WithWorkers(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// WithMaxBatch caps the number of requests in one batch.
func WithMaxBatch(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBatch = n
		}
	}
}

func NewHandler(renderer *render.Renderer, logger logging.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		renderer: renderer,
		logger:   logger,
		workers:  defaultWorkers,
		maxBody:  defaultMaxBodyBytes,
		maxBatch: defaultMaxBatch,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register adds the handler's routes to router.
func (h *Handler) Register(router *Router) {
	router.Add(http.MethodPost, "/statements", http.HandlerFunc(h.Render))
	router.Add(http.MethodPost, "/statements/batch", http.HandlerFunc(h.Batch))
	router.Add(http.MethodGet, "/dialect", http.HandlerFunc(h.Dialect))
	router.Add(http.MethodGet, "/.well-known/alive", http.HandlerFunc(h.Alive))

	router.NotFound(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, nil, errRouteNotFound)
	}))
}

// Render answers POST /statements with the statement one request describes.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	log := logging.NewContextLogger(r.Context(), h.logger)

	body, err := h.readBody(w, r)
	if err != nil {
		respond(w, r, nil, err)
		return
	}

	req, err := render.DecodeRequest(body)
	if err != nil {
		respond(w, r, nil, err)
		return
	}

	if err = validateStruct(&req); err != nil {
		respond(w, r, nil, err)
		return
	}

	res, err := h.renderer.Render(req)
	if err != nil {
		log.Debugf("render %s %s: %v", req.Op, req.Table, err)
	}

	respond(w, r, res, err)
}

// Batch answers POST /statements/batch. Every request is validated before
// any is rendered; render failures are reported per item.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	log := logging.NewContextLogger(r.Context(), h.logger)

	body, err := h.readBody(w, r)
	if err != nil {
		respond(w, r, nil, err)
		return
	}

	reqs, err := render.DecodeRequests(body)
	if err != nil {
		respond(w, r, nil, err)
		return
	}

	switch {
	case len(reqs) == 0:
		respond(w, r, nil, errEmptyBatch)
		return
	case len(reqs) > h.maxBatch:
		respond(w, r, nil, fmt.Errorf("%w: %d exceeds %d", errTooManyItems, len(reqs), h.maxBatch))
		return
	}

	for i := range reqs {
		if err = validateStruct(&reqs[i]); err != nil {
			respond(w, r, nil, fmt.Errorf("request %d: %w", i, err))
			return
		}
	}

	results, err := h.renderer.RenderAll(r.Context(), reqs, h.workers)
	if err != nil {
		log.Errorf("batch of %d aborted: %v", len(reqs), err)
		respond(w, r, nil, err)

		return
	}

	var failed int

	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}

	respond(w, r, resTypes.Response{
		Data: results,
		Meta: map[string]any{"count": len(results), "failed": failed},
	}, nil)
}

type dialectInfo struct {
	Dialect     string            `json:"dialect"`
	PrimaryKeys map[string]string `json:"primaryKeys"`
}

// Dialect answers GET /dialect with the resolved dialect and the registered primary keys.
func (h *Handler) Dialect(w http.ResponseWriter, r *http.Request) {
	b := h.renderer.Builder()

	d, err := b.Dialect()
	if err != nil {
		respond(w, r, nil, err)
		return
	}

	keys := b.PrimaryKeys()
	info := dialectInfo{Dialect: d.String(), PrimaryKeys: make(map[string]string)}

	for _, table := range keys.Tables() {
		info.PrimaryKeys[table], _ = keys.Get(table)
	}

	respond(w, r, info, nil)
}

func (*Handler) Alive(w http.ResponseWriter, r *http.Request) {
	respond(w, r, map[string]string{"status": "UP"}, nil)
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err == nil {
		return body, nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
	}

	return nil, fmt.Errorf("%w: %w", render.ErrMalformedRequest, err)
}

func respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		NewResponder(w, r.Method).Respond(nil, withStatus(err))
		return
	}

	NewResponder(w, r.Method).Respond(data, nil)
}
