package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eternalApril/phonebook/internal/wire"
)

const (
	headerRequestID = "X-Request-Id"
	allowedMethods  = "GET, HEAD, POST"
)

// Handler adapts HTTP requests to engine commands.
// The first path segment of a POST selects the command; GET lists, HEAD only answers headers
type Handler struct {
	engine  *Engine
	metrics *Metrics // nil disables metering
	logger  *zap.Logger
	maxBody int64
}

// NewHandler builds the HTTP front of the engine. Bodies larger than maxBody are rejected as bad data
func NewHandler(engine *Engine, metrics *Metrics, logger *zap.Logger, maxBody int64) *Handler {
	return &Handler{
		engine:  engine,
		metrics: metrics,
		logger:  logger,
		maxBody: maxBody,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id := r.Header.Get(headerRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(headerRequestID, id)
	log := h.logger.With(zap.String("request_id", id))

	name := commandName(r)
	res := h.dispatch(w, r, name, log)

	enc := wire.NewEncoder(w)
	if r.Method == http.MethodHead {
		enc.WriteHeader(res)
	} else if err := enc.Write(res); err != nil {
		log.Warn("write response failed", zap.Error(err))
	}

	h.metrics.observe(name, res.Status, start)

	log.Info(r.Method+" "+r.URL.Path,
		zap.Int("status", res.Status),
		zap.Duration("dur", time.Since(start)),
		zap.String("from", r.RemoteAddr),
		zap.String("ua", r.UserAgent()),
	)
}

// dispatch runs the command and turns a panic into a 500 reply
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, name string, log *zap.Logger) (res wire.Value) {
	defer func() {
		if v := recover(); v != nil {
			log.Error("panic occurred", zap.Any("recovered", v), zap.Stack("stack"))
			res = wire.MakeServerError()
		}
	}()

	switch r.Method {
	case http.MethodHead:
		return wire.MakeStatus(http.StatusOK)

	case http.MethodGet:
		return h.engine.Execute(r.Context(), http.MethodGet, name, nil)

	case http.MethodPost:
		if !knownCommand(http.MethodPost, name) {
			return wire.MakeUnknownAction()
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
		if err != nil {
			log.Debug("read body failed", zap.Error(err))
			return wire.MakeBadRequestData()
		}
		return h.engine.Execute(r.Context(), http.MethodPost, name, body)

	default:
		w.Header().Set("Allow", allowedMethods)
		return wire.MakeStatus(http.StatusMethodNotAllowed)
	}
}

// commandName selects the command: any GET lists, a POST uses its first path segment
func commandName(r *http.Request) string {
	switch r.Method {
	case http.MethodGet:
		return "list"
	case http.MethodHead:
		return "head"
	}
	segment, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	return segment
}
