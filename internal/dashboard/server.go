// Package dashboard serves the backtest dashboard: the embedded single page,
// a JSON API and a WebSocket run channel.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"rsibot/config"
	"rsibot/internal/marketdata/loader"
	"rsibot/internal/metrics"
	"rsibot/internal/model"
	"rsibot/internal/runner"
)

//go:embed static
var staticFS embed.FS

const maxBodyBytes = 1 << 16

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Backtester runs one backtest.
type Backtester interface {
	Run(ctx context.Context, p config.Params) (*runner.Report, error)
}

// Server wires HTTP routes to the runner.
type Server struct {
	runner  Backtester
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
	hub     *Hub
	now     func() time.Time
}

// NewServer creates a dashboard server. health may be nil.
func NewServer(r Backtester, m *metrics.Metrics, health *metrics.HealthStatus) *Server {
	if health == nil {
		health = metrics.NewHealthStatus()
	}
	s := &Server{
		runner:  r,
		metrics: m,
		health:  health,
		now:     time.Now,
	}
	s.hub = newHub(s, m)
	return s
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Routes returns the HTTP handler for all dashboard endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	page, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(page)))

	mux.Handle("/api/v1/health", s.health)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/backtest", s.handleBacktest)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Type: MsgError, Code: http.StatusMethodNotAllowed, Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, ParamsResponse{
		Defaults: config.DefaultParams(s.now()),
		Ranges:   config.ParamRanges,
	})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Type: MsgError, Code: http.StatusMethodNotAllowed, Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Type: MsgError, Code: http.StatusBadRequest, Error: "read body: " + err.Error()})
		return
	}
	p, err := s.decodeParams(body)
	if err != nil {
		resp := errorResponse("", "", err)
		writeError(w, resp.Code, resp)
		return
	}

	rep, err := s.execute(r.Context(), p)
	if err != nil {
		resp := errorResponse("", "", err)
		writeError(w, resp.Code, resp)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[dashboard] ws upgrade error", "error", err)
		return
	}
	s.hub.attach(conn)
}

// decodeParams layers a JSON object over today's defaults. Empty input yields the defaults.
func (s *Server) decodeParams(raw []byte) (config.Params, error) {
	p := config.DefaultParams(s.now())
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, &model.ValidationError{Field: "params", Reason: "invalid JSON: " + err.Error()}
	}
	return p, nil
}

// execute runs a backtest and announces it to every WebSocket client.
func (s *Server) execute(ctx context.Context, p config.Params) (*runner.Report, error) {
	rep, err := s.runner.Run(ctx, p)
	if err != nil {
		return nil, err
	}
	s.hub.Announce(RunBroadcast{
		Type:    MsgRunLog,
		RunID:   rep.RunID,
		Symbol:  rep.Params.Symbol,
		Start:   rep.Params.Start,
		End:     rep.Params.End,
		Summary: rep.Summary,
	})
	return rep, nil
}

// statusFor maps run errors to HTTP status codes.
func statusFor(err error) int {
	var se *loader.SourceError
	switch {
	case model.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, loader.ErrNoBars):
		return http.StatusNotFound
	case errors.As(err, &se):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(reqID, runID string, err error) ErrorResponse {
	resp := ErrorResponse{
		Type:  MsgError,
		ReqID: reqID,
		RunID: runID,
		Code:  statusFor(err),
		Error: err.Error(),
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	return resp
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("[dashboard] write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, resp ErrorResponse) {
	writeJSON(w, code, resp)
}
