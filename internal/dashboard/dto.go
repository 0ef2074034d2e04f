package dashboard

import (
	"encoding/json"

	"rsibot/config"
	"rsibot/internal/backtest"
	"rsibot/internal/runner"
)

// Message types on the /ws channel.
const (
	MsgRun    = "RUN"    // client → server
	MsgStatus = "status" // server → requesting client
	MsgResult = "result" // server → requesting client
	MsgError  = "error"  // server → requesting client
	MsgRunLog = "run"    // server → all clients
)

// RunMsg asks the server to execute a backtest. Params are layered over the defaults.
type RunMsg struct {
	Type   string          `json:"type"`
	ReqID  string          `json:"req_id,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// StatusResponse reports progress of a requested run.
type StatusResponse struct {
	Type   string `json:"type"`
	ReqID  string `json:"req_id,omitempty"`
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// ResultResponse carries the full report of a finished run.
type ResultResponse struct {
	Type   string         `json:"type"`
	ReqID  string         `json:"req_id,omitempty"`
	Report *runner.Report `json:"report"`
}

// ErrorResponse is sent when a request fails.
type ErrorResponse struct {
	Type  string `json:"type"`
	ReqID string `json:"req_id,omitempty"`
	RunID string `json:"run_id,omitempty"`
	Code  int    `json:"code"`
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}

// RunBroadcast announces a completed run to every connected client.
type RunBroadcast struct {
	Type    string           `json:"type"`
	RunID   string           `json:"run_id"`
	Symbol  string           `json:"symbol"`
	Start   string           `json:"start"`
	End     string           `json:"end"`
	Summary backtest.Summary `json:"summary"`
}

// ParamsResponse is the body of GET /api/params.
type ParamsResponse struct {
	Defaults config.Params `json:"defaults"`
	Ranges   config.Ranges `json:"ranges"`
}
