package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"rsibot/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 8192
)

// Client is a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	// Runs outlive the socket only until their context is cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.hub.remove(c)
		c.conn.Close()
		slog.Info("[dashboard] ws client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg RunMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendJSON(ErrorResponse{Type: MsgError, Code: 400, Error: "invalid message: " + err.Error()})
			continue
		}

		switch msg.Type {
		case MsgRun:
			go c.handleRun(ctx, msg)
		default:
			c.sendJSON(ErrorResponse{Type: MsgError, ReqID: msg.ReqID, Code: 400, Error: "unknown message type " + msg.Type})
		}
	}
}

func (c *Client) handleRun(ctx context.Context, msg RunMsg) {
	p, err := c.hub.srv.decodeParams(msg.Params)
	if err != nil {
		c.sendJSON(errorResponse(msg.ReqID, "", err))
		return
	}

	runID := logger.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	c.sendJSON(StatusResponse{Type: MsgStatus, ReqID: msg.ReqID, RunID: runID, Status: "running"})

	rep, err := c.hub.srv.execute(ctx, p)
	if err != nil {
		c.sendJSON(errorResponse(msg.ReqID, runID, err))
		return
	}
	c.sendJSON(ResultResponse{Type: MsgResult, ReqID: msg.ReqID, Report: rep})
}

// sendJSON queues v for this client. It never blocks and is a no-op after disconnect.
func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("[dashboard] json marshal", "error", err)
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("[dashboard] client send buffer full, dropping message")
	}
}
