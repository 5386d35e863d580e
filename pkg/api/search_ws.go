package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rubiojr/cardex/pkg/core"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// searchSession runs the searches of one websocket connection. A new
// request cancels the one in flight, and only the reply to the latest
// request is ever written.
type searchSession struct {
	server    *Server
	conn      *websocket.Conn
	requestID string
	client    string

	mu     sync.Mutex // guards latest, cancel and writes to conn
	latest uint64
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func (s *Server) handleSearchSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.logger.Debugf("websocket upgrade failed: %v", err)
		return
	}

	session := &searchSession{
		server:    s,
		conn:      conn,
		requestID: requestIDFrom(r.Context()),
		client:    clientIP(r),
	}
	session.run(r.Context())
}

func (ss *searchSession) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer func() {
		cancel()
		ss.wg.Wait()
		ss.conn.Close()
	}()

	ss.conn.SetReadLimit(maxMessageSize)
	ss.conn.SetReadDeadline(time.Now().Add(pongWait))
	ss.conn.SetPongHandler(func(string) error {
		return ss.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ss.wg.Add(1)
	go ss.pingLoop(ctx)

	for {
		_, data, err := ss.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ss.server.logger.Debugf("search session %s: %v", ss.requestID, err)
			}
			return
		}

		var req SearchRequest
		if err := json.Unmarshal(data, &req); err != nil {
			ss.mu.Lock()
			ss.write(SearchMessage{Type: MessageError, Error: "Malformed search request"})
			ss.mu.Unlock()
			continue
		}
		if !ss.allow(ctx) {
			ss.reply(ss.supersede(nil), SearchMessage{Type: MessageError, ID: req.ID, Error: "Too many requests"})
			continue
		}
		ss.submit(ctx, req)
	}
}

// allow counts every search message against the client's rate limit, the
// same budget the HTTP search endpoints draw from.
func (ss *searchSession) allow(ctx context.Context) bool {
	if ss.server.limiter == nil {
		return true
	}
	return ss.server.limiter.Allow(ctx, ss.client).Allowed
}

// supersede cancels the search in flight and returns the sequence number of
// the request replacing it.
func (ss *searchSession) supersede(cancel context.CancelFunc) uint64 {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.cancel != nil {
		ss.cancel()
	}
	ss.latest++
	ss.cancel = cancel
	return ss.latest
}

// submit supersedes the search in flight with req.
func (ss *searchSession) submit(parent context.Context, req SearchRequest) {
	ctx, cancel := context.WithCancel(parent)
	seq := ss.supersede(cancel)

	ss.wg.Add(1)
	go func() {
		defer ss.wg.Done()
		defer cancel()

		res, err := ss.server.runSearch(ctx, req.Params())
		msg := SearchMessage{Type: MessageResults, ID: req.ID, Results: res}
		if err != nil {
			msg = SearchMessage{Type: MessageError, ID: req.ID, Error: ss.errorMessage(err)}
		}
		ss.reply(seq, msg)
	}()
}

func (ss *searchSession) errorMessage(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if !errors.Is(err, context.Canceled) {
		ss.server.logger.Errorf("search session %s: search failed: %v", ss.requestID, err)
	}
	return "Search failed"
}

// reply writes msg unless a newer request arrived meanwhile.
func (ss *searchSession) reply(seq uint64, msg SearchMessage) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if seq != ss.latest {
		return
	}
	ss.write(msg)
}

// write sends msg. The caller holds ss.mu.
func (ss *searchSession) write(msg SearchMessage) {
	ss.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ss.conn.WriteJSON(msg); err != nil {
		ss.server.logger.Debugf("search session %s: write failed: %v", ss.requestID, err)
	}
}

func (ss *searchSession) pingLoop(ctx context.Context) {
	defer ss.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ss.mu.Lock()
			err := ss.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			ss.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
