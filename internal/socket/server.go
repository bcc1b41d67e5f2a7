// Package socket serves the real-time event API. Clients send frames
// {"id", "event", "data"} and receive {"id", "error", "data"}; relayed
// action hooks are pushed to every connection as {"event", "data"}.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gobb-forum/gobb/internal/config"
	"github.com/gobb-forum/gobb/internal/logger"
	"github.com/gobb-forum/gobb/internal/pubsub"
	"github.com/gobb-forum/gobb/internal/web/handler"
	"github.com/gobb-forum/gobb/internal/web/session"
)

// DefaultPath is the websocket endpoint.
const DefaultPath = "/socket"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 64
)

// Request is a frame sent by a client.
type Request struct {
	ID    int64           `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Reply answers a Request.
type Reply struct {
	ID    int64  `json:"id"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data"`
}

// Push is an event sent to every client.
type Push struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Server is the websocket event server.
type Server struct {
	cfg      config.Socket
	cookie   string
	deps     *handler.Deps
	sessions session.Storage
	events   map[string]eventFunc
	validate *validator.Validate
	upgrader websocket.Upgrader
	log      zerolog.Logger

	server *http.Server

	connMu sync.RWMutex
	conns  map[*conn]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the websocket server.
func New(cfg *config.Config, deps *handler.Deps, sessions session.Storage) *Server {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if !deps.Valid() {
		panic("handler dependencies are incomplete")
	}

	s := &Server{
		cfg:      cfg.Socket,
		cookie:   cfg.Webserver.SessionCookie,
		deps:     deps,
		sessions: sessions,
		validate: validator.New(),
		log:      logger.Component("socket"),
		conns:    make(map[*conn]struct{}),
	}

	if s.cookie == "" {
		s.cookie = session.DefaultCookie
	}
	if s.cfg.Path == "" {
		s.cfg.Path = DefaultPath
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.events = s.routes()
	s.ctx, s.cancel = context.WithCancel(context.Background())

	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}

	return slices.Contains(s.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

// Handler returns the http handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.serveWS)

	return mux
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: writeWait,
	}

	s.log.Info().Int("port", s.cfg.Port).Str("path", s.cfg.Path).Msg("socket server started")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown closes every connection and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.connMu.Lock()
	for c := range s.conns {
		c.close()
	}
	s.connMu.Unlock()

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	s.wg.Wait()
	s.log.Info().Msg("socket server stopped")

	return err
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.connMu.RLock()
	defer s.connMu.RUnlock()

	return len(s.conns)
}

// Observe pushes an action hook to every connection. It has the signature of
// a hook registry observer.
func (s *Server) Observe(_ context.Context, hook string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("hook", hook).Msg("can't encode hook payload")
		return
	}

	s.Broadcast(pubsub.Event{Hook: hook, Payload: raw})
}

// Broadcast pushes a relayed event to every connection.
func (s *Server) Broadcast(ev pubsub.Event) {
	msg, err := json.Marshal(Push{Event: ev.Hook, Data: ev.Payload})
	if err != nil {
		s.log.Error().Err(err).Str("hook", ev.Hook).Msg("can't encode push")
		return
	}

	s.connMu.RLock()
	defer s.connMu.RUnlock()

	for c := range s.conns {
		c.push(msg)
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	var sid string
	if cookie, err := r.Cookie(s.cookie); err == nil {
		sid = cookie.Value
	}

	data, err := session.Read(s.sessions, sid)
	if err != nil {
		s.log.Debug().Err(err).Msg("invalid session, continuing as guest")
	}

	if s.ctx.Err() != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	c := newConn(s, ws, data.UID)

	// Shutdown cancels the context before it takes connMu, so a connection
	// registered here is always closed and waited for.
	s.connMu.Lock()
	if s.ctx.Err() != nil {
		s.connMu.Unlock()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.wg.Add(2)
	s.connMu.Unlock()

	s.log.Debug().Int64("uid", data.UID).Str("remote", r.RemoteAddr).Msg("client connected")

	go func() {
		defer s.wg.Done()
		c.writeLoop()
	}()
	go func() {
		defer s.wg.Done()
		defer s.remove(c)
		c.readLoop(s.ctx)
	}()
}

func (s *Server) remove(c *conn) {
	s.connMu.Lock()
	delete(s.conns, c)
	s.connMu.Unlock()

	c.close()
	s.log.Debug().Int64("uid", c.uid).Msg("client disconnected")
}

// Handle answers a single request of uid.
func (s *Server) Handle(ctx context.Context, uid int64, req Request) Reply {
	data, err := s.dispatch(ctx, uid, req)
	if err != nil {
		status, msg := handler.Classify(err)
		if status >= http.StatusInternalServerError {
			s.log.Error().Err(err).Str("event", req.Event).Int64("uid", uid).Msg("event failed")
		}

		return Reply{ID: req.ID, Error: msg}
	}

	return Reply{ID: req.ID, Data: data}
}
