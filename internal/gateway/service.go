package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tidewell/rpcgate/internal/errors"
	"github.com/tidewell/rpcgate/internal/jsonrpc"
	"github.com/tidewell/rpcgate/internal/presence"
	"github.com/tidewell/rpcgate/internal/rpc"
	"github.com/tidewell/rpcgate/internal/session"
)

const ProcessChanCap = 1000

// Service hosts the protocol engine over HTTP: a stateless POST /rpc
// endpoint plus an SSE session transport (GET /sse to connect, POST /message
// to submit, responses pushed down the stream).
type Service struct {
	conf     Config
	handler  *rpc.Handler
	presence *presence.Tracker
	sessions *session.Manager

	router *gin.Engine
	server *http.Server

	connMu sync.Mutex
	conns  map[string]*sseConn

	procChan chan procCtx
	workerWG sync.WaitGroup
}

// procCtx is one queued SSE submission.
type procCtx struct {
	conn *sseConn
	raw  []byte
}

// sseConn binds a live SSE stream to its session and invocation context.
type sseConn struct {
	session *session.Session
	writer  *SSEWriter
	callCtx *rpc.Context
}

// NewService builds the gateway around a fresh engine. Application methods
// can be added through Handler().Registry() before Start.
func NewService(conf Config) *Service {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if err := router.SetTrustedProxies(nil); err != nil {
		log.Err(err).Msg("failed to set trusted proxies")
	}

	router.Use(
		errors.RecoveryMiddleware(),
		errors.RequestIDMiddleware(),
		gin.LoggerWithWriter(log.Logger, "/health"),
		corsMiddleware(),
	)

	tracker := presence.NewTracker()
	handler := rpc.NewHandler(nil, rpc.Options{
		Presence:     tracker,
		Verbose:      conf.Verbose,
		Capabilities: conf.Capabilities,
	})

	s := &Service{
		conf:     conf,
		handler:  handler,
		presence: tracker,
		sessions: session.NewManager(),
		router:   router,
		conns:    make(map[string]*sseConn),
		procChan: make(chan procCtx, ProcessChanCap),
	}

	s.initRouter()
	return s
}

// Handler exposes the protocol engine.
func (s *Service) Handler() *rpc.Handler {
	return s.handler
}

// Presence exposes the presence tracker.
func (s *Service) Presence() *presence.Tracker {
	return s.presence
}

func (s *Service) initRouter() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.POST("/rpc", s.handleRPC)
	s.router.GET("/sse", s.handleSSE)
	s.router.POST("/message", s.handleSSEMessage)
}

// ListenAndServe runs the gateway until the server stops.
func (s *Service) ListenAndServe() error {
	s.server = &http.Server{
		Addr:    s.conf.GetAddr(),
		Handler: s.router,
	}

	s.startWorker()

	log.Info().Msg("starting gateway on " + s.conf.GetAddr())
	return s.server.ListenAndServe()
}

// Stop shuts the gateway down: no new connections, queued SSE submissions
// drained, detached notification tasks finished.
func (s *Service) Stop() error {
	var shutdownErr error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr = s.server.Shutdown(ctx)
	}

	close(s.procChan)
	s.workerWG.Wait()
	s.handler.Close()

	return errors.JoinErrors(shutdownErr)
}

func (s *Service) startWorker() {
	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		for pc := range s.procChan {
			s.process(pc)
		}
	}()
}

func (s *Service) process(pc procCtx) {
	responses, batch := s.handler.HandleMessage(context.Background(), pc.raw, pc.conn.callCtx)
	if responses == nil {
		return
	}

	if batch {
		pc.conn.writer.WriteJSON(responses)
		return
	}
	pc.conn.writer.WriteJSON(responses[0])
}

// handleRPC is the stateless endpoint: one HTTP round trip per message, the
// reply in the body, 204 when nothing is due.
func (s *Service) handleRPC(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, errors.ParseError(err)))
		return
	}

	callCtx := s.callContext(c)
	responses, batch := s.handler.HandleMessage(c.Request.Context(), raw, callCtx)
	if responses == nil {
		c.Status(http.StatusNoContent)
		return
	}

	if batch {
		c.JSON(http.StatusOK, responses)
		return
	}
	c.JSON(http.StatusOK, responses[0])
}

// handleSSE opens a session stream. The first event names the endpoint to
// POST messages to; responses and server events arrive as message events.
func (s *Service) handleSSE(c *gin.Context) {
	sess := s.authSession(c)
	s.sessions.Add(sess)

	conn := &sseConn{
		session: sess,
		writer:  NewSSEWriter(c, sess.ID()),
		callCtx: &rpc.Context{
			Session:  sess,
			EntityID: sess.EntityID(),
		},
	}

	s.connMu.Lock()
	s.conns[sess.ID()] = conn
	s.connMu.Unlock()

	log.Debug().Str("session_id", sess.ID()).Str("entity_id", sess.EntityID()).Msg("sse session opened")

	<-c.Request.Context().Done()

	s.connMu.Lock()
	delete(s.conns, sess.ID())
	s.connMu.Unlock()
	s.sessions.Remove(sess.ID())

	log.Debug().Str("session_id", sess.ID()).Msg("sse session closed")
}

// handleSSEMessage accepts one wire message for an open SSE session and
// queues it; the reply is pushed down the stream.
func (s *Service) handleSSEMessage(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = c.Query("sessionId")
	}
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, errors.Session("session id required", nil)))
		return
	}

	s.connMu.Lock()
	conn := s.conns[sessionID]
	s.connMu.Unlock()
	if conn == nil {
		c.JSON(http.StatusNotFound, jsonrpc.NewErrorResponse(nil, errors.Session("session not found", nil)))
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, errors.ParseError(err)))
		return
	}

	select {
	case s.procChan <- procCtx{conn: conn, raw: raw}:
	default:
		c.JSON(http.StatusTooManyRequests, jsonrpc.NewErrorResponse(nil, errors.RateLimit("message queue full")))
		return
	}

	c.String(http.StatusAccepted, "Accepted")
}

// PublishEvent pushes an event notification to every connected SSE session.
func (s *Service) PublishEvent(eventType string, data any, source string) {
	n := jsonrpc.NewEvent(eventType, data, source)

	s.connMu.Lock()
	conns := make([]*sseConn, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.connMu.Unlock()

	for _, conn := range conns {
		conn.writer.WriteJSON(n)
	}
}

// callContext builds the per-invocation context from the request's bearer
// token. Unknown or missing tokens yield an unauthenticated context.
func (s *Service) callContext(c *gin.Context) *rpc.Context {
	entry, ok := s.conf.lookupToken(bearerToken(c))
	if !ok {
		return &rpc.Context{}
	}
	sess := session.New(entry.EntityID, true, entry.Scopes...)
	return &rpc.Context{
		Session:  sess,
		EntityID: entry.EntityID,
	}
}

// authSession creates the session backing an SSE connection.
func (s *Service) authSession(c *gin.Context) *session.Session {
	entry, ok := s.conf.lookupToken(bearerToken(c))
	if !ok {
		return session.New("", false)
	}
	return session.New(entry.EntityID, true, entry.Scopes...)
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return c.Query("token")
}
