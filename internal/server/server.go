// Package server is the HTTP face of the remote input server: one JSON
// endpoint per command family, a websocket command stream, and WebRTC
// signaling for DataChannel peers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/Rixmerz/MultiComputer/internal/clients"
	"github.com/Rixmerz/MultiComputer/internal/dispatch"
	"github.com/Rixmerz/MultiComputer/internal/sysinfo"
	"github.com/Rixmerz/MultiComputer/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// Name is reported by /status.
const Name = "MultiComputer Remote Input Server"

const offerTimeout = 10 * time.Second

// Dispatcher is the command core as seen by the transport.
type Dispatcher interface {
	Dispatch(cmd types.Command) types.Result
	HandleFrame(data []byte) []byte
	Geometry() types.ScreenGeometry
	Dragging() bool
	Activity() *dispatch.ActivityTracker
}

// Peers answers WebRTC offers.
type Peers interface {
	Answer(ctx context.Context, offer webrtc.SessionDescription) (string, *webrtc.SessionDescription, error)
	Count() int
}

// HostInfo describes the machine for /status.
type HostInfo interface {
	Snapshot() sysinfo.Snapshot
}

type Options struct {
	Dispatcher  Dispatcher
	Clients     *clients.Manager
	Peers       Peers // nil disables /rtc/offer
	Host        HostInfo
	CORSOrigins []string
	Logger      logging.LeveledLogger
	Started     time.Time

	// PongWait bounds websocket silence; it defaults to clients.PongWait.
	PongWait time.Duration
}

type Server struct {
	disp     Dispatcher
	clients  *clients.Manager
	peers    Peers
	host     HostInfo
	log      logging.LeveledLogger
	started  time.Time
	pongWait time.Duration

	engine *gin.Engine
	http   *http.Server
}

func New(opts Options) *Server {
	s := &Server{
		disp:     opts.Dispatcher,
		clients:  opts.Clients,
		peers:    opts.Peers,
		host:     opts.Host,
		log:      opts.Logger,
		started:  opts.Started,
		pongWait: opts.PongWait,
	}
	if s.started.IsZero() {
		s.started = time.Now()
	}
	if s.pongWait <= 0 {
		s.pongWait = clients.PongWait
	}

	r := gin.New()
	r.Use(s.recoverMiddleware(), s.logMiddleware(), corsMiddleware(opts.CORSOrigins))

	r.GET("/screen", s.handleScreen)
	r.POST("/mouse", s.handleCommand(types.KindMouse))
	r.POST("/special", s.handleCommand(types.KindSpecial))
	r.POST("/shortcut", s.handleCommand(types.KindShortcut))
	r.POST("/type", s.handleCommand(types.KindType))
	r.GET("/status", s.handleStatus)
	r.GET("/ping", s.handlePing)
	r.GET("/ws", s.handleWS)
	r.POST("/rtc/offer", s.handleOffer)

	s.engine = r
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe blocks until the server stops. It returns nil after
// Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.engine}
	s.log.Infof("http server started on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.clients.CloseAll()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// recoverMiddleware keeps a panicking handler from taking the process down.
func (s *Server) recoverMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		s.log.Errorf("panic in %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "internal server error",
		})
	})
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Tracef("%s %s %d from %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.ClientIP())
	}
}

// corsMiddleware admits every origin when origins contains "*".
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := slices.Contains(origins, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleCommand(kind types.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			writeResult(c, types.Result{Err: fmt.Errorf("%w: read body: %v", types.ErrInvalidArgument, err)})
			return
		}
		cmd, err := types.Decode(kind, body)
		if err != nil {
			writeResult(c, types.Result{Err: err})
			return
		}
		writeResult(c, s.disp.Dispatch(cmd))
	}
}

// writeResult answers with the JSON body of res, or an empty 200 for the
// no-body fast path.
func writeResult(c *gin.Context, res types.Result) {
	body := types.Body(res)
	if body == nil {
		c.Status(http.StatusOK)
		return
	}
	c.Data(types.StatusCode(res.Err), "application/json; charset=utf-8", body)
}

func (s *Server) handleScreen(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"screen": s.disp.Geometry(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	var last any
	if t, ok := s.disp.Activity().Last(); ok {
		last = float64(t.UnixNano()) / float64(time.Second)
	}
	peers := 0
	if s.peers != nil {
		peers = s.peers.Count()
	}
	resp := gin.H{
		"status":            "online",
		"server":            Name,
		"last_activity":     last,
		"uptime":            time.Since(s.started).Seconds(),
		"connected_clients": s.clients.Count(),
		"peers":             peers,
		"dragging":          s.disp.Dragging(),
	}
	if s.host != nil {
		resp["host"] = s.host.Snapshot()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "pong"})
}

func (s *Server) handleOffer(c *gin.Context) {
	if s.peers == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "webrtc is disabled"})
		return
	}
	var offer webrtc.SessionDescription
	if err := c.ShouldBindJSON(&offer); err != nil || offer.SDP == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid session description"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), offerTimeout)
	defer cancel()
	id, answer, err := s.peers.Answer(ctx, offer)
	if err != nil {
		s.log.Warnf("rtc offer from %s: %v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "id": id, "answer": answer})
}

// EventHook queues dispatch events for websocket clients of the events role
// without waiting on the network. A client whose queue is full is
// disconnected.
func (s *Server) EventHook() dispatch.Hook {
	return func(ev dispatch.Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		for id, err := range s.clients.Broadcast(clients.RoleEvents, payload) {
			s.log.Debugf("events client %s dropped: %v", id, err)
			s.clients.Disconnect(id)
		}
	}
}
