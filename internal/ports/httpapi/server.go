// Package httpapi serves bluff rooms over REST with a websocket event feed.
// It is the standalone alternative to the Nakama runtime module.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"bluff/internal/app"
	"bluff/internal/app/invite"
	"bluff/internal/domain"
	"bluff/internal/ports"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// UserIDHeader carries the caller identity. Authentication happens upstream.
	UserIDHeader = "X-User-ID"

	userIDKey = "userID"

	// createRoomAttempts bounds retries when a generated join code is taken.
	createRoomAttempts = 5
)

// Server owns the room use-cases, storage and live connections.
type Server struct {
	svc     *app.Service
	store   ports.RoomStore
	invites *invite.Service
	hub     *Hub
	logger  *zap.Logger
	tracer  trace.Tracer
	locks   *roomLocks
}

// NewServer wires a Server. invites may be nil when invites are disabled.
func NewServer(svc *app.Service, store ports.RoomStore, invites *invite.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		svc:     svc,
		store:   store,
		invites: invites,
		hub:     NewHub(logger),
		logger:  logger,
		tracer:  otel.Tracer("bluff/httpapi"),
		locks:   newRoomLocks(),
	}
}

// Handler builds the gin engine. An origin of "*" allows every origin.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 || containsWildcard(allowedOrigins) {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", UserIDHeader}
	r.Use(cors.New(corsConfig))
	s.hub.SetOrigins(allowedOrigins)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rooms := r.Group("/rooms")
	rooms.Use(requireUser())
	{
		rooms.POST("", s.CreateRoomHandler)
		rooms.POST("/join", s.JoinRoomHandler)
		rooms.GET("/:id", s.GetRoomHandler)
		rooms.GET("/:id/ws", s.RoomSocketHandler)
		rooms.POST("/:id/leave", s.LeaveRoomHandler)
		rooms.POST("/:id/start", s.StartGameHandler)
		rooms.POST("/:id/moves", s.SubmitMoveHandler)
		rooms.POST("/:id/invites", s.CreateInviteHandler)
	}
	return r
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// requireUser rejects requests without a caller identity. Browsers cannot set
// headers on websocket upgrades, so the user_id query parameter is accepted
// too.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			userID = strings.TrimSpace(c.Query("user_id"))
		}
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: "unauthenticated", Message: UserIDHeader + " header is required"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func callerID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_id", callerID(c)),
		)
	}
}

// roomLocks hands out one mutex per room id and forgets it once unused.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

func (l *roomLocks) lock(roomID string) func() {
	l.mu.Lock()
	rl, ok := l.locks[roomID]
	if !ok {
		rl = &roomLock{}
		l.locks[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, roomID)
		}
		l.mu.Unlock()
	}
}

// withRoom runs fn on the stored room under the room lock. Accepted changes
// are written back only if nobody else wrote the room meanwhile; a room left
// without seats is deleted. Events are published after the write.
func (s *Server) withRoom(ctx context.Context, op, roomID string, fn func(*domain.Room) ([]app.Event, error)) (*domain.Room, error) {
	ctx, span := s.tracer.Start(ctx, "room."+op, trace.WithAttributes(attribute.String("room.id", roomID)))
	defer span.End()

	unlock := s.locks.lock(roomID)
	defer unlock()

	room, err := s.store.LoadRoom(ctx, roomID)
	if err != nil {
		return nil, traceError(span, err)
	}
	s.svc.Bind(room)

	before := room.Version
	events, err := fn(room)
	if err != nil {
		return nil, traceError(span, err)
	}

	if room.Empty() {
		if err := s.store.DeleteRoom(ctx, room.ID); err != nil {
			return nil, traceError(span, err)
		}
		s.logger.Info("room deleted", zap.String("room_id", room.ID))
	} else if err := s.store.SaveRoom(ctx, room, before); err != nil {
		return nil, traceError(span, err)
	}
	span.SetAttributes(attribute.Int64("room.version", room.Version), attribute.String("room.status", string(room.Status)))

	s.hub.Publish(room.ID, events)
	if room.Empty() {
		s.hub.CloseRoom(room.ID)
	}
	return room, nil
}

func traceError(span trace.Span, err error) error {
	if domain.IsRuleViolation(err) || errors.Is(err, app.ErrNotSeated) {
		span.SetAttributes(attribute.String("bluff.error_code", domain.ErrorCode(err)))
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
