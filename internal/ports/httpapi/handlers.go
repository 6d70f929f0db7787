package httpapi

import (
	"errors"
	"net/http"

	"bluff/internal/app"
	"bluff/internal/domain"
	"bluff/internal/ports"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type createRoomRequest struct {
	DisplayName string `json:"display_name"`
}

type joinRoomRequest struct {
	Code        string `json:"code"`
	Invite      string `json:"invite"`
	DisplayName string `json:"display_name"`
}

type startGameRequest struct {
	Seed *int64 `json:"seed"`
}

type moveRequest struct {
	MoveID      string   `json:"move_id"`
	Kind        string   `json:"kind" binding:"required"`
	CardIDs     []string `json:"card_ids"`
	ClaimedRank string   `json:"claimed_rank"`
}

// RoomResponse is the caller's view of a room.
type RoomResponse struct {
	Room   domain.GameView `json:"room"`
	Invite string          `json:"invite,omitempty"`
}

// LeaveResponse reports the outcome of leaving.
type LeaveResponse struct {
	Deleted bool             `json:"deleted"`
	Room    *domain.GameView `json:"room,omitempty"`
}

// InviteResponse carries a signed invite.
type InviteResponse struct {
	Invite string `json:"invite"`
	Code   string `json:"code"`
}

// bindOptional decodes a JSON body if one was sent.
func bindOptional(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Code: "invalid_request", Message: err.Error()})
		return false
	}
	return true
}

// CreateRoomHandler opens a lobby with the caller as host.
func (s *Server) CreateRoomHandler(c *gin.Context) {
	var req createRoomRequest
	if !bindOptional(c, &req) {
		return
	}
	userID := callerID(c)
	ctx, span := s.tracer.Start(c.Request.Context(), "room.create")
	defer span.End()

	var room *domain.Room
	for attempt := 0; attempt < createRoomAttempts; attempt++ {
		created, _, err := s.svc.CreateRoom("", "", userID, req.DisplayName)
		if err != nil {
			s.writeError(c, traceError(span, err))
			return
		}
		err = s.store.CreateRoom(ctx, created)
		if errors.Is(err, ports.ErrCodeTaken) {
			s.logger.Warn("join code taken, retrying", zap.String("code", created.Code), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			s.writeError(c, traceError(span, err))
			return
		}
		room = created
		break
	}
	if room == nil {
		s.writeError(c, traceError(span, ports.ErrCodeTaken))
		return
	}
	span.SetAttributes(attribute.String("room.id", room.ID), attribute.String("room.code", room.Code))
	s.logger.Info("room created", zap.String("room_id", room.ID), zap.String("code", room.Code), zap.String("host", userID))

	resp := RoomResponse{Room: s.svc.View(room, userID)}
	if token, err := s.invites.Issue(room.ID, room.Code, userID); err == nil {
		resp.Invite = token
	}
	c.JSON(http.StatusCreated, resp)
}

// JoinRoomHandler seats the caller in a lobby named by join code or invite.
func (s *Server) JoinRoomHandler(c *gin.Context) {
	var req joinRoomRequest
	if !bindOptional(c, &req) {
		return
	}
	userID := callerID(c)
	ctx := c.Request.Context()

	var roomID string
	switch {
	case req.Invite != "":
		grant, err := s.invites.Verify(req.Invite)
		if err != nil {
			s.writeError(c, err)
			return
		}
		roomID = grant.RoomID
	case req.Code != "":
		room, err := s.store.FindRoomByCode(ctx, app.NormalizeJoinCode(req.Code))
		if err != nil {
			s.writeError(c, err)
			return
		}
		roomID = room.ID
	default:
		c.JSON(http.StatusBadRequest, errorBody{Code: "invalid_request", Message: "code or invite is required"})
		return
	}

	room, err := s.withRoom(ctx, "join", roomID, func(room *domain.Room) ([]app.Event, error) {
		return s.svc.Join(room, userID, req.DisplayName)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Room: s.svc.View(room, userID)})
}

// GetRoomHandler returns the caller's redacted view.
func (s *Server) GetRoomHandler(c *gin.Context) {
	room, err := s.store.LoadRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Room: s.svc.View(room, callerID(c))})
}

// LeaveRoomHandler releases the caller's lobby seat or forfeits its game seat.
func (s *Server) LeaveRoomHandler(c *gin.Context) {
	userID := callerID(c)
	room, err := s.withRoom(c.Request.Context(), "leave", c.Param("id"), func(room *domain.Room) ([]app.Event, error) {
		return s.svc.Leave(room, userID)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	if room.Empty() {
		c.JSON(http.StatusOK, LeaveResponse{Deleted: true})
		return
	}
	view := s.svc.View(room, userID)
	c.JSON(http.StatusOK, LeaveResponse{Room: &view})
}

// StartGameHandler deals the game. Only the host may start.
func (s *Server) StartGameHandler(c *gin.Context) {
	var req startGameRequest
	if !bindOptional(c, &req) {
		return
	}
	userID := callerID(c)
	room, err := s.withRoom(c.Request.Context(), "start", c.Param("id"), func(room *domain.Room) ([]app.Event, error) {
		return s.svc.StartGame(room, userID, req.Seed)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Room: s.svc.View(room, userID)})
}

// SubmitMoveHandler applies a play or a challenge.
func (s *Server) SubmitMoveHandler(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Code: "invalid_request", Message: err.Error()})
		return
	}
	userID := callerID(c)
	room, err := s.withRoom(c.Request.Context(), "move", c.Param("id"), func(room *domain.Room) ([]app.Event, error) {
		switch domain.MoveKind(req.Kind) {
		case domain.MovePlay:
			return s.svc.PlayCards(room, userID, req.MoveID, req.CardIDs, req.ClaimedRank)
		case domain.MoveChallenge:
			return s.svc.Challenge(room, userID, req.MoveID)
		default:
			return nil, domain.ErrUnknownMoveKind
		}
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Room: s.svc.View(room, userID)})
}

// CreateInviteHandler signs an invite for a seated caller.
func (s *Server) CreateInviteHandler(c *gin.Context) {
	userID := callerID(c)
	room, err := s.store.LoadRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if _, seated := room.SeatByUser(userID); !seated {
		s.writeError(c, app.ErrNotSeated)
		return
	}
	token, err := s.invites.Issue(room.ID, room.Code, userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, InviteResponse{Invite: token, Code: room.Code})
}

// RoomSocketHandler upgrades to a websocket that streams the caller's events.
func (s *Server) RoomSocketHandler(c *gin.Context) {
	userID := callerID(c)
	room, err := s.store.LoadRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.hub.ServeWS(c.Writer, c.Request, room.ID, userID, s.svc.View(room, userID))
}
