package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bluff/internal/app"
	"bluff/internal/app/invite"
	"bluff/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// gRPC status codes used by runtime.NewError.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codePermissionDenied   = 7
	codeFailedPrecondition = 9
	codeInternal           = 13
	codeUnauthenticated    = 16
)

// createRoomAttempts bounds retries when a generated join code is taken.
const createRoomAttempts = 5

// inviteService signs invite tokens; nil until InitModule configures it.
var inviteService *invite.Service

// CreateRoomResponse is returned by create_room.
type CreateRoomResponse struct {
	MatchID string `json:"match_id"`
	Code    string `json:"code"`
	Invite  string `json:"invite,omitempty"`
}

// JoinRoomRequest names a room by join code or invite token.
type JoinRoomRequest struct {
	Code   string `json:"code"`
	Invite string `json:"invite"`
}

// JoinRoomResponse tells the client which match to join.
type JoinRoomResponse struct {
	MatchID string `json:"match_id"`
	Code    string `json:"code"`
	Status  string `json:"status"`
}

// CreateInviteRequest names the match to invite into.
type CreateInviteRequest struct {
	MatchID string `json:"match_id"`
}

// CreateInviteResponse carries a signed invite.
type CreateInviteResponse struct {
	Invite string `json:"invite"`
	Code   string `json:"code"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcCreateRoom, rpcCreateRoom); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcJoinRoom, rpcJoinRoom); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcCreateInvite, rpcCreateInvite)
}

func callerID(ctx context.Context) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("Authentication required", codeUnauthenticated)
	}
	return userID, nil
}

func decodePayload(payload string, v any) error {
	if strings.TrimSpace(payload) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return runtime.NewError("Invalid payload", codeInvalidArgument)
	}
	return nil
}

func respond(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("Internal error", codeInternal)
	}
	return string(b), nil
}

// rpcCreateRoom creates a lobby match owned by the caller. The match handler
// stores the room; a code collision there fails the create and a new code
// is drawn.
func rpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}

	codes := app.NewService(nil)
	for attempt := 0; attempt < createRoomAttempts; attempt++ {
		code := codes.GenerateJoinCode()
		matchID, err := nk.MatchCreate(ctx, MatchNameBluff, map[string]interface{}{
			"creator": userID,
			"code":    code,
		})
		if err != nil {
			logger.Warn("RpcCreateRoom [User:%s]: Attempt %d with code %s failed: %v", userID, attempt+1, code, err)
			continue
		}

		resp := CreateRoomResponse{MatchID: matchID, Code: code}
		if inviteService != nil {
			if token, err := inviteService.Issue(matchID, code, userID); err == nil {
				resp.Invite = token
			} else if !errors.Is(err, invite.ErrNotConfigured) {
				logger.Warn("RpcCreateRoom [User:%s]: Failed to issue invite: %v", userID, err)
			}
		}
		logger.Info("RpcCreateRoom [User:%s]: Created match %s with code %s", userID, matchID, code)
		return respond(resp)
	}

	logger.Error("RpcCreateRoom [User:%s]: Giving up after %d attempts", userID, createRoomAttempts)
	return "", runtime.NewError("Could not create room", codeInternal)
}

// rpcJoinRoom resolves a join code or invite to a match id. Joining itself
// happens over the realtime socket.
func rpcJoinRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req JoinRoomRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}

	if req.Invite != "" {
		grant, err := inviteService.Verify(req.Invite)
		if err != nil {
			logger.Warn("RpcJoinRoom [User:%s]: Rejected invite: %v", userID, err)
			return "", runtime.NewError("Invalid invite", codeInvalidArgument)
		}
		match, err := nk.MatchGet(ctx, grant.RoomID)
		if err != nil {
			logger.Error("RpcJoinRoom [User:%s]: Failed to get match %s: %v", userID, grant.RoomID, err)
			return "", runtime.NewError("Internal error", codeInternal)
		}
		if match == nil {
			return "", runtime.NewError("Room not found", codeNotFound)
		}
		return respond(JoinRoomResponse{MatchID: match.GetMatchId(), Code: grant.Code, Status: labelString(match.GetLabel().GetValue(), MatchLabelKey_Status)})
	}

	code := app.NormalizeJoinCode(req.Code)
	if code == "" {
		return "", runtime.NewError("Code or invite required", codeInvalidArgument)
	}
	query := fmt.Sprintf("+label.%s:%s +label.%s:%s", MatchLabelKey_Game, GameName, MatchLabelKey_Code, code)
	matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, query)
	if err != nil {
		logger.Error("RpcJoinRoom [User:%s]: Failed to list matches: %v", userID, err)
		return "", runtime.NewError("Internal error", codeInternal)
	}
	if len(matches) == 0 {
		return "", runtime.NewError("Room not found", codeNotFound)
	}

	match := matches[0]
	logger.Info("RpcJoinRoom [User:%s]: Code %s resolved to match %s", userID, code, match.GetMatchId())
	return respond(JoinRoomResponse{MatchID: match.GetMatchId(), Code: code, Status: labelString(match.GetLabel().GetValue(), MatchLabelKey_Status)})
}

// rpcCreateInvite signs an invite to a room the caller is seated in.
func rpcCreateInvite(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req CreateInviteRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if req.MatchID == "" {
		return "", runtime.NewError("match_id required", codeInvalidArgument)
	}

	room, err := NewNakamaRoomStore(nk).LoadRoom(ctx, req.MatchID)
	if errors.Is(err, ports.ErrRoomNotFound) {
		return "", runtime.NewError("Room not found", codeNotFound)
	}
	if err != nil {
		logger.Error("RpcCreateInvite [User:%s]: Failed to load room %s: %v", userID, req.MatchID, err)
		return "", runtime.NewError("Internal error", codeInternal)
	}
	if _, seated := room.SeatByUser(userID); !seated {
		return "", runtime.NewError("Only seated players can invite", codePermissionDenied)
	}

	token, err := inviteService.Issue(room.ID, room.Code, userID)
	if errors.Is(err, invite.ErrNotConfigured) {
		return "", runtime.NewError("Invites are not configured", codeFailedPrecondition)
	}
	if err != nil {
		logger.Error("RpcCreateInvite [User:%s]: Failed to sign invite: %v", userID, err)
		return "", runtime.NewError("Internal error", codeInternal)
	}
	return respond(CreateInviteResponse{Invite: token, Code: room.Code})
}

// labelString reads one string field of a match label, or "" if absent.
func labelString(label, key string) string {
	s, err := parseMatchLabel(label)
	if err != nil {
		return ""
	}
	return stringField(s, key)
}
