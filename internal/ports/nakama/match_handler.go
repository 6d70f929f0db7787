package nakama

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"bluff/internal/app"
	"bluff/internal/bot"
	"bluff/internal/config"
	"bluff/internal/domain"
	"bluff/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	// autoFillSeats is how many seats a solo lobby is filled to with bots.
	autoFillSeats = 4

	// abandonedGraceSeconds is how long a running game waits for a human to
	// reconnect before the match ends.
	abandonedGraceSeconds = 120

	tickRate = 1
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Room                 *domain.Room                `json:"-"`                       // Authoritative room, seats and move log
	Tick                 int64                       `json:"tick"`                    // Current tick of the match for turn-based logic
	Presences            map[string]runtime.Presence `json:"-"`                       // Map UserId -> Presence for targeted messaging
	PendingNames         map[string]string           `json:"-"`                       // Display names sent in join metadata
	App                  *app.Service                `json:"-"`                       // Bluff app service with game logic
	Store                ports.RoomStore             `json:"-"`                       // Durable copy of the room
	Profiles             ports.ProfilePort           `json:"-"`                       // Account display names
	BotsEnabled          bool                        `json:"bots_enabled"`            // Whether AI players are allowed
	BotMinDelay          int                         `json:"bot_min_delay"`           // Min seconds a bot waits
	BotMaxDelay          int                         `json:"bot_max_delay"`           // Max seconds a bot waits
	BotAutoFillDelay     int                         `json:"bot_auto_fill_delay"`     // Seconds to wait before auto-filling with bots
	BotWaitUntil         int64                       `json:"bot_wait_until"`          // Tick when the bots should act
	LastSinglePlayerTick int64                       `json:"last_single_player_tick"` // Tick when a single player started waiting
	AbandonedGrace       int                         `json:"abandoned_grace"`         // Seconds a game without humans is kept
	Abandoned            bool                        `json:"abandoned"`               // Whether every human has disconnected
	AbandonedTick        int64                       `json:"abandoned_tick"`          // Tick when the last human disconnected
	Bots                 map[string]*bot.Agent       `json:"-"`                       // Active bot agents
	BotDecided           map[string]int64            `json:"-"`                       // Room version each bot last chose to wait on
	rng                  *rand.Rand
}

func newMatchState(svc *app.Service, store ports.RoomStore, profiles ports.ProfilePort) *MatchState {
	return &MatchState{
		Presences:        make(map[string]runtime.Presence),
		PendingNames:     make(map[string]string),
		App:              svc,
		Store:            store,
		Profiles:         profiles,
		BotMinDelay:      1,
		BotMaxDelay:      3,
		BotAutoFillDelay: 5,
		AbandonedGrace:   abandonedGraceSeconds,
		Bots:             make(map[string]*bot.Agent),
		BotDecided:       make(map[string]int64),
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// applyBotConfig takes bot settings from the game config, then from env. The
// env also sets the grace period of an abandoned game.
func (ms *MatchState) applyBotConfig(c config.BotConfig, env map[string]string) {
	ms.BotsEnabled = c.Enabled
	if c.MinDelaySeconds > 0 {
		ms.BotMinDelay = c.MinDelaySeconds
	}
	if c.MaxDelaySeconds > 0 {
		ms.BotMaxDelay = c.MaxDelaySeconds
	}
	if c.AutoFillDelaySeconds > 0 {
		ms.BotAutoFillDelay = c.AutoFillDelaySeconds
	}

	if val, ok := env[EnvBotsEnabled]; ok {
		ms.BotsEnabled = val == "true"
	}
	if val, ok := env[EnvBotMinDelaySec]; ok {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			ms.BotMinDelay = i
		}
	}
	if val, ok := env[EnvBotMaxDelaySec]; ok {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			ms.BotMaxDelay = i
		}
	}
	if val, ok := env[EnvBotAutoFillDelaySec]; ok {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			ms.BotAutoFillDelay = i
		}
	}
	if ms.BotMaxDelay < ms.BotMinDelay {
		ms.BotMaxDelay = ms.BotMinDelay
	}
	if val, ok := env[EnvAbandonedGraceSec]; ok {
		if i, err := strconv.Atoi(val); err == nil && i >= 0 {
			ms.AbandonedGrace = i
		}
	}
}

// isBotUserId reports whether the given user id represents a bot seat.
func isBotUserId(userId string) bool {
	return bot.IsBot(userId)
}

// humanSeatCount counts seats held by people.
func (ms *MatchState) humanSeatCount() int {
	count := 0
	for _, seat := range ms.Room.Seats {
		if !isBotUserId(seat.UserID) {
			count++
		}
	}
	return count
}

// connectedHumans counts human presences still in the match.
func (ms *MatchState) connectedHumans() int {
	count := 0
	for userID := range ms.Presences {
		if !isBotUserId(userID) {
			count++
		}
	}
	return count
}

// botToReplace returns a bot seated in the lobby that a human may take over.
func (ms *MatchState) botToReplace() string {
	if ms.Room.Status != domain.StatusLobby {
		return ""
	}
	for i := len(ms.Room.Seats) - 1; i >= 0; i-- {
		if userID := ms.Room.Seats[i].UserID; isBotUserId(userID) {
			return userID
		}
	}
	return ""
}

// botsHaveWork reports whether some bot has not yet looked at the current
// room version.
func (ms *MatchState) botsHaveWork() bool {
	for _, seat := range ms.Room.Seats {
		if _, ok := ms.Bots[seat.UserID]; !ok || seat.Eliminated {
			continue
		}
		if ms.BotDecided[seat.UserID] != ms.Room.Version {
			return true
		}
	}
	return false
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return newMatchHandler(), nil
}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

type matchHandler struct{}

// MatchInit is called when the match is created. Params: creator (user id),
// code (join code, generated when empty).
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	cfg := loadGameConfig(env, logger)

	state := newMatchState(
		app.NewService(nil, app.WithRules(cfg.Rules())),
		NewNakamaRoomStore(nk),
		NewNakamaProfileAdapter(nk),
	)
	state.applyBotConfig(cfg.Bots, env)

	creator, _ := params["creator"].(string)
	code, _ := params["code"].(string)
	state.Room = state.App.NewRoom(matchID, code, creator)

	if err := state.Store.CreateRoom(ctx, state.Room); err != nil {
		logger.Error("MatchInit: Failed to store room %s (code %s): %v", state.Room.ID, state.Room.Code, err)
		return nil, 0, ""
	}

	label, err := matchLabel(state.Room)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	logger.Info("MatchInit: Room %s created with code %s.", state.Room.ID, state.Room.Code)
	return state, tickRate, label
}

func loadGameConfig(env map[string]string, logger runtime.Logger) *config.GameConfig {
	if path := env[EnvGameConfig]; path != "" {
		if err := config.LoadGameConfig(path); err != nil {
			logger.Warn("Could not load game config %s: %v", path, err)
		}
	}
	return config.GetGameConfig()
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	userID := presence.GetUserId()
	// Seated players may always come back.
	if _, seated := matchState.Room.SeatByUser(userID); seated {
		return matchState, true, ""
	}
	if matchState.Room.Status != domain.StatusLobby {
		return matchState, false, "Game already started"
	}
	// Allow join if there is an empty seat or a bot to replace.
	if openSeats(matchState.Room) <= 0 && matchState.botToReplace() == "" {
		return matchState, false, "Match full"
	}

	if name := metadata["display_name"]; name != "" {
		matchState.PendingNames[userID] = name
	}
	return matchState, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p
		if !isBotUserId(userID) && matchState.Abandoned {
			logger.Info("MatchJoin: User %s returned to an abandoned game.", userID)
			matchState.Abandoned = false
		}

		if _, seated := matchState.Room.SeatByUser(userID); seated {
			logger.Debug("MatchJoin: User %s reconnected.", userID)
			mh.sendView(matchState, dispatcher, logger, userID)
			continue
		}

		if openSeats(matchState.Room) == 0 {
			if botID := matchState.botToReplace(); botID != "" {
				logger.Info("MatchJoin: Replacing bot %s with human %s", botID, userID)
				if err := mh.apply(ctx, matchState, dispatcher, logger, func() ([]app.Event, error) {
					return matchState.App.Leave(matchState.Room, botID)
				}); err != nil {
					logger.Error("MatchJoin: Failed to remove bot %s: %v", botID, err)
				}
				delete(matchState.Bots, botID)
				delete(matchState.BotDecided, botID)
			}
		}

		name := mh.displayName(ctx, matchState, logger, p)
		if err := mh.apply(ctx, matchState, dispatcher, logger, func() ([]app.Event, error) {
			return matchState.App.Join(matchState.Room, userID, name)
		}); err != nil {
			logger.Warn("MatchJoin: User %s joined but could not be seated: %v", userID, err)
			mh.sendError(matchState, dispatcher, logger, userID, err)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// displayName picks the name a joining user is seated with: join metadata,
// then the account profile, then the session username. Bots keep their
// configured name.
func (mh *matchHandler) displayName(ctx context.Context, state *MatchState, logger runtime.Logger, p runtime.Presence) string {
	userID := p.GetUserId()
	if identity, ok := bot.GetBotConfig(userID); ok {
		return identity.DisplayName
	}
	if name, ok := state.PendingNames[userID]; ok {
		delete(state.PendingNames, userID)
		return name
	}
	if state.Profiles != nil {
		name, err := state.Profiles.DisplayName(ctx, userID)
		if err == nil && name != "" {
			return name
		}
		if err != nil {
			logger.Warn("MatchJoin: Could not read profile of %s: %v", userID, err)
		}
	}
	return p.GetUsername()
}

// MatchLeave is called when one or more players disconnect. Seats in a running
// game are kept so the player can come back; other seats are released. A
// running game left without humans waits AbandonedGrace seconds for one to
// return.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		delete(matchState.PendingNames, userID)

		if _, seated := matchState.Room.SeatByUser(userID); !seated {
			continue
		}
		if matchState.Room.Status == domain.StatusActive {
			logger.Debug("MatchLeave: User %s disconnected, seat kept.", userID)
			continue
		}
		if err := mh.apply(ctx, matchState, dispatcher, logger, func() ([]app.Event, error) {
			return matchState.App.Leave(matchState.Room, userID)
		}); err != nil {
			logger.Warn("MatchLeave: Failed to release seat of %s: %v", userID, err)
		}
	}

	if matchState.connectedHumans() == 0 {
		if matchState.Room.Status != domain.StatusActive {
			logger.Info("MatchLeave: Terminating match with no humans.")
			mh.shutdown(ctx, matchState, logger)
			return nil
		}
		if !matchState.Abandoned {
			logger.Info("MatchLeave: No humans left, waiting %d seconds.", matchState.AbandonedGrace)
			matchState.Abandoned = true
			matchState.AbandonedTick = tick
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	if matchState.Abandoned {
		if tick-matchState.AbandonedTick >= int64(matchState.AbandonedGrace*tickRate) {
			logger.Info("MatchLoop: Nobody returned to room %s, terminating.", matchState.Room.ID)
			mh.shutdown(ctx, matchState, logger)
			return nil
		}
		// Bots wait for the humans.
		return matchState
	}

	// Handle incoming messages
	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCards:
			mh.handlePlayCards(ctx, matchState, dispatcher, logger, msg)
		case OpChallenge:
			mh.handleChallenge(ctx, matchState, dispatcher, logger, msg)
		case OpLeaveRoom:
			mh.handleLeaveRoom(ctx, matchState, dispatcher, logger, msg)
		case OpSyncState:
			mh.sendView(matchState, dispatcher, logger, msg.GetUserId())
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	// AI Logic
	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	return matchState
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	room := state.Room

	// 1. Auto-fill lobby with bots if there's only one human player after delay
	if room.Status == domain.StatusLobby {
		if state.humanSeatCount() != 1 {
			state.LastSinglePlayerTick = 0
			return
		}
		if state.LastSinglePlayerTick == 0 {
			state.LastSinglePlayerTick = state.Tick
			logger.Debug("processBots: Single player detected, starting auto-fill timer.")
		}
		if state.Tick-state.LastSinglePlayerTick < int64(state.BotAutoFillDelay) {
			return
		}

		target := autoFillSeats
		if limit := room.Rules.Normalize().MaxSeats; target > limit {
			target = limit
		}
		for i := 0; len(room.Seats) < target && i < bot.PoolSize(); i++ {
			identity := bot.GetBotIdentity(i)
			if _, seated := room.SeatByUser(identity.UserID); seated {
				continue
			}
			agent, err := bot.NewAgent(identity, state.rng)
			if err != nil {
				logger.Error("processBots: Failed to create bot agent for %s: %v", identity.UserID, err)
				continue
			}
			if err := mh.apply(ctx, state, dispatcher, logger, func() ([]app.Event, error) {
				return state.App.Join(room, identity.UserID, identity.DisplayName)
			}); err != nil {
				logger.Error("processBots: Failed to seat bot %s: %v", identity.UserID, err)
				break
			}
			state.Bots[identity.UserID] = agent
			logger.Info("processBots: Added bot %s (%s, %s) to seat %d", identity.DisplayName, identity.UserID, identity.Strategy, len(room.Seats)-1)
		}
		// Reset timer so it doesn't keep "adding" every tick
		state.LastSinglePlayerTick = 0
		return
	}

	// 2. Let bots play and challenge in-game
	if room.Status != domain.StatusActive || !state.botsHaveWork() {
		state.BotWaitUntil = 0
		return
	}
	if state.BotWaitUntil == 0 {
		delay := state.rng.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		logger.Debug("processBots: Bots will act at tick %d (current %d)", state.BotWaitUntil, state.Tick)
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	for _, seat := range room.Seats {
		userID := seat.UserID
		agent, ok := state.Bots[userID]
		if !ok || seat.Eliminated || state.BotDecided[userID] == room.Version {
			continue
		}

		move, err := agent.Play(state.App.View(room, userID))
		if err != nil {
			logger.Error("processBots: Bot %s failed to calculate move: %v", userID, err)
			state.BotDecided[userID] = room.Version
			continue
		}
		if move.Pass {
			state.BotDecided[userID] = room.Version
			continue
		}

		err = mh.apply(ctx, state, dispatcher, logger, func() ([]app.Event, error) {
			if move.Challenge {
				return state.App.Challenge(room, userID, "")
			}
			return state.App.PlayCards(room, userID, "", move.CardIDs, string(move.Claim))
		})
		if err != nil {
			logger.Warn("processBots: Bot %s move %+v rejected: %v", userID, move, err)
			state.BotDecided[userID] = room.Version
			continue
		}
		// One action per wake-up; the rest re-evaluate the new state.
		return
	}
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	logger.Info("StartGame: Request received from %s (host=%s, seats=%d)", senderID, state.Room.HostUserID, len(state.Room.Seats))

	if err := mh.apply(ctx, state, dispatcher, logger, func() ([]app.Event, error) {
		return state.App.StartGame(state.Room, senderID, nil)
	}); err != nil {
		logger.Warn("StartGame: User %s could not start: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}
	logger.Info("StartGame: Game started with %d players.", len(state.Room.Seats))
}

func (mh *matchHandler) handlePlayCards(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	request, err := decodePlayCards(msg.GetData())
	if err != nil {
		logger.Warn("handlePlayCards: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}

	if err := mh.apply(ctx, state, dispatcher, logger, func() ([]app.Event, error) {
		return state.App.PlayCards(state.Room, senderID, request.MoveID, request.CardIDs, request.Claim)
	}); err != nil {
		logger.Warn("handlePlayCards: User %s failed to play %v as %q: %v", senderID, request.CardIDs, request.Claim, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
	}
}

func (mh *matchHandler) handleChallenge(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	moveID, err := decodeMoveID(msg.GetData())
	if err != nil {
		logger.Warn("handleChallenge: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}

	if err := mh.apply(ctx, state, dispatcher, logger, func() ([]app.Event, error) {
		return state.App.Challenge(state.Room, senderID, moveID)
	}); err != nil {
		logger.Warn("handleChallenge: User %s failed to challenge: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
	}
}

func (mh *matchHandler) handleLeaveRoom(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if err := mh.apply(ctx, state, dispatcher, logger, func() ([]app.Event, error) {
		return state.App.Leave(state.Room, senderID)
	}); err != nil {
		logger.Warn("handleLeaveRoom: User %s failed to leave: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
	}
}

// apply runs a room mutation and, if it was accepted, persists the room and
// dispatches its events.
func (mh *matchHandler) apply(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, fn func() ([]app.Event, error)) error {
	before := state.Room.Version
	events, err := fn()
	if err != nil {
		return err
	}

	mh.persist(ctx, state, logger, before)
	for _, agent := range state.Bots {
		agent.OnGameEvent(state.App.View(state.Room, agent.ID))
	}
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	mh.updateLabel(state, dispatcher, logger)
	return nil
}

func (mh *matchHandler) persist(ctx context.Context, state *MatchState, logger runtime.Logger, expectedVersion int64) {
	if state.Store == nil {
		return
	}
	err := state.Store.SaveRoom(ctx, state.Room, expectedVersion)
	if errors.Is(err, ports.ErrRoomNotFound) {
		err = state.Store.CreateRoom(ctx, state.Room)
	}
	if err != nil {
		logger.Error("persist: Failed to save room %s at version %d: %v", state.Room.ID, state.Room.Version, err)
	}
}

// shutdown drops lobbies and finished games from storage. A game still running
// keeps its stored state and log.
func (mh *matchHandler) shutdown(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.Store == nil || state.Room.Status == domain.StatusActive {
		return
	}
	if err := state.Store.DeleteRoom(ctx, state.Room.ID); err != nil {
		logger.Error("shutdown: Failed to delete room %s: %v", state.Room.ID, err)
	}
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCodes[ev.Kind]
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes, err := encodeMessage(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// If we had intended recipients but none are connected (e.g. they are bots),
		// we MUST NOT broadcast to everyone else.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

// sendView sends userID its current view of the room.
func (mh *matchHandler) sendView(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	mh.broadcastEvent(state, dispatcher, logger, app.Event{
		Kind:       app.EventStateSync,
		Payload:    app.StateSyncPayload{View: state.App.View(state.Room, userID)},
		Recipients: []string{userID},
	})
}

// sendError sends a GameErrorEvent to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, err error) {
	code := domain.ErrorCode(err)
	if errors.Is(err, app.ErrNotSeated) {
		code = "not_seated"
	}
	bytes, marshalErr := encodeMessage(GameErrorEvent{Code: code, Message: err.Error()})
	if marshalErr != nil {
		logger.Error("Failed to marshal GameErrorEvent: %v", marshalErr)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	if err := dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send error to %s: %v", userID, err)
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := matchLabel(state.Room)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok {
		mh.shutdown(ctx, matchState, logger)
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}
	// Any signal is answered with the current label.
	label, err := matchLabel(matchState.Room)
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal label: %v", err)
		return state, ""
	}
	return state, label
}
