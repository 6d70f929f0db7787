package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"

	"bluff/internal/app"
	"bluff/internal/bot"
	"bluff/internal/config"
	"bluff/internal/domain"
	"bluff/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode int64
	data   []byte
	to     []string // user ids; nil for a broadcast
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	messages []sentMessage
	labels   []string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	msg := sentMessage{opCode: opCode, data: append([]byte(nil), data...)}
	for _, p := range presences {
		msg.to = append(msg.to, p.GetUserId())
	}
	md.messages = append(md.messages, msg)
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return md.BroadcastMessage(opCode, data, presences, sender, reliable)
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labels = append(md.labels, label)
	return nil
}

func (md *mockDispatcher) withOpCode(opCode int64) []sentMessage {
	var out []sentMessage
	for _, msg := range md.messages {
		if msg.opCode == opCode {
			out = append(out, msg)
		}
	}
	return out
}

func (md *mockDispatcher) reset() {
	md.messages = nil
	md.labels = nil
}

type testPresence struct {
	userID string
}

func (p testPresence) GetHidden() bool                   { return false }
func (p testPresence) GetPersistence() bool              { return false }
func (p testPresence) GetUsername() string               { return "user_" + p.userID }
func (p testPresence) GetStatus() string                 { return "" }
func (p testPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p testPresence) GetUserId() string                 { return p.userID }
func (p testPresence) GetSessionId() string              { return "session-" + p.userID }
func (p testPresence) GetNodeId() string                 { return "node-1" }

type testMatchData struct {
	testPresence
	opCode int64
	data   []byte
}

func (m testMatchData) GetOpCode() int64      { return m.opCode }
func (m testMatchData) GetData() []byte       { return m.data }
func (m testMatchData) GetReliable() bool     { return true }
func (m testMatchData) GetReceiveTime() int64 { return 0 }

type storedObject struct {
	value   string
	version int
}

// fakeNK keeps storage, users and matches in memory. Methods it does not
// override panic through the nil embedded module.
type fakeNK struct {
	runtime.NakamaModule

	objects     map[string]storedObject
	users       map[string]*api.User
	matches     map[string]*api.Match
	created     []map[string]interface{}
	failCreates int
	lastQuery   string
}

func newFakeNK() *fakeNK {
	return &fakeNK{
		objects: make(map[string]storedObject),
		users:   make(map[string]*api.User),
		matches: make(map[string]*api.Match),
	}
}

var errVersionCheck = errors.New("Storage write rejected - version check failed.")

func objectKey(collection, key string) string {
	return collection + "/" + key
}

func (f *fakeNK) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	var out []*api.StorageObject
	for _, r := range reads {
		obj, ok := f.objects[objectKey(r.Collection, r.Key)]
		if !ok {
			continue
		}
		out = append(out, &api.StorageObject{
			Collection: r.Collection,
			Key:        r.Key,
			Value:      obj.value,
			Version:    strconv.Itoa(obj.version),
		})
	}
	return out, nil
}

func (f *fakeNK) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	for _, w := range writes {
		obj, exists := f.objects[objectKey(w.Collection, w.Key)]
		switch {
		case w.Version == "":
		case w.Version == "*":
			if exists {
				return nil, errVersionCheck
			}
		case !exists || strconv.Itoa(obj.version) != w.Version:
			return nil, errVersionCheck
		}
	}
	acks := make([]*api.StorageObjectAck, 0, len(writes))
	for _, w := range writes {
		k := objectKey(w.Collection, w.Key)
		obj := f.objects[k]
		obj.value = w.Value
		obj.version++
		f.objects[k] = obj
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key, Version: strconv.Itoa(obj.version)})
	}
	return acks, nil
}

func (f *fakeNK) StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error {
	for _, d := range deletes {
		delete(f.objects, objectKey(d.Collection, d.Key))
	}
	return nil
}

func (f *fakeNK) UsersGetId(ctx context.Context, userIDs []string, facebookIDs []string) ([]*api.User, error) {
	var out []*api.User
	for _, id := range userIDs {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeNK) MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error) {
	f.created = append(f.created, params)
	if f.failCreates > 0 {
		f.failCreates--
		return "", errors.New("code taken")
	}
	id := "match-" + strconv.Itoa(len(f.created)) + ".nakama"
	f.matches[id] = &api.Match{MatchId: id, Authoritative: true}
	return id, nil
}

func (f *fakeNK) MatchGet(ctx context.Context, id string) (*api.Match, error) {
	return f.matches[id], nil
}

func (f *fakeNK) MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error) {
	f.lastQuery = query
	ids := make([]string, 0, len(f.matches))
	for id := range f.matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []*api.Match
	for _, id := range ids {
		m := f.matches[id]
		code := labelString(m.GetLabel().GetValue(), MatchLabelKey_Code)
		if code != "" && strings.Contains(query, "+label."+MatchLabelKey_Code+":"+code) {
			out = append(out, m)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type matchFixture struct {
	t          *testing.T
	ctx        context.Context
	nk         *fakeNK
	handler    *matchHandler
	dispatcher *mockDispatcher
	state      *MatchState
	tick       int64
}

func newMatchFixture(t *testing.T, env map[string]string) *matchFixture {
	t.Helper()
	if env == nil {
		env = map[string]string{EnvBotsEnabled: "false"}
	}
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, env)
	ctx = context.WithValue(ctx, runtime.RUNTIME_CTX_MATCH_ID, "match-1.nakama")

	f := &matchFixture{
		t:          t,
		ctx:        ctx,
		nk:         newFakeNK(),
		handler:    newMatchHandler(),
		dispatcher: &mockDispatcher{},
	}
	state, rate, label := f.handler.MatchInit(ctx, noopLogger{}, nil, f.nk, map[string]interface{}{"creator": "alice", "code": "abc123"})
	if state == nil {
		t.Fatal("MatchInit() returned nil state")
	}
	if rate != tickRate {
		t.Fatalf("MatchInit() tick rate = %d, want %d", rate, tickRate)
	}
	if label == "" {
		t.Fatal("MatchInit() returned empty label")
	}
	f.state = state.(*MatchState)
	f.state.rng = rand.New(rand.NewSource(7))
	return f
}

func (f *matchFixture) join(userID, name string) {
	f.t.Helper()
	p := testPresence{userID: userID}
	metadata := map[string]string{}
	if name != "" {
		metadata["display_name"] = name
	}
	_, ok, reason := f.handler.MatchJoinAttempt(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, f.tick, f.state, p, metadata)
	if !ok {
		f.t.Fatalf("MatchJoinAttempt(%s) rejected: %s", userID, reason)
	}
	f.handler.MatchJoin(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, f.tick, f.state, []runtime.Presence{p})
}

func (f *matchFixture) send(userID string, opCode int64, payload any) {
	f.t.Helper()
	var data []byte
	if payload != nil {
		var err error
		if data, err = encodeMessage(payload); err != nil {
			f.t.Fatalf("encodeMessage() error = %v", err)
		}
	}
	f.tick++
	msg := testMatchData{testPresence: testPresence{userID: userID}, opCode: opCode, data: data}
	f.handler.MatchLoop(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, f.tick, f.state, []runtime.MatchData{msg})
}

func (f *matchFixture) loop() {
	f.tick++
	f.handler.MatchLoop(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, f.tick, f.state, nil)
}

func (f *matchFixture) stored() *domain.Room {
	f.t.Helper()
	room, err := NewNakamaRoomStore(f.nk).LoadRoom(f.ctx, f.state.Room.ID)
	if err != nil {
		f.t.Fatalf("LoadRoom() error = %v", err)
	}
	return room
}

func decodeEvent[T any](t *testing.T, data []byte) T {
	t.Helper()
	s, err := decodeMessage(data)
	if err != nil {
		t.Fatalf("decodeMessage() error = %v", err)
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return out
}

func TestMatchInit(t *testing.T) {
	f := newMatchFixture(t, nil)

	room := f.state.Room
	if room.ID != "match-1.nakama" || room.Code != "ABC123" || room.HostUserID != "alice" {
		t.Fatalf("room = {ID:%s Code:%s Host:%s}, want {match-1.nakama ABC123 alice}", room.ID, room.Code, room.HostUserID)
	}
	if f.state.BotsEnabled {
		t.Fatal("BotsEnabled = true, want false")
	}

	found, err := NewNakamaRoomStore(f.nk).FindRoomByCode(f.ctx, "ABC123")
	if err != nil {
		t.Fatalf("FindRoomByCode() error = %v", err)
	}
	if found.ID != room.ID {
		t.Fatalf("FindRoomByCode().ID = %s, want %s", found.ID, room.ID)
	}

	_, label := f.handler.MatchSignal(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, 0, f.state, "")
	if got := labelString(label, MatchLabelKey_Code); got != "ABC123" {
		t.Fatalf("label code = %q, want ABC123", got)
	}

	// A second match may not claim the same code.
	ctx := context.WithValue(f.ctx, runtime.RUNTIME_CTX_MATCH_ID, "match-2.nakama")
	state, _, _ := f.handler.MatchInit(ctx, noopLogger{}, nil, f.nk, map[string]interface{}{"creator": "bob", "code": "ABC123"})
	if state != nil {
		t.Fatal("MatchInit() with a taken code returned a state")
	}
}

func TestMatchJoinSeatsPlayers(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.nk.users["bob"] = &api.User{Id: "bob", Username: "bob", DisplayName: "Bobby"}

	f.join("alice", "Alice")

	joined := f.dispatcher.withOpCode(OpSeatJoined)
	if len(joined) != 1 || joined[0].to != nil {
		t.Fatalf("seat joined messages = %+v, want one broadcast", joined)
	}
	seat := decodeEvent[app.SeatJoinedPayload](t, joined[0].data).Seat
	if seat.DisplayName != "Alice" || !seat.IsHost {
		t.Fatalf("joined seat = %+v, want host Alice", seat)
	}
	syncs := f.dispatcher.withOpCode(OpStateSync)
	if len(syncs) != 1 || len(syncs[0].to) != 1 || syncs[0].to[0] != "alice" {
		t.Fatalf("state syncs = %+v, want one to alice", syncs)
	}

	f.join("bob", "")
	f.join("carol", "")

	names := []string{}
	for _, s := range f.state.Room.Seats {
		names = append(names, s.DisplayName)
	}
	want := []string{"Alice", "Bobby", "user_carol"}
	if len(names) != len(want) {
		t.Fatalf("seat names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("seat names = %v, want %v", names, want)
		}
	}

	if got := f.stored().Version; got != f.state.Room.Version {
		t.Fatalf("stored version = %d, want %d", got, f.state.Room.Version)
	}
	last := f.dispatcher.labels[len(f.dispatcher.labels)-1]
	s, err := parseMatchLabel(last)
	if err != nil {
		t.Fatalf("parseMatchLabel() error = %v", err)
	}
	if open := s.GetFields()[MatchLabelKey_OpenSeats].GetNumberValue(); open != float64(domain.DefaultMaxSeats-3) {
		t.Fatalf("label open = %v, want %d", open, domain.DefaultMaxSeats-3)
	}
}

func TestMatchStartDealsPrivately(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.join("alice", "Alice")
	f.join("bob", "Bob")
	f.dispatcher.reset()

	f.send("bob", OpStartGame, nil)
	errs := f.dispatcher.withOpCode(OpGameError)
	if len(errs) != 1 || errs[0].to[0] != "bob" {
		t.Fatalf("errors = %+v, want one to bob", errs)
	}
	if got := decodeEvent[GameErrorEvent](t, errs[0].data).Code; got != "not_host" {
		t.Fatalf("error code = %q, want not_host", got)
	}
	if f.state.Room.Status != domain.StatusLobby {
		t.Fatalf("status = %s, want lobby", f.state.Room.Status)
	}

	f.dispatcher.reset()
	f.send("alice", OpStartGame, nil)

	if f.state.Room.Status != domain.StatusActive {
		t.Fatalf("status = %s, want active", f.state.Room.Status)
	}
	if started := f.dispatcher.withOpCode(OpGameStarted); len(started) != 1 || started[0].to != nil {
		t.Fatalf("game started messages = %+v, want one broadcast", started)
	}
	dealt := f.dispatcher.withOpCode(OpHandDealt)
	if len(dealt) != 2 {
		t.Fatalf("hand dealt messages = %d, want 2", len(dealt))
	}
	for _, msg := range dealt {
		if len(msg.to) != 1 {
			t.Fatalf("hand dealt to %v, want a single recipient", msg.to)
		}
		payload := decodeEvent[app.HandDealtPayload](t, msg.data)
		seat, _ := f.state.Room.SeatByUser(msg.to[0])
		if payload.SeatID != seat.ID {
			t.Fatalf("hand for seat %s sent to %s", payload.SeatID, msg.to[0])
		}
		if len(payload.Hand) != 26 {
			t.Fatalf("hand size = %d, want 26", len(payload.Hand))
		}
	}
	if got := labelString(f.dispatcher.labels[len(f.dispatcher.labels)-1], MatchLabelKey_Status); got != string(domain.StatusActive) {
		t.Fatalf("label status = %q, want active", got)
	}
}

func TestMatchPlayAndChallenge(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.join("alice", "Alice")
	f.join("bob", "Bob")
	f.send("alice", OpStartGame, nil)

	current := f.state.Room.CurrentSeat()
	var other *domain.Seat
	for _, s := range f.state.Room.Seats {
		if s.ID != current.ID {
			other = s
		}
	}

	// The seat without the turn is refused.
	f.dispatcher.reset()
	otherCard := f.state.Room.Hand(other.ID)[0]
	f.send(other.UserID, OpPlayCards, map[string]any{"card_ids": []string{otherCard.ID}, "claimed_rank": "A"})
	errs := f.dispatcher.withOpCode(OpGameError)
	if len(errs) != 1 || errs[0].to[0] != other.UserID {
		t.Fatalf("errors = %+v, want one to %s", errs, other.UserID)
	}
	if got := decodeEvent[GameErrorEvent](t, errs[0].data).Code; got != "not_your_turn" {
		t.Fatalf("error code = %q, want not_your_turn", got)
	}

	// A truthful play survives the challenge and the challenger takes the pile.
	f.dispatcher.reset()
	card := f.state.Room.Hand(current.ID)[0]
	f.send(current.UserID, OpPlayCards, map[string]any{"move_id": "m-1", "card_ids": []string{card.ID}, "claimed_rank": string(card.Rank)})
	played := f.dispatcher.withOpCode(OpCardsPlayed)
	if len(played) != 1 {
		t.Fatalf("cards played messages = %d, want 1", len(played))
	}
	if p := decodeEvent[app.CardsPlayedPayload](t, played[0].data); p.MoveID != "m-1" || p.ClaimedRank != card.Rank {
		t.Fatalf("cards played = %+v", p)
	}

	f.dispatcher.reset()
	f.send(other.UserID, OpChallenge, map[string]any{"move_id": "c-1"})
	resolved := f.dispatcher.withOpCode(OpChallengeResolved)
	if len(resolved) != 1 {
		t.Fatalf("challenge resolved messages = %d, want 1", len(resolved))
	}
	p := decodeEvent[app.ChallengeResolvedPayload](t, resolved[0].data)
	if !p.Truthful || p.LoserSeatID != other.ID || p.AuthorSeatID != current.ID {
		t.Fatalf("challenge resolved = %+v, want truthful with loser %s", p, other.ID)
	}
	if got := f.state.Room.CardCount(other.ID); got != 27 {
		t.Fatalf("loser card count = %d, want 27", got)
	}
	if got := f.stored().Version; got != f.state.Room.Version {
		t.Fatalf("stored version = %d, want %d", got, f.state.Room.Version)
	}

	// Replaying the same move id is rejected.
	f.dispatcher.reset()
	f.send(other.UserID, OpChallenge, map[string]any{"move_id": "c-1"})
	if errs := f.dispatcher.withOpCode(OpGameError); len(errs) != 1 {
		t.Fatalf("errors after duplicate challenge = %d, want 1", len(errs))
	}
}

func TestMatchJoinAttempt(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.state.Room.Rules.MaxSeats = 2
	f.join("alice", "Alice")
	f.join("bob", "Bob")

	_, ok, reason := f.handler.MatchJoinAttempt(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, 0, f.state, testPresence{userID: "carol"}, nil)
	if ok || reason != "Match full" {
		t.Fatalf("MatchJoinAttempt(carol) = %v %q, want rejected as full", ok, reason)
	}

	f.send("alice", OpStartGame, nil)
	_, ok, reason = f.handler.MatchJoinAttempt(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, 0, f.state, testPresence{userID: "carol"}, nil)
	if ok || reason != "Game already started" {
		t.Fatalf("MatchJoinAttempt(carol) = %v %q, want rejected as started", ok, reason)
	}
	_, ok, _ = f.handler.MatchJoinAttempt(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, 0, f.state, testPresence{userID: "bob"}, nil)
	if !ok {
		t.Fatal("MatchJoinAttempt(bob) rejected a seated player")
	}
}

func TestMatchJoinReplacesBot(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.state.Room.Rules.MaxSeats = 2
	f.join("alice", "Alice")

	identity := bot.GetBotIdentity(0)
	agent, err := bot.NewAgent(identity, f.state.rng)
	if err != nil {
		t.Fatalf("NewAgent() error = %v", err)
	}
	if err := f.handler.apply(f.ctx, f.state, f.dispatcher, noopLogger{}, func() ([]app.Event, error) {
		return f.state.App.Join(f.state.Room, identity.UserID, identity.DisplayName)
	}); err != nil {
		t.Fatalf("Join(bot) error = %v", err)
	}
	f.state.Bots[identity.UserID] = agent

	f.join("bob", "Bob")

	if _, seated := f.state.Room.SeatByUser(identity.UserID); seated {
		t.Fatal("bot still seated after a human took its place")
	}
	if _, seated := f.state.Room.SeatByUser("bob"); !seated {
		t.Fatal("bob not seated")
	}
	if _, ok := f.state.Bots[identity.UserID]; ok {
		t.Fatal("bot agent not removed")
	}
}

func TestMatchLeave(t *testing.T) {
	t.Run("LobbyReleasesSeatAndLastLeaveDeletes", func(t *testing.T) {
		f := newMatchFixture(t, nil)
		f.join("alice", "Alice")
		f.join("bob", "Bob")

		state := f.handler.MatchLeave(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, 0, f.state, []runtime.Presence{testPresence{userID: "alice"}})
		if state == nil {
			t.Fatal("MatchLeave() ended the match with bob still connected")
		}
		if _, seated := f.state.Room.SeatByUser("alice"); seated {
			t.Fatal("alice still seated")
		}
		if f.state.Room.HostUserID != "bob" {
			t.Fatalf("host = %s, want bob", f.state.Room.HostUserID)
		}

		state = f.handler.MatchLeave(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, 0, f.state, []runtime.Presence{testPresence{userID: "bob"}})
		if state != nil {
			t.Fatal("MatchLeave() kept an empty match")
		}
		if _, err := NewNakamaRoomStore(f.nk).LoadRoom(f.ctx, f.state.Room.ID); !errors.Is(err, ports.ErrRoomNotFound) {
			t.Fatalf("LoadRoom() error = %v, want ErrRoomNotFound", err)
		}
	})

	t.Run("DisconnectKeepsSeatInGame", func(t *testing.T) {
		f := newMatchFixture(t, nil)
		f.join("alice", "Alice")
		f.join("bob", "Bob")
		f.send("alice", OpStartGame, nil)

		f.handler.MatchLeave(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, 0, f.state, []runtime.Presence{testPresence{userID: "bob"}})
		seat, seated := f.state.Room.SeatByUser("bob")
		if !seated || seat.Eliminated {
			t.Fatal("disconnect in a running game must keep the seat")
		}

		f.dispatcher.reset()
		f.join("bob", "")
		syncs := f.dispatcher.withOpCode(OpStateSync)
		if len(syncs) != 1 || syncs[0].to[0] != "bob" {
			t.Fatalf("state syncs on reconnect = %+v, want one to bob", syncs)
		}
		view := decodeEvent[app.StateSyncPayload](t, syncs[0].data).View
		if len(view.Hand) != 26 {
			t.Fatalf("reconnect hand = %d cards, want 26", len(view.Hand))
		}
	})

	t.Run("ExplicitLeaveForfeits", func(t *testing.T) {
		f := newMatchFixture(t, nil)
		f.join("alice", "Alice")
		f.join("bob", "Bob")
		f.join("carol", "Carol")
		f.send("alice", OpStartGame, nil)

		f.send("bob", OpLeaveRoom, nil)
		seat, seated := f.state.Room.SeatByUser("bob")
		if !seated || !seat.Eliminated {
			t.Fatal("leaving a running game must forfeit the seat")
		}
		if f.state.Room.Status != domain.StatusActive {
			t.Fatalf("status = %s, want active", f.state.Room.Status)
		}
	})

	t.Run("AbandonedGameWaitsForHumans", func(t *testing.T) {
		f := newMatchFixture(t, map[string]string{EnvBotsEnabled: "false", EnvAbandonedGraceSec: "3"})
		f.join("alice", "Alice")
		f.join("bob", "Bob")
		f.send("alice", OpStartGame, nil)
		everyone := []runtime.Presence{testPresence{userID: "alice"}, testPresence{userID: "bob"}}

		if state := f.handler.MatchLeave(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, f.tick, f.state, everyone); state == nil {
			t.Fatal("MatchLeave() ended a running game at once")
		}
		if !f.state.Abandoned {
			t.Fatal("game without humans not marked abandoned")
		}
		f.tick++
		if state := f.handler.MatchLoop(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, f.tick, f.state, nil); state == nil {
			t.Fatal("MatchLoop() ended the game inside the grace period")
		}

		f.join("bob", "")
		if f.state.Abandoned {
			t.Fatal("returning player did not revive the game")
		}
		f.handler.MatchLeave(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, f.tick, f.state, everyone[1:])

		var state interface{} = f.state
		for i := 0; i < 3 && state != nil; i++ {
			f.tick++
			state = f.handler.MatchLoop(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, f.tick, f.state, nil)
		}
		if state != nil {
			t.Fatal("MatchLoop() kept an abandoned game past the grace period")
		}
		if got := f.stored().Status; got != domain.StatusActive {
			t.Fatalf("stored status = %s, want the running game kept", got)
		}
	})

	t.Run("FinishedGameReleasesSeats", func(t *testing.T) {
		f := newMatchFixture(t, nil)
		f.join("alice", "Alice")
		f.join("bob", "Bob")
		f.send("alice", OpStartGame, nil)
		f.send("bob", OpLeaveRoom, nil)
		if f.state.Room.Status != domain.StatusComplete {
			t.Fatalf("status = %s, want complete", f.state.Room.Status)
		}

		if state := f.handler.MatchLeave(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, f.tick, f.state, []runtime.Presence{testPresence{userID: "alice"}}); state == nil {
			t.Fatal("MatchLeave() ended the match with bob still connected")
		}
		if _, seated := f.state.Room.SeatByUser("alice"); seated {
			t.Fatal("alice still seated in the finished game")
		}
		if state := f.handler.MatchLeave(f.ctx, noopLogger{}, nil, f.nk, f.dispatcher, f.tick, f.state, []runtime.Presence{testPresence{userID: "bob"}}); state != nil {
			t.Fatal("MatchLeave() kept a finished match without humans")
		}
		if _, err := NewNakamaRoomStore(f.nk).LoadRoom(f.ctx, f.state.Room.ID); !errors.Is(err, ports.ErrRoomNotFound) {
			t.Fatalf("LoadRoom() error = %v, want ErrRoomNotFound", err)
		}
	})
}

func TestBotsFillLobbyAndFinishGame(t *testing.T) {
	f := newMatchFixture(t, map[string]string{
		EnvBotsEnabled:         "true",
		EnvBotAutoFillDelaySec: "1",
		EnvBotMinDelaySec:      "1",
		EnvBotMaxDelaySec:      "1",
	})
	f.state.App = app.NewService(rand.New(rand.NewSource(11)))
	f.join("alice", "Alice")

	for i := 0; i < 3 && len(f.state.Room.Seats) < autoFillSeats; i++ {
		f.loop()
	}
	if got := len(f.state.Room.Seats); got != autoFillSeats {
		t.Fatalf("seats after auto-fill = %d, want %d", got, autoFillSeats)
	}
	if got := len(f.state.Bots); got != autoFillSeats-1 {
		t.Fatalf("bot agents = %d, want %d", got, autoFillSeats-1)
	}

	f.send("alice", OpStartGame, nil)
	f.send("alice", OpLeaveRoom, nil)

	for i := 0; i < 50000 && f.state.Room.Status == domain.StatusActive; i++ {
		f.loop()
	}
	if f.state.Room.Status != domain.StatusComplete {
		t.Fatalf("status = %s after bot play, want complete", f.state.Room.Status)
	}
	winner, ok := f.state.Room.SeatByID(f.state.Room.WinnerSeatID)
	if !ok || !bot.IsBot(winner.UserID) {
		t.Fatalf("winner = %+v, want a bot", winner)
	}
	if ended := f.dispatcher.withOpCode(OpGameEnded); len(ended) != 1 {
		t.Fatalf("game ended messages = %d, want 1", len(ended))
	}
	if got := f.stored().Status; got != domain.StatusComplete {
		t.Fatalf("stored status = %s, want complete", got)
	}
}

func TestApplyBotConfig(t *testing.T) {
	state := newMatchState(app.NewService(nil), nil, nil)
	state.applyBotConfig(config.BotConfig{Enabled: true, MinDelaySeconds: 4, MaxDelaySeconds: 2, AutoFillDelaySeconds: 9}, map[string]string{
		EnvBotMinDelaySec: "5",
		EnvBotsEnabled:    "false",
	})
	if state.BotsEnabled {
		t.Fatal("BotsEnabled = true, want env override to false")
	}
	if state.BotMinDelay != 5 || state.BotMaxDelay != 5 || state.BotAutoFillDelay != 9 {
		t.Fatalf("delays = %d/%d/%d, want 5/5/9", state.BotMinDelay, state.BotMaxDelay, state.BotAutoFillDelay)
	}
	if state.AbandonedGrace != abandonedGraceSeconds {
		t.Fatalf("AbandonedGrace = %d, want %d", state.AbandonedGrace, abandonedGraceSeconds)
	}
	state.applyBotConfig(config.BotConfig{}, map[string]string{EnvAbandonedGraceSec: "30"})
	if state.AbandonedGrace != 30 {
		t.Fatalf("AbandonedGrace = %d, want 30", state.AbandonedGrace)
	}
}
