package nakama

import (
	"encoding/json"
	"fmt"

	"bluff/internal/app"
	"bluff/internal/domain"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Match messages travel as a binary google.protobuf.Struct whose fields follow
// the JSON names of the app payloads.

var eventOpCodes = map[app.EventKind]int64{
	app.EventStateSync:         OpStateSync,
	app.EventSeatJoined:        OpSeatJoined,
	app.EventSeatLeft:          OpSeatLeft,
	app.EventGameStarted:       OpGameStarted,
	app.EventHandDealt:         OpHandDealt,
	app.EventCardsPlayed:       OpCardsPlayed,
	app.EventChallengeResolved: OpChallengeResolved,
	app.EventGameEnded:         OpGameEnded,
}

// GameErrorEvent is sent to the sender of a rejected message.
type GameErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type playCardsRequest struct {
	MoveID  string
	CardIDs []string
	Claim   string
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return s, nil
}

func encodeMessage(v any) ([]byte, error) {
	s, err := toStruct(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func decodeMessage(data []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return s, nil
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func stringListField(s *structpb.Struct, key string) []string {
	values := s.GetFields()[key].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStringValue())
	}
	return out
}

func decodePlayCards(data []byte) (playCardsRequest, error) {
	s, err := decodeMessage(data)
	if err != nil {
		return playCardsRequest{}, err
	}
	return playCardsRequest{
		MoveID:  stringField(s, "move_id"),
		CardIDs: stringListField(s, "card_ids"),
		Claim:   stringField(s, "claimed_rank"),
	}, nil
}

func decodeMoveID(data []byte) (string, error) {
	s, err := decodeMessage(data)
	if err != nil {
		return "", err
	}
	return stringField(s, "move_id"), nil
}

// openSeats is how many more players a lobby accepts; zero once it started.
func openSeats(room *domain.Room) int {
	if room == nil || room.Status != domain.StatusLobby {
		return 0
	}
	open := room.Rules.Normalize().MaxSeats - len(room.Seats)
	if open < 0 {
		return 0
	}
	return open
}

// matchLabel renders the JSON label Nakama indexes for match listing.
func matchLabel(room *domain.Room) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKey_OpenSeats: openSeats(room),
		MatchLabelKey_Status:    string(room.Status),
		MatchLabelKey_Code:      room.Code,
		MatchLabelKey_Game:      GameName,
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

// parseMatchLabel reads a label written by matchLabel.
func parseMatchLabel(label string) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal([]byte(label), s); err != nil {
		return nil, fmt.Errorf("unmarshal label: %w", err)
	}
	return s, nil
}
