package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bluff/internal/domain"
	"bluff/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// StorageAPI is the part of runtime.NakamaModule the room store needs.
type StorageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
}

// NakamaRoomStore implements ports.RoomStore on Nakama storage. Each room is
// one system-owned JSON object; a second object maps its join code to the
// room id.
type NakamaRoomStore struct {
	nk StorageAPI
}

// NewNakamaRoomStore creates a new room store adapter.
func NewNakamaRoomStore(nk StorageAPI) *NakamaRoomStore {
	return &NakamaRoomStore{nk: nk}
}

type roomCodeObject struct {
	RoomID string `json:"room_id"`
}

// CreateRoom writes the room and claims its join code in one batch. Both
// writes are create-only.
func (s *NakamaRoomStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	value, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	index, err := json.Marshal(roomCodeObject{RoomID: room.ID})
	if err != nil {
		return fmt.Errorf("marshal room code: %w", err)
	}

	existing, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{Collection: CollectionRoomCodes, Key: room.Code}})
	if err != nil {
		return fmt.Errorf("read room code: %w", err)
	}
	if len(existing) > 0 {
		return ports.ErrCodeTaken
	}

	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      CollectionRooms,
			Key:             room.ID,
			Value:           string(value),
			Version:         "*",
			PermissionRead:  0,
			PermissionWrite: 0,
		},
		{
			Collection:      CollectionRoomCodes,
			Key:             room.Code,
			Value:           string(index),
			Version:         "*",
			PermissionRead:  0,
			PermissionWrite: 0,
		},
	})
	if err != nil {
		if isVersionRejected(err) {
			return ports.ErrCodeTaken
		}
		return fmt.Errorf("write room: %w", err)
	}
	return nil
}

// LoadRoom returns the stored room.
func (s *NakamaRoomStore) LoadRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, _, err := s.read(ctx, roomID)
	return room, err
}

// FindRoomByCode resolves a join code through the code index.
func (s *NakamaRoomStore) FindRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{Collection: CollectionRoomCodes, Key: code}})
	if err != nil {
		return nil, fmt.Errorf("read room code: %w", err)
	}
	if len(objects) == 0 {
		return nil, ports.ErrRoomNotFound
	}
	var index roomCodeObject
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &index); err != nil {
		return nil, fmt.Errorf("unmarshal room code: %w", err)
	}
	return s.LoadRoom(ctx, index.RoomID)
}

// SaveRoom replaces the stored room if its version is still expectedVersion.
// The write carries the storage version it read, so a concurrent writer
// between the read and the write is rejected too.
func (s *NakamaRoomStore) SaveRoom(ctx context.Context, room *domain.Room, expectedVersion int64) error {
	stored, storageVersion, err := s.read(ctx, room.ID)
	if err != nil {
		return err
	}
	if stored.Version != expectedVersion {
		return ports.ErrVersionConflict
	}

	value, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      CollectionRooms,
		Key:             room.ID,
		Value:           string(value),
		Version:         storageVersion,
		PermissionRead:  0,
		PermissionWrite: 0,
	}})
	if err != nil {
		if isVersionRejected(err) {
			return ports.ErrVersionConflict
		}
		return fmt.Errorf("write room: %w", err)
	}
	return nil
}

// DeleteRoom removes the room and its code index. Missing rooms are ignored.
func (s *NakamaRoomStore) DeleteRoom(ctx context.Context, roomID string) error {
	room, _, err := s.read(ctx, roomID)
	if err == ports.ErrRoomNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	deletes := []*runtime.StorageDelete{
		{Collection: CollectionRooms, Key: roomID},
		{Collection: CollectionRoomCodes, Key: room.Code},
	}
	if err := s.nk.StorageDelete(ctx, deletes); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

func (s *NakamaRoomStore) read(ctx context.Context, roomID string) (*domain.Room, string, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{Collection: CollectionRooms, Key: roomID}})
	if err != nil {
		return nil, "", fmt.Errorf("read room: %w", err)
	}
	if len(objects) == 0 {
		return nil, "", ports.ErrRoomNotFound
	}
	room := &domain.Room{}
	if err := json.Unmarshal([]byte(objects[0].GetValue()), room); err != nil {
		return nil, "", fmt.Errorf("unmarshal room: %w", err)
	}
	return room, objects[0].GetVersion(), nil
}

// isVersionRejected matches the error Nakama returns when a conditional
// storage write fails its version check.
func isVersionRejected(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "version check failed")
}

var _ ports.RoomStore = (*NakamaRoomStore)(nil)
