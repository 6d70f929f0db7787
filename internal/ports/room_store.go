package ports

import (
	"context"
	"errors"

	"bluff/internal/domain"
)

var (
	// ErrRoomNotFound is returned when no room matches the lookup.
	ErrRoomNotFound = errors.New("room not found")
	// ErrVersionConflict is returned when a room changed since it was loaded.
	ErrVersionConflict = errors.New("room version conflict")
	// ErrCodeTaken is returned when a new room reuses a live join code.
	ErrCodeTaken = errors.New("join code already in use")
)

// RoomStore persists room state: the room row, its seats, its cards and the
// move log.
type RoomStore interface {
	// CreateRoom stores a new room with everything it holds.
	CreateRoom(ctx context.Context, room *domain.Room) error

	// LoadRoom returns the full state of a room.
	LoadRoom(ctx context.Context, roomID string) (*domain.Room, error)

	// FindRoomByCode resolves a join code to its room.
	FindRoomByCode(ctx context.Context, code string) (*domain.Room, error)

	// SaveRoom writes room only if the stored version still equals
	// expectedVersion, otherwise it returns ErrVersionConflict.
	SaveRoom(ctx context.Context, room *domain.Room, expectedVersion int64) error

	// DeleteRoom removes the room with its cards, moves and seats.
	DeleteRoom(ctx context.Context, roomID string) error
}
