package nakama

import (
	"context"
	"errors"
	"testing"

	"bluff/internal/app"
	"bluff/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
)

func TestNakamaRoomStore(t *testing.T) {
	ctx := context.Background()
	nk := newFakeNK()
	store := NewNakamaRoomStore(nk)
	svc := app.NewService(nil)

	room := svc.NewRoom("room-1", "CODE01", "alice")
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if err := store.CreateRoom(ctx, svc.NewRoom("room-2", "CODE01", "bob")); !errors.Is(err, ports.ErrCodeTaken) {
		t.Fatalf("CreateRoom() with taken code error = %v, want ErrCodeTaken", err)
	}
	if _, err := store.LoadRoom(ctx, "room-2"); !errors.Is(err, ports.ErrRoomNotFound) {
		t.Fatalf("rejected room was stored: %v", err)
	}

	before := room.Version
	if _, err := svc.Join(room, "alice", "Alice"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if err := store.SaveRoom(ctx, room, before); err != nil {
		t.Fatalf("SaveRoom() error = %v", err)
	}
	if err := store.SaveRoom(ctx, room, before); !errors.Is(err, ports.ErrVersionConflict) {
		t.Fatalf("SaveRoom() with stale version error = %v, want ErrVersionConflict", err)
	}

	found, err := store.FindRoomByCode(ctx, "CODE01")
	if err != nil {
		t.Fatalf("FindRoomByCode() error = %v", err)
	}
	if found.Version != room.Version || len(found.Seats) != 1 || found.Seats[0].DisplayName != "Alice" {
		t.Fatalf("FindRoomByCode() = %+v", found)
	}

	if err := store.DeleteRoom(ctx, "room-1"); err != nil {
		t.Fatalf("DeleteRoom() error = %v", err)
	}
	if err := store.DeleteRoom(ctx, "room-1"); err != nil {
		t.Fatalf("second DeleteRoom() error = %v", err)
	}
	if _, err := store.FindRoomByCode(ctx, "CODE01"); !errors.Is(err, ports.ErrRoomNotFound) {
		t.Fatalf("FindRoomByCode() after delete error = %v", err)
	}
	if len(nk.objects) != 0 {
		t.Fatalf("objects left after delete: %d", len(nk.objects))
	}
}

func TestNakamaProfileAdapter(t *testing.T) {
	nk := newFakeNK()
	nk.users["u1"] = &api.User{Id: "u1", Username: "ann", DisplayName: "Ann"}
	nk.users["u2"] = &api.User{Id: "u2", Username: "ben"}
	profiles := NewNakamaProfileAdapter(nk)

	tests := []struct {
		userID  string
		want    string
		wantErr bool
	}{
		{userID: "u1", want: "Ann"},
		{userID: "u2", want: "ben"},
		{userID: "u3", wantErr: true},
	}
	for _, test := range tests {
		got, err := profiles.DisplayName(context.Background(), test.userID)
		if (err != nil) != test.wantErr {
			t.Fatalf("DisplayName(%s) error = %v, wantErr %v", test.userID, err, test.wantErr)
		}
		if got != test.want {
			t.Fatalf("DisplayName(%s) = %q, want %q", test.userID, got, test.want)
		}
	}
}
