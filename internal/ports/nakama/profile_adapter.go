package nakama

import (
	"context"
	"fmt"

	"bluff/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
)

// UsersAPI is the part of runtime.NakamaModule the profile adapter needs.
type UsersAPI interface {
	UsersGetId(ctx context.Context, userIDs []string, facebookIDs []string) ([]*api.User, error)
}

// NakamaProfileAdapter implements ports.ProfilePort using Nakama's user API.
type NakamaProfileAdapter struct {
	nk UsersAPI
}

// NewNakamaProfileAdapter creates a new profile adapter.
func NewNakamaProfileAdapter(nk UsersAPI) *NakamaProfileAdapter {
	return &NakamaProfileAdapter{nk: nk}
}

// DisplayName returns the account display name, falling back to the username.
func (a *NakamaProfileAdapter) DisplayName(ctx context.Context, userID string) (string, error) {
	users, err := a.nk.UsersGetId(ctx, []string{userID}, nil)
	if err != nil {
		return "", fmt.Errorf("get user %s: %w", userID, err)
	}
	if len(users) == 0 {
		return "", fmt.Errorf("user %s not found", userID)
	}
	if name := users[0].GetDisplayName(); name != "" {
		return name, nil
	}
	return users[0].GetUsername(), nil
}

var _ ports.ProfilePort = (*NakamaProfileAdapter)(nil)
