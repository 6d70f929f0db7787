package ports

import "context"

// ProfilePort reads public profile data of platform accounts.
type ProfilePort interface {
	// DisplayName returns the account's display name, or its username when no
	// display name is set.
	DisplayName(ctx context.Context, userID string) (string, error)
}
