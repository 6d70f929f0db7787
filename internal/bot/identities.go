package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

type BotIdentity struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Strategy    string `json:"strategy"` // "honest", "bluffer", "sharp"
	AvatarIndex int    `json:"avatar_index"`
}

// botNamespace derives stable user ids for the built-in bot pool.
var botNamespace = uuid.MustParse("6f0c5a0e-3d39-4d8e-9a53-0b8f5e2c1d47")

var (
	mu                sync.RWMutex
	botIdentities     []BotIdentity
	botIDMap          map[string]bool
	botDisplayNameMap map[string]string
	botConfigMap      map[string]BotIdentity
	loadOnce          sync.Once
	provisionOnce     sync.Once
	loadErr           error
)

func init() {
	useIdentities(DefaultIdentities())
}

// DefaultIdentities is the built-in pool used until LoadIdentities succeeds.
func DefaultIdentities() []BotIdentity {
	names := []string{"Ace", "Deuce", "Jack", "Queenie", "Kingston", "Tenley", "Trey", "Sevens"}
	strategies := []string{StrategyHonest, StrategyBluffer, StrategySharp}
	identities := make([]BotIdentity, len(names))
	for i, name := range names {
		identities[i] = BotIdentity{
			DeviceID:    fmt.Sprintf("bluff-bot-device-%02d", i),
			UserID:      uuid.NewSHA1(botNamespace, []byte(name)).String(),
			Username:    fmt.Sprintf("bot_%02d", i),
			DisplayName: name + " (bot)",
			Strategy:    strategies[i%len(strategies)],
			AvatarIndex: i,
		}
	}
	return identities
}

// LoadIdentities loads the bot profiles from the given path.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}

		var identities []BotIdentity
		if err := json.Unmarshal(data, &identities); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}
		if len(identities) == 0 {
			loadErr = fmt.Errorf("bot identities file %s is empty", path)
			return
		}
		useIdentities(identities)
	})
	return loadErr
}

// AssignStrategies gives identities without a strategy one from the list,
// round robin.
func AssignStrategies(strategies []string) {
	if len(strategies) == 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	for i := range botIdentities {
		if botIdentities[i].Strategy == "" {
			botIdentities[i].Strategy = strategies[i%len(strategies)]
			mapIdentity(botIdentities[i])
		}
	}
}

func useIdentities(identities []BotIdentity) {
	mu.Lock()
	defer mu.Unlock()
	botIdentities = identities
	botIDMap = make(map[string]bool)
	botDisplayNameMap = make(map[string]string)
	botConfigMap = make(map[string]BotIdentity)
	for _, identity := range botIdentities {
		if identity.UserID != "" {
			mapIdentity(identity)
		}
	}
}

func mapIdentity(identity BotIdentity) {
	botIDMap[identity.UserID] = true
	botDisplayNameMap[identity.UserID] = identity.DisplayName
	botConfigMap[identity.UserID] = identity
}

// ProvisionBots ensures that bot accounts exist in the Nakama database and have the is_bot metadata.
func ProvisionBots(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) {
	provisionOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		for i := range botIdentities {
			identity := &botIdentities[i]
			if identity.DeviceID == "" {
				continue
			}

			userID, username, _, err := nk.AuthenticateDevice(ctx, identity.DeviceID, identity.Username, true)
			if err != nil {
				logger.Error("ProvisionBots: Failed to authenticate bot %s: %v", identity.Username, err)
				continue
			}

			delete(botIDMap, identity.UserID)
			identity.UserID = userID
			identity.Username = username

			metadata := map[string]interface{}{
				"is_bot":       true,
				"strategy":     identity.Strategy,
				"avatar_index": identity.AvatarIndex,
			}
			if err := nk.AccountUpdateId(ctx, userID, identity.Username, metadata, identity.DisplayName, "", "", "", ""); err != nil {
				logger.Warn("ProvisionBots: Failed to update bot account %s: %v", userID, err)
			}

			mapIdentity(*identity)
			logger.Info("ProvisionBots: Bot %s (%s) is ready. Strategy: %s", identity.DisplayName, userID, identity.Strategy)
		}
	})
}

// GetBotConfig returns the full identity configuration for a given bot ID.
func GetBotConfig(userID string) (BotIdentity, bool) {
	mu.RLock()
	defer mu.RUnlock()
	config, ok := botConfigMap[userID]
	return config, ok
}

// GetBotDisplayName returns the display name for a bot ID, or an empty string if not a bot.
func GetBotDisplayName(userID string) string {
	mu.RLock()
	defer mu.RUnlock()
	return botDisplayNameMap[userID]
}

// GetBotIdentity returns an identity for a bot by index (mod pool size).
func GetBotIdentity(index int) BotIdentity {
	mu.RLock()
	defer mu.RUnlock()
	if len(botIdentities) == 0 {
		return BotIdentity{
			UserID:      fmt.Sprintf("bot-%d", index),
			DisplayName: fmt.Sprintf("AI Player %d", index),
			Strategy:    StrategyHonest,
		}
	}
	return botIdentities[index%len(botIdentities)]
}

// PoolSize returns how many bot identities are available.
func PoolSize() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(botIdentities)
}

// IsBot reports whether the given user ID belongs to the bot pool.
func IsBot(userID string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return botIDMap[userID]
}
