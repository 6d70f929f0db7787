package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"bluff/internal/domain"
)

// BotConfig tunes the computer players of the Nakama runtime.
type BotConfig struct {
	Enabled bool `json:"enabled"`
	// AutoFillDelaySeconds configures how many seconds to wait before adding a bot to a solo human lobby.
	AutoFillDelaySeconds int `json:"auto_fill_delay_seconds"`
	MinDelaySeconds      int `json:"min_delay_seconds"`
	MaxDelaySeconds      int `json:"max_delay_seconds"`
	// Strategies lists the strategies handed out to bots in rotation.
	Strategies []string `json:"strategies"`
}

type GameConfig struct {
	MinSeats         int       `json:"min_seats"`
	MaxSeats         int       `json:"max_seats"`
	RemainderPolicy  string    `json:"remainder_policy"`
	ChallengePolicy  string    `json:"challenge_policy"`
	LogViewLimit     int       `json:"log_view_limit"`
	InviteTTLSeconds int       `json:"invite_ttl_seconds"`
	Bots             BotConfig `json:"bots"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// DefaultGameConfig returns the configuration used when no file is loaded.
func DefaultGameConfig() *GameConfig {
	rules := domain.DefaultRules()
	return &GameConfig{
		MinSeats:         rules.MinSeats,
		MaxSeats:         rules.MaxSeats,
		RemainderPolicy:  string(rules.Remainder),
		ChallengePolicy:  string(rules.Challenge),
		LogViewLimit:     rules.LogViewLimit,
		InviteTTLSeconds: 24 * 60 * 60,
		Bots: BotConfig{
			AutoFillDelaySeconds: 15,
			MinDelaySeconds:      1,
			MaxDelaySeconds:      3,
			Strategies:           []string{"honest", "bluffer", "sharp"},
		},
	}
}

// ParseGameConfig decodes a JSON config on top of the defaults, so a file only
// needs the keys it changes.
func ParseGameConfig(data []byte) (*GameConfig, error) {
	c := DefaultGameConfig()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if c.Bots.MaxDelaySeconds < c.Bots.MinDelaySeconds {
		c.Bots.MaxDelaySeconds = c.Bots.MinDelaySeconds
	}
	return c, nil
}

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		cfg, loadErr = ParseGameConfig(data)
	})
	return loadErr
}

// GetGameConfig returns the global game configuration, or the defaults when
// nothing was loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		return DefaultGameConfig()
	}
	return cfg
}

// Rules converts the configured house rules into domain rules.
func (c *GameConfig) Rules() domain.Rules {
	return domain.Rules{
		MinSeats:     c.MinSeats,
		MaxSeats:     c.MaxSeats,
		Remainder:    domain.RemainderPolicy(c.RemainderPolicy),
		Challenge:    domain.ChallengePolicy(c.ChallengePolicy),
		LogViewLimit: c.LogViewLimit,
	}.Normalize()
}

// InviteTTL is the configured invite lifetime.
func (c *GameConfig) InviteTTL() time.Duration {
	return time.Duration(c.InviteTTLSeconds) * time.Second
}
