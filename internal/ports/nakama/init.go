package nakama

import (
	"context"
	"database/sql"

	"bluff/internal/app/invite"
	"bluff/internal/bot"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg := loadGameConfig(env, logger)

	issuer := env[EnvInviteIssuer]
	if issuer == "" {
		issuer = GameName
	}
	inviteService = invite.NewService(env[EnvInviteSecret], issuer, cfg.InviteTTL())
	if env[EnvInviteSecret] == "" {
		logger.Warn("%s is not set; invites are disabled.", EnvInviteSecret)
	}

	if path := env[EnvBotIdentities]; path != "" {
		if err := bot.LoadIdentities(path); err != nil {
			logger.Warn("Could not load bot identities: %v", err)
		}
	}
	bot.AssignStrategies(cfg.Bots.Strategies)
	if cfg.Bots.Enabled || env[EnvBotsEnabled] == "true" {
		bot.ProvisionBots(ctx, nk, logger)
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameBluff, NewMatch); err != nil {
		return err
	}

	logger.Info("Bluff Go module loaded.")
	return nil
}
