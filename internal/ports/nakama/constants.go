package nakama

const (
	// RPC ids clients call.
	RpcCreateRoom   = "create_room"
	RpcJoinRoom     = "join_room"
	RpcCreateInvite = "create_invite"

	// MatchNameBluff is the authoritative match handler name registered with Nakama.
	MatchNameBluff = "bluff_match"

	// GameName is the label value that tells bluff matches apart.
	GameName = "bluff"
)

// Keys of the JSON match label, queryable as label.<key>.
const (
	MatchLabelKey_OpenSeats = "open"
	MatchLabelKey_Status    = "status"
	MatchLabelKey_Code      = "code"
	MatchLabelKey_Game      = "game"
)

// Storage collections. Objects are owned by the system user.
const (
	CollectionRooms     = "bluff_rooms"
	CollectionRoomCodes = "bluff_room_codes"
)

// Runtime environment keys.
const (
	EnvInviteSecret        = "bluff_invite_secret"
	EnvInviteIssuer        = "bluff_invite_issuer"
	EnvGameConfig          = "bluff_game_config"
	EnvBotIdentities       = "bluff_bot_identities"
	EnvBotsEnabled         = "bluff_bots_enabled"
	EnvBotMinDelaySec      = "bluff_bot_min_delay_sec"
	EnvBotMaxDelaySec      = "bluff_bot_max_delay_sec"
	EnvBotAutoFillDelaySec = "bluff_bot_auto_fill_delay_sec"
	EnvAbandonedGraceSec   = "bluff_abandoned_grace_sec"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame int64 = 1
	OpPlayCards int64 = 2
	OpChallenge int64 = 3
	OpLeaveRoom int64 = 4
	OpSyncState int64 = 5

	// Server -> Client events
	OpStateSync         int64 = 101 // sent privately
	OpSeatJoined        int64 = 102
	OpSeatLeft          int64 = 103
	OpGameStarted       int64 = 104
	OpHandDealt         int64 = 105 // sent privately
	OpCardsPlayed       int64 = 106
	OpChallengeResolved int64 = 107
	OpGameEnded         int64 = 108
	OpGameError         int64 = 109 // sent privately
)
