package protocol

// ClientPacket identifiers, as sent by the osu! client. Numeric values
// and names follow the real bancho wire protocol and MUST be preserved
// exactly for client compatibility (§6).
const (
	CHANGE_ACTION           uint16 = 0
	SEND_PUBLIC_MESSAGE     uint16 = 1
	LOGOUT                  uint16 = 2
	REQUEST_STATUS_UPDATE   uint16 = 3
	PING                    uint16 = 4
	START_SPECTATING        uint16 = 16
	STOP_SPECTATING         uint16 = 17
	SPECTATE_FRAMES         uint16 = 18
	ERROR_REPORT            uint16 = 20
	CANT_SPECTATE           uint16 = 21
	SEND_PRIVATE_MESSAGE    uint16 = 25
	PART_LOBBY              uint16 = 29
	JOIN_LOBBY              uint16 = 30
	CREATE_MATCH            uint16 = 31
	JOIN_MATCH              uint16 = 32
	PART_MATCH              uint16 = 33
	MATCH_CHANGE_SLOT       uint16 = 38
	MATCH_READY             uint16 = 39
	MATCH_LOCK              uint16 = 40
	MATCH_CHANGE_SETTINGS   uint16 = 41
	MATCH_START             uint16 = 44
	MATCH_SCORE_UPDATE      uint16 = 47
	MATCH_COMPLETE          uint16 = 49
	MATCH_CHANGE_MODS       uint16 = 51
	MATCH_LOAD_COMPLETE     uint16 = 52
	MATCH_NO_BEATMAP        uint16 = 54
	MATCH_NOT_READY         uint16 = 55
	MATCH_FAILED            uint16 = 56
	MATCH_HAS_BEATMAP       uint16 = 59
	MATCH_SKIP_REQUEST      uint16 = 60
	CHANNEL_JOIN            uint16 = 63
	BEATMAP_INFO_REQUEST    uint16 = 68
	MATCH_TRANSFER_HOST     uint16 = 70
	FRIEND_ADD              uint16 = 73
	FRIEND_REMOVE           uint16 = 74
	MATCH_CHANGE_TEAM       uint16 = 77
	CHANNEL_PART            uint16 = 78
	RECEIVE_UPDATES         uint16 = 79
	SET_AWAY_MESSAGE        uint16 = 82
	USER_STATS_REQUEST      uint16 = 85
	MATCH_INVITE            uint16 = 87
	MATCH_CHANGE_PASSWORD   uint16 = 90
	TOURNAMENT_MATCH_INFO_REQUEST  uint16 = 93
	USER_PRESENCE_REQUEST          uint16 = 97
	USER_PRESENCE_REQUEST_ALL      uint16 = 98
	TOGGLE_BLOCK_NON_FRIEND_DMS    uint16 = 99
	TOURNAMENT_JOIN_MATCH_CHANNEL  uint16 = 108
	TOURNAMENT_LEAVE_MATCH_CHANNEL uint16 = 109
)

// ServerPacket identifiers, as sent to the osu! client.
const (
	USER_ID                  uint16 = 5
	SEND_MESSAGE             uint16 = 7
	PONG                     uint16 = 8
	USER_STATS               uint16 = 11
	USER_LOGOUT              uint16 = 12
	SPECTATOR_JOINED         uint16 = 13
	SPECTATOR_LEFT           uint16 = 14
	SPECTATE_FRAMES_SERVER   uint16 = 15
	VERSION_UPDATE           uint16 = 19
	SPECTATOR_CANT_SPECTATE  uint16 = 22
	NOTIFICATION             uint16 = 24
	UPDATE_MATCH             uint16 = 26
	NEW_MATCH                uint16 = 27
	DISPOSE_MATCH            uint16 = 28
	MATCH_JOIN_SUCCESS       uint16 = 36
	MATCH_JOIN_FAIL          uint16 = 37
	FELLOW_SPECTATOR_JOINED  uint16 = 42
	FELLOW_SPECTATOR_LEFT    uint16 = 43
	MATCH_START_SERVER       uint16 = 46
	MATCH_SCORE_UPDATE_SERVER uint16 = 48
	MATCH_TRANSFER_HOST_SERVER uint16 = 50
	MATCH_ALL_PLAYERS_LOADED uint16 = 53
	MATCH_PLAYER_FAILED      uint16 = 57
	MATCH_COMPLETE_SERVER    uint16 = 58
	MATCH_SKIP               uint16 = 61
	CHANNEL_JOIN_SUCCESS     uint16 = 64
	CHANNEL_INFO             uint16 = 65
	CHANNEL_KICK             uint16 = 66
	CHANNEL_AUTO_JOIN        uint16 = 67
	BEATMAP_INFO_REPLY       uint16 = 69
	BANCHO_PRIVILEGES        uint16 = 71
	FRIENDS_LIST             uint16 = 72
	PROTOCOL_VERSION         uint16 = 75
	MAIN_MENU_ICON           uint16 = 76
	MATCH_PLAYER_SKIPPED     uint16 = 81
	USER_PRESENCE            uint16 = 83
	RESTART                  uint16 = 86
	MATCH_INVITE_SERVER      uint16 = 88
	CHANNEL_INFO_END         uint16 = 89
	MATCH_CHANGE_PASSWORD_SERVER uint16 = 91
	SILENCE_END              uint16 = 92
	USER_SILENCED            uint16 = 94
	USER_PRESENCE_SINGLE     uint16 = 95
	USER_PRESENCE_BUNDLE     uint16 = 96
	USER_DM_BLOCKED          uint16 = 100
	TARGET_IS_SILENCED       uint16 = 101
	VERSION_UPDATE_FORCED    uint16 = 102
	SWITCH_SERVER            uint16 = 103
	ACCOUNT_RESTRICTED       uint16 = 104
	MATCH_ABORT              uint16 = 106
	SWITCH_TOURNAMENT_SERVER uint16 = 107
)
