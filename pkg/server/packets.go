package server

import (
	"github.com/osuAkatsuki/bancho-core/pkg/privileges"
	"github.com/osuAkatsuki/bancho-core/pkg/protocol"
)

// frame runs body through f, wraps it in a packet header for id, and
// returns the complete encoded frame. Kept as one helper so every builder
// below reads the same way as the teacher's packet-builder-closures-into-
// a-shared-buffer idiom (pkg/server/packet_handler.go), just generalized
// to the bancho header shape instead of VarInt framing.
func frame(id uint16, f func(w *protocol.Writer)) []byte {
	body := protocol.NewWriter()
	f(body)
	out := protocol.NewWriter()
	protocol.WritePacket(out, id, body.Bytes())
	return out.Bytes()
}

// PacketUserID builds the USER_ID login-result packet (§4.G). Negative
// ids are login failure codes (-1 auth failure, -2 old client, -3 banned,
// -4 banned, -5 error, -6 needs supporter, -7 password reset, -8 verify).
func PacketUserID(id int32) []byte {
	return frame(protocol.USER_ID, func(w *protocol.Writer) { w.WriteI32(id) })
}

// PacketBanchoPrivileges builds the BANCHO_PRIVILEGES packet (§4.G).
func PacketBanchoPrivileges(p privileges.ClientPrivileges) []byte {
	return frame(protocol.BANCHO_PRIVILEGES, func(w *protocol.Writer) { w.WriteI32(int32(p)) })
}

// PacketProtocolVersion builds the PROTOCOL_VERSION packet (§4.G).
func PacketProtocolVersion(version int32) []byte {
	return frame(protocol.PROTOCOL_VERSION, func(w *protocol.Writer) { w.WriteI32(version) })
}

// PacketNotification builds a NOTIFICATION popup packet.
func PacketNotification(msg string) []byte {
	return frame(protocol.NOTIFICATION, func(w *protocol.Writer) { w.WriteString(msg) })
}

// PacketMainMenuIcon builds the MAIN_MENU_ICON packet: an "image|url" pair.
func PacketMainMenuIcon(imageURL, clickURL string) []byte {
	return frame(protocol.MAIN_MENU_ICON, func(w *protocol.Writer) {
		w.WriteString(imageURL + "|" + clickURL)
	})
}

// PacketSilenceEnd builds the SILENCE_END packet: seconds remaining.
func PacketSilenceEnd(seconds int32) []byte {
	return frame(protocol.SILENCE_END, func(w *protocol.Writer) { w.WriteI32(seconds) })
}

// PacketUserSilenced builds the USER_SILENCED packet, notifying other
// clients that id has been silenced.
func PacketUserSilenced(id int32) []byte {
	return frame(protocol.USER_SILENCED, func(w *protocol.Writer) { w.WriteI32(id) })
}

// PacketRestart builds the RESTART packet, sent to an unknown-token
// request so the client knows to re-login (§4.H, §4.G).
func PacketRestart(ms int32) []byte {
	return frame(protocol.RESTART, func(w *protocol.Writer) { w.WriteI32(ms) })
}

// PacketUserLogout builds the USER_LOGOUT packet broadcast when a session
// disconnects (§4.I).
func PacketUserLogout(id int32) []byte {
	return frame(protocol.USER_LOGOUT, func(w *protocol.Writer) {
		w.WriteI32(id)
		w.WriteU8(0)
	})
}

// PacketMessage builds a SEND_MESSAGE frame.
func PacketMessage(sender, text, recipient string, senderID int32) []byte {
	return protocol.EncodeMessage(protocol.Message{Sender: sender, Text: text, Recipient: recipient, SenderID: senderID})
}

// PacketUserDMBlocked builds the USER_DM_BLOCKED packet, sent back to the
// sender when the recipient has blocked them or is refusing non-friend
// DMs (§4.D private message blocking).
func PacketUserDMBlocked(recipient string) []byte {
	return frame(protocol.USER_DM_BLOCKED, func(w *protocol.Writer) {
		protocol.WriteMessage(w, protocol.Message{Recipient: recipient})
	})
}

// PacketTargetSilenced builds the TARGET_IS_SILENCED packet, sent back to
// the sender when their DM target is silenced.
func PacketTargetSilenced(recipient string) []byte {
	return frame(protocol.TARGET_IS_SILENCED, func(w *protocol.Writer) {
		protocol.WriteMessage(w, protocol.Message{Recipient: recipient})
	})
}

// PacketChannelJoinSuccess builds the CHANNEL_JOIN_SUCCESS packet.
func PacketChannelJoinSuccess(name string) []byte {
	return frame(protocol.CHANNEL_JOIN_SUCCESS, func(w *protocol.Writer) { w.WriteString(name) })
}

// PacketChannelKick builds the CHANNEL_KICK packet.
func PacketChannelKick(name string) []byte {
	return frame(protocol.CHANNEL_KICK, func(w *protocol.Writer) { w.WriteString(name) })
}

// PacketChannelInfo builds a CHANNEL_INFO packet describing one channel
// (§4.C, §4.D channel_info broadcast).
func PacketChannelInfo(name, topic string, playerCount int16) []byte {
	return frame(protocol.CHANNEL_INFO, func(w *protocol.Writer) {
		w.WriteString(name)
		w.WriteString(topic)
		w.WriteI16(playerCount)
	})
}

// PacketChannelInfoEnd builds the CHANNEL_INFO_END sentinel sent after the
// last CHANNEL_INFO in a login bootstrap batch.
func PacketChannelInfoEnd() []byte {
	return frame(protocol.CHANNEL_INFO_END, func(w *protocol.Writer) { w.WriteI32(0) })
}

// UserPresencePayload is the fixed set of fields a user_presence packet
// carries for one player (§4.D, §4.G).
type UserPresencePayload struct {
	ID             int32
	Name           string
	UTCOffset      int8
	CountryCode    uint8
	ClientPriv     privileges.ClientPrivileges
	Mode           uint8
	Longitude      float32
	Latitude       float32
	Rank           int32
}

// PacketUserPresence builds a single USER_PRESENCE packet.
func PacketUserPresence(p UserPresencePayload) []byte {
	return frame(protocol.USER_PRESENCE, func(w *protocol.Writer) { writeUserPresence(w, p) })
}

func writeUserPresence(w *protocol.Writer, p UserPresencePayload) {
	w.WriteI32(p.ID)
	w.WriteString(p.Name)
	w.WriteU8(uint8(p.UTCOffset + 24))
	w.WriteU8(p.CountryCode)
	w.WriteU8(uint8(p.ClientPriv)<<2 | p.Mode)
	w.WriteF32(p.Longitude)
	w.WriteF32(p.Latitude)
	w.WriteI32(p.Rank)
}

// UserStatsPayload is the fixed set of fields a user_stats packet carries
// (§4.D).
type UserStatsPayload struct {
	ID          int32
	Action      uint8
	Info        string
	MapMD5      string
	Mods        int32
	Mode        uint8
	MapID       int32
	RankedScore int64
	Accuracy    float32
	Playcount   int32
	TotalScore  int64
	Rank        int32
	PP          int16
}

// PacketUserStats builds a single USER_STATS packet.
func PacketUserStats(p UserStatsPayload) []byte {
	return frame(protocol.USER_STATS, func(w *protocol.Writer) {
		w.WriteI32(p.ID)
		w.WriteU8(p.Action)
		w.WriteString(p.Info)
		w.WriteString(p.MapMD5)
		w.WriteI32(p.Mods)
		w.WriteU8(p.Mode)
		w.WriteI32(p.MapID)
		w.WriteI64(p.RankedScore)
		w.WriteF32(p.Accuracy)
		w.WriteI32(p.Playcount)
		w.WriteI64(p.TotalScore)
		w.WriteI32(p.Rank)
		w.WriteI16(p.PP)
	})
}

// PacketFriendsList builds the FRIENDS_LIST packet (§4.G bootstrap).
func PacketFriendsList(ids []int32) []byte {
	return frame(protocol.FRIENDS_LIST, func(w *protocol.Writer) { w.WriteIntList(ids) })
}

// PacketSpectatorJoined builds the SPECTATOR_JOINED packet sent to the
// host when guest starts spectating (§4.E).
func PacketSpectatorJoined(guestID int32) []byte {
	return frame(protocol.SPECTATOR_JOINED, func(w *protocol.Writer) { w.WriteI32(guestID) })
}

// PacketSpectatorLeft builds the SPECTATOR_LEFT packet.
func PacketSpectatorLeft(guestID int32) []byte {
	return frame(protocol.SPECTATOR_LEFT, func(w *protocol.Writer) { w.WriteI32(guestID) })
}

// PacketFellowSpectatorJoined builds the packet that tells existing
// spectators a new fellow spectator arrived.
func PacketFellowSpectatorJoined(guestID int32) []byte {
	return frame(protocol.FELLOW_SPECTATOR_JOINED, func(w *protocol.Writer) { w.WriteI32(guestID) })
}

// PacketFellowSpectatorLeft builds the fellow-spectator-left packet.
func PacketFellowSpectatorLeft(guestID int32) []byte {
	return frame(protocol.FELLOW_SPECTATOR_LEFT, func(w *protocol.Writer) { w.WriteI32(guestID) })
}

// PacketSpectateFrames builds a SPECTATE_FRAMES_SERVER relay packet,
// forwarding the raw frame bundle the client sent verbatim (§4.E: the
// server never interprets replay frame contents).
func PacketSpectateFrames(raw []byte) []byte {
	return frame(protocol.SPECTATE_FRAMES_SERVER, func(w *protocol.Writer) { w.WriteRaw(raw) })
}

// PacketSpectatorCantSpectate builds the packet announcing that guest's
// client can't spectate the current beatmap (§4.E CANT_SPECTATE).
func PacketSpectatorCantSpectate(guestID int32) []byte {
	return frame(protocol.SPECTATOR_CANT_SPECTATE, func(w *protocol.Writer) { w.WriteI32(guestID) })
}

// PacketNewMatch builds a NEW_MATCH packet announcing a room to the lobby.
func PacketNewMatch(m *Match) []byte {
	return frame(protocol.NEW_MATCH, func(w *protocol.Writer) { protocol.WriteMatch(w, m.Wire()) })
}

// PacketUpdateMatch builds an UPDATE_MATCH packet reflecting a room's
// current state to everyone inside it and the lobby.
func PacketUpdateMatch(m *Match) []byte {
	return frame(protocol.UPDATE_MATCH, func(w *protocol.Writer) { protocol.WriteMatch(w, m.Wire()) })
}

// PacketDisposeMatch builds the DISPOSE_MATCH packet sent when a room is
// torn down.
func PacketDisposeMatch(id int16) []byte {
	return frame(protocol.DISPOSE_MATCH, func(w *protocol.Writer) { w.WriteI32(int32(id)) })
}

// PacketMatchJoinSuccess builds the MATCH_JOIN_SUCCESS packet sent to a
// player who successfully joined a room.
func PacketMatchJoinSuccess(m *Match) []byte {
	return frame(protocol.MATCH_JOIN_SUCCESS, func(w *protocol.Writer) { protocol.WriteMatch(w, m.Wire()) })
}

// PacketMatchJoinFail builds the MATCH_JOIN_FAIL packet.
func PacketMatchJoinFail() []byte {
	return frame(protocol.MATCH_JOIN_FAIL, func(w *protocol.Writer) { w.WriteI32(0) })
}

// PacketMatchStart builds the MATCH_START_SERVER packet that kicks off
// gameplay for every slot that Match.Start moved to playing.
func PacketMatchStart(m *Match) []byte {
	return frame(protocol.MATCH_START_SERVER, func(w *protocol.Writer) { protocol.WriteMatch(w, m.Wire()) })
}

// PacketMatchTransferHost builds the MATCH_TRANSFER_HOST_SERVER packet.
func PacketMatchTransferHost() []byte {
	return frame(protocol.MATCH_TRANSFER_HOST_SERVER, func(w *protocol.Writer) {})
}

// PacketMatchAllPlayersLoaded builds the packet announcing that every
// playing slot has finished loading the beatmap.
func PacketMatchAllPlayersLoaded() []byte {
	return frame(protocol.MATCH_ALL_PLAYERS_LOADED, func(w *protocol.Writer) {})
}

// PacketMatchPlayerSkipped builds the packet announcing one player skipped
// the beatmap intro.
func PacketMatchPlayerSkipped(userID int32) []byte {
	return frame(protocol.MATCH_PLAYER_SKIPPED, func(w *protocol.Writer) { w.WriteI32(userID) })
}

// PacketMatchSkip builds the packet telling every playing slot to skip the
// intro once every playing player has requested it.
func PacketMatchSkip() []byte {
	return frame(protocol.MATCH_SKIP, func(w *protocol.Writer) {})
}

// PacketMatchPlayerFailed builds the packet announcing a player failed out
// of the current map.
func PacketMatchPlayerFailed(slot int32) []byte {
	return frame(protocol.MATCH_PLAYER_FAILED, func(w *protocol.Writer) { w.WriteI32(slot) })
}

// PacketMatchComplete builds the MATCH_COMPLETE_SERVER packet sent once
// every player has finished the map.
func PacketMatchComplete() []byte {
	return frame(protocol.MATCH_COMPLETE_SERVER, func(w *protocol.Writer) {})
}

// PacketMatchAbort builds the packet force-ending the current map.
func PacketMatchAbort() []byte {
	return frame(protocol.MATCH_ABORT, func(w *protocol.Writer) {})
}

// PacketMatchInvite builds the MATCH_INVITE_SERVER packet, a chat message
// shaped invite from inviterID to the recipient.
func PacketMatchInvite(inviterName, inviteText, recipient string, inviterID int32) []byte {
	return frame(protocol.MATCH_INVITE_SERVER, func(w *protocol.Writer) {
		protocol.WriteMessage(w, protocol.Message{Sender: inviterName, Text: inviteText, Recipient: recipient, SenderID: inviterID})
	})
}

// PacketAccountRestricted builds the ACCOUNT_RESTRICTED packet.
func PacketAccountRestricted() []byte {
	return frame(protocol.ACCOUNT_RESTRICTED, func(w *protocol.Writer) {})
}
