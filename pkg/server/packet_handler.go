package server

import (
	"context"
	"fmt"
	"time"

	"github.com/osuAkatsuki/bancho-core/pkg/channel"
	"github.com/osuAkatsuki/bancho-core/pkg/chat"
	"github.com/osuAkatsuki/bancho-core/pkg/protocol"
)

// HandlerFunc processes one decoded packet for sess (§3 "Packet maps").
type HandlerFunc func(srv *Server, sess *Session, pkt protocol.Packet) error

// packetTable maps a packet id to its handler. Two tables exist per §3:
// "all" (every id a fully-privileged session may send) and "restricted"
// (the subset a restricted session may still send — chat read-only
// actions, logout, pings; nothing that touches multiplayer or presence).
type packetTable map[uint16]HandlerFunc

// allPacketTable is the dispatch table for unrestricted sessions,
// following the teacher's switch-based dispatch (pkg/server/packet_handler.go)
// generalized into a map so the HTTP front door can pick "all" vs
// "restricted" without a second switch statement.
func allPacketTable() packetTable {
	return packetTable{
		protocol.CHANGE_ACTION:         handleChangeAction,
		protocol.SEND_PUBLIC_MESSAGE:   handlePublicMessage,
		protocol.SEND_PRIVATE_MESSAGE:  handlePrivateMessage,
		protocol.LOGOUT:                handleLogout,
		protocol.REQUEST_STATUS_UPDATE: handleStatusUpdateRequest,
		protocol.PING:                  handlePing,
		protocol.START_SPECTATING:      handleStartSpectating,
		protocol.STOP_SPECTATING:       handleStopSpectating,
		protocol.SPECTATE_FRAMES:       handleSpectateFrames,
		protocol.CANT_SPECTATE:         handleCantSpectate,
		protocol.CHANNEL_JOIN:          handleChannelJoin,
		protocol.CHANNEL_PART:          handleChannelPart,
		protocol.PART_LOBBY:            handlePartLobby,
		protocol.JOIN_LOBBY:            handleJoinLobby,
		protocol.CREATE_MATCH:          handleCreateMatch,
		protocol.JOIN_MATCH:            handleJoinMatch,
		protocol.PART_MATCH:            handlePartMatch,
		protocol.MATCH_CHANGE_SLOT:     handleMatchChangeSlot,
		protocol.MATCH_READY:           handleMatchReady(true),
		protocol.MATCH_NOT_READY:       handleMatchReady(false),
		protocol.MATCH_LOCK:            handleMatchLock,
		protocol.MATCH_CHANGE_SETTINGS: handleMatchChangeSettings,
		protocol.MATCH_START:           handleMatchStart,
		protocol.MATCH_SCORE_UPDATE:    handleMatchScoreUpdate,
		protocol.MATCH_COMPLETE:        handleMatchComplete,
		protocol.MATCH_CHANGE_MODS:     handleMatchChangeMods,
		protocol.MATCH_LOAD_COMPLETE:   handleMatchLoadComplete,
		protocol.MATCH_FAILED:          handleMatchFailed,
		protocol.MATCH_SKIP_REQUEST:    handleMatchSkipRequest,
		protocol.MATCH_TRANSFER_HOST:   handleMatchTransferHost,
		protocol.MATCH_CHANGE_TEAM:     handleMatchChangeTeam,
		protocol.MATCH_CHANGE_PASSWORD: handleMatchChangePassword,
		protocol.FRIEND_ADD:            handleFriendAdd,
		protocol.FRIEND_REMOVE:         handleFriendRemove,
		protocol.SET_AWAY_MESSAGE:      handleSetAwayMessage,
		protocol.USER_STATS_REQUEST:    handleUserStatsRequest,
		protocol.USER_PRESENCE_REQUEST: handleUserPresenceRequest,
		protocol.USER_PRESENCE_REQUEST_ALL:   handleUserPresenceRequestAll,
		protocol.TOGGLE_BLOCK_NON_FRIEND_DMS: handleToggleBlockNonFriendDMs,
		protocol.RECEIVE_UPDATES:             handleReceiveUpdates,
		protocol.MATCH_INVITE:                   handleMatchInvite,
		protocol.TOURNAMENT_MATCH_INFO_REQUEST:  handleTournamentMatchInfoRequest,
		protocol.TOURNAMENT_JOIN_MATCH_CHANNEL:  handleTournamentJoinMatchChannel,
		protocol.TOURNAMENT_LEAVE_MATCH_CHANNEL: handleTournamentLeaveMatchChannel,
	}
}

// restrictedPacketTable is the dispatch table for restricted sessions
// (§3, §7 PermissionError): logout, pings, and read-only chat-adjacent
// actions remain available so a restricted player can still see why
// they're restricted and talk to staff.
func restrictedPacketTable() packetTable {
	return packetTable{
		protocol.LOGOUT:                handleLogout,
		protocol.PING:                  handlePing,
		protocol.REQUEST_STATUS_UPDATE: handleStatusUpdateRequest,
		protocol.CHANGE_ACTION:         handleChangeAction,
		protocol.SEND_PRIVATE_MESSAGE:  handlePrivateMessage,
	}
}

func handlePing(srv *Server, sess *Session, pkt protocol.Packet) error { return nil }

func handleChangeAction(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	action, err := r.ReadU8()
	if err != nil {
		return ProtocolError("change_action", err)
	}
	info, err := r.ReadString()
	if err != nil {
		return ProtocolError("change_action", err)
	}
	mapMD5, err := r.ReadString()
	if err != nil {
		return ProtocolError("change_action", err)
	}
	mods, err := r.ReadI32()
	if err != nil {
		return ProtocolError("change_action", err)
	}
	mode, err := r.ReadU8()
	if err != nil {
		return ProtocolError("change_action", err)
	}
	mapID, err := r.ReadI32()
	if err != nil {
		return ProtocolError("change_action", err)
	}
	sess.SetStatus(Status{Action: action, Info: info, MapMD5: mapMD5, Mods: mods, Mode: mode, MapID: mapID})
	if !sess.Restricted() {
		BroadcastStats(srv.Sessions, sess, srv.Stats)
	}
	return nil
}

func handleStatusUpdateRequest(srv *Server, sess *Session, pkt protocol.Packet) error {
	if srv.Stats == nil {
		return nil
	}
	stats := srv.Stats.Stats(sess.ID(), sess.Status().Mode)
	stats.ID = sess.ID()
	sess.Enqueue(PacketUserStats(stats))
	return nil
}

func handleLogout(srv *Server, sess *Session, pkt protocol.Packet) error {
	Logout(srv.Sessions, srv.Channels, sess, nowFunc())
	return nil
}

func handlePublicMessage(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	msg, err := protocol.ReadMessage(r)
	if err != nil {
		return ProtocolError("public_message", err)
	}
	if sess.Silenced(nowFunc()) {
		return nil
	}
	if np, ok := chat.ParseNowPlaying(msg.Text, nowFunc()); ok {
		sess.LastNp = &np
	}
	if srv.Commands != nil && chat.IsCommand(msg.Text, srv.Config.CommandPrefix) {
		result, err := srv.Commands.Process(sess.ID(), msg.Recipient, msg.Text)
		if err == nil && result != nil {
			if result.Response != "" {
				sess.Enqueue(PacketMessage(srv.Config.BotName, result.Response, msg.Recipient, srv.Config.BotID))
			}
			if result.Hidden {
				return nil
			}
		}
	}

	ctx := resolveContext(sess)
	ch, ok := srv.Channels.Resolve(msg.Recipient, ctx)
	if !ok {
		return NotFoundError("public_message", fmt.Errorf("channel %q", msg.Recipient))
	}
	pktBytes := PacketMessage(sess.Name, msg.Text, ch.Name, sess.ID())
	for _, member := range ch.Members() {
		if member.ID() == sess.ID() {
			continue
		}
		if target, ok := srv.Sessions.ByID(member.ID()); ok {
			target.Enqueue(pktBytes)
		}
	}
	return nil
}

func handlePrivateMessage(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	msg, err := protocol.ReadMessage(r)
	if err != nil {
		return ProtocolError("private_message", err)
	}
	if sess.Silenced(nowFunc()) {
		return nil
	}
	target, ok := srv.Sessions.ByName(msg.Recipient)
	if !ok {
		if srv.Users != nil && srv.Mail != nil {
			if toAccount, err := srv.Users.FetchByName(context.Background(), msg.Recipient); err == nil && toAccount != nil {
				_ = srv.Mail.Store(context.Background(), sess.ID(), toAccount.ID, msg.Text)
			}
		}
		return NotFoundError("private_message", fmt.Errorf("user %q", msg.Recipient))
	}
	if target.Silenced(nowFunc()) {
		sess.Enqueue(PacketTargetSilenced(msg.Recipient))
		return nil
	}
	if _, blocked := target.Blocks[sess.ID()]; blocked {
		sess.Enqueue(PacketUserDMBlocked(msg.Recipient))
		return nil
	}
	if target.PMPrivate {
		if _, friends := target.Friends[sess.ID()]; !friends {
			sess.Enqueue(PacketUserDMBlocked(msg.Recipient))
			return nil
		}
	}
	if np, ok := chat.ParseNowPlaying(msg.Text, nowFunc()); ok {
		sess.LastNp = &np
	}
	target.Enqueue(PacketMessage(sess.Name, msg.Text, msg.Recipient, sess.ID()))
	return nil
}

func handleStartSpectating(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	hostID, err := r.ReadI32()
	if err != nil {
		return ProtocolError("start_spectating", err)
	}
	host, ok := srv.Sessions.ByID(hostID)
	if !ok {
		return NotFoundError("start_spectating", fmt.Errorf("user #%d", hostID))
	}
	var priorHost *Session
	if prior := sess.SpectatingID(); prior != 0 {
		priorHost, _ = srv.Sessions.ByID(prior)
	}
	group := NewSpectatorGroup(srv.Channels)
	_, _, err = group.Start(host, sess, priorHost)
	if err != nil {
		return err
	}
	if !sess.Stealth {
		host.Enqueue(PacketSpectatorJoined(sess.ID()))
	}
	for _, id := range host.Spectators() {
		if id == sess.ID() {
			continue
		}
		if peer, ok := srv.Sessions.ByID(id); ok && !sess.Stealth {
			peer.Enqueue(PacketFellowSpectatorJoined(sess.ID()))
		}
	}
	return nil
}

func handleStopSpectating(srv *Server, sess *Session, pkt protocol.Packet) error {
	hostID := sess.SpectatingID()
	if hostID == 0 {
		return nil
	}
	host, ok := srv.Sessions.ByID(hostID)
	if !ok {
		sess.SetSpectatingID(0)
		return nil
	}
	group := NewSpectatorGroup(srv.Channels)
	group.Stop(host, sess)
	notifySpectatorLeft(srv.Sessions, host, sess.ID())
	return nil
}

func handleSpectateFrames(srv *Server, sess *Session, pkt protocol.Packet) error {
	out := PacketSpectateFrames(pkt.Data)
	for _, id := range sess.Spectators() {
		if peer, ok := srv.Sessions.ByID(id); ok {
			peer.Enqueue(out)
		}
	}
	return nil
}

func handleCantSpectate(srv *Server, sess *Session, pkt protocol.Packet) error {
	hostID := sess.SpectatingID()
	if hostID == 0 {
		return nil
	}
	host, ok := srv.Sessions.ByID(hostID)
	if !ok {
		return nil
	}
	out := PacketSpectatorCantSpectate(sess.ID())
	host.Enqueue(out)
	for _, id := range host.Spectators() {
		if peer, ok := srv.Sessions.ByID(id); ok {
			peer.Enqueue(out)
		}
	}
	return nil
}

func handleChannelJoin(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	name, err := r.ReadString()
	if err != nil {
		return ProtocolError("channel_join", err)
	}
	ch, ok := srv.Channels.Resolve(name, resolveContext(sess))
	if !ok {
		return NotFoundError("channel_join", fmt.Errorf("channel %q", name))
	}
	ch.Join(sess)
	sess.Enqueue(PacketChannelJoinSuccess(name))
	return nil
}

func handleChannelPart(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	name, err := r.ReadString()
	if err != nil {
		return ProtocolError("channel_part", err)
	}
	ch, ok := srv.Channels.Resolve(name, resolveContext(sess))
	if !ok {
		return nil
	}
	ch.Leave(sess)
	return nil
}

func handlePartLobby(srv *Server, sess *Session, pkt protocol.Packet) error {
	sess.InLobby = false
	return nil
}

func handleJoinLobby(srv *Server, sess *Session, pkt protocol.Packet) error {
	sess.InLobby = true
	for _, m := range srv.Matches.All() {
		sess.Enqueue(PacketNewMatch(m))
	}
	return nil
}

func handleFriendAdd(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	id, err := r.ReadI32()
	if err != nil {
		return ProtocolError("friend_add", err)
	}
	sess.Friends[id] = struct{}{}
	return nil
}

func handleFriendRemove(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	id, err := r.ReadI32()
	if err != nil {
		return ProtocolError("friend_remove", err)
	}
	delete(sess.Friends, id)
	return nil
}

func handleSetAwayMessage(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	msg, err := protocol.ReadMessage(r)
	if err != nil {
		return ProtocolError("set_away_message", err)
	}
	sess.AwayMsg = msg.Text
	return nil
}

func handleUserStatsRequest(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	ids, err := r.ReadIntList()
	if err != nil {
		return ProtocolError("user_stats_request", err)
	}
	if srv.Stats == nil {
		return nil
	}
	for _, id := range ids {
		target, ok := srv.Sessions.ByID(id)
		if !ok || !visibleTo(sess, target) {
			continue
		}
		stats := srv.Stats.Stats(target.ID(), target.Status().Mode)
		stats.ID = target.ID()
		sess.Enqueue(PacketUserStats(stats))
	}
	return nil
}

func handleUserPresenceRequest(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	ids, err := r.ReadIntList()
	if err != nil {
		return ProtocolError("user_presence_request", err)
	}
	for _, id := range ids {
		target, ok := srv.Sessions.ByID(id)
		if !ok || !visibleTo(sess, target) {
			continue
		}
		sess.Enqueue(PacketUserPresence(UserPresencePayload{
			ID: target.ID(), Name: target.Name, UTCOffset: int8(target.UTCOffset),
			CountryCode: target.Geoloc.CountryID(), ClientPriv: target.ClientPriv,
			Mode: target.Status().Mode, Longitude: target.Geoloc.Longitude, Latitude: target.Geoloc.Latitude,
		}))
	}
	return nil
}

func handleUserPresenceRequestAll(srv *Server, sess *Session, pkt protocol.Packet) error {
	for _, target := range srv.Sessions.Unrestricted() {
		if target == sess {
			continue
		}
		sess.Enqueue(PacketUserPresence(UserPresencePayload{
			ID: target.ID(), Name: target.Name, UTCOffset: int8(target.UTCOffset),
			CountryCode: target.Geoloc.CountryID(), ClientPriv: target.ClientPriv,
			Mode: target.Status().Mode, Longitude: target.Geoloc.Longitude, Latitude: target.Geoloc.Latitude,
		}))
	}
	return nil
}

func handleToggleBlockNonFriendDMs(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	v, err := r.ReadI32()
	if err != nil {
		return ProtocolError("toggle_block_non_friend_dms", err)
	}
	sess.PMPrivate = v != 0
	return nil
}

func handleReceiveUpdates(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	v, err := r.ReadI32()
	if err != nil {
		return ProtocolError("receive_updates", err)
	}
	switch v {
	case 0:
		sess.PresenceFilter = PresenceFilterNone
	case 1:
		sess.PresenceFilter = PresenceFilterAll
	case 2:
		sess.PresenceFilter = PresenceFilterFriends
	}
	return nil
}

// handleMatchInvite relays a match invite chat message to the named
// target, carrying enough room info for the recipient's client to offer
// a "join" shortcut (original_source `app/api/domains/cho.py`'s
// `matchInvite`, SPEC_FULL.md's "in-scope extras").
func handleMatchInvite(srv *Server, sess *Session, pkt protocol.Packet) error {
	if sess.Restricted() {
		return PermissionError("match_invite", fmt.Errorf("restricted user #%d", sess.ID()))
	}
	r := protocol.NewReader(pkt.Data)
	targetID, err := r.ReadI32()
	if err != nil {
		return ProtocolError("match_invite", err)
	}
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	target, ok := srv.Sessions.ByID(targetID)
	if !ok {
		return NotFoundError("match_invite", fmt.Errorf("user #%d", targetID))
	}
	invite := fmt.Sprintf("Come join my multiplayer match: [osump://%d/%s %s]", m.ID, m.Passwd, m.Name)
	target.Enqueue(PacketMatchInvite(sess.Name, invite, target.Name, sess.ID()))
	return nil
}

// handleTournamentMatchInfoRequest answers a tourney client's request for
// the live state of an arbitrary match id, independent of membership
// (§6 "tourney client", SPEC_FULL.md extras).
func handleTournamentMatchInfoRequest(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	matchID, err := r.ReadI32()
	if err != nil {
		return ProtocolError("tourney_match_info_request", err)
	}
	m, ok := srv.Matches.ByID(int16(matchID))
	if !ok {
		return nil
	}
	sess.Enqueue(PacketUpdateMatch(m))
	return nil
}

// handleTournamentJoinMatchChannel lets a tourney client observe a
// match's chat without occupying a slot, registering it in the match's
// tourneyClients set so it may hold the channel open across the multiple
// concurrent sessions a tourney client maintains (§3 Match.tourney_clients).
func handleTournamentJoinMatchChannel(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	matchID, err := r.ReadI32()
	if err != nil {
		return ProtocolError("tourney_join_match_channel", err)
	}
	m, ok := srv.Matches.ByID(int16(matchID))
	if !ok {
		return NotFoundError("tourney_join_match_channel", fmt.Errorf("match #%d", matchID))
	}
	if m.Channel == nil {
		return nil
	}
	m.AddTourneyClient(sess.ID())
	m.Channel.Join(sess)
	sess.Enqueue(PacketChannelJoinSuccess(m.Channel.Name))
	sess.Enqueue(PacketUpdateMatch(m))
	return nil
}

// handleTournamentLeaveMatchChannel is the inverse of
// handleTournamentJoinMatchChannel.
func handleTournamentLeaveMatchChannel(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	matchID, err := r.ReadI32()
	if err != nil {
		return ProtocolError("tourney_leave_match_channel", err)
	}
	m, ok := srv.Matches.ByID(int16(matchID))
	if !ok {
		return nil
	}
	m.RemoveTourneyClient(sess.ID())
	if m.Channel != nil {
		m.Channel.Leave(sess)
	}
	return nil
}

// resolveContext derives a channel.ResolveContext from sess's current
// spectating/match state (§4.C).
func resolveContext(sess *Session) channel.ResolveContext {
	return channel.ResolveContext{
		SpectatingHostID: sess.SpectatingID(),
		SelfID:           sess.ID(),
		HasSpectators:    sess.SpectatorCount() > 0,
		MatchChannelName: matchChannelNameFor(sess),
	}
}

func matchChannelNameFor(sess *Session) string {
	if sess.MatchID() < 0 {
		return ""
	}
	return fmt.Sprintf("#multi_%d", sess.MatchID())
}

// nowFunc is indirected so tests can override wall-clock time; production
// code always uses time.Now.
var nowFunc = time.Now
