package server

import (
	"context"
	"fmt"

	"github.com/osuAkatsuki/bancho-core/pkg/channel"
	"github.com/osuAkatsuki/bancho-core/pkg/privileges"
	"github.com/osuAkatsuki/bancho-core/pkg/protocol"
)

// matchChannelName returns the instanced #multi_<id> chat channel name for
// a match (§4.C instanced channel naming, §4.F).
func matchChannelName(id int16) string {
	return fmt.Sprintf("#multi_%d", id)
}

// broadcastMatch fans UPDATE_MATCH out to every session in the lobby plus
// every player currently seated in m (§4.F "broadcasts new match state").
func broadcastMatch(srv *Server, m *Match) {
	pkt := PacketUpdateMatch(m)
	for _, id := range m.Players() {
		if sess, ok := srv.Sessions.ByID(id); ok {
			sess.Enqueue(pkt)
		}
	}
	srv.Sessions.Broadcast(pkt, func(s *Session) bool { return s.InLobby })
}

func requireHost(m *Match, sess *Session) error {
	if m.HostID() != sess.ID() {
		return PermissionError("match", fmt.Errorf("user #%d is not host", sess.ID()))
	}
	return nil
}

func handleCreateMatch(srv *Server, sess *Session, pkt protocol.Packet) error {
	if sess.Restricted() || sess.Silenced(nowFunc()) {
		return PermissionError("create_match", fmt.Errorf("restricted or silenced"))
	}
	r := protocol.NewReader(pkt.Data)
	w, err := protocol.ReadMatch(r)
	if err != nil {
		return ProtocolError("create_match", err)
	}
	m, err := srv.Matches.Create(w.Name, w.Passwd, w.Mode, sess.ID())
	if err != nil {
		return err
	}
	m.ApplySettings(w)

	ch, err := srv.Channels.Create(matchChannelName(m.ID), fmt.Sprintf("Multiplayer chat for %s", m.Name), 0, 0, true, true)
	if err != nil {
		srv.Matches.Delete(m.ID)
		return fmt.Errorf("create_match: create chat channel: %w", err)
	}
	m.Channel = ch
	ch.Join(sess)

	sess.SetMatch(int(m.ID), 0)
	sess.InLobby = false
	sess.Enqueue(PacketMatchJoinSuccess(m))
	srv.Sessions.Broadcast(PacketNewMatch(m), func(s *Session) bool { return s.InLobby })
	return nil
}

func handleJoinMatch(srv *Server, sess *Session, pkt protocol.Packet) error {
	r := protocol.NewReader(pkt.Data)
	id, err := r.ReadI16()
	if err != nil {
		return ProtocolError("join_match", err)
	}
	passwd, err := r.ReadString()
	if err != nil {
		return ProtocolError("join_match", err)
	}
	if id >= 64 {
		// Menu option ids are dispatched through the session's current menu
		// handler rather than the lobby subsystem (§4.F, §6).
		return nil
	}
	m, ok := srv.Matches.ByID(id)
	if !ok {
		sess.Enqueue(PacketMatchJoinFail())
		return NotFoundError("join_match", fmt.Errorf("match #%d", id))
	}
	if m.Passwd != "" && m.Passwd != passwd {
		sess.Enqueue(PacketMatchJoinFail())
		return PermissionError("join_match", fmt.Errorf("bad password"))
	}
	if sess.Restricted() || sess.Silenced(nowFunc()) {
		sess.Enqueue(PacketMatchJoinFail())
		return PermissionError("join_match", fmt.Errorf("restricted or silenced"))
	}
	slot, err := m.Join(sess.ID())
	if err != nil {
		sess.Enqueue(PacketMatchJoinFail())
		return err
	}
	sess.SetMatch(int(m.ID), slot)
	sess.InLobby = false
	if m.Channel != nil {
		m.Channel.Join(sess)
	}
	sess.Enqueue(PacketMatchJoinSuccess(m))
	broadcastMatch(srv, m)
	return nil
}

func handlePartMatch(srv *Server, sess *Session, pkt protocol.Packet) error {
	matchID := sess.MatchID()
	if matchID < 0 {
		return nil
	}
	m, ok := srv.Matches.ByID(int16(matchID))
	if !ok {
		sess.SetMatch(-1, -1)
		return nil
	}
	_, empty, _ := m.Leave(sess.ID())
	sess.SetMatch(-1, -1)
	if m.Channel != nil {
		m.Channel.Leave(sess)
	}
	if empty {
		if m.Channel != nil {
			_ = srv.Channels.Delete(m.Channel.Name)
		}
		srv.Matches.Delete(m.ID)
		srv.Sessions.Broadcast(PacketDisposeMatch(m.ID), func(s *Session) bool { return s.InLobby })
		return nil
	}
	srv.Sessions.Broadcast(PacketMatchTransferHost(), func(s *Session) bool { return s.ID() == m.HostID() })
	broadcastMatch(srv, m)
	return nil
}

func currentMatch(srv *Server, sess *Session) (*Match, error) {
	matchID := sess.MatchID()
	if matchID < 0 {
		return nil, NotFoundError("match", fmt.Errorf("user #%d is not in a match", sess.ID()))
	}
	m, ok := srv.Matches.ByID(int16(matchID))
	if !ok {
		return nil, NotFoundError("match", fmt.Errorf("match #%d", matchID))
	}
	return m, nil
}

func handleMatchChangeSlot(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	r := protocol.NewReader(pkt.Data)
	to, err := r.ReadI32()
	if err != nil {
		return ProtocolError("match_change_slot", err)
	}
	if !m.ChangeSlot(sess.ID(), sess.MatchSlot(), int(to)) {
		return nil
	}
	sess.SetMatch(int(m.ID), int(to))
	broadcastMatch(srv, m)
	return nil
}

func handleMatchReady(ready bool) HandlerFunc {
	return func(srv *Server, sess *Session, pkt protocol.Packet) error {
		m, err := currentMatch(srv, sess)
		if err != nil {
			return err
		}
		m.SetReady(sess.ID(), ready)
		broadcastMatch(srv, m)
		return nil
	}
}

func handleMatchLock(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	if err := requireHost(m, sess); err != nil {
		return err
	}
	r := protocol.NewReader(pkt.Data)
	idx, err := r.ReadI32()
	if err != nil {
		return ProtocolError("match_lock", err)
	}
	m.ToggleLock(int(idx))
	broadcastMatch(srv, m)
	return nil
}

func handleMatchChangeSettings(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	if err := requireHost(m, sess); err != nil {
		return err
	}
	r := protocol.NewReader(pkt.Data)
	w, err := protocol.ReadMatch(r)
	if err != nil {
		return ProtocolError("match_change_settings", err)
	}
	if w.MapID != -1 && srv.Beatmaps != nil {
		if meta, err := srv.Beatmaps.FetchByMD5(context.Background(), w.MapMD5); err == nil && meta != nil {
			w.MapID = meta.BeatmapID
			w.MapMD5 = meta.MD5
			w.MapName = meta.Name
		}
	}
	res := m.ApplySettings(w)
	if res.Rejected != "" && m.Channel != nil {
		postMatchChatLine(srv, m, res.Rejected)
	}
	if w.FreeMods != m.FreeMods {
		m.SetFreeMods(w.FreeMods)
	}
	broadcastMatch(srv, m)
	return nil
}

func handleMatchChangeMods(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	r := protocol.NewReader(pkt.Data)
	mods, err := r.ReadI32()
	if err != nil {
		return ProtocolError("match_change_mods", err)
	}
	if !m.FreeMods {
		if err := requireHost(m, sess); err != nil {
			return err
		}
	}
	m.ChangeMods(sess.ID(), mods)
	broadcastMatch(srv, m)
	return nil
}

func handleMatchChangeTeam(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	r := protocol.NewReader(pkt.Data)
	team, err := r.ReadU8()
	if err != nil {
		return ProtocolError("match_change_team", err)
	}
	m.ChangeTeam(sess.ID(), team)
	broadcastMatch(srv, m)
	return nil
}

func handleMatchChangePassword(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	if err := requireHost(m, sess); err != nil {
		return err
	}
	r := protocol.NewReader(pkt.Data)
	w, err := protocol.ReadMatch(r)
	if err != nil {
		return ProtocolError("match_change_password", err)
	}
	m.ChangePassword(w.Passwd)
	broadcastMatch(srv, m)
	return nil
}

func handleMatchTransferHost(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	if err := requireHost(m, sess); err != nil {
		return err
	}
	r := protocol.NewReader(pkt.Data)
	slot, err := r.ReadI32()
	if err != nil {
		return ProtocolError("match_transfer_host", err)
	}
	w := m.Wire()
	if slot < 0 || slot >= 16 || w.SlotUserID[slot] == 0 {
		return NotFoundError("match_transfer_host", fmt.Errorf("empty slot %d", slot))
	}
	m.TransferHost(w.SlotUserID[slot])
	if target, ok := srv.Sessions.ByID(w.SlotUserID[slot]); ok {
		target.Enqueue(PacketMatchTransferHost())
	}
	broadcastMatch(srv, m)
	return nil
}

func handleMatchStart(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	if err := requireHost(m, sess); err != nil {
		return err
	}
	playing := m.Start()
	if len(playing) == 0 {
		return nil
	}
	pkt2 := PacketMatchStart(m)
	for _, id := range playing {
		if p, ok := srv.Sessions.ByID(id); ok {
			p.Enqueue(pkt2)
		}
	}
	broadcastMatch(srv, m)
	return nil
}

func handleMatchLoadComplete(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	if m.MarkLoaded(sess.ID()) {
		for _, id := range m.Players() {
			if p, ok := srv.Sessions.ByID(id); ok {
				p.Enqueue(PacketMatchAllPlayersLoaded())
			}
		}
	}
	return nil
}

func handleMatchSkipRequest(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	for _, id := range m.Players() {
		if p, ok := srv.Sessions.ByID(id); ok {
			p.Enqueue(PacketMatchPlayerSkipped(sess.ID()))
		}
	}
	if m.MarkSkipped(sess.ID()) {
		for _, id := range m.Players() {
			if p, ok := srv.Sessions.ByID(id); ok {
				p.Enqueue(PacketMatchSkip())
			}
		}
	}
	return nil
}

func handleMatchFailed(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	for _, id := range m.Players() {
		if p, ok := srv.Sessions.ByID(id); ok {
			p.Enqueue(PacketMatchPlayerFailed(int32(sess.MatchSlot())))
		}
	}
	return nil
}

func handleMatchScoreUpdate(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	if m.Channel == nil {
		return nil
	}
	body := make([]byte, len(pkt.Data))
	copy(body, pkt.Data)
	if len(body) > 11 {
		body[11] = byte(sess.MatchSlot())
	}
	out := frame(protocol.MATCH_SCORE_UPDATE_SERVER, func(w *protocol.Writer) { w.WriteRaw(body) })
	for _, member := range m.Channel.Members() {
		if member.ID() == sess.ID() {
			continue
		}
		if target, ok := srv.Sessions.ByID(member.ID()); ok && !target.InLobby {
			target.Enqueue(out)
		}
	}
	return nil
}

func handleMatchComplete(srv *Server, sess *Session, pkt protocol.Packet) error {
	m, err := currentMatch(srv, sess)
	if err != nil {
		return err
	}
	// Capture the slots that were actually playing (or already finished)
	// this round before Finish resets everything back to not-ready, so
	// an occupant who sat the map out never receives match_complete or
	// gets waited on by the scrimmage submission gather (§4.F Completion).
	playing := m.PlayingSlots()
	if !m.Finish(sess.ID()) {
		return nil
	}
	for _, id := range playing {
		if p, ok := srv.Sessions.ByID(id); ok {
			p.Enqueue(PacketMatchComplete())
		}
	}
	broadcastMatch(srv, m)

	if m.IsScrimming() && srv.Submitter != nil {
		go announceScrimmageResult(srv, m, playing)
	}
	return nil
}

// announceScrimmageResult runs the submission-gather task for a finished
// map, resolves the scrimmage round, and posts the result lines to the
// match's chat channel (§4.F scoring, §5 submission gather).
func announceScrimmageResult(srv *Server, m *Match, playing []int32) {
	missing := GatherSubmissions(context.Background(), m, srv.Submitter, playing)
	if m.Channel == nil {
		return
	}
	for _, line := range ResolveScrimmageRound(m, m.TeamOf) {
		postMatchChatLine(srv, m, line)
	}
	if msg := MissingSubmissionsMessage(missing); msg != "" {
		postMatchChatLine(srv, m, msg)
	}
}

func postMatchChatLine(srv *Server, m *Match, text string) {
	out := PacketMessage(srv.Config.BotName, text, m.Channel.Name, srv.Config.BotID)
	for _, member := range m.Channel.Members() {
		if target, ok := srv.Sessions.ByID(member.ID()); ok {
			target.Enqueue(out)
		}
	}
}

// channelCanReadWrite is a tiny convenience wrapper kept beside the match
// handlers since channel ACL tests most often exercise match chat.
func channelCanReadWrite(ch *channel.Channel, priv privileges.Privileges) (read, write bool) {
	return channel.CanRead(ch, channel.Privilege(priv)), channel.CanWrite(ch, channel.Privilege(priv))
}
