package server

import (
	"github.com/osuAkatsuki/bancho-core/pkg/channel"
	"github.com/osuAkatsuki/bancho-core/pkg/privileges"
)

// StatsProvider is the narrow seam presence.go needs into gameplay stats
// (ranked score, pp, leaderboard rank, ...), kept separate from UserStore
// since those figures are typically cached/precomputed rather than read
// straight from the account row (§6).
type StatsProvider interface {
	Stats(userID int32, mode uint8) UserStatsPayload
}

// BroadcastPresence fans out a single player's presence to every other
// unrestricted session (§4.D). Restricted sessions are invisible to
// everyone except staff, and a restricted session never receives anyone
// else's presence either — it only ever sees itself, so an already-logged
// -in client silently stops seeing other players the moment it gets
// restricted (§4.D visibility rule).
func BroadcastPresence(sessions *Sessions, subject *Session) {
	payload := UserPresencePayload{
		ID:          subject.ID(),
		Name:        subject.Name,
		UTCOffset:   int8(subject.UTCOffset),
		CountryCode: subject.Geoloc.CountryID(),
		ClientPriv:  subject.ClientPriv,
		Mode:        subject.Status().Mode,
		Longitude:   subject.Geoloc.Longitude,
		Latitude:    subject.Geoloc.Latitude,
	}
	pkt := PacketUserPresence(payload)
	sessions.Broadcast(pkt, func(target *Session) bool {
		if target == subject {
			return false
		}
		return visibleTo(target, subject)
	})
}

// BroadcastStats fans out a single player's gameplay stats the same way
// BroadcastPresence fans out identity (§4.D).
func BroadcastStats(sessions *Sessions, subject *Session, stats StatsProvider) {
	payload := stats.Stats(subject.ID(), subject.Status().Mode)
	payload.ID = subject.ID()
	payload.Action = subject.Status().Action
	payload.Info = subject.Status().Info
	payload.MapMD5 = subject.Status().MapMD5
	payload.Mods = subject.Status().Mods
	payload.Mode = subject.Status().Mode
	payload.MapID = subject.Status().MapID
	pkt := PacketUserStats(payload)
	sessions.Broadcast(pkt, func(target *Session) bool {
		if target == subject {
			return false
		}
		return visibleTo(target, subject)
	})
}

// visibleTo reports whether subject should be visible to viewer: a
// restricted subject is visible only to staff, and a restricted viewer
// never sees anyone but themselves (§4.D).
func visibleTo(viewer, subject *Session) bool {
	if viewer.Restricted() {
		return false
	}
	if subject.Restricted() {
		return viewer.Priv.HasAny(privileges.Staff)
	}
	return true
}

// BroadcastChannelInfo fans out CHANNEL_INFO for every public (non
// -instanced) channel to every unrestricted session, matching the
// batch the login bootstrap sends and the periodic refresh after a
// channel's membership changes (§4.C, §4.D).
func BroadcastChannelInfo(sessions *Sessions, channels *channel.Registry) {
	for _, c := range channels.All() {
		if c.Instance {
			continue
		}
		pkt := PacketChannelInfo(c.Name, c.Topic, int16(c.PlayerCount()))
		sessions.Broadcast(pkt, func(target *Session) bool { return !target.Restricted() })
	}
}

// SendChannelInfoBatch writes CHANNEL_INFO for every auto-join channel
// target may read, skipping #lobby, plus the trailing CHANNEL_INFO_END
// sentinel, as used by the login bootstrap (§4.G "channel_info for every
// auto-join channel the session may read, skipping #lobby").
func SendChannelInfoBatch(target *Session, channels *channel.Registry) {
	for _, c := range channels.All() {
		if c.Instance || !c.AutoJoin || c.Name == "#lobby" {
			continue
		}
		if !channel.CanRead(c, channel.Privilege(target.Priv)) {
			continue
		}
		target.Enqueue(PacketChannelInfo(c.Name, c.Topic, int16(c.PlayerCount())))
	}
	target.Enqueue(PacketChannelInfoEnd())
}
