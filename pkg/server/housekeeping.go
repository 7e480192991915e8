package server

import (
	"context"
	"fmt"
	"time"

	"github.com/osuAkatsuki/bancho-core/pkg/channel"
	"go.uber.org/zap"
)

// Logout tears a session down: removes it from the registry, leaves every
// channel it was a member of, and ends any spectation (both directions)
// (§4.I, §4.G step 4 ghost eviction). Match slots are not touched: a
// session seated in a match keeps its slot after Logout.
func Logout(sessions *Sessions, channels *channel.Registry, sess *Session, now time.Time) {
	sessions.Remove(sess)

	for _, c := range channels.All() {
		c.Leave(sess)
	}

	if hostID := sess.SpectatingID(); hostID != 0 {
		if host, ok := sessions.ByID(hostID); ok {
			group := NewSpectatorGroup(channels)
			group.Stop(host, sess)
			notifySpectatorLeft(sessions, host, sess.ID())
		}
	}
	for _, guestID := range sess.Spectators() {
		if guest, ok := sessions.ByID(guestID); ok {
			guest.SetSpectatingID(0)
			guest.Enqueue(PacketChannelKick(channelName(sess.ID())))
		}
	}

	sessions.Broadcast(PacketUserLogout(sess.ID()), nil)
}

// notifySpectatorLeft sends SPECTATOR_LEFT to host and FELLOW_SPECTATOR_LEFT
// to every remaining spectator (§4.E), skipping stealth sessions per the
// spec's "stealth sessions are excluded from joined/left notifications."
func notifySpectatorLeft(sessions *Sessions, host *Session, guestID int32) {
	if !host.Stealth {
		host.Enqueue(PacketSpectatorLeft(guestID))
	}
	for _, id := range host.Spectators() {
		if peer, ok := sessions.ByID(id); ok && !peer.Stealth {
			peer.Enqueue(PacketFellowSpectatorLeft(guestID))
		}
	}
}

// IdleThreshold bounds how long a session may go without sending a packet
// before housekeeping reaps it (§4.I).
const IdleThreshold = 5 * time.Minute

// ReapIdleSessions logs out every session whose last received packet is
// older than IdleThreshold, returning how many were reaped (§4.I).
func ReapIdleSessions(sessions *Sessions, channels *channel.Registry, now time.Time, log *zap.SugaredLogger) int {
	reaped := 0
	for _, sess := range sessions.All() {
		if now.Sub(sess.LastRecvTime()) > IdleThreshold {
			log.Infow("reaping idle session", "id", sess.ID(), "name", sess.Name)
			Logout(sessions, channels, sess, now)
			reaped++
		}
	}
	return reaped
}

// ExpireNowPlaying clears any session's LastNp record once its deadline
// has passed (§4.I, §3 LastNp).
func ExpireNowPlaying(sessions *Sessions, now time.Time) {
	for _, sess := range sessions.All() {
		if sess.LastNp != nil && sess.LastNp.Expired(now) {
			sess.LastNp = nil
		}
	}
}

// ScoreSubmitter is the out-of-core score-submission collaborator
// consulted by the submission-gather task (§5 "Submission gather").
type ScoreSubmitter interface {
	Submit(ctx context.Context, userID int32, match *Match) (ScoreFrame, error)
}

// submissionGatherTimeout bounds how long the post-MATCH_COMPLETE gather
// waits for every playing slot's score to land before giving up on the
// stragglers (§5).
const submissionGatherTimeout = 10 * time.Second

// GatherSubmissions waits up to submissionGatherTimeout for every id in
// playerIDs to submit a score via submitter, recording each one onto m.
// Any player who never submits in time is reported in missing and
// excluded from scoring (§5, §4.F completion); the caller computes the
// actual match points afterward (ResolveScrimmageRound), since a match
// that isn't scrimming has no use for them.
func GatherSubmissions(ctx context.Context, m *Match, submitter ScoreSubmitter, playerIDs []int32) (missing []int32) {
	ctx, cancel := context.WithTimeout(ctx, submissionGatherTimeout)
	defer cancel()

	type result struct {
		id    int32
		frame ScoreFrame
		err   error
	}
	results := make(chan result, len(playerIDs))
	for _, id := range playerIDs {
		go func(id int32) {
			frame, err := submitter.Submit(ctx, id, m)
			results <- result{id: id, frame: frame, err: err}
		}(id)
	}

	accounted := make(map[int32]bool, len(playerIDs))
collect:
	for range playerIDs {
		select {
		case r := <-results:
			accounted[r.id] = true
			if r.err != nil {
				missing = append(missing, r.id)
				continue
			}
			m.RecordScore(r.frame)
		case <-ctx.Done():
			break collect
		}
	}
	for _, id := range playerIDs {
		if !accounted[id] {
			missing = append(missing, id)
		}
	}

	return missing
}

// MissingSubmissionsMessage formats the match-chat advisory line listing
// players who failed to submit within the gather window (§5).
func MissingSubmissionsMessage(missing []int32) string {
	if len(missing) == 0 {
		return ""
	}
	msg := "Players who failed to submit a score: "
	for i, id := range missing {
		if i > 0 {
			msg += ", "
		}
		msg += fmt.Sprintf("#%d", id)
	}
	return msg
}
