package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osuAkatsuki/bancho-core/pkg/privileges"
)

func TestSafeNameLowercasesAndReplacesSpaces(t *testing.T) {
	assert.Equal(t, "chicken_iq", SafeName("Chicken IQ"))
	assert.Equal(t, "cookiezi", SafeName("cookiezi"))
}

func TestSessionRestricted(t *testing.T) {
	unrestricted := NewSession(1, "a", "t", privileges.Unrestricted, time.Now())
	assert.False(t, unrestricted.Restricted())

	restricted := NewSession(2, "b", "t", 0, time.Now())
	assert.True(t, restricted.Restricted())
}

func TestSessionSilencedAndRemainingSilence(t *testing.T) {
	now := time.Now()
	sess := NewSession(1, "a", "t", privileges.Unrestricted, now)
	sess.SilenceEnd = now.Add(30 * time.Second)

	assert.True(t, sess.Silenced(now))
	assert.InDelta(t, 30, sess.RemainingSilence(now), 1)

	later := now.Add(time.Minute)
	assert.False(t, sess.Silenced(later))
	assert.Equal(t, int32(0), sess.RemainingSilence(later))
}

func TestSessionTouchUpdatesLastRecvTime(t *testing.T) {
	start := time.Now()
	sess := NewSession(1, "a", "t", privileges.Unrestricted, start)
	later := start.Add(time.Minute)
	sess.Touch(later)
	assert.Equal(t, later, sess.LastRecvTime())
}

func TestSessionStatusRoundTrip(t *testing.T) {
	sess := NewSession(1, "a", "t", privileges.Unrestricted, time.Now())
	sess.SetStatus(Status{Action: 2, Info: "playing a map", MapID: 99})
	assert.Equal(t, uint8(2), sess.Status().Action)
	assert.Equal(t, "playing a map", sess.Status().Info)
}

func TestSessionEnqueueDrainOutbound(t *testing.T) {
	sess := NewSession(1, "a", "t", privileges.Unrestricted, time.Now())
	assert.Nil(t, sess.DrainOutbound(), "an empty queue drains to nil, not an empty slice")

	sess.Enqueue([]byte("ab"))
	sess.Enqueue([]byte("cd"))
	assert.Equal(t, []byte("abcd"), sess.DrainOutbound())
	assert.Nil(t, sess.DrainOutbound(), "draining empties the queue")
}

func TestSessionSpectatorBookkeeping(t *testing.T) {
	host := NewSession(1, "host", "t1", privileges.Unrestricted, time.Now())
	assert.Equal(t, 0, host.SpectatorCount())

	host.AddSpectator(2)
	host.AddSpectator(3)
	assert.Equal(t, 2, host.SpectatorCount())
	assert.ElementsMatch(t, []int32{2, 3}, host.Spectators())

	assert.False(t, host.RemoveSpectator(2))
	assert.True(t, host.RemoveSpectator(3), "removing the last spectator reports true")
}

func TestSessionMatchSlotClearsToMinusOne(t *testing.T) {
	sess := NewSession(1, "a", "t", privileges.Unrestricted, time.Now())
	assert.Equal(t, -1, sess.MatchID())
	assert.Equal(t, -1, sess.MatchSlot())

	sess.SetMatch(4, 2)
	assert.Equal(t, 4, sess.MatchID())
	assert.Equal(t, 2, sess.MatchSlot())

	sess.SetMatch(-1, -1)
	assert.Equal(t, -1, sess.MatchID())
}

func TestGeolocationCountryID(t *testing.T) {
	g := Geolocation{CountryCode: "US"}
	assert.Equal(t, uint8(128), g.CountryID())

	unknown := Geolocation{CountryCode: "ZZ"}
	assert.Equal(t, uint8(0), unknown.CountryID())
}
