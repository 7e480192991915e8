package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osuAkatsuki/bancho-core/pkg/channel"
	"github.com/osuAkatsuki/bancho-core/pkg/privileges"
)

func TestSpectatorGroupStartCreatesInstancedChannelOnFirstGuest(t *testing.T) {
	channels, err := channel.NewRegistry(nil)
	require.NoError(t, err)
	g := NewSpectatorGroup(channels)

	host := NewSession(1, "host", "t1", privileges.Unrestricted, time.Now())
	guest := NewSession(2, "guest", "t2", privileges.Unrestricted, time.Now())

	ch, created, err := g.Start(host, guest, nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "#spec_1", ch.Name)
	assert.True(t, ch.Instance)

	assert.Equal(t, int32(1), guest.SpectatingID())
	assert.ElementsMatch(t, []int32{2}, host.Spectators())
	assert.True(t, ch.Has(host.ID()))
	assert.True(t, ch.Has(guest.ID()))
}

func TestSpectatorGroupStartReusesChannelForSecondGuest(t *testing.T) {
	channels, err := channel.NewRegistry(nil)
	require.NoError(t, err)
	g := NewSpectatorGroup(channels)

	host := NewSession(1, "host", "t1", privileges.Unrestricted, time.Now())
	guestA := NewSession(2, "guestA", "t2", privileges.Unrestricted, time.Now())
	guestB := NewSession(3, "guestB", "t3", privileges.Unrestricted, time.Now())

	_, created1, err := g.Start(host, guestA, nil)
	require.NoError(t, err)
	require.True(t, created1)

	_, created2, err := g.Start(host, guestB, nil)
	require.NoError(t, err)
	assert.False(t, created2)
	assert.ElementsMatch(t, []int32{2, 3}, host.Spectators())
}

func TestSpectatorGroupStartSwitchingHostsStopsThePriorOne(t *testing.T) {
	channels, err := channel.NewRegistry(nil)
	require.NoError(t, err)
	g := NewSpectatorGroup(channels)

	hostA := NewSession(1, "hostA", "t1", privileges.Unrestricted, time.Now())
	hostB := NewSession(2, "hostB", "t2", privileges.Unrestricted, time.Now())
	guest := NewSession(3, "guest", "t3", privileges.Unrestricted, time.Now())

	_, _, err = g.Start(hostA, guest, nil)
	require.NoError(t, err)

	_, _, err = g.Start(hostB, guest, hostA)
	require.NoError(t, err)

	assert.Equal(t, int32(2), guest.SpectatingID())
	assert.Empty(t, hostA.Spectators())
	assert.ElementsMatch(t, []int32{3}, hostB.Spectators())

	_, ok := channels.Fetch("#spec_1")
	assert.False(t, ok, "hostA's instanced channel is torn down once its last spectator leaves")
}

func TestSpectatorGroupStopDestroysChannelOnLastSpectator(t *testing.T) {
	channels, err := channel.NewRegistry(nil)
	require.NoError(t, err)
	g := NewSpectatorGroup(channels)

	host := NewSession(1, "host", "t1", privileges.Unrestricted, time.Now())
	guest := NewSession(2, "guest", "t2", privileges.Unrestricted, time.Now())

	_, _, err = g.Start(host, guest, nil)
	require.NoError(t, err)

	destroyed := g.Stop(host, guest)
	assert.True(t, destroyed)
	assert.Equal(t, int32(0), guest.SpectatingID())
	_, ok := channels.Fetch("#spec_1")
	assert.False(t, ok)
}

func TestSpectatorGroupStopKeepsChannelWhileOtherSpectatorsRemain(t *testing.T) {
	channels, err := channel.NewRegistry(nil)
	require.NoError(t, err)
	g := NewSpectatorGroup(channels)

	host := NewSession(1, "host", "t1", privileges.Unrestricted, time.Now())
	guestA := NewSession(2, "guestA", "t2", privileges.Unrestricted, time.Now())
	guestB := NewSession(3, "guestB", "t3", privileges.Unrestricted, time.Now())

	_, _, err = g.Start(host, guestA, nil)
	require.NoError(t, err)
	_, _, err = g.Start(host, guestB, nil)
	require.NoError(t, err)

	destroyed := g.Stop(host, guestA)
	assert.False(t, destroyed)
	_, ok := channels.Fetch("#spec_1")
	assert.True(t, ok)
}
