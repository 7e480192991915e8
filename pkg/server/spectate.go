package server

import (
	"fmt"

	"github.com/osuAkatsuki/bancho-core/pkg/channel"
)

// SpectatorGroup wires the session back-references and instanced channel
// maintained for one host's spectator group (§4.E). It owns no players
// directly; the authoritative membership lives on the host Session's
// spectators set plus each spectator's SpectatingID back-reference, with
// the invariant g ∈ host.Spectators() ⇔ g.SpectatingID() == host.ID().
type SpectatorGroup struct {
	channels *channel.Registry
}

// NewSpectatorGroup wires a spectate coordinator against the shared
// channel registry.
func NewSpectatorGroup(channels *channel.Registry) *SpectatorGroup {
	return &SpectatorGroup{channels: channels}
}

// channelName returns the instanced channel name for a host's spectator
// group (§4.C instanced channel naming).
func channelName(hostID int32) string {
	return fmt.Sprintf("#spec_%d", hostID)
}

// Start begins guest spectating host (§4.E START_SPECTATING). If guest was
// already spectating someone else, the caller must resolve that prior host
// through the session registry and pass it as priorHost so the switch is
// clean; pass nil when guest wasn't spectating anyone. Creates the
// instanced #spec_<hostid> channel on the first spectator and joins both
// parties to it. Returns the channel and whether it was newly created.
func (g *SpectatorGroup) Start(host, guest, priorHost *Session) (*channel.Channel, bool, error) {
	if priorHost != nil {
		g.Stop(priorHost, guest)
	}

	name := channelName(host.ID())
	ch, ok := g.channels.Fetch(name)
	created := false
	if !ok {
		var err error
		ch, err = g.channels.Create(name, fmt.Sprintf("Spectator chat for %s", host.Name), 0, 0, true, true)
		if err != nil {
			return nil, false, fmt.Errorf("spectate: create group channel: %w", err)
		}
		created = true
	}

	host.AddSpectator(guest.ID())
	guest.SetSpectatingID(host.ID())
	ch.Join(host)
	ch.Join(guest)

	return ch, created, nil
}

// Stop ends guest's spectation of host (§4.E STOP_SPECTATING). Tears down
// the instanced channel when the last spectator leaves, since an instanced
// channel has no durable existence once its group is empty (§3 invariant).
func (g *SpectatorGroup) Stop(host, guest *Session) (destroyed bool) {
	last := host.RemoveSpectator(guest.ID())
	guest.SetSpectatingID(0)

	name := channelName(host.ID())
	ch, ok := g.channels.Fetch(name)
	if !ok {
		return false
	}
	ch.Leave(guest)

	if last {
		ch.Leave(host)
		_ = g.channels.Delete(name)
		return true
	}
	return false
}
