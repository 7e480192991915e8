package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osuAkatsuki/bancho-core/pkg/protocol"
)

func TestApplySettingsMapIDMinusOneClearsMapAndUnreadiesReadySlots(t *testing.T) {
	m := NewMatch(0, "room", "", 0, 1001)
	m.MapID = 222
	m.MapMD5 = "abc"
	m.MapName = "Some Map"
	m.SetReady(1001, true)

	res := m.ApplySettings(protocol.WireMatch{Name: "room", MapID: -1, TeamType: TeamTypeHeadToHead, WinCondition: WinConditionScoreV2})

	assert.Empty(t, res.Rejected)
	assert.Equal(t, int32(-1), m.MapID)
	assert.Equal(t, "", m.MapMD5)
	assert.Equal(t, "", m.MapName)
	assert.Equal(t, int32(222), m.PrevMapID())
	assert.Equal(t, SlotNotReady, m.Wire().SlotStatus[0])
}

func TestApplySettingsRejectsTeamTypeChangeWhileScrimming(t *testing.T) {
	m := NewMatch(0, "room", "", 0, 1001)
	m.StartScrimming(5)

	res := m.ApplySettings(protocol.WireMatch{Name: "room", MapID: 10, TeamType: TeamTypeTeamVS, WinCondition: m.WinCondition})

	assert.NotEmpty(t, res.Rejected)
	assert.Equal(t, TeamTypeHeadToHead, m.TeamType)
}

func TestApplySettingsTeamTypeChangeAssignsNeutralOrRed(t *testing.T) {
	m := NewMatch(0, "room", "", 0, 1001)
	_, err := m.Join(1002)
	assert.NoError(t, err)

	res := m.ApplySettings(protocol.WireMatch{Name: "room", MapID: 10, TeamType: TeamTypeTeamVS, WinCondition: m.WinCondition})
	assert.Empty(t, res.Rejected)
	assert.Equal(t, TeamTypeTeamVS, m.TeamType)
	w := m.Wire()
	assert.Equal(t, TeamRed, w.SlotTeam[0])
	assert.Equal(t, TeamRed, w.SlotTeam[1])

	res = m.ApplySettings(protocol.WireMatch{Name: "room", MapID: 10, TeamType: TeamTypeHeadToHead, WinCondition: m.WinCondition})
	assert.Empty(t, res.Rejected)
	w = m.Wire()
	assert.Equal(t, TeamNeutral, w.SlotTeam[0])
}

func TestApplySettingsWinConditionChangeDisablesPPScoring(t *testing.T) {
	m := NewMatch(0, "room", "", 0, 1001)
	m.SetUsePPScoring(true)
	assert.True(t, m.UsePPScoring())

	m.ApplySettings(protocol.WireMatch{Name: "room", MapID: 10, TeamType: m.TeamType, WinCondition: WinConditionAccuracy})
	assert.False(t, m.UsePPScoring())
	assert.Equal(t, WinConditionAccuracy, m.WinCondition)
}

func TestChangeTeamAndChangePassword(t *testing.T) {
	m := NewMatch(0, "room", "secret", 0, 1001)
	m.ChangeTeam(1001, TeamBlue)
	assert.Equal(t, TeamBlue, m.Wire().SlotTeam[0])

	m.ChangePassword("newpass")
	assert.Equal(t, "newpass", m.Passwd)
}
