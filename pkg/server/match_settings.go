package server

import "github.com/osuAkatsuki/bancho-core/pkg/protocol"

// ApplySettingsResult reports a side effect of ApplySettings the caller
// must react to: an advisory chat line for a rejected change.
type ApplySettingsResult struct {
	Rejected string
}

// ApplySettings updates a match's room-level attributes from a decoded
// MATCH_CHANGE_SETTINGS frame (§4.F "Settings change rules"). Per-slot
// fields on the wire payload are otherwise ignored: slot state is only
// ever mutated through the dedicated slot operations (ChangeSlot,
// ToggleLock, SetReady, ...), never wholesale replaced by a settings
// update, so a stale client can't clobber another player's in-flight
// ready state by resubmitting an old snapshot.
//
// Authoritative beatmap metadata (when the md5 matches a known beatmap)
// must already be folded into w by the caller before this is called,
// since that lookup is a suspension point and must happen outside the
// match's lock (§5).
func (m *Match) ApplySettings(w protocol.WireMatch) ApplySettingsResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res ApplySettingsResult

	if w.MapID == -1 {
		m.prevMapID = m.MapID
		m.MapID = -1
		m.MapName = ""
		m.MapMD5 = ""
		for i := range m.slots {
			if m.slots[i].occupied() && m.slots[i].Status == SlotReady {
				m.slots[i].Status = SlotNotReady
			}
		}
	} else {
		m.MapID = w.MapID
		m.MapMD5 = w.MapMD5
		m.MapName = w.MapName
	}

	m.Name = w.Name
	m.Passwd = w.Passwd
	m.Mode = w.Mode

	if w.TeamType != m.TeamType {
		if m.isScrimming {
			res.Rejected = "Changing the team type is not allowed while a scrimmage is in progress."
		} else {
			m.TeamType = w.TeamType
			neutral := w.TeamType == TeamTypeHeadToHead || w.TeamType == TeamTypeTagCoop
			for i := range m.slots {
				if !m.slots[i].occupied() {
					continue
				}
				if neutral {
					m.slots[i].Team = TeamNeutral
				} else {
					m.slots[i].Team = TeamRed
				}
			}
		}
	}

	if w.WinCondition != m.WinCondition {
		m.WinCondition = w.WinCondition
		m.usePPScoring = false
	}

	return res
}

// PrevMapID returns the map id the match was on before the host last
// opened the beatmap selector (§3 Match.prev_map_id).
func (m *Match) PrevMapID() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prevMapID
}

// UsePPScoring reports whether scrimmage scoring should weigh performance
// points rather than the room's nominal win condition. Any explicit
// win-condition change forcibly clears this (§4.F "Changing win_condition
// forcibly disables use_pp_scoring").
func (m *Match) UsePPScoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usePPScoring
}

// SetUsePPScoring sets the pp-scoring flag directly, e.g. from a
// `!mp scorev2 pp`-style command.
func (m *Match) SetUsePPScoring(on bool) {
	m.mu.Lock()
	m.usePPScoring = on
	m.mu.Unlock()
}

// ChangeTeam moves userID to team (§4.F MATCH_CHANGE_TEAM), only
// meaningful under a team type (team-vs or tag-team-vs).
func (m *Match) ChangeTeam(userID int32, team uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		if m.slots[i].occupied() && m.slots[i].UserID == userID {
			m.slots[i].Team = team
			return
		}
	}
}

// ChangePassword replaces the room password (§4.F MATCH_CHANGE_PASSWORD).
func (m *Match) ChangePassword(passwd string) {
	m.mu.Lock()
	m.Passwd = passwd
	m.mu.Unlock()
}
