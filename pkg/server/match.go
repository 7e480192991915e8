package server

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/osuAkatsuki/bancho-core/pkg/channel"
	"github.com/osuAkatsuki/bancho-core/pkg/protocol"
)

// Slot statuses (§3 Match.Slots), matching the real client's bitmask.
const (
	SlotOpen        uint8 = 1
	SlotLocked      uint8 = 2
	SlotNotReady    uint8 = 4
	SlotReady       uint8 = 8
	SlotNoMap       uint8 = 16
	SlotPlaying     uint8 = 32
	SlotComplete    uint8 = 64
	SlotOccupiedMask uint8 = SlotNotReady | SlotReady | SlotNoMap | SlotPlaying | SlotComplete
)

// Team types and win conditions (§3 Match attributes).
const (
	TeamTypeHeadToHead uint8 = 0
	TeamTypeTagCoop    uint8 = 1
	TeamTypeTeamVS     uint8 = 2
	TeamTypeTagTeamVS  uint8 = 3

	WinConditionScore       uint8 = 0
	WinConditionAccuracy    uint8 = 1
	WinConditionCombo       uint8 = 2
	WinConditionScoreV2     uint8 = 3

	TeamNeutral uint8 = 0
	TeamBlue    uint8 = 1
	TeamRed     uint8 = 2
)

// Mod bitflags (§4.F "Mods"), matching the client's osu!std mod bitmask
// layout. Only the subset the match state machine needs to reason about
// is named here; the rest pass through Match.Mods/Slot.Mods untouched.
const (
	ModNoFail      int32 = 1 << 0
	ModEasy        int32 = 1 << 1
	ModTouchDevice int32 = 1 << 2
	ModHidden      int32 = 1 << 3
	ModHardRock    int32 = 1 << 4
	ModSuddenDeath int32 = 1 << 5
	ModDoubleTime  int32 = 1 << 6
	ModRelax       int32 = 1 << 7
	ModHalfTime    int32 = 1 << 8
	ModNightcore   int32 = 1 << 9
	ModFlashlight  int32 = 1 << 10
	ModAutoplay    int32 = 1 << 11
	ModSpunOut     int32 = 1 << 12
	ModAutopilot   int32 = 1 << 13
	ModPerfect     int32 = 1 << 14
	ModScoreV2     int32 = 1 << 29
)

// SpeedChangingMods is the fixed subset that remains room-wide even under
// freemods (§4.F, GLOSSARY "speed-changing mods"): DT/NC speed the map up,
// HT slows it down, and either way every player in the room must be
// playing the same speed for scores to be comparable.
const SpeedChangingMods = ModDoubleTime | ModNightcore | ModHalfTime

// blueWinnerKey/redWinnerKey are the sentinel keys ComputeMatchPoints and
// Match.MatchPoints use for team-mode winners, chosen outside the int32
// user-id space (ids are always positive) so they can share one map with
// FFA's per-player keys.
const (
	blueWinnerKey int32 = -1
	redWinnerKey  int32 = -2
)

// Slot is one of a match's 16 player slots (§3).
type Slot struct {
	Status uint8
	Team   uint8
	UserID int32 // 0 if unoccupied
	Mods   int32 // only meaningful under FreeMods
	Loaded bool
	Skipped bool
}

func (s *Slot) occupied() bool { return s.Status&SlotOccupiedMask != 0 }

// Match is one multiplayer room (§4.F). Guarded by a single recursive-in-
// spirit mutex per §5: callers that need to read-then-write always do so
// under one Lock/Unlock pair rather than two, since Go's sync.Mutex isn't
// reentrant.
type Match struct {
	ID       int16
	Name     string
	Passwd   string
	MapName  string
	MapID    int32
	MapMD5   string

	Mode         uint8
	WinCondition uint8
	TeamType     uint8
	FreeMods     bool
	Mods         int32
	Seed         int32

	Channel *channel.Channel

	mu             sync.Mutex
	inProgress     bool
	slots          [16]Slot
	hostID         int32
	scoreFrames    map[int32]ScoreFrame
	prevMapID      int32
	usePPScoring   bool
	isScrimming    bool
	winningPts     int
	matchPoints    map[int32]int
	winners        []int32
	bans           map[string]bool
	tourneyClients map[int32]bool
}

// ScoreFrame is the subset of a MATCH_SCORE_UPDATE frame needed to compute
// scrimmage match points (§4.F scoring).
type ScoreFrame struct {
	UserID  int32
	Score   int64
	Accuracy float64
	MaxCombo int32
	Passed   bool
}

// NewMatch constructs a match as sent by CREATE_MATCH (§4.F): hostID
// occupies slot 0 and every other slot is open.
func NewMatch(id int16, name, passwd string, mode uint8, hostID int32) *Match {
	m := &Match{
		ID:           id,
		Name:         name,
		Passwd:       passwd,
		Mode:         mode,
		WinCondition: WinConditionScoreV2,
		TeamType:     TeamTypeHeadToHead,
		hostID:       hostID,
		scoreFrames:  make(map[int32]ScoreFrame),
		matchPoints:  make(map[int32]int),
		bans:         make(map[string]bool),
		tourneyClients: make(map[int32]bool),
	}
	for i := range m.slots {
		m.slots[i].Status = SlotOpen
	}
	m.slots[0].Status = SlotNotReady
	m.slots[0].UserID = hostID
	return m
}

// TeamOf returns the team assignment of whichever slot userID occupies, or
// TeamNeutral if they aren't seated (§4.F scoring teamOf callback).
func (m *Match) TeamOf(userID int32) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		if m.slots[i].UserID == userID {
			return m.slots[i].Team
		}
	}
	return TeamNeutral
}

// HostID returns the current host's player id.
func (m *Match) HostID() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hostID
}

// InProgress reports whether the match is currently being played.
func (m *Match) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inProgress
}

// ErrSlotTaken is returned by Join when the match has no open slot.
var ErrSlotTaken = fmt.Errorf("match: no open slot")

// Join seats userID in the first open slot (§4.F JOIN_MATCH). The caller
// is responsible for the channel password check before calling Join.
func (m *Match) Join(userID int32) (slotIdx int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		if m.slots[i].Status == SlotOpen {
			m.slots[i] = Slot{Status: SlotNotReady, UserID: userID}
			return i, nil
		}
	}
	return -1, ErrSlotTaken
}

// Leave clears userID's slot (§4.F PART_MATCH). Returns the vacated slot
// index, whether the match is now empty, and whether the leaving player
// was host (in which case host has already passed to the player in the
// lowest-indexed occupied slot, if any).
func (m *Match) Leave(userID int32) (slotIdx int, empty bool, wasHost bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slotIdx = -1
	for i := range m.slots {
		if m.slots[i].occupied() && m.slots[i].UserID == userID {
			slotIdx = i
			m.slots[i] = Slot{Status: SlotOpen}
			break
		}
	}
	wasHost = userID == m.hostID
	empty = true
	for i := range m.slots {
		if m.slots[i].occupied() {
			empty = false
			if wasHost {
				m.hostID = m.slots[i].UserID
			}
			break
		}
	}
	return slotIdx, empty, wasHost
}

// TransferHost sets newHostID as host (§4.F MATCH_TRANSFER_HOST). The
// caller must have already verified newHostID occupies a slot.
func (m *Match) TransferHost(newHostID int32) {
	m.mu.Lock()
	m.hostID = newHostID
	m.mu.Unlock()
}

// ChangeSlot moves the caller from one slot to another, copying the whole
// source slot (status, team, mods) rather than just the user id — per the
// real client's MATCH_CHANGE_SLOT semantics, a slot move carries the
// player's ready state and team with them. Returns false if either index
// is out of range, the source isn't occupied by userID, or the
// destination isn't open.
func (m *Match) ChangeSlot(userID int32, from, to int) bool {
	if from < 0 || from >= 16 || to < 0 || to >= 16 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.slots[from].occupied() || m.slots[from].UserID != userID {
		return false
	}
	if m.slots[to].Status != SlotOpen {
		return false
	}
	m.slots[to] = m.slots[from]
	m.slots[from] = Slot{Status: SlotOpen}
	return true
}

// ToggleLock locks or unlocks slot idx (§4.F MATCH_LOCK). Locking the
// host's own occupied slot is a documented no-op: the real client allows
// the request but the server silently ignores it rather than locking the
// host out of their own room.
func (m *Match) ToggleLock(idx int) {
	if idx < 0 || idx >= 16 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slots[idx].occupied() && m.slots[idx].UserID == m.hostID {
		return
	}
	switch m.slots[idx].Status {
	case SlotOpen:
		m.slots[idx].Status = SlotLocked
	case SlotLocked:
		m.slots[idx].Status = SlotOpen
	}
}

// SetReady marks userID's slot ready/not-ready (§4.F MATCH_READY /
// MATCH_NOT_READY).
func (m *Match) SetReady(userID int32, ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		if m.slots[i].occupied() && m.slots[i].UserID == userID {
			if ready {
				m.slots[i].Status = SlotReady
			} else {
				m.slots[i].Status = SlotNotReady
			}
			return
		}
	}
}

// AllReady reports whether every occupied, unlocked slot is ready.
func (m *Match) AllReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		if m.slots[i].occupied() && m.slots[i].Status != SlotReady {
			return false
		}
	}
	return true
}

// ChangeMods applies newMods (§4.F "Mods"). Under FreeMods, every caller
// (host included) only ever replaces their own slot's non-speed-changing
// mods; the host additionally gets to steer the room-wide speed-changing
// mods, since nobody else is allowed to change those. Without FreeMods the
// room-wide Mods field changes and every slot's individual mods are
// cleared, matching cho.py's handling of MATCH_CHANGE_MODS.
func (m *Match) ChangeMods(userID int32, newMods int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FreeMods {
		for i := range m.slots {
			if m.slots[i].occupied() && m.slots[i].UserID == userID {
				m.slots[i].Mods = newMods &^ SpeedChangingMods
				break
			}
		}
		if userID == m.hostID {
			m.Mods = newMods & SpeedChangingMods
		}
		return
	}
	m.Mods = newMods
	for i := range m.slots {
		m.slots[i].Mods = 0
	}
}

// SetFreeMods toggles FreeMods (§4.F "Settings change rules"). Turning it
// on hands each occupied slot the room's current non-speed-changing mods
// (DT/HT/NC stay room-wide) so nobody silently loses their mods; turning
// it off folds the room's speed-changing mods together with the host
// slot's chosen mods back into the single room-wide Mods field and clears
// every slot, since free choice is over.
func (m *Match) SetFreeMods(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if on == m.FreeMods {
		return
	}
	if on {
		for i := range m.slots {
			if m.slots[i].occupied() {
				m.slots[i].Mods = m.Mods &^ SpeedChangingMods
			}
		}
		m.Mods &= SpeedChangingMods
	} else {
		var hostMods int32
		for i := range m.slots {
			if m.slots[i].occupied() && m.slots[i].UserID == m.hostID {
				hostMods = m.slots[i].Mods
			}
			m.slots[i].Mods = 0
		}
		m.Mods = (m.Mods & SpeedChangingMods) | hostMods
	}
	m.FreeMods = on
}

// Start marks the match in progress and every ready slot as playing
// (§4.F MATCH_START). Returns the ids of the players now playing; occupied
// slots that were not ready stay as they are and don't play.
func (m *Match) Start() (playing []int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inProgress = true
	m.scoreFrames = make(map[int32]ScoreFrame)
	for i := range m.slots {
		if m.slots[i].occupied() && m.slots[i].Status == SlotReady {
			m.slots[i].Status = SlotPlaying
			m.slots[i].Loaded = false
			m.slots[i].Skipped = false
			playing = append(playing, m.slots[i].UserID)
		}
	}
	return playing
}

// MarkLoaded records that userID has finished loading the beatmap
// (§4.F MATCH_LOAD_COMPLETE). Returns whether every playing slot has now
// loaded.
func (m *Match) MarkLoaded(userID int32) (allLoaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		if m.slots[i].Status == SlotPlaying && m.slots[i].UserID == userID {
			m.slots[i].Loaded = true
		}
	}
	for i := range m.slots {
		if m.slots[i].Status == SlotPlaying && !m.slots[i].Loaded {
			return false
		}
	}
	return true
}

// MarkSkipped records a MATCH_SKIP_REQUEST from userID. Returns whether
// every playing slot has now skipped (the threshold the server
// uses to force-advance everyone past the intro).
func (m *Match) MarkSkipped(userID int32) (allSkipped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		if m.slots[i].Status == SlotPlaying && m.slots[i].UserID == userID {
			m.slots[i].Skipped = true
		}
	}
	for i := range m.slots {
		if m.slots[i].Status == SlotPlaying && !m.slots[i].Skipped {
			return false
		}
	}
	return true
}

// RecordScore stores userID's latest score frame (§4.F MATCH_SCORE_UPDATE),
// used for end-of-match point computation.
func (m *Match) RecordScore(frame ScoreFrame) {
	m.mu.Lock()
	m.scoreFrames[frame.UserID] = frame
	m.mu.Unlock()
}

// PlayingSlots returns the ids of every slot currently Playing or
// Complete: the set that was actually seated for this round, as opposed
// to a spectator-style occupant who never readied up. Callers must
// capture this before Finish resets slots back to not-ready, since §4.F
// Completion requires match_complete (and the scrimmage submission
// gather) to reach only "the set of slots that were playing", immune
// from occupants that were not playing.
func (m *Match) PlayingSlots() []int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int32, 0, 16)
	for i := range m.slots {
		if m.slots[i].occupied() && (m.slots[i].Status == SlotPlaying || m.slots[i].Status == SlotComplete) {
			out = append(out, m.slots[i].UserID)
		}
	}
	return out
}

// Finish marks userID's slot complete (§4.F MATCH_COMPLETE). Returns
// whether every playing slot has now finished, in which case the match
// reverts to not-in-progress and every slot resets to not-ready.
func (m *Match) Finish(userID int32) (allComplete bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		if m.slots[i].Status == SlotPlaying && m.slots[i].UserID == userID {
			m.slots[i].Status = SlotComplete
		}
	}
	for i := range m.slots {
		if m.slots[i].occupied() && m.slots[i].Status == SlotPlaying {
			return false
		}
	}
	m.inProgress = false
	for i := range m.slots {
		if m.slots[i].occupied() {
			m.slots[i].Status = SlotNotReady
			m.slots[i].Loaded = false
			m.slots[i].Skipped = false
		}
	}
	return true
}

// Abort force-ends the match on a MATCH_FAILED or a player disconnect
// mid-play, resetting every slot to not-ready without requiring every
// player to individually report completion.
func (m *Match) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inProgress = false
	for i := range m.slots {
		if m.slots[i].occupied() {
			m.slots[i].Status = SlotNotReady
			m.slots[i].Loaded = false
			m.slots[i].Skipped = false
		}
	}
}

// Wire snapshots the match into its wire representation for
// UPDATE_MATCH/NEW_MATCH/MATCH_JOIN_SUCCESS (§4.A, §4.F).
func (m *Match) Wire() protocol.WireMatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := protocol.WireMatch{
		ID:           m.ID,
		InProgress:   m.inProgress,
		Mods:         m.Mods,
		Name:         m.Name,
		Passwd:       m.Passwd,
		MapName:      m.MapName,
		MapID:        m.MapID,
		MapMD5:       m.MapMD5,
		HostID:       m.hostID,
		Mode:         m.Mode,
		WinCondition: m.WinCondition,
		TeamType:     m.TeamType,
		FreeMods:     m.FreeMods,
		Seed:         m.Seed,
	}
	for i := range m.slots {
		w.SlotStatus[i] = m.slots[i].Status
		w.SlotTeam[i] = m.slots[i].Team
		w.SlotUserID[i] = m.slots[i].UserID
		w.SlotMods[i] = m.slots[i].Mods
	}
	return w
}

// Players returns the ids currently occupying a slot.
func (m *Match) Players() []int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int32, 0, 16)
	for i := range m.slots {
		if m.slots[i].occupied() {
			out = append(out, m.slots[i].UserID)
		}
	}
	return out
}

// titlePattern extracts the two team names from a scrimmage match title
// of the form "ROUND: (Team A) vs (Team B)" (§4.F scoring), ported from
// the original implementation's team-name extraction regex.
var titlePattern = regexp.MustCompile(`^(.+?): \((.+)\) vs\.? \((.+)\)$`)

// ExtractTeamNames parses a scrimmage title into its two team names, if it
// follows the recognized "X: (A) vs (B)" convention.
func ExtractTeamNames(title string) (teamA, teamB string, ok bool) {
	m := titlePattern.FindStringSubmatch(title)
	if m == nil {
		return "", "", false
	}
	return m[2], m[3], true
}

// IsScrimming reports whether the match is currently tracking match points
// toward a scrimmage win (§3 Match.is_scrimming).
func (m *Match) IsScrimming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isScrimming
}

// StartScrimming begins match-point tracking with the given point target
// (§4.F "scrimmage"), clearing any points left over from a prior scrim.
func (m *Match) StartScrimming(winningPts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isScrimming = true
	m.winningPts = winningPts
	m.matchPoints = make(map[int32]int)
	m.winners = nil
}

// StopScrimming clears scrimmage state (§4.F "clear scrimmage state"),
// called either by an explicit `!mp scrim stop`-style command or once a
// side reaches WinningPts.
func (m *Match) StopScrimming() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isScrimming = false
	m.winningPts = 0
	m.matchPoints = make(map[int32]int)
	m.winners = nil
	m.bans = make(map[string]bool)
}

// WinningPts returns the scrimmage point target.
func (m *Match) WinningPts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winningPts
}

// AddMatchPoint increments winnerKey's tally and records it in the winners
// history, returning the new tally and whether it just reached the
// winning threshold (§4.F "If match_points[winner] == winning_pts").
// winnerKey is a user id for FFA, blueWinnerKey/redWinnerKey for teams, or
// 0 for a recorded tie (a tie never reaches the threshold).
func (m *Match) AddMatchPoint(winnerKey int32) (tally int, reachedTarget bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.winners = append(m.winners, winnerKey)
	if winnerKey == 0 {
		return 0, false
	}
	m.matchPoints[winnerKey]++
	tally = m.matchPoints[winnerKey]
	return tally, m.winningPts > 0 && tally == m.winningPts
}

// BanMap records beatmapMD5 as unpickable for the remainder of the current
// scrimmage (§3 Match.bans).
func (m *Match) BanMap(beatmapMD5 string) {
	m.mu.Lock()
	m.bans[beatmapMD5] = true
	m.mu.Unlock()
}

// IsMapBanned reports whether beatmapMD5 was banned this scrimmage.
func (m *Match) IsMapBanned(beatmapMD5 string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bans[beatmapMD5]
}

// AddTourneyClient marks userID as a tourney client allowed to hold this
// match open across multiple concurrent sessions (§3 Match.tourney_clients,
// GLOSSARY "tourney client").
func (m *Match) AddTourneyClient(userID int32) {
	m.mu.Lock()
	m.tourneyClients[userID] = true
	m.mu.Unlock()
}

// RemoveTourneyClient undoes AddTourneyClient.
func (m *Match) RemoveTourneyClient(userID int32) {
	m.mu.Lock()
	delete(m.tourneyClients, userID)
	m.mu.Unlock()
}

// IsTourneyClient reports whether userID was registered via
// AddTourneyClient.
func (m *Match) IsTourneyClient(userID int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tourneyClients[userID]
}
