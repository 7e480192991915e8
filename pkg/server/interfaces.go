package server

import (
	"context"
	"time"

	"github.com/osuAkatsuki/bancho-core/pkg/privileges"
)

// Account is the subset of a player's persisted account the core needs to
// build a session and a login bootstrap payload (§6 UserStore).
type Account struct {
	ID            int32
	Name          string
	PasswordHash  string // bcrypt hash, as stored by the external account store
	Priv          privileges.Privileges
	Country       string
	SilenceEnd    time.Time
	Friends       []int32
	Blocks        []int32
}

// UserStore is the external account persistence collaborator (§6). The
// core never touches a database directly; persistence, registration, and
// the web-facing account UI are explicit non-goals.
type UserStore interface {
	FetchByName(ctx context.Context, name string) (*Account, error)
	FetchByHardware(ctx context.Context, adaptersMD5, uninstallMD5, diskSignatureMD5 string) ([]*Account, error)
	UpdateLastActivity(ctx context.Context, id int32, at time.Time) error
	// IsFirstAccount reports whether id is the very first account the
	// store ever registered, backing the login bootstrap's elevated
	// first-account privilege grant (§4.G supplement, FirstUserPrivileges).
	IsFirstAccount(ctx context.Context, id int32) (bool, error)
}

// BeatmapMeta is the subset of beatmap metadata needed to populate a
// match's map fields and answer BEATMAP_INFO_REQUEST (§6 BeatmapStore).
type BeatmapMeta struct {
	BeatmapID    int32
	SetID        int32
	MD5          string
	Name         string
	Ranked       int8
}

// BeatmapStore is the external beatmap metadata collaborator (§6).
type BeatmapStore interface {
	FetchByMD5(ctx context.Context, md5 string) (*BeatmapMeta, error)
	FetchByID(ctx context.Context, beatmapID int32) (*BeatmapMeta, error)
}

// QueuedMail is one stored message waiting for its recipient's next login
// (§6 "mail.fetch_unread").
type QueuedMail struct {
	FromID   int32
	FromName string
	Message  string
}

// MailStore is the external private-message persistence collaborator
// (§6), used so an offline recipient still has their DMs on next login.
type MailStore interface {
	Store(ctx context.Context, fromID, toID int32, message string) error
	FetchUnread(ctx context.Context, toID int32) ([]QueuedMail, error)
}

// GeoIPResolver is the external geolocation collaborator (§6), consulted
// once at login time from the client's IP.
type GeoIPResolver interface {
	Resolve(ctx context.Context, ip string) (Geolocation, error)
}

// PerformanceCalculator is the external pp/difficulty collaborator (§6),
// used to turn a completed score into the "pp" figure shown in scrimmage
// score announcements under the scoreV2 win condition.
type PerformanceCalculator interface {
	Calculate(ctx context.Context, beatmapMD5 string, mode uint8, mods int32, accuracy float64, maxCombo int32) (pp float64, err error)
}
