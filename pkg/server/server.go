package server

import (
	"context"
	"time"

	"github.com/osuAkatsuki/bancho-core/pkg/channel"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/osuAkatsuki/bancho-core/pkg/chat"
	"github.com/osuAkatsuki/bancho-core/pkg/metrics"
)

// Config holds the handful of values that shape a Server's behavior
// without being wired through dependency injection (§4.G, §4.H, §4.I),
// following the teacher's flat config-struct style (cmd/server/main.go's
// original Config, now sourced from YAML instead of flags).
type Config struct {
	Domain          string
	MenuIconURL     string
	MenuClickURL    string
	CommandPrefix   string
	BotID           int32
	BotName         string
	IdleThreshold   time.Duration
	NpTimeout       time.Duration
}

// Server wires together every registry and collaborator the bancho core
// needs, the way the teacher's Server struct wires its players/entities
// maps plus world state (pkg/server/server.go). This is the root object
// cmd/server/main.go constructs and the HTTP front door closes over.
type Server struct {
	Config Config
	Log    *zap.SugaredLogger

	Sessions *Sessions
	Channels *channel.Registry
	Matches  *Matches

	Users     UserStore
	Beatmaps  BeatmapStore
	Mail      MailStore
	Geo       GeoIPResolver
	Perf      PerformanceCalculator
	Stats     StatsProvider
	Commands  chat.Processor
	Submitter ScoreSubmitter

	BcryptCache *cache.Cache

	Metrics *metrics.Metrics
}

// New constructs a Server. channelStore may be nil for an entirely
// ephemeral channel set (tests commonly do this).
func New(cfg Config, log *zap.SugaredLogger, channelStore channel.Store) (*Server, error) {
	channels, err := channel.NewRegistry(channelStore)
	if err != nil {
		return nil, err
	}
	return &Server{
		Config:      cfg,
		Log:         log,
		Sessions:    NewSessions(),
		Channels:    channels,
		Matches:     NewMatches(),
		BcryptCache: cache.New(10*time.Minute, 15*time.Minute),
		Metrics:     metrics.New(),
	}, nil
}

// loginDeps projects Server's collaborators into the narrower LoginDeps
// shape the login pipeline depends on.
func (s *Server) loginDeps() LoginDeps {
	return LoginDeps{
		Users:          s.Users,
		Mail:           s.Mail,
		Geo:            s.Geo,
		Sessions:       s.Sessions,
		Channels:       s.Channels,
		Stats:          s.Stats,
		BcryptCache:    s.BcryptCache,
		MenuIconURL:    s.Config.MenuIconURL,
		MenuClickURL:   s.Config.MenuClickURL,
		IsFirstAccount: s.isFirstAccount,
	}
}

// isFirstAccount asks the UserStore whether id is the very first account
// it ever registered, swallowing store errors as "no" since this only
// gates a bonus privilege grant, never login itself.
func (s *Server) isFirstAccount(id int32) bool {
	if s.Users == nil {
		return false
	}
	first, err := s.Users.IsFirstAccount(context.Background(), id)
	return err == nil && first
}

// RunHousekeeping runs one pass of the periodic maintenance tasks (§4.I):
// idle-session reaping, now-playing expiry, metrics flush. Intended to be
// called from a ticking goroutine in main.go.
func (s *Server) RunHousekeeping(now time.Time) {
	reaped := ReapIdleSessions(s.Sessions, s.Channels, now, s.Log)
	ExpireNowPlaying(s.Sessions, now)
	if s.Metrics != nil {
		s.Metrics.OnlineUsers.Set(float64(s.Sessions.Count()))
		s.Metrics.ActiveMatches.Set(float64(len(s.Matches.All())))
		if reaped > 0 {
			s.Metrics.SessionsReaped.Add(float64(reaped))
		}
	}
}
