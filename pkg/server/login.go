package server

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/osuAkatsuki/bancho-core/pkg/channel"
	"github.com/osuAkatsuki/bancho-core/pkg/privileges"
	"golang.org/x/crypto/bcrypt"
)

// osuVersionPattern matches the client-reported version string, e.g.
// "b20230101.2cuttingedge", "b20230101.3tourney", or "b20230101" (§4.G
// step 1). The stream group covers every stream the original accepts,
// including "tourney" (GLOSSARY "tourney client") and "dev".
var osuVersionPattern = regexp.MustCompile(`^b(\d{8})(?:\.\d+)?(beta|cuttingedge|dev|tourney)?$`)

// staleClientThreshold is how old a reported client build may be before
// it is rejected as out of date (§4.G step 2).
const staleClientThreshold = 90 * 24 * time.Hour

// ghostGraceWindow is how recently a duplicate-name session must have
// been heard from before it's treated as a live ghost rather than a dead
// one safe to evict (§4.G step 4).
const ghostGraceWindow = 10 * time.Second

// LoginFailure is a negated user_id login result code (§4.G).
type LoginFailure int32

const (
	FailAuth            LoginFailure = -1
	FailOldClient       LoginFailure = -2
	FailBanned          LoginFailure = -3
	FailBannedAlt       LoginFailure = -4
	FailServerError     LoginFailure = -5
	FailSupporterNeeded LoginFailure = -6
	FailPasswordReset   LoginFailure = -7
	FailNeedsVerify     LoginFailure = -8
)

// LoginRequest is the parsed login body plus the request-level facts the
// pipeline needs but that don't live in the body itself (§4.G).
type LoginRequest struct {
	Username     string
	PasswordMD5  string
	OsuVersion   string
	UTCOffset    int
	DisplayCity  bool
	ClientHashes string
	PMPrivate    bool
	ClientIP     string
}

// ParseLoginBody parses the raw `username\npassword_md5\nosu_version|utc_offset|display_city|client_hashes|pm_private\n`
// body (§4.G).
func ParseLoginBody(body string, clientIP string) (LoginRequest, error) {
	lines := strings.SplitN(body, "\n", 4)
	if len(lines) < 3 {
		return LoginRequest{}, fmt.Errorf("login: malformed body: expected 3 lines, got %d", len(lines))
	}
	fields := strings.Split(lines[2], "|")
	if len(fields) < 5 {
		return LoginRequest{}, fmt.Errorf("login: malformed client info line: expected 5 fields, got %d", len(fields))
	}
	offset, err := strconv.Atoi(fields[1])
	if err != nil {
		return LoginRequest{}, fmt.Errorf("login: bad utc_offset: %w", err)
	}
	req := LoginRequest{
		Username:     lines[0],
		PasswordMD5:  lines[1],
		OsuVersion:   fields[0],
		UTCOffset:    offset,
		DisplayCity:  fields[2] == "1",
		ClientHashes: fields[3],
		PMPrivate:    fields[4] == "1",
		ClientIP:     clientIP,
	}
	return req, nil
}

// ClientHashParts is client_hashes split on ':' (§4.G):
// osu_path_md5:adapters:adapters_md5:uninstall_md5:disk_signature_md5:
type ClientHashParts struct {
	OsuPathMD5       string
	Adapters         string
	AdaptersMD5      string
	UninstallMD5     string
	DiskSignatureMD5 string
}

// ParseClientHashes splits the client_hashes field into its components.
func ParseClientHashes(s string) (ClientHashParts, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 5 {
		return ClientHashParts{}, fmt.Errorf("login: malformed client_hashes: expected 5 parts, got %d", len(parts))
	}
	return ClientHashParts{
		OsuPathMD5:       parts[0],
		Adapters:         parts[1],
		AdaptersMD5:      parts[2],
		UninstallMD5:     parts[3],
		DiskSignatureMD5: parts[4],
	}, nil
}

// LoginResult is what the login pipeline hands back to the HTTP front
// door: either a fresh Session plus its bootstrap bytes, or a failure
// code plus a diagnostic token string for the cho-token response header.
type LoginResult struct {
	Session      *Session
	Bootstrap    []byte
	Failure      LoginFailure
	FailureToken string
}

// FirstUserPrivileges is the elevated privilege bundle granted to the
// very first account login the server ever processes (§4.G supplement).
// Configurable rather than hardcoded to a specific account id, since this
// core doesn't own account numbering.
var FirstUserPrivileges = privileges.Unrestricted | privileges.Verified | privileges.Administrator | privileges.Developer

// LoginDeps bundles the external collaborators and config the login
// pipeline needs (§6).
type LoginDeps struct {
	Users           UserStore
	Mail            MailStore
	Geo             GeoIPResolver
	Sessions        *Sessions
	Channels        *channel.Registry
	Stats           StatsProvider
	BcryptCache     *cache.Cache // md5_password -> bcrypt hash, memoized verifies
	MenuIconURL     string
	MenuClickURL    string
	IsFirstAccount  func(id int32) bool
}

// Login runs the full §4.G pipeline against req, returning a LoginResult.
// now is the login time (injected so callers don't need wall-clock access
// inside this package).
func Login(ctx context.Context, deps LoginDeps, req LoginRequest, now time.Time) LoginResult {
	if !osuVersionPattern.MatchString(req.OsuVersion) {
		return LoginResult{Failure: FailAuth, FailureToken: "invalid-request"}
	}

	m := osuVersionPattern.FindStringSubmatch(req.OsuVersion)
	buildDate, err := time.Parse("20060102", m[1])
	if err != nil || now.Sub(buildDate) > staleClientThreshold {
		return LoginResult{Failure: FailOldClient, FailureToken: "client-too-old"}
	}
	isTourneyStream := m[2] == "tourney"

	hashes, err := ParseClientHashes(req.ClientHashes)
	if err != nil {
		return LoginResult{Failure: FailAuth, FailureToken: "invalid-request"}
	}
	runningUnderWine := hashes.Adapters == "runningunderwine"
	if hashes.Adapters == "" && !runningUnderWine {
		return LoginResult{Failure: FailAuth, FailureToken: "empty-adapters"}
	}

	if existing, ok := deps.Sessions.ByName(req.Username); ok {
		if now.Sub(existing.LastRecvTime()) > ghostGraceWindow {
			Logout(deps.Sessions, deps.Channels, existing, now)
		} else if !isTourneyStream && !existing.TourneyClient {
			return LoginResult{Failure: FailAuth, FailureToken: "user-ghosted"}
		}
	}

	account, err := deps.Users.FetchByName(ctx, req.Username)
	if err != nil || account == nil {
		return LoginResult{Failure: FailAuth, FailureToken: "login-failed"}
	}

	if !verifyPassword(deps.BcryptCache, req.PasswordMD5, account.PasswordHash) {
		return LoginResult{Failure: FailAuth, FailureToken: "login-failed"}
	}

	if isTourneyStream && !(account.Priv.Has(privileges.Donator) && account.Priv.Has(privileges.Unrestricted)) {
		return LoginResult{Failure: FailAuth, FailureToken: "no"}
	}

	if !account.Priv.Has(privileges.Unrestricted) {
		return LoginResult{Failure: FailBanned, FailureToken: "login-failed"}
	}

	if matches, err := deps.Users.FetchByHardware(ctx, hashes.AdaptersMD5, hashes.UninstallMD5, hashes.DiskSignatureMD5); err == nil {
		for _, other := range matches {
			if other.ID != account.ID && !other.Priv.Has(privileges.Unrestricted) {
				return LoginResult{Failure: FailBanned, FailureToken: "contact-staff"}
			}
		}
	}

	_ = deps.Users.UpdateLastActivity(ctx, account.ID, now)

	firstLogin := !account.Priv.Has(privileges.Verified)
	priv := account.Priv
	if firstLogin {
		priv |= privileges.Verified
		if deps.IsFirstAccount != nil && deps.IsFirstAccount(account.ID) {
			priv = FirstUserPrivileges
		}
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	sess := NewSession(account.ID, account.Name, token, priv, now)
	sess.TourneyClient = isTourneyStream
	sess.UTCOffset = req.UTCOffset
	sess.Client = ClientDetails{
		OsuVersion:       req.OsuVersion,
		OsuPathMD5:       hashes.OsuPathMD5,
		Adapters:         hashes.Adapters,
		AdaptersMD5:      hashes.AdaptersMD5,
		UninstallMD5:     hashes.UninstallMD5,
		DiskSignatureMD5: hashes.DiskSignatureMD5,
		RunningUnderWine: runningUnderWine,
	}
	sess.SilenceEnd = account.SilenceEnd
	for _, id := range account.Friends {
		sess.Friends[id] = struct{}{}
	}
	for _, id := range account.Blocks {
		sess.Blocks[id] = struct{}{}
	}
	if deps.Geo != nil && !isPrivateIP(req.ClientIP) {
		if geo, err := deps.Geo.Resolve(ctx, req.ClientIP); err == nil {
			sess.Geoloc = geo
		}
	}

	deps.Sessions.Add(sess)

	bootstrap := buildBootstrap(ctx, deps, sess, firstLogin, now)
	return LoginResult{Session: sess, Bootstrap: bootstrap}
}

// sendQueuedMail delivers every unread DM waiting for sess, grouped per
// sender with a banner line ahead of each sender's run of messages (§4.G
// "queued mail, grouped per sender with a banner line").
func sendQueuedMail(ctx context.Context, deps LoginDeps, sess *Session) {
	if deps.Mail == nil {
		return
	}
	queued, err := deps.Mail.FetchUnread(ctx, sess.ID())
	if err != nil || len(queued) == 0 {
		return
	}
	lastSender := int32(0)
	for _, mail := range queued {
		if mail.FromID != lastSender {
			sess.Enqueue(PacketMessage(mail.FromName, fmt.Sprintf("You have unread mail from %s:", mail.FromName), sess.Name, mail.FromID))
			lastSender = mail.FromID
		}
		sess.Enqueue(PacketMessage(mail.FromName, mail.Message, sess.Name, mail.FromID))
	}
}

// verifyPassword bcrypt-verifies pwMD5 against storedHash, memoizing
// successful verifies in cache so a repeat login from the same client
// doesn't re-pay bcrypt's cost every time (§4.G step 6, §6 bcrypt cache).
func verifyPassword(c *cache.Cache, pwMD5, storedHash string) bool {
	if c != nil {
		if cached, ok := c.Get(pwMD5); ok && cached.(string) == storedHash {
			return true
		}
	}
	if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(pwMD5)) != nil {
		return false
	}
	if c != nil {
		c.SetDefault(pwMD5, storedHash)
	}
	return true
}

// isPrivateIP reports whether ip is a loopback/private address that
// geolocation shouldn't be attempted for (§4.G "geolocate non-private
// IPs").
func isPrivateIP(ip string) bool {
	if ip == "" {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && (parsed.IsLoopback() || parsed.IsPrivate())
}

// buildBootstrap assembles the login success payload (§4.G): protocol
// version, user id, privileges, welcome notification, channel_info batch,
// menu icon, friends list, silence_end, own presence/stats, peer
// presence/stats, and the restricted-account warning if applicable.
func buildBootstrap(ctx context.Context, deps LoginDeps, sess *Session, firstLogin bool, now time.Time) []byte {
	sess.Enqueue(PacketProtocolVersion(19))
	sess.Enqueue(PacketUserID(sess.ID()))
	sess.Enqueue(PacketBanchoPrivileges(sess.ClientPriv | privileges.ClientSupporter))
	sess.Enqueue(PacketNotification(fmt.Sprintf("Welcome back, %s!", sess.Name)))

	SendChannelInfoBatch(sess, deps.Channels)
	for _, c := range deps.Channels.All() {
		if c.AutoJoin && !c.Instance && c.Name != "#lobby" {
			c.Join(sess)
		}
	}

	if deps.MenuIconURL != "" {
		sess.Enqueue(PacketMainMenuIcon(deps.MenuIconURL, deps.MenuClickURL))
	}

	friendIDs := make([]int32, 0, len(sess.Friends))
	for id := range sess.Friends {
		friendIDs = append(friendIDs, id)
	}
	sess.Enqueue(PacketFriendsList(friendIDs))
	sess.Enqueue(PacketSilenceEnd(sess.RemainingSilence(now)))

	selfPresence := UserPresencePayload{
		ID: sess.ID(), Name: sess.Name, UTCOffset: int8(sess.UTCOffset),
		CountryCode: sess.Geoloc.CountryID(), ClientPriv: sess.ClientPriv,
		Longitude: sess.Geoloc.Longitude, Latitude: sess.Geoloc.Latitude,
	}
	sess.Enqueue(PacketUserPresence(selfPresence))
	if deps.Stats != nil {
		stats := deps.Stats.Stats(sess.ID(), 0)
		stats.ID = sess.ID()
		sess.Enqueue(PacketUserStats(stats))
	}

	for _, peer := range deps.Sessions.All() {
		if peer == sess || !visibleTo(sess, peer) {
			continue
		}
		sess.Enqueue(PacketUserPresence(UserPresencePayload{
			ID: peer.ID(), Name: peer.Name, UTCOffset: int8(peer.UTCOffset),
			CountryCode: peer.Geoloc.CountryID(), ClientPriv: peer.ClientPriv,
			Mode: peer.Status().Mode, Longitude: peer.Geoloc.Longitude, Latitude: peer.Geoloc.Latitude,
		}))
		if deps.Stats != nil {
			stats := deps.Stats.Stats(peer.ID(), peer.Status().Mode)
			stats.ID = peer.ID()
			sess.Enqueue(PacketUserStats(stats))
		}
		if !visibleTo(peer, sess) {
			continue
		}
		peer.Enqueue(PacketUserPresence(selfPresence))
	}

	BroadcastChannelInfo(deps.Sessions, deps.Channels)

	sendQueuedMail(ctx, deps, sess)

	if firstLogin {
		sess.Enqueue(PacketNotification("Thanks for verifying your account!"))
	}

	if sess.Restricted() {
		sess.Enqueue(PacketAccountRestricted())
		sess.Enqueue(PacketNotification("Your account is currently in restricted mode. Please contact staff."))
	}

	return sess.DrainOutbound()
}
