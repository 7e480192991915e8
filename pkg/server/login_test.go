package server

import (
	"context"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/osuAkatsuki/bancho-core/pkg/channel"
	"github.com/osuAkatsuki/bancho-core/pkg/privileges"
	"github.com/osuAkatsuki/bancho-core/pkg/protocol"
)

func newTestCache() *cache.Cache {
	return cache.New(10*time.Minute, 15*time.Minute)
}

// loginTestNow is a fixed reference instant shortly after the fixed client
// build date used throughout this file's login requests, so these tests
// never depend on how old the sandbox's wall clock makes "b20260101" look.
var loginTestNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

const testClientHashes = "pathmd5:adapter1 adapter2:adaptersmd5:uninstallmd5:disksigmd5:"

type fakeUserStore struct {
	byName map[string]*Account
	byID   map[int32]*Account
}

func newFakeUserStore(accounts ...*Account) *fakeUserStore {
	s := &fakeUserStore{byName: map[string]*Account{}, byID: map[int32]*Account{}}
	for _, a := range accounts {
		s.byName[a.Name] = a
		s.byID[a.ID] = a
	}
	return s
}

func (s *fakeUserStore) FetchByName(ctx context.Context, name string) (*Account, error) {
	a, ok := s.byName[name]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (s *fakeUserStore) FetchByHardware(ctx context.Context, adaptersMD5, uninstallMD5, diskSignatureMD5 string) ([]*Account, error) {
	return nil, nil
}

func (s *fakeUserStore) UpdateLastActivity(ctx context.Context, id int32, at time.Time) error {
	return nil
}

func (s *fakeUserStore) IsFirstAccount(ctx context.Context, id int32) (bool, error) {
	return false, nil
}

func mustHash(t *testing.T, pwMD5 string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pwMD5), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func baseLoginRequest(username string) LoginRequest {
	return LoginRequest{
		Username:     username,
		PasswordMD5:  "deadbeefdeadbeefdeadbeefdeadbeef",
		OsuVersion:   "b20260101",
		UTCOffset:    0,
		ClientHashes: testClientHashes,
		ClientIP:     "",
	}
}

func newLoginDeps(users UserStore) LoginDeps {
	channels, _ := channel.NewRegistry(nil)
	return LoginDeps{
		Users:    users,
		Sessions: NewSessions(),
		Channels: channels,
	}
}

func TestLoginRejectsMalformedVersionString(t *testing.T) {
	req := baseLoginRequest("cookiezi")
	req.OsuVersion = "not-a-version"
	result := Login(context.Background(), newLoginDeps(newFakeUserStore()), req, loginTestNow)
	assert.Equal(t, FailAuth, result.Failure)
	assert.Nil(t, result.Session)
}

func TestLoginRejectsStaleClientVersion(t *testing.T) {
	req := baseLoginRequest("cookiezi")
	req.OsuVersion = "b20200101"
	result := Login(context.Background(), newLoginDeps(newFakeUserStore()), req, loginTestNow)
	assert.Equal(t, FailOldClient, result.Failure)
}

func TestLoginRejectsEmptyAdaptersWithoutWine(t *testing.T) {
	req := baseLoginRequest("cookiezi")
	req.ClientHashes = "pathmd5::adaptersmd5:uninstallmd5:disksigmd5:"
	result := Login(context.Background(), newLoginDeps(newFakeUserStore()), req, loginTestNow)
	assert.Equal(t, FailAuth, result.Failure)
}

func TestLoginUnknownUsernameFails(t *testing.T) {
	req := baseLoginRequest("nobody")
	result := Login(context.Background(), newLoginDeps(newFakeUserStore()), req, loginTestNow)
	assert.Equal(t, FailAuth, result.Failure)
}

func TestLoginWrongPasswordFails(t *testing.T) {
	acc := &Account{ID: 1, Name: "cookiezi", PasswordHash: mustHash(t, "correct"), Priv: privileges.Unrestricted | privileges.Verified}
	req := baseLoginRequest("cookiezi")
	result := Login(context.Background(), newLoginDeps(newFakeUserStore(acc)), req, loginTestNow)
	assert.Equal(t, FailAuth, result.Failure)
}

func TestLoginBannedAccountFails(t *testing.T) {
	acc := &Account{ID: 1, Name: "cookiezi", PasswordHash: mustHash(t, "deadbeefdeadbeefdeadbeefdeadbeef"), Priv: privileges.Verified}
	req := baseLoginRequest("cookiezi")
	result := Login(context.Background(), newLoginDeps(newFakeUserStore(acc)), req, loginTestNow)
	assert.Equal(t, FailBanned, result.Failure)
}

func TestLoginSuccessBuildsSessionAndBootstrap(t *testing.T) {
	acc := &Account{ID: 1, Name: "cookiezi", PasswordHash: mustHash(t, "deadbeefdeadbeefdeadbeefdeadbeef"), Priv: privileges.Unrestricted | privileges.Verified}
	req := baseLoginRequest("cookiezi")
	deps := newLoginDeps(newFakeUserStore(acc))

	result := Login(context.Background(), deps, req, loginTestNow)
	require.NotNil(t, result.Session)
	assert.Equal(t, int32(1), result.Session.ID())
	assert.NotEmpty(t, result.Bootstrap)

	var ids []uint16
	offset := 0
	for offset < len(result.Bootstrap) {
		pkt, next, err := protocol.ReadPacket(result.Bootstrap, offset)
		require.NoError(t, err)
		ids = append(ids, pkt.ID)
		offset = next
	}
	assert.Contains(t, ids, protocol.PROTOCOL_VERSION)
	assert.Contains(t, ids, protocol.USER_ID)
	assert.Contains(t, ids, protocol.BANCHO_PRIVILEGES)
}

func TestLoginFirstAccountGetsElevatedPrivileges(t *testing.T) {
	acc := &Account{ID: 1, Name: "cookiezi", PasswordHash: mustHash(t, "deadbeefdeadbeefdeadbeefdeadbeef"), Priv: privileges.Unrestricted}
	req := baseLoginRequest("cookiezi")
	deps := newLoginDeps(newFakeUserStore(acc))
	deps.IsFirstAccount = func(id int32) bool { return id == 1 }

	result := Login(context.Background(), deps, req, loginTestNow)
	require.NotNil(t, result.Session)
	assert.Equal(t, FirstUserPrivileges, result.Session.Priv)
}

func TestLoginGhostEvictionWithinGraceWindowRejectsNewLogin(t *testing.T) {
	now := loginTestNow
	acc := &Account{ID: 1, Name: "cookiezi", PasswordHash: mustHash(t, "deadbeefdeadbeefdeadbeefdeadbeef"), Priv: privileges.Unrestricted | privileges.Verified}
	deps := newLoginDeps(newFakeUserStore(acc))

	ghost := NewSession(1, "cookiezi", "old-token", privileges.Unrestricted, now)
	ghost.Touch(now)
	deps.Sessions.Add(ghost)

	req := baseLoginRequest("cookiezi")
	result := Login(context.Background(), deps, req, now.Add(2*time.Second))
	assert.Equal(t, FailAuth, result.Failure)
	assert.Equal(t, "user-ghosted", result.FailureToken)
}

func TestLoginGhostEvictionPastGraceWindowEvictsAndLogsIn(t *testing.T) {
	now := loginTestNow
	acc := &Account{ID: 1, Name: "cookiezi", PasswordHash: mustHash(t, "deadbeefdeadbeefdeadbeefdeadbeef"), Priv: privileges.Unrestricted | privileges.Verified}
	deps := newLoginDeps(newFakeUserStore(acc))

	ghost := NewSession(1, "cookiezi", "old-token", privileges.Unrestricted, now)
	ghost.Touch(now)
	deps.Sessions.Add(ghost)

	req := baseLoginRequest("cookiezi")
	result := Login(context.Background(), deps, req, now.Add(ghostGraceWindow+time.Second))
	require.NotNil(t, result.Session)
	assert.NotEqual(t, "old-token", result.Session.Token)

	got, ok := deps.Sessions.ByID(1)
	assert.True(t, ok)
	assert.Same(t, result.Session, got)
}

func TestLoginTourneyClientBypassesGhostEviction(t *testing.T) {
	now := loginTestNow
	acc := &Account{ID: 1, Name: "cookiezi", PasswordHash: mustHash(t, "deadbeefdeadbeefdeadbeefdeadbeef"), Priv: privileges.Unrestricted | privileges.Verified}
	deps := newLoginDeps(newFakeUserStore(acc))

	ghost := NewSession(1, "cookiezi", "old-token", privileges.Unrestricted, now)
	ghost.Touch(now)
	ghost.TourneyClient = true
	deps.Sessions.Add(ghost)

	req := baseLoginRequest("cookiezi")
	result := Login(context.Background(), deps, req, now.Add(2*time.Second))
	assert.NotEqual(t, FailAuth, result.Failure)
}

func TestLoginTourneyStreamBypassesGhostEvictionOfNonTourneyExisting(t *testing.T) {
	now := loginTestNow
	acc := &Account{ID: 1, Name: "cookiezi", PasswordHash: mustHash(t, "deadbeefdeadbeefdeadbeefdeadbeef"), Priv: privileges.Unrestricted | privileges.Verified | privileges.Donator}
	deps := newLoginDeps(newFakeUserStore(acc))

	existing := NewSession(1, "cookiezi", "old-token", privileges.Unrestricted, now)
	existing.Touch(now)
	deps.Sessions.Add(existing)

	req := baseLoginRequest("cookiezi")
	req.OsuVersion = "b20260101tourney"
	result := Login(context.Background(), deps, req, now.Add(2*time.Second))
	assert.NotEqual(t, FailAuth, result.Failure)
}

func TestLoginAcceptsTourneyAndDevStreams(t *testing.T) {
	now := loginTestNow
	acc := &Account{ID: 1, Name: "cookiezi", PasswordHash: mustHash(t, "deadbeefdeadbeefdeadbeefdeadbeef"), Priv: privileges.Unrestricted | privileges.Verified | privileges.Donator}
	deps := newLoginDeps(newFakeUserStore(acc))

	req := baseLoginRequest("cookiezi")
	req.OsuVersion = "b20260101.3tourney"
	result := Login(context.Background(), deps, req, now)
	require.NotNil(t, result.Session)
	assert.True(t, result.Session.TourneyClient)

	deps.Sessions.Remove(result.Session)
	req2 := baseLoginRequest("cookiezi")
	req2.OsuVersion = "b20260101dev"
	result2 := Login(context.Background(), deps, req2, now)
	require.NotNil(t, result2.Session)
	assert.False(t, result2.Session.TourneyClient)
}

func TestLoginTourneyStreamRequiresDonatorAndUnrestricted(t *testing.T) {
	now := loginTestNow
	acc := &Account{ID: 1, Name: "cookiezi", PasswordHash: mustHash(t, "deadbeefdeadbeefdeadbeefdeadbeef"), Priv: privileges.Unrestricted | privileges.Verified}
	deps := newLoginDeps(newFakeUserStore(acc))

	req := baseLoginRequest("cookiezi")
	req.OsuVersion = "b20260101tourney"
	result := Login(context.Background(), deps, req, now)
	assert.Equal(t, FailAuth, result.Failure)
	assert.Equal(t, "no", result.FailureToken)
	assert.Nil(t, result.Session)
}

type fakeMailStore struct {
	queued map[int32][]QueuedMail
}

func (m *fakeMailStore) Store(ctx context.Context, fromID, toID int32, message string) error {
	m.queued[toID] = append(m.queued[toID], QueuedMail{FromID: fromID, Message: message})
	return nil
}

func (m *fakeMailStore) FetchUnread(ctx context.Context, toID int32) ([]QueuedMail, error) {
	return m.queued[toID], nil
}

func TestSendQueuedMailGroupsConsecutiveMessagesPerSenderWithOneBanner(t *testing.T) {
	sess := NewSession(1, "recipient", "t1", privileges.Unrestricted, time.Now())
	mail := &fakeMailStore{queued: map[int32][]QueuedMail{
		1: {
			{FromID: 10, FromName: "alice", Message: "hi"},
			{FromID: 10, FromName: "alice", Message: "you there?"},
			{FromID: 20, FromName: "bob", Message: "yo"},
		},
	}}
	deps := LoginDeps{Mail: mail}

	sendQueuedMail(context.Background(), deps, sess)

	out := sess.DrainOutbound()
	var texts []string
	offset := 0
	for offset < len(out) {
		pkt, next, err := protocol.ReadPacket(out, offset)
		require.NoError(t, err)
		msg, err := protocol.ReadMessage(protocol.NewReader(pkt.Data))
		require.NoError(t, err)
		texts = append(texts, msg.Text)
		offset = next
	}
	require.Len(t, texts, 4)
	assert.Contains(t, texts[0], "unread mail from alice")
	assert.Equal(t, "hi", texts[1])
	assert.Equal(t, "you there?", texts[2])
	assert.Contains(t, texts[3], "unread mail from bob")
}

func TestVerifyPasswordMemoizesSuccessfulVerifyInCache(t *testing.T) {
	hash := mustHash(t, "pw")
	c := newTestCache()
	assert.True(t, verifyPassword(c, "pw", hash))
	cached, ok := c.Get("pw")
	require.True(t, ok)
	assert.Equal(t, hash, cached)

	assert.True(t, verifyPassword(c, "pw", hash), "a cached hit must not re-run bcrypt")
	assert.False(t, verifyPassword(c, "wrong", hash))
}

func TestIsPrivateIP(t *testing.T) {
	assert.True(t, isPrivateIP(""))
	assert.True(t, isPrivateIP("127.0.0.1"))
	assert.True(t, isPrivateIP("192.168.1.5"))
	assert.False(t, isPrivateIP("8.8.8.8"))
}
