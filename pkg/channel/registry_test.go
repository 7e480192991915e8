package channel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	loaded    []*Channel
	loadErr   error
	saved     map[string]*Channel
	saveErr   error
	deleted   []string
	deleteErr error
}

func newFakeStore(loaded ...*Channel) *fakeStore {
	return &fakeStore{loaded: loaded, saved: map[string]*Channel{}}
}

func (s *fakeStore) Load() ([]*Channel, error) { return s.loaded, s.loadErr }

func (s *fakeStore) Save(c *Channel) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[c.Name] = c
	return nil
}

func (s *fakeStore) Delete(name string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, name)
	return nil
}

func TestNewRegistryLoadsDurableChannelsFromStore(t *testing.T) {
	store := newFakeStore(New("#osu", "General", 0, 0, true, false))
	r, err := NewRegistry(store)
	require.NoError(t, err)

	c, ok := r.Fetch("#osu")
	require.True(t, ok)
	assert.Equal(t, "General", c.Topic)
}

func TestNewRegistryPropagatesLoadError(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("db down")
	_, err := NewRegistry(store)
	assert.Error(t, err)
}

func TestNewRegistryWithNilStoreStartsEmpty(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	assert.Empty(t, r.All())
}

func TestCreatePersistsDurableChannelsButNotInstanced(t *testing.T) {
	store := newFakeStore()
	r, err := NewRegistry(store)
	require.NoError(t, err)

	_, err = r.Create("#osu", "General", 0, 0, true, false)
	require.NoError(t, err)
	_, ok := store.saved["#osu"]
	assert.True(t, ok)

	_, err = r.Create("#spec_1", "spec", 0, 0, false, true)
	require.NoError(t, err)
	_, ok = store.saved["#spec_1"]
	assert.False(t, ok, "instanced channels never hit the durable store")
}

func TestCreateRollsBackCacheOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("write failed")
	r, err := NewRegistry(store)
	require.NoError(t, err)

	_, err = r.Create("#osu", "General", 0, 0, true, false)
	require.Error(t, err)
	_, ok := r.Fetch("#osu")
	assert.False(t, ok)
}

func TestDeleteRemovesFromCacheAndDurableStoreOnlyWhenNotInstanced(t *testing.T) {
	store := newFakeStore()
	r, err := NewRegistry(store)
	require.NoError(t, err)

	_, err = r.Create("#osu", "General", 0, 0, true, false)
	require.NoError(t, err)
	_, err = r.Create("#spec_1", "spec", 0, 0, false, true)
	require.NoError(t, err)

	require.NoError(t, r.Delete("#osu"))
	require.NoError(t, r.Delete("#spec_1"))

	_, ok := r.Fetch("#osu")
	assert.False(t, ok)
	assert.Equal(t, []string{"#osu"}, store.deleted)
}

func TestDeleteUnknownChannelIsANoOp(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	assert.NoError(t, r.Delete("#nope"))
}

func TestResolveSpectatorPrefersSpectatingOverHosting(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	_, err = r.Create("#spec_5", "spec", 0, 0, false, true)
	require.NoError(t, err)

	ctx := ResolveContext{SpectatingHostID: 5, SelfID: 1, HasSpectators: true}
	ch, ok := r.Resolve("#spectator", ctx)
	require.True(t, ok)
	assert.Equal(t, "#spec_5", ch.Name)
}

func TestResolveSpectatorFallsBackToHostingOwnGroup(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	_, err = r.Create("#spec_1", "spec", 0, 0, false, true)
	require.NoError(t, err)

	ctx := ResolveContext{SpectatingHostID: 0, SelfID: 1, HasSpectators: true}
	ch, ok := r.Resolve("#spectator", ctx)
	require.True(t, ok)
	assert.Equal(t, "#spec_1", ch.Name)
}

func TestResolveSpectatorFailsWithNeitherSpectatingNorSpectators(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	_, ok := r.Resolve("#spectator", ResolveContext{})
	assert.False(t, ok)
}

func TestResolveMultiplayerUsesMatchChannelName(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	_, err = r.Create("#multi_9", "multi", 0, 0, false, true)
	require.NoError(t, err)

	ch, ok := r.Resolve("#multiplayer", ResolveContext{MatchChannelName: "#multi_9"})
	require.True(t, ok)
	assert.Equal(t, "#multi_9", ch.Name)
}

func TestResolveMultiplayerFailsWhenNotInAMatch(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	_, ok := r.Resolve("#multiplayer", ResolveContext{})
	assert.False(t, ok)
}

func TestResolvePassesThroughOrdinaryChannelNames(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	_, err = r.Create("#osu", "General", 0, 0, true, false)
	require.NoError(t, err)

	ch, ok := r.Resolve("#osu", ResolveContext{})
	require.True(t, ok)
	assert.Equal(t, "#osu", ch.Name)
}
