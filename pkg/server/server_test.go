package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osuAkatsuki/bancho-core/pkg/channel"
)

type firstAccountUserStore struct {
	first int32
}

func (s *firstAccountUserStore) FetchByName(ctx context.Context, name string) (*Account, error) {
	return nil, nil
}

func (s *firstAccountUserStore) FetchByHardware(ctx context.Context, adaptersMD5, uninstallMD5, diskSignatureMD5 string) ([]*Account, error) {
	return nil, nil
}

func (s *firstAccountUserStore) UpdateLastActivity(ctx context.Context, id int32, at time.Time) error {
	return nil
}

func (s *firstAccountUserStore) IsFirstAccount(ctx context.Context, id int32) (bool, error) {
	return id == s.first, nil
}

func TestServerLoginDepsWiresIsFirstAccountToUserStore(t *testing.T) {
	channels, err := channel.NewRegistry(nil)
	require.NoError(t, err)
	srv := &Server{
		Sessions: NewSessions(),
		Channels: channels,
		Matches:  NewMatches(),
		Users:    &firstAccountUserStore{first: 1},
	}

	deps := srv.loginDeps()
	require.NotNil(t, deps.IsFirstAccount)
	assert.True(t, deps.IsFirstAccount(1))
	assert.False(t, deps.IsFirstAccount(2))
}

func TestServerIsFirstAccountWithNilUserStoreIsFalse(t *testing.T) {
	srv := &Server{}
	assert.False(t, srv.isFirstAccount(1))
}
