package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesCreateAssignsLowestFreeID(t *testing.T) {
	r := NewMatches()
	m1, err := r.Create("room a", "", 0, 1001)
	require.NoError(t, err)
	assert.Equal(t, int16(0), m1.ID)

	m2, err := r.Create("room b", "", 0, 1002)
	require.NoError(t, err)
	assert.Equal(t, int16(1), m2.ID)

	r.Delete(0)
	m3, err := r.Create("room c", "", 0, 1003)
	require.NoError(t, err)
	assert.Equal(t, int16(0), m3.ID, "a freed id is reused before allocating past the high-water mark")
}

func TestMatchesCreateFailsOnceTableIsFull(t *testing.T) {
	r := NewMatches()
	for i := 0; i < MaxMatches; i++ {
		_, err := r.Create("room", "", 0, int32(i))
		require.NoError(t, err)
	}
	_, err := r.Create("one too many", "", 0, 9999)
	assert.ErrorIs(t, err, ErrMatchesFull)
}

func TestMatchesByIDAndAll(t *testing.T) {
	r := NewMatches()
	m, err := r.Create("room", "", 0, 1001)
	require.NoError(t, err)

	got, ok := r.ByID(m.ID)
	assert.True(t, ok)
	assert.Same(t, m, got)

	assert.Len(t, r.All(), 1)

	r.Delete(m.ID)
	_, ok = r.ByID(m.ID)
	assert.False(t, ok)
}
