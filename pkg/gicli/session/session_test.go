package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New()
	defer s.Close()

	s.Set("k", "v", time.Hour)
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestGetExpiredEntryIsAbsent(t *testing.T) {
	s := New()
	defer s.Close()

	s.Set("k", "v", time.Nanosecond)
	time.Sleep(time.Millisecond)

	_, ok := s.Get("k")
	assert.False(t, ok)
	assert.False(t, s.Has("k"))
}

func TestSetZeroTTLNeverExpires(t *testing.T) {
	s := New()
	defer s.Close()

	s.Set("k", "v", 0)
	time.Sleep(time.Millisecond)
	_, ok := s.Get("k")
	assert.True(t, ok)
}

func TestDeleteRemovesEntry(t *testing.T) {
	s := New()
	defer s.Close()

	s.Set("k", "v", time.Hour)
	s.Delete("k")
	assert.False(t, s.Has("k"))
}

func TestRenewExtendsTTL(t *testing.T) {
	s := New()
	defer s.Close()

	s.Set("k", "v", time.Millisecond)
	s.Renew("k", time.Hour)
	time.Sleep(5 * time.Millisecond)

	_, ok := s.Get("k")
	assert.True(t, ok)
}

func TestRenewOnAbsentKeyIsNoop(t *testing.T) {
	s := New()
	defer s.Close()

	s.Renew("ghost", time.Hour)
	assert.False(t, s.Has("ghost"))
}

func TestKeysExcludesExpired(t *testing.T) {
	s := New()
	defer s.Close()

	s.Set("live", "v", time.Hour)
	s.Set("dead", "v", time.Nanosecond)
	time.Sleep(time.Millisecond)

	assert.ElementsMatch(t, []string{"live"}, s.Keys())
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New()
	s.Close()
	assert.NotPanics(t, func() { s.Close() })
}
