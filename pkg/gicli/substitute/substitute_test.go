package substitute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/gicli/pkg/gicli/crypto"
	"github.com/tigerroll/gicli/pkg/gicli/session"
)

func TestStringNoPlaceholdersUnchanged(t *testing.T) {
	s := New(session.New(), "k", nil, nil)
	assert.Equal(t, "just plain text", s.String("just plain text"))
}

func TestStringEnvExpansion(t *testing.T) {
	t.Setenv("ENV_FOO", "bar")
	s := New(session.New(), "k", nil, nil)
	assert.Equal(t, "value=bar", s.String("value=$ENV_FOO"))
}

func TestStringEnvMissingLeftLiteral(t *testing.T) {
	s := New(session.New(), "k", nil, nil)
	assert.Equal(t, "value=$ENV_NOPE_XYZ", s.String("value=$ENV_NOPE_XYZ"))
}

func TestStringSessionExpansion(t *testing.T) {
	store := session.New()
	defer store.Close()
	store.Set("SESSION_TOKEN", "abc123", time.Minute)
	s := New(store, "k", nil, nil)
	assert.Equal(t, "Bearer abc123", s.String("Bearer $SESSION_TOKEN"))
}

func TestStringPathExpansion(t *testing.T) {
	cache := map[string]any{
		"login": map[string]any{
			"data": map[string]any{
				"items": []any{
					map[string]any{"name": "first"},
				},
			},
		},
	}
	s := New(session.New(), "k", nil, func(id string) (any, bool) {
		v, ok := cache[id]
		return v, ok
	})
	assert.Equal(t, "first", s.String("{{login.items[0].name}}"))
}

func TestStringPathMissingLeftLiteral(t *testing.T) {
	s := New(session.New(), "k", nil, func(id string) (any, bool) { return nil, false })
	assert.Equal(t, "{{login.items[0].name}}", s.String("{{login.items[0].name}}"))
}

func TestStringDateExpansion(t *testing.T) {
	s := New(session.New(), "k", nil, nil)
	got := s.String("$DATE")
	assert.Equal(t, time.Now().Format("2006-01-02"), got)
}

func TestStringDecryptsEncPrefix(t *testing.T) {
	enc, err := crypto.Encrypt("master", "secret-value")
	require.NoError(t, err)
	s := New(session.New(), "master", nil, nil)
	assert.Equal(t, "secret-value", s.String(enc))
}

func TestValueDeepSubstitution(t *testing.T) {
	t.Setenv("ENV_X", "42")
	s := New(session.New(), "k", nil, nil)
	in := map[string]any{
		"a": "$ENV_X",
		"b": []any{"$ENV_X", 7, map[string]any{"c": "$ENV_X"}},
	}
	out := s.Value(in).(map[string]any)
	assert.Equal(t, "42", out["a"])
	bs := out["b"].([]any)
	assert.Equal(t, "42", bs[0])
	assert.Equal(t, 7, bs[1])
	assert.Equal(t, "42", bs[2].(map[string]any)["c"])
}
