package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	tests := []struct {
		name string
		in   []interface{}
		want []interface{}
	}{
		{"empty", nil, nil},
		{"plain", []interface{}{"user_id", "u1", "xp", 10}, []interface{}{"user_id", "u1", "xp", 10}},
		{"redacts dsn", []interface{}{"database_dsn", "postgres://x"}, []interface{}{"database_dsn", "[REDACTED]"}},
		{"redacts token case-insensitive", []interface{}{"AuthToken", "abc"}, []interface{}{"AuthToken", "[REDACTED]"}},
		{"odd length keeps trailing key", []interface{}{"a", 1, "dangling"}, []interface{}{"a", 1, "dangling"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeKVs(tt.in))
		})
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("component", "engine").Info("xp awarded", "amount", 50, "password", "hunter2")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "engine", fields["component"])
	assert.EqualValues(t, 50, fields["amount"])
	assert.Equal(t, "[REDACTED]", fields["password"])
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "test", ""} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, l.SugaredLogger)
	}
}
