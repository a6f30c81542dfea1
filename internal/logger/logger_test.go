package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_parseLevel(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		tests := []struct {
			input    string
			expected slog.Level
		}{
			{"DEBUG", slog.LevelDebug},
			{"debug", slog.LevelDebug},
			{"INFO", slog.LevelInfo},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tt := range tests {
			t.Run(tt.input, func(t *testing.T) {
				got, err := parseLevel(tt.input)

				require.NoError(t, err)
				require.Equal(t, tt.expected, got)
			})
		}
	})

	t.Run("not valid", func(t *testing.T) {
		for _, value := range []string{"", "verbose"} {
			_, err := parseLevel(value)
			require.Error(t, err, "level %q must be rejected", value)
		}
	})
}

func TestLogger_New(t *testing.T) {
	t.Run("unknown level fails", func(t *testing.T) {
		_, err := New(EnvDevelopment, "loud")
		require.Error(t, err)
	})

	t.Run("production and development", func(t *testing.T) {
		for _, env := range []string{EnvDevelopment, EnvProduction} {
			l, err := New(env, LevelInfo)
			require.NoError(t, err)
			require.NotNil(t, l)
		}
	})
}

func TestLogger_Writer(t *testing.T) {
	buf := &bytes.Buffer{}
	l, err := NewWriterLogger(buf, LevelInfo)
	require.NoError(t, err)

	l.Debug("hidden")
	l.With("tenant", "admin").Info("login ok", "account", "42")

	out := buf.String()
	require.NotContains(t, out, "hidden", "debug must be filtered at info level")
	require.Contains(t, out, "login ok")
	require.Contains(t, out, "tenant=admin")
	require.Contains(t, out, "account=42")
}

func TestLogger_NoOp(t *testing.T) {
	l := NewNoOpLogger()
	require.NotPanics(t, func() {
		l.Info("nothing")
		l.WithGroup("g").Error("still nothing")
	})
}
