package mailer

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campushub/internal/logger"
)

func Test_SMTP(t *testing.T) {
	t.Parallel()

	t.Run("config is checked", func(t *testing.T) {
		_, err := NewSMTP(SMTPConfig{From: "a@x.com"})
		require.Error(t, err)
		_, err = NewSMTP(SMTPConfig{Addr: "nohost", From: "a@x.com"})
		require.Error(t, err)
	})

	t.Run("message goes to the relay", func(t *testing.T) {
		m, err := NewSMTP(SMTPConfig{Addr: "mail.local:587", From: "noreply@x.com", Username: "u", Password: "p"})
		require.NoError(t, err)

		var gotAddr string
		var gotTo []string
		var gotMsg []byte
		var gotAuth smtp.Auth
		m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, msg
			return nil
		}

		exp := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, m.SendOTP(t.Context(), "nk@x.com", "123456", exp))

		assert.Equal(t, "mail.local:587", gotAddr)
		assert.NotNil(t, gotAuth)
		assert.Equal(t, []string{"nk@x.com"}, gotTo)
		assert.Contains(t, string(gotMsg), "To: nk@x.com\r\n")
		assert.Contains(t, string(gotMsg), "Your code is 123456.")
	})

	t.Run("relay errors are wrapped", func(t *testing.T) {
		m, err := NewSMTP(SMTPConfig{Addr: "mail.local:25", From: "noreply@x.com"})
		require.NoError(t, err)
		boom := errors.New("boom")
		m.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }

		require.ErrorIs(t, m.SendOTP(t.Context(), "nk@x.com", "123456", time.Now()), boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		m, err := NewSMTP(SMTPConfig{Addr: "mail.local:25", From: "noreply@x.com"})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		require.ErrorIs(t, m.SendOTP(ctx, "nk@x.com", "123456", time.Now()), context.Canceled)
	})
}

func Test_Log(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := logger.NewWriterLogger(&buf, logger.LevelInfo)
	require.NoError(t, err)

	require.NoError(t, NewLog(log, false).SendOTP(t.Context(), "nk@x.com", "123456", time.Now()))
	assert.Contains(t, buf.String(), "****56")
	assert.NotContains(t, buf.String(), "123456")

	buf.Reset()
	require.NoError(t, NewLog(log, true).SendOTP(t.Context(), "nk@x.com", "123456", time.Now()))
	assert.Contains(t, buf.String(), "123456")
}
