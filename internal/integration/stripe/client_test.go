package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinderbill/kinderbill/internal/config"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/types"
)

const testWebhookSecret = "whsec_test_secret"

func newTestClient(t *testing.T, configured bool) Client {
	t.Helper()

	cfg := config.GetDefaultConfig()
	if configured {
		cfg.Stripe = config.StripeConfig{
			SecretKey:     "sk_test_123",
			WebhookSecret: testWebhookSecret,
		}
	}

	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)

	return NewClient(cfg, log)
}

// sign computes a provider-format signature header for a payload.
func sign(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", at.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhook(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "invoice.paid",
		"created": 1700000000,
		"data": {"object": {"id": "in_1", "customer": "cus_1"}}
	}`)

	t.Run("accepts a correctly signed payload", func(t *testing.T) {
		client := newTestClient(t, true)

		event, err := client.VerifyWebhook(payload, sign(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, types.WebhookEventInvoicePaid, event.Type)
		assert.JSONEq(t, `{"id": "in_1", "customer": "cus_1"}`, string(event.Data))
	})

	t.Run("rejects a signature from the wrong secret", func(t *testing.T) {
		client := newTestClient(t, true)

		_, err := client.VerifyWebhook(payload, sign(payload, "whsec_other", time.Now()))
		require.Error(t, err)
		assert.True(t, ierr.IsPermissionDenied(err))
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		client := newTestClient(t, true)

		sig := sign(payload, testWebhookSecret, time.Now())
		tampered := append([]byte(nil), payload...)
		tampered[len(tampered)-2] = ' '

		_, err := client.VerifyWebhook(tampered, sig)
		require.Error(t, err)
		assert.True(t, ierr.IsPermissionDenied(err))
	})

	t.Run("rejects a stale timestamp", func(t *testing.T) {
		client := newTestClient(t, true)

		_, err := client.VerifyWebhook(payload, sign(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
		require.Error(t, err)
		assert.True(t, ierr.IsPermissionDenied(err))
	})

	t.Run("rejects a missing signature", func(t *testing.T) {
		client := newTestClient(t, true)

		_, err := client.VerifyWebhook(payload, "")
		require.Error(t, err)
		assert.True(t, ierr.IsPermissionDenied(err))
	})

	t.Run("fails closed when unconfigured", func(t *testing.T) {
		client := newTestClient(t, false)

		_, err := client.VerifyWebhook(payload, sign(payload, testWebhookSecret, time.Now()))
		require.Error(t, err)
		assert.True(t, ierr.IsSystem(err))
	})
}
