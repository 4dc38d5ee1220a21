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
)

const testSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature_Valid(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Now()
	header := signedHeader(t, payload, testSecret, now)

	err := verifySignature(payload, header, testSecret, now)
	assert.NoError(t, err)
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	header := signedHeader(t, payload, testSecret, now)

	err := verifySignature([]byte(`{"id":"evt_2"}`), header, testSecret, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	header := signedHeader(t, payload, "whsec_other", now)

	err := verifySignature(payload, header, testSecret, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	header := signedHeader(t, payload, testSecret, now.Add(-10*time.Minute))

	err := verifySignature(payload, header, testSecret, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_MalformedHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	for _, header := range []string{"", "garbage", "t=abc,v1=00", "t=123"} {
		err := verifySignature(payload, header, testSecret, now)
		assert.ErrorIs(t, err, ErrInvalidSignature, "header: %q", header)
	}
}

func TestVerifySignature_MultipleSignaturesOneValid(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.", now.Unix())
	mac.Write(payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now.Unix(), "deadbeef", valid)
	err := verifySignature(payload, header, testSecret, now)
	assert.NoError(t, err)
}

func TestConstructEvent_ParsesSessionID(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_test_abc","status":"complete"}}}`)
	header := signedHeader(t, payload, testSecret, time.Now())

	ev, err := ConstructEvent(payload, header, testSecret)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutSessionCompleted, ev.Type)
	assert.Equal(t, "cs_test_abc", ev.Data.Object.ID)
}

func TestConstructEvent_RejectsBadSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	_, err := ConstructEvent(payload, "t=1,v1=00", testSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
