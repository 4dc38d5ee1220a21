package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 署名検証に失敗したWebhookは処理しない
var ErrInvalidSignature = errors.New("invalid webhook signature")

// リプレイ対策の許容時刻差
const signatureTolerance = 5 * time.Minute

// Webhookイベント。data.object.idにsession/intent IDが入る。
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"object"`
	} `json:"data"`
}

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
)

// Stripe-Signatureヘッダを検証してからイベントをパースする。
// ヘッダは "t=<unix>,v1=<hex hmac>" 形式で、署名対象は "<t>.<payload>"。
func ConstructEvent(payload []byte, sigHeader string, secret string) (Event, error) {
	if err := verifySignature(payload, sigHeader, secret, time.Now()); err != nil {
		return Event{}, err
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("parse webhook payload: %w", err)
	}
	return ev, nil
}

func verifySignature(payload []byte, sigHeader string, secret string, now time.Time) error {
	ts, sigs, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return err
	}

	//時刻差が大きすぎるものは拒否
	diff := now.Sub(time.Unix(ts, 0))
	if diff > signatureTolerance || diff < -signatureTolerance {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, s := range sigs {
		got, err := hex.DecodeString(s)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if strings.TrimSpace(header) == "" {
		return 0, nil, ErrInvalidSignature
	}

	var ts int64 = -1
	var sigs []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			v, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignature
			}
			ts = v
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}

	if ts < 0 || len(sigs) == 0 {
		return 0, nil, ErrInvalidSignature
	}
	return ts, sigs, nil
}
