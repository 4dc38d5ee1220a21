package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com"

// Stripe側のエラー。usecaseはこれを見て502に落とす。
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Checkout Sessionの応答（必要なフィールドだけ）
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentIntentの応答（必要なフィールドだけ）
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// Stripe REST APIのクライアント。
// SDKは使わず、form-encodedのv1 APIを直接叩く。
type Client struct {
	secretKey   string
	frontendURL string
	baseURL     string
	httpClient  *http.Client
}

func NewClient(secretKey string, frontendURL string) *Client {
	return &Client{
		secretKey:   secretKey,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// テスト用にエンドポイントを差し替える
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// ホスト型チェックアウトセッションを作成する。
// amountは最小通貨単位（セント）。
func (c *Client) CreateCheckoutSession(ctx context.Context, orderID int64, amount int64) (CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", fmt.Sprintf("%s/payment-success?orderId=%d", c.frontendURL, orderID))
	form.Set("cancel_url", fmt.Sprintf("%s/payment-cancel?orderId=%d", c.frontendURL, orderID))
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("Skin.me Order #%d", orderID))

	var sess CheckoutSession
	if err := c.post(ctx, "/v1/checkout/sessions", form, &sess); err != nil {
		return CheckoutSession{}, err
	}
	return sess, nil
}

// PaymentIntentを作成する（client secretフロー）。
func (c *Client) CreatePaymentIntent(ctx context.Context, orderID int64, amount int64) (PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", "usd")
	form.Set("description", fmt.Sprintf("Skin.me Order #%d", orderID))
	form.Set("metadata[order_id]", strconv.FormatInt(orderID, 10))

	var pi PaymentIntent
	if err := c.post(ctx, "/v1/payment_intents", form, &pi); err != nil {
		return PaymentIntent{}, err
	}
	return pi, nil
}

// PaymentIntentの現在状態を取得する（ポーリング確認用）。
func (c *Client) RetrievePaymentIntent(ctx context.Context, intentID string) (PaymentIntent, error) {
	var pi PaymentIntent
	if err := c.get(ctx, "/v1/payment_intents/"+url.PathEscape(intentID), &pi); err != nil {
		return PaymentIntent{}, err
	}
	return pi, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		//タイムアウト・接続失敗もプロバイダエラー扱い（何も永続化していないので再試行可）
		return &APIError{StatusCode: 0, Code: "network_error", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: "read_error", Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       apiErr.Error.Code,
			Message:    apiErr.Error.Message,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: "invalid_response", Message: err.Error()}
	}
	return nil
}
