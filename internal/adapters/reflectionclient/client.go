package reflectionclient

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/metrics"
)

// SignatureHeader содержит hex(HMAC-SHA256(secret, body)).
const SignatureHeader = "X-Signature"

// Client запрашивает рефлексии у внешнего генератора.
type Client struct {
	endpoint   *url.URL
	secret     []byte
	httpClient *http.Client
	now        func() time.Time
}

var _ domain.ReflectionSource = (*Client)(nil)

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout задаёт таймаут запроса. Переданный через WithHTTPClient клиент не меняется:
// таймаут ставится на его копию.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		clone := http.Client{}
		if c.httpClient != nil {
			clone = *c.httpClient
		}
		clone.Timeout = timeout
		c.httpClient = &clone
	}
}

// WithClock подменяет часы для поля timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

type reflectRequest struct {
	Emotions  []string `json:"emotions"`
	Timestamp int64    `json:"timestamp"`
}

type reflectResponse struct {
	Reflection *domain.Reflection `json:"reflection"`
}

// New создаёт клиента для endpoint с общим секретом secret.
func New(endpoint, secret string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if secret == "" {
		return nil, errors.New("secret is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		endpoint:   parsed,
		secret:     []byte(secret),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Sign возвращает подпись тела запроса.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Reflect реализует domain.ReflectionSource.
func (c *Client) Reflect(ctx context.Context, emotions []string) (domain.Reflection, error) {
	if emotions == nil {
		emotions = []string{}
	}
	body, err := json.Marshal(reflectRequest{Emotions: emotions, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return domain.Reflection{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return domain.Reflection{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(c.secret, body))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveNetworkRequest("reflection", "reflect", c.endpoint.Host, start, err)
	if err != nil {
		return domain.Reflection{}, fmt.Errorf("reflection api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Reflection{}, fmt.Errorf("reflection api error: status=%d message=%s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var out reflectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Reflection{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Reflection == nil {
		return domain.Reflection{}, errors.New("reflection api returned no reflection")
	}
	return *out.Reflection, nil
}
