package mpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	SandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	ProductionBaseURL = "https://api.safaricom.co.ke"

	pathGenerateToken = "/oauth/v1/generate?grant_type=client_credentials"
	pathSTKPush       = "/mpesa/stkpush/v1/processrequest"

	mpesaContentType = `application/json`
	defaultTimeout   = 30 * time.Second
)

var (
	ErrValidation       = errors.New("mpesa: invalid request")
	ErrAuth             = errors.New("mpesa: authentication failed")
	ErrInitiation       = errors.New("mpesa: push request failed")
	ErrMalformedPayload = errors.New("mpesa: malformed callback payload")
)

// GatewayError is a non-2xx answer from the gateway. It matches ErrAuth or
// ErrInitiation through errors.Is depending on the call that failed.
type GatewayError struct {
	StatusCode int    `json:"-"`
	RequestID  string `json:"requestId"`
	Code       string `json:"errorCode"`
	Message    string `json:"errorMessage"`

	kind error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: bad response %d", e.kind, e.StatusCode)
}

func (e *GatewayError) Unwrap() error {
	return e.kind
}

type Config struct {
	BaseURL          string
	ConsumerKey      string
	ConsumerSecret   string
	ShortCode        string
	PassKey          string
	CallbackURL      string
	AccountReference string
	TransactionDesc  string
	Timeout          time.Duration
}

// Client talks to the Daraja API. It holds no per-request state and is safe
// for concurrent use.
type Client struct {
	conf Config
	http *http.Client
	now  func() time.Time
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.http = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(client *Client) {
		client.now = now
	}
}

func New(conf Config, opts ...Option) (*Client, error) {
	required := []struct {
		name  string
		value string
	}{
		{"consumer key", conf.ConsumerKey},
		{"consumer secret", conf.ConsumerSecret},
		{"shortcode", conf.ShortCode},
		{"passkey", conf.PassKey},
		{"callback url", conf.CallbackURL},
	}
	missing := []string{}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("mpesa: missing configuration: %s", strings.Join(missing, ", "))
	}

	if conf.BaseURL == "" {
		conf.BaseURL = SandboxBaseURL
	}
	conf.BaseURL = strings.TrimRight(conf.BaseURL, "/")
	conf.CallbackURL = strings.TrimRight(conf.CallbackURL, "/")
	if conf.Timeout <= 0 {
		conf.Timeout = defaultTimeout
	}

	client := &Client{
		conf: conf,
		http: &http.Client{Timeout: conf.Timeout},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// CallbackURL returns the address the gateway will notify for orderID.
func (c *Client) CallbackURL(orderID string) string {
	return fmt.Sprintf("%s/%s", c.conf.CallbackURL, orderID)
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, body interface{}, kind error) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		requestBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewBuffer(requestBody)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.conf.BaseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(kind, err.Error())
	}
	for key, values := range header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}
	if body != nil {
		request.Header.Set("Content-Type", mpesaContentType)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return nil, errors.Wrap(kind, err.Error())
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(kind, err.Error())
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		gatewayErr := &GatewayError{StatusCode: response.StatusCode, kind: kind}
		_ = json.Unmarshal(responseBody, gatewayErr)
		return nil, gatewayErr
	}

	return responseBody, nil
}
