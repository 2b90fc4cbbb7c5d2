package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

const tokenAttempts = 2

type generateTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// GenerateToken fetches a fresh bearer token. The token is handed back to the
// caller and never kept on the client, so concurrent initiations cannot see
// each other's credentials. A failed fetch is retried once.
func (c *Client) GenerateToken(ctx context.Context) (string, error) {
	var err error
	for attempt := 1; attempt <= tokenAttempts; attempt++ {
		var token string
		token, err = c.generateToken(ctx)
		if err == nil {
			return token, nil
		}
		if ctx.Err() != nil || !retryableTokenError(err) {
			break
		}
	}
	return "", err
}

func (c *Client) generateToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(c.conf.ConsumerKey + ":" + c.conf.ConsumerSecret))
	header := http.Header{}
	header.Set("Authorization", "Basic "+auth)

	responseBody, err := c.do(ctx, http.MethodGet, pathGenerateToken, header, nil, ErrAuth)
	if err != nil {
		return "", err
	}

	var response generateTokenResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return "", errors.Wrapf(ErrAuth, "failed unmarshaling token response: %s", err)
	}

	if response.AccessToken == "" {
		return "", errors.Wrap(ErrAuth, "empty access token")
	}

	return response.AccessToken, nil
}

// retryableTokenError reports whether a second attempt can succeed. Rejected
// credentials will be rejected again.
func retryableTokenError(err error) bool {
	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
