package portal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid_portal_token")
	ErrExpiredToken = errors.New("expired_portal_token")
)

// Claims is the signed payload of a manage-subscription link. The token lets
// a donor reach their subscription page without an account.
type Claims struct {
	TokenID        string `json:"jti"`
	SubscriptionID string `json:"sub"`
	Email          string `json:"email"`
	ExpiresAt      int64  `json:"exp"`
}

// Sign builds a portal token: base64url(claims) + "." + base64url(hmac-sha256).
func Sign(secret, subscriptionID, email string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("portal_secret_missing")
	}
	claims := Claims{
		TokenID:        uuid.NewString(),
		SubscriptionID: subscriptionID,
		Email:          strings.ToLower(strings.TrimSpace(email)),
		ExpiresAt:      time.Now().UTC().Add(ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + signature(secret, encoded), nil
}

// Verify checks the signature and expiry and returns the claims.
func Verify(secret, token string) (*Claims, error) {
	parts := strings.SplitN(strings.TrimSpace(token), ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, ErrInvalidToken
	}
	expected := signature(secret, parts[0])
	if !hmac.Equal([]byte(parts[1]), []byte(expected)) {
		return nil, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt > 0 && time.Now().UTC().Unix() > claims.ExpiresAt {
		return nil, ErrExpiredToken
	}
	return &claims, nil
}

// ManageURL builds the public manage-subscription link embedded in donor
// confirmation emails.
func ManageURL(baseURL, token string) string {
	return fmt.Sprintf("%s/account/subscription?token=%s",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(token))
}

func signature(secret, encodedPayload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
