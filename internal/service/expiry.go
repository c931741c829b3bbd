package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rryowa/session_keeper/internal/models"
)

// accessExpiry picks the access credential expiry from a login or refresh reply.
// The explicit field wins; otherwise the exp claim of the access token is read
// without verification, since the client holds no signing key.
func accessExpiry(resp *models.LoginResponse) *time.Time {
	if resp == nil {
		return nil
	}
	if resp.AccessTokenExpireAt != nil {
		exp := resp.AccessTokenExpireAt.UTC()
		return &exp
	}
	return tokenExpiry(resp.AccessToken)
}

func refreshExpiry(resp *models.LoginResponse) *time.Time {
	if resp == nil {
		return nil
	}
	if resp.RefreshTokenExpireAt != nil {
		exp := resp.RefreshTokenExpireAt.UTC()
		return &exp
	}
	return nil
}

func tokenExpiry(token string) *time.Time {
	if token == "" {
		return nil
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	exp := claims.ExpiresAt.UTC()
	return &exp
}
