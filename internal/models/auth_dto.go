package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// LoginRequest is the credentials payload for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// LoginResponse is the data part of a login, register or refresh reply.
// The tokens themselves travel as cookies; the body copies are only read
// to recover expiries.
type LoginResponse struct {
	AccessToken          string     `json:"accessToken,omitempty"`
	RefreshToken         string     `json:"refreshToken,omitempty"`
	AccessTokenExpireAt  *time.Time `json:"accessTokenExpireAt,omitempty"`
	RefreshTokenExpireAt *time.Time `json:"refreshTokenExpireAt,omitempty"`
}

// UnmarshalJSON accepts the expiries in any ISO-8601 form the auth service may
// emit (with or without a zone, "+0000" offsets) as well as epoch seconds.
func (r *LoginResponse) UnmarshalJSON(data []byte) error {
	type plain LoginResponse
	aux := struct {
		*plain
		AccessTokenExpireAt  json.RawMessage `json:"accessTokenExpireAt,omitempty"`
		RefreshTokenExpireAt json.RawMessage `json:"refreshTokenExpireAt,omitempty"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if r.AccessTokenExpireAt, err = parseInstant(aux.AccessTokenExpireAt); err != nil {
		return fmt.Errorf("accessTokenExpireAt: %w", err)
	}
	if r.RefreshTokenExpireAt, err = parseInstant(aux.RefreshTokenExpireAt); err != nil {
		return fmt.Errorf("refreshTokenExpireAt: %w", err)
	}
	return nil
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
}

func parseInstant(raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] != '"' {
		secs, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid instant %s", raw)
		}
		whole, frac := math.Modf(secs)
		t := time.Unix(int64(whole), int64(frac*1e9)).UTC()
		return &t, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	for _, layout := range instantLayouts {
		// layouts without a zone are read as UTC
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid instant %q", s)
}
