// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package liff talks to the LINE platform on behalf of the card app. The
// browser runs inside LINE's embedded browser and hands its LIFF access
// token to the server; this package verifies that token, resolves the
// user profile, and pushes the finished card image back into the chat via
// the Messaging API.
package liff

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the LINE platform API origin.
const DefaultBaseURL = "https://api.line.me"

// ErrLoginRequired signals that the access token is expired or invalid and
// the client must go through the login flow again, as opposed to a generic
// platform failure.
var ErrLoginRequired = errors.New("liff: login required")

// APIError carries an upstream non-2xx response so callers can pass the
// platform's status and error body through to their own response.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("liff: platform API status %d: %s", e.Status, e.Body)
}

// Profile is the LINE user profile for the current session.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// Platform is the surface of the LINE platform the app depends on. It is
// injected into the handlers so tests can substitute a fake.
type Platform interface {
	// VerifyToken checks a LIFF access token. Returns ErrLoginRequired
	// for expired or invalid tokens.
	VerifyToken(ctx context.Context, accessToken string) error

	// GetProfile resolves the profile behind an access token.
	GetProfile(ctx context.Context, accessToken string) (*Profile, error)

	// PushImage sends an image message to the user's chat using the
	// server-held channel token.
	PushImage(ctx context.Context, userID, imageURL string) error

	// CanPush reports whether a channel token is configured.
	CanPush() bool
}

// Config holds the client settings.
type Config struct {
	ChannelToken string // server-held Messaging API bearer token
	BaseURL      string // override for tests; DefaultBaseURL when empty
}

// Client is the HTTP implementation of Platform.
type Client struct {
	config Config
	client *http.Client
}

// New creates a platform client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// CanPush reports whether the Messaging API channel token is configured.
func (c *Client) CanPush() bool {
	return c.config.ChannelToken != ""
}

// VerifyToken checks the access token against the platform's verify
// endpoint. A 400 means the token is expired or malformed and the user
// must log in again; anything else non-200 is a generic failure.
func (c *Client) VerifyToken(ctx context.Context, accessToken string) error {
	endpoint := c.config.BaseURL + "/oauth2/v2.1/verify?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("liff verify request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("liff verify: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		return ErrLoginRequired
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("liff verify: status %d: %s", resp.StatusCode, body)
	}
}

// GetProfile fetches the user profile behind the access token.
func (c *Client) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v2/profile", nil)
	if err != nil {
		return nil, fmt.Errorf("liff profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("liff profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrLoginRequired
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("liff profile: status %d: %s", resp.StatusCode, body)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("liff profile decode: %w", err)
	}
	if profile.UserID == "" {
		return nil, fmt.Errorf("liff profile: empty userId")
	}
	return &profile, nil
}

// pushRequest is the Messaging API push payload. The image message uses
// the same URL for full view and preview, as the campaign's cards are a
// single square image.
type pushRequest struct {
	To       string        `json:"to"`
	Messages []pushMessage `json:"messages"`
}

type pushMessage struct {
	Type               string `json:"type"`
	OriginalContentURL string `json:"originalContentUrl"`
	PreviewImageURL    string `json:"previewImageUrl"`
}

// PushImage sends the card image to the user's chat. Upstream non-2xx
// responses come back as *APIError with the platform's status and body.
func (c *Client) PushImage(ctx context.Context, userID, imageURL string) error {
	if !c.CanPush() {
		return fmt.Errorf("liff push: channel token not configured")
	}

	payload, err := json.Marshal(pushRequest{
		To: userID,
		Messages: []pushMessage{{
			Type:               "image",
			OriginalContentURL: imageURL,
			PreviewImageURL:    imageURL,
		}},
	})
	if err != nil {
		return fmt.Errorf("liff push marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v2/bot/message/push", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("liff push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.ChannelToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("liff push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Status: resp.StatusCode, Body: body}
	}
	return nil
}
