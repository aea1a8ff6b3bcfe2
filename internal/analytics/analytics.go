// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package analytics reports campaign funnel events to Google Analytics via
// the Measurement Protocol. When no measurement ID is configured the
// tracker is a silent no-op, and delivery failures are only ever logged;
// analytics must never affect a user request.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultEndpoint is the Measurement Protocol collection origin.
const DefaultEndpoint = "https://www.google-analytics.com"

// Config holds the tracker settings.
type Config struct {
	MeasurementID string
	APISecret     string
	Endpoint      string // override for tests; DefaultEndpoint when empty
}

// Tracker sends Measurement Protocol events.
type Tracker struct {
	config Config
	client *http.Client
}

// New creates a tracker. A tracker with an empty measurement ID is valid
// and drops every event.
func New(cfg Config) *Tracker {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Tracker{
		config: cfg,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Enabled reports whether events will actually be sent.
func (t *Tracker) Enabled() bool {
	return t.config.MeasurementID != ""
}

// payload is the Measurement Protocol request body.
type payload struct {
	ClientID string  `json:"client_id"`
	Events   []event `json:"events"`
}

type event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Event delivers a single named event for the given client. It blocks for
// at most the HTTP client timeout and swallows failures after logging
// them; callers on the request path should invoke it in a goroutine.
func (t *Tracker) Event(clientID, name string, params map[string]any) {
	if !t.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.send(ctx, clientID, name, params); err != nil {
		slog.Warn("analytics event dropped", "event", name, "error", err)
	}
}

func (t *Tracker) send(ctx context.Context, clientID, name string, params map[string]any) error {
	body, err := json.Marshal(payload{
		ClientID: clientID,
		Events:   []event{{Name: name, Params: params}},
	})
	if err != nil {
		return fmt.Errorf("analytics marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/mp/collect?measurement_id=%s&api_secret=%s",
		t.config.Endpoint,
		url.QueryEscape(t.config.MeasurementID),
		url.QueryEscape(t.config.APISecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("analytics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("analytics send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("analytics: status %d", resp.StatusCode)
	}
	return nil
}

// Campaign funnel events. Names and params mirror the campaign's
// measurement plan.

// EngagedUser marks the moment a visitor chooses to start making a card.
func (t *Tracker) EngagedUser(clientID string) {
	t.Event(clientID, "engaged_user", map[string]any{
		"event_category": "engagement",
		"event_label":    "user_started_playing",
	})
}

// ProductSelected reports which of the four products was chosen. The
// event name is per-product (e.g. "rings_selected").
func (t *Tracker) ProductSelected(clientID, eventName, title, product string) {
	t.Event(clientID, eventName, map[string]any{
		"event_category": "selection",
		"event_label":    title,
		"product_name":   product,
		"version":        product,
	})
}

// Complete marks a finished card (the visitor reached the result step).
func (t *Tracker) Complete(clientID string) {
	t.Event(clientID, "complete", map[string]any{
		"event_category": "engagement",
		"event_label":    "user_completed",
	})
}

// Download marks a card saved to the visitor's own chat or device.
func (t *Tracker) Download(clientID string) {
	t.Event(clientID, "download", map[string]any{
		"event_category": "action",
		"event_label":    "save_card",
	})
}

// Share marks a card shared to a friend.
func (t *Tracker) Share(clientID string) {
	t.Event(clientID, "share", map[string]any{
		"event_category": "action",
		"event_label":    "share_to_friend",
	})
}
