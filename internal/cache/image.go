// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cache provides a Valkey-backed cache for proxied product images.
// The catalog shows the same four brand images to every visitor, so one
// upstream fetch can serve the whole campaign for the TTL.
package cache

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// imageKeyPrefix is the Valkey key prefix for cached images.
	imageKeyPrefix = "imgcache:"

	// DefaultImageTTL is how long a proxied image stays cached. It matches
	// the Cache-Control max-age the proxy sends to browsers.
	DefaultImageTTL = time.Hour
)

// ImageCache stores proxied image bodies together with their content type.
type ImageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewImageCache creates a new image cache backed by the given Valkey client.
func NewImageCache(client *redis.Client, ttl time.Duration) *ImageCache {
	if ttl == 0 {
		ttl = DefaultImageTTL
	}
	return &ImageCache{client: client, ttl: ttl}
}

// Get retrieves a cached image by URL. Returns ok=false on miss or error.
func (ic *ImageCache) Get(ctx context.Context, url string) (contentType string, body []byte, ok bool) {
	val, err := ic.client.Get(ctx, imageKeyPrefix+url).Bytes()
	if err == redis.Nil {
		return "", nil, false
	}
	if err != nil {
		slog.Warn("image cache get error", "url", url, "error", err)
		return "", nil, false
	}

	// Stored as "<content-type>\x00<body>".
	sep := bytes.IndexByte(val, 0)
	if sep < 0 {
		return "", nil, false
	}
	slog.Debug("image cache hit", "url", url)
	return string(val[:sep]), val[sep+1:], true
}

// Set stores an image body for a URL with the configured TTL. Failures are
// logged only; caching is best-effort.
func (ic *ImageCache) Set(ctx context.Context, url, contentType string, body []byte) {
	val := make([]byte, 0, len(contentType)+1+len(body))
	val = append(val, contentType...)
	val = append(val, 0)
	val = append(val, body...)

	if err := ic.client.Set(ctx, imageKeyPrefix+url, val, ic.ttl).Err(); err != nil {
		slog.Warn("image cache set error", "url", url, "error", err)
	}
}
