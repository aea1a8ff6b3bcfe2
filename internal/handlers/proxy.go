// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"cartecard/internal/cache"
)

// proxyCacheControl is sent on successful proxy responses so the browser
// caches product imagery across wizard steps.
const proxyCacheControl = "public, max-age=3600"

// maxProxyBytes caps a single proxied image body.
const maxProxyBytes = 20 << 20

// ImageProxy relays product images from the brand's image host, which does
// not serve the CORS headers the canvas compositor needs. Only hosts on
// the allowlist are proxied. With a cache attached, one upstream fetch
// serves all visitors for the cache TTL.
type ImageProxy struct {
	allowedHosts map[string]bool
	client       *http.Client
	cache        *cache.ImageCache
}

// NewImageProxy creates a proxy restricted to the given hosts. imageCache
// may be nil to proxy without server-side caching.
func NewImageProxy(hosts []string, imageCache *cache.ImageCache) *ImageProxy {
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		allowed[h] = true
	}
	return &ImageProxy{
		allowedHosts: allowed,
		client:       &http.Client{Timeout: 15 * time.Second},
		cache:        imageCache,
	}
}

// Fetch handles GET /api/image-proxy?url=...
func (p *ImageProxy) Fetch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}
	if !p.allowedHosts[target.Hostname()] {
		writeError(w, http.StatusForbidden, "host not allowed")
		return
	}

	if p.cache != nil {
		if ct, body, ok := p.cache.Get(r.Context(), target.String()); ok {
			serveImage(w, ct, body)
			return
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("image proxy fetch failed", "url", target.String(), "error", err)
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("image proxy upstream status", "url", target.String(), "status", resp.StatusCode)
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBytes))
	if err != nil {
		slog.Warn("image proxy read failed", "url", target.String(), "error", err)
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if p.cache != nil {
		p.cache.Set(r.Context(), target.String(), contentType, body)
	}
	serveImage(w, contentType, body)
}

func serveImage(w http.ResponseWriter, contentType string, body []byte) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", proxyCacheControl)
	w.Write(body)
}
