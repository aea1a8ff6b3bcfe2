// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// background.go provides background image sources for the card compositor.
// The HTTP loader fetches from the brand's image host only; the gradient
// loader is the single configured fallback tier when the fetch fails.
package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"net/http"
	"net/url"
	"time"

	_ "golang.org/x/image/webp" // register WebP decoder
)

// maxBackgroundBytes caps the downloaded background size (20 MB).
const maxBackgroundBytes = 20 << 20

// BackgroundLoader resolves a background reference into a decoded image.
type BackgroundLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// DefaultAllowedHosts lists the hosts backgrounds may be fetched from,
// the same allowlist the image proxy enforces.
var DefaultAllowedHosts = []string{"www.cartier.com", "cartier.com"}

// HTTPLoader fetches background images over HTTP(S), restricted to an
// allowlist of hosts.
type HTTPLoader struct {
	client  *http.Client
	allowed map[string]bool
}

// NewHTTPLoader creates a loader restricted to the given hosts. With no
// hosts it falls back to DefaultAllowedHosts.
func NewHTTPLoader(client *http.Client, hosts ...string) *HTTPLoader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts
	}
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		allowed[h] = true
	}
	return &HTTPLoader{client: client, allowed: allowed}
}

// Load fetches and decodes the image at ref.
func (l *HTTPLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("background: parse %q: %w", ref, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("background: unsupported scheme %q", u.Scheme)
	}
	if !l.allowed[u.Hostname()] {
		return nil, fmt.Errorf("background: host %q not allowed", u.Hostname())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("background: request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("background: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("background: upstream status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxBackgroundBytes))
	if err != nil {
		return nil, fmt.Errorf("background: decode: %w", err)
	}
	return img, nil
}

// GradientLoader renders a vertical gradient, ignoring the reference. It
// serves as the one fallback tier when the primary background source
// fails; the zero value uses the campaign's dark red palette.
type GradientLoader struct {
	Top, Bottom color.NRGBA
}

// Load returns a CanvasSize square vertical gradient.
func (g GradientLoader) Load(_ context.Context, _ string) (image.Image, error) {
	top, bottom := g.Top, g.Bottom
	if top == (color.NRGBA{}) && bottom == (color.NRGBA{}) {
		top = color.NRGBA{R: 41, G: 37, B: 36, A: 255}     // deep charcoal
		bottom = color.NRGBA{R: 127, G: 29, B: 29, A: 255} // dark red
	}

	img := image.NewNRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	for y := 0; y < CanvasSize; y++ {
		t := float64(y) / float64(CanvasSize-1)
		c := color.NRGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 255,
		}
		for x := 0; x < CanvasSize; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
