// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cartecard/internal/analytics"
	"cartecard/internal/compositor"
	"cartecard/internal/handlers"
	"cartecard/internal/liff"
	"cartecard/internal/session"
)

func newTestRouter(basePath string) http.Handler {
	store := session.NewMemoryStore()
	platform := liff.New(liff.Config{})
	tracker := analytics.New(analytics.Config{})
	comp := &compositor.Compositor{Loader: compositor.GradientLoader{}}

	wiz := handlers.NewWizard(store, platform, comp, tracker)
	delivery := handlers.NewDelivery(platform, nil, tracker)
	proxy := handlers.NewImageProxy([]string{"www.cartier.com"}, nil)

	return New(basePath, wiz, delivery, proxy)
}

func TestHealthRoute(t *testing.T) {
	srv := newTestRouter("")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRoutesWiredUnderBasePath(t *testing.T) {
	srv := newTestRouter("/card")

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/card/health", http.StatusOK},
		{http.MethodGet, "/card/api/image-proxy", http.StatusBadRequest},
		{http.MethodPost, "/card/api/send-image", http.StatusBadRequest},
		{http.MethodPost, "/card/api/upload-image", http.StatusBadRequest},
		{http.MethodGet, "/card/api/session/unknown", http.StatusNotFound},
		{http.MethodGet, "/health", http.StatusNotFound},
	}

	for _, tc := range tests {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}

func TestSendImageRouteNoToken(t *testing.T) {
	srv := newTestRouter("")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/send-image", nil)
	srv.ServeHTTP(rec, req)

	// Empty body fails validation before the token check.
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
