// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"cartecard/internal/compositor"
	"cartecard/internal/liff"
	"cartecard/internal/session"
	"cartecard/internal/wizard"
)

// newWizardServer mounts the wizard routes the way the real router does so
// chi URL params resolve.
func newWizardServer(h *Wizard) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/api/session", h.Bootstrap)
	r.Route("/api/session/{id}", func(r chi.Router) {
		r.Get("/", h.Snapshot)
		r.Post("/start", h.Start)
		r.Post("/flip", h.Flip)
		r.Post("/confirm", h.Confirm)
		r.Post("/form", h.Form)
		r.Get("/card", h.Card)
		r.Post("/back", h.Back)
	})
	return r
}

func newTestWizard(platform liff.Platform) (*Wizard, session.Store) {
	store := session.NewMemoryStore()
	comp := &compositor.Compositor{Loader: compositor.GradientLoader{}}
	return NewWizard(store, platform, comp, noopTracker()), store
}

// seedSession stores a session with the wizard already at the given step.
func seedSession(t *testing.T, store session.Store, mutate func(*wizard.State)) *session.Session {
	t.Helper()
	sess := &session.Session{
		Profile:   &liff.Profile{UserID: "U1234", DisplayName: "Test User"},
		Wizard:    wizard.New(),
		CreatedAt: time.Now(),
	}
	if mutate != nil {
		mutate(sess.Wizard)
	}
	if err := store.Create(context.Background(), sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return sess
}

func do(t *testing.T, srv http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) stateSnapshot {
	t.Helper()
	var snap stateSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v (body %s)", err, rec.Body.String())
	}
	return snap
}

func TestBootstrapCreatesSession(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)

	rec := do(t, srv, http.MethodPost, "/api/session", "", "liff-token")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	snap := decodeSnapshot(t, rec)
	if snap.ID == "" {
		t.Fatal("missing session id")
	}
	if snap.Step != "welcome" {
		t.Errorf("step = %q, want welcome", snap.Step)
	}
	if snap.Fields.To != "Dear Cartier" || snap.Fields.Message != "Happy Valentine's Day" {
		t.Errorf("default fields = %+v", snap.Fields)
	}
	if snap.Profile == nil || snap.Profile.UserID != "U1234" {
		t.Errorf("profile = %+v", snap.Profile)
	}

	if _, err := store.Get(context.Background(), snap.ID); err != nil {
		t.Errorf("session not stored: %v", err)
	}
}

func TestBootstrapAuthFailures(t *testing.T) {
	tests := []struct {
		name     string
		platform liff.Platform
		bearer   string
		want     int
	}{
		{"no bearer token", &fakePlatform{}, "", http.StatusUnauthorized},
		{"expired token", &fakePlatform{verifyErr: liff.ErrLoginRequired}, "t", http.StatusUnauthorized},
		{"verify outage", &fakePlatform{verifyErr: errors.New("boom")}, "t", http.StatusServiceUnavailable},
		{"profile rejected", &fakePlatform{profileErr: liff.ErrLoginRequired}, "t", http.StatusUnauthorized},
		{"no platform", nil, "t", http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestWizard(tc.platform)
			srv := newWizardServer(h)

			rec := do(t, srv, http.MethodPost, "/api/session", "", tc.bearer)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestBootstrapSurvivesProfileOutage(t *testing.T) {
	h, _ := newTestWizard(&fakePlatform{profileErr: errors.New("upstream 500")})
	srv := newWizardServer(h)

	rec := do(t, srv, http.MethodPost, "/api/session", "", "liff-token")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if snap.Profile != nil {
		t.Errorf("profile = %+v, want none", snap.Profile)
	}
}

func TestSnapshotUnknownSession(t *testing.T) {
	h, _ := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)

	rec := do(t, srv, http.MethodGet, "/api/session/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStartBeginsReveal(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)
	sess := seedSession(t, store, nil)

	rec := do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/start", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if snap.Step != "welcome" {
		t.Errorf("step = %q, want welcome while reveal runs", snap.Step)
	}
	if !snap.RevealRunning {
		t.Error("reveal not running after start")
	}

	// Starting again while running is a no-op, not an error.
	rec = do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/start", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("second start status = %d", rec.Code)
	}
}

func TestStartRejectedPastWelcome(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)
	sess := seedSession(t, store, func(s *wizard.State) { s.Step = wizard.StepCatalog })

	rec := do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/start", "", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestFlipBoundedPager(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)
	sess := seedSession(t, store, func(s *wizard.State) { s.Step = wizard.StepCatalog })

	// prev on page 1 stays on page 1.
	rec := do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/flip", `{"direction":"prev"}`, "")
	if snap := decodeSnapshot(t, rec); snap.Page != 1 {
		t.Errorf("page = %d, want 1", snap.Page)
	}

	for i := 0; i < 5; i++ {
		rec = do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/flip", `{"direction":"next"}`, "")
	}
	snap := decodeSnapshot(t, rec)
	if snap.Page != snap.PageCount {
		t.Errorf("page = %d, want clamped to %d", snap.Page, snap.PageCount)
	}
	if snap.Product == nil || snap.Product.Title == "" {
		t.Error("missing product view on catalog page")
	}

	rec = do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/flip", `{"direction":"sideways"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad direction status = %d, want 400", rec.Code)
	}
}

func TestFlipOutsideCatalog(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)
	sess := seedSession(t, store, nil)

	rec := do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/flip", `{"direction":"next"}`, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestConfirmCapturesSelection(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)
	sess := seedSession(t, store, func(s *wizard.State) {
		s.Step = wizard.StepCatalog
		s.Pager.Next()
		s.Pager.Next()
	})

	rec := do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/confirm", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if snap.Step != "form" {
		t.Errorf("step = %q, want form", snap.Step)
	}
	if snap.Selected == nil || snap.Selected.Title != "Cartier Watches" {
		t.Errorf("selected = %+v, want Cartier Watches", snap.Selected)
	}
}

func TestFormValidationFailures(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)
	sess := seedSession(t, store, func(s *wizard.State) {
		s.Step = wizard.StepForm
		s.Selected = 1
	})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"empty to", `{"to":"","from":"f","message":"hi"}`, "to"},
		{"denylist in message", `{"to":"t","from":"f","message":"oh shit"}`, "message"},
		{"thai denylist in from", `{"to":"t","from":"ไอ้บ้า","message":"hi"}`, "from"},
		{"message too long", `{"to":"t","from":"f","message":"` + strings.Repeat("x", 51) + `"}`, "message"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/form", tc.body, "")
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
			}
			var resp struct {
				Field string `json:"field"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Field != tc.field {
				t.Errorf("field = %q, want %q", resp.Field, tc.field)
			}
		})
	}

	// Rejected submissions leave the wizard on the form step.
	stored, err := store.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if stored.Wizard.Step != wizard.StepForm {
		t.Errorf("step = %v after rejections, want form", stored.Wizard.Step)
	}
}

func TestFormRendersCard(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)
	sess := seedSession(t, store, func(s *wizard.State) {
		s.Step = wizard.StepForm
		s.Selected = 2
	})

	rec := do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/form",
		`{"to":"My Love","from":"Me","message":"Happy Valentine's Day"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if snap.Step != "result" {
		t.Errorf("step = %q, want result", snap.Step)
	}
	if snap.Card.Status != wizard.CardGenerating {
		t.Errorf("card status = %q, want generating", snap.Card.Status)
	}

	// The render runs in the background with a gradient source, so it
	// finishes quickly.
	deadline := time.Now().Add(10 * time.Second)
	for {
		stored, err := store.Get(context.Background(), sess.ID)
		if err != nil {
			t.Fatalf("reload session: %v", err)
		}
		if stored.Wizard.Card.Status == wizard.CardReady {
			if !strings.HasPrefix(stored.Wizard.Card.ImageDataURL, "data:image/jpeg;base64,") {
				t.Fatalf("card url prefix = %.40q", stored.Wizard.Card.ImageDataURL)
			}
			break
		}
		if stored.Wizard.Card.Status == wizard.CardFailed {
			t.Fatalf("card failed: %s", stored.Wizard.Card.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("card still %q after deadline", stored.Wizard.Card.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	// Card route serves the finished card.
	rec = do(t, srv, http.MethodGet, "/api/session/"+sess.ID+"/card", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("card status = %d", rec.Code)
	}
	var card wizard.Card
	if err := json.Unmarshal(rec.Body.Bytes(), &card); err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if card.Status != wizard.CardReady || card.ImageDataURL == "" {
		t.Errorf("card = %+v", card)
	}
}

func TestCardBeforeGeneration(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)
	sess := seedSession(t, store, nil)

	rec := do(t, srv, http.MethodGet, "/api/session/"+sess.ID+"/card", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestBackNavigation(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)
	sess := seedSession(t, store, func(s *wizard.State) {
		s.Step = wizard.StepResult
		s.Selected = 2
		s.Card = wizard.Card{Status: wizard.CardReady, ImageDataURL: "data:image/jpeg;base64,AAAA"}
	})

	// Result -> Form clears the card.
	rec := do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/back", `{"to":"form"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if snap.Step != "form" {
		t.Errorf("step = %q, want form", snap.Step)
	}
	if snap.Card.Status != wizard.CardNone {
		t.Errorf("card status = %q, want cleared", snap.Card.Status)
	}
	if snap.Selected == nil {
		t.Error("selection lost going back to form")
	}

	// Form -> Catalog clears the selection.
	rec = do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/back", `{"to":"catalog"}`, "")
	snap = decodeSnapshot(t, rec)
	if snap.Step != "catalog" {
		t.Errorf("step = %q, want catalog", snap.Step)
	}
	if snap.Selected != nil {
		t.Errorf("selected = %+v, want cleared", snap.Selected)
	}

	// Unknown target.
	rec = do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/back", `{"to":"welcome"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRenderAfterBackIsDiscarded(t *testing.T) {
	h, store := newTestWizard(&fakePlatform{})
	srv := newWizardServer(h)
	sess := seedSession(t, store, func(s *wizard.State) {
		s.Step = wizard.StepResult
		s.Selected = 2
		s.Generation = 1
		s.Card = wizard.Card{Status: wizard.CardGenerating}
	})

	rec := do(t, srv, http.MethodPost, "/api/session/"+sess.ID+"/back", `{"to":"form"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("back status = %d: %s", rec.Code, rec.Body.String())
	}

	// The render that was in flight when the visitor went back completes
	// now. It must not resurrect the result step or attach its card.
	h.composeCard(sess.ID, 1, nil, wizard.Fields{To: "A", From: "B", Message: "hi"})

	got, err := store.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Wizard.Step != wizard.StepForm {
		t.Errorf("step = %v, want form", got.Wizard.Step)
	}
	if got.Wizard.Card.Status != wizard.CardNone {
		t.Errorf("card status = %q, want none", got.Wizard.Card.Status)
	}

	rec = do(t, srv, http.MethodGet, "/api/session/"+sess.ID+"/card", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("card status = %d, want 404", rec.Code)
	}
}
