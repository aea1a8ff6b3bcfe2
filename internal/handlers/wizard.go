// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"cartecard/internal/analytics"
	"cartecard/internal/catalog"
	"cartecard/internal/compositor"
	"cartecard/internal/liff"
	"cartecard/internal/session"
	"cartecard/internal/wizard"
)

// composeTimeout bounds one background card render, including the
// background image fetch.
const composeTimeout = 30 * time.Second

// Wizard exposes the card-building state machine over HTTP. Every route
// except session creation operates on a session loaded by token, mutates
// the wizard, saves it back, and returns a fresh snapshot.
type Wizard struct {
	store    session.Store
	platform liff.Platform
	comp     *compositor.Compositor
	tracker  *analytics.Tracker
}

// NewWizard creates a new Wizard handler group. platform may be nil when
// no LINE channel is configured, in which case session creation fails.
func NewWizard(store session.Store, platform liff.Platform, comp *compositor.Compositor, tracker *analytics.Tracker) *Wizard {
	return &Wizard{store: store, platform: platform, comp: comp, tracker: tracker}
}

// productView is the catalog entry shape returned to the client.
type productView struct {
	Title    string   `json:"title"`
	Heading  string   `json:"heading"`
	Copy     []string `json:"copy"`
	ImageURL string   `json:"image_url"`
}

func viewOf(e *catalog.Entry) *productView {
	if e == nil {
		return nil
	}
	return &productView{
		Title:    e.Title,
		Heading:  e.Heading,
		Copy:     e.Copy,
		ImageURL: e.ImageURL,
	}
}

// stateSnapshot is the response body shared by all wizard routes.
type stateSnapshot struct {
	ID            string        `json:"id"`
	Profile       *liff.Profile `json:"profile,omitempty"`
	Step          string        `json:"step"`
	Page          int           `json:"page"`
	PageCount     int           `json:"page_count"`
	Product       *productView  `json:"product,omitempty"`
	Selected      *productView  `json:"selected,omitempty"`
	Fields        wizard.Fields `json:"fields"`
	RevealFrame   int           `json:"reveal_frame"`
	RevealRunning bool          `json:"reveal_running"`
	Card          wizard.Card   `json:"card"`
}

func snapshot(sess *session.Session, now time.Time) stateSnapshot {
	st := sess.Wizard
	return stateSnapshot{
		ID:            sess.ID,
		Profile:       sess.Profile,
		Step:          st.Step.String(),
		Page:          st.Pager.Page(),
		PageCount:     catalog.PageCount(),
		Product:       viewOf(catalog.Get(st.Pager.Page())),
		Selected:      viewOf(st.SelectedEntry()),
		Fields:        st.Fields,
		RevealFrame:   st.Reveal.Frame(now),
		RevealRunning: st.Reveal.Running(now),
		Card:          st.Card,
	}
}

// Bootstrap handles POST /api/session. The bearer token is the visitor's
// LIFF access token; it is verified and exchanged for a profile before a
// session is created.
func (h *Wizard) Bootstrap(w http.ResponseWriter, r *http.Request) {
	if h.platform == nil {
		writeError(w, http.StatusServiceUnavailable, "messaging platform is not configured")
		return
	}

	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	ctx := r.Context()
	if err := h.platform.VerifyToken(ctx, token); err != nil {
		if errors.Is(err, liff.ErrLoginRequired) {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		slog.Error("token verify failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "initialization failed")
		return
	}

	// A profile fetch outage does not block the visit; the session starts
	// without a profile and the client may bootstrap again.
	profile, err := h.platform.GetProfile(ctx, token)
	if err != nil {
		if errors.Is(err, liff.ErrLoginRequired) {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		slog.Warn("profile fetch failed", "error", err)
		profile = nil
	}

	sess := &session.Session{
		Profile:   profile,
		Wizard:    wizard.New(),
		CreatedAt: time.Now(),
	}
	if err := h.store.Create(ctx, sess); err != nil {
		slog.Error("session create failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "initialization failed")
		return
	}

	slog.Info("session created", "session", sess.ID)
	writeJSON(w, http.StatusCreated, snapshot(sess, time.Now()))
}

// Snapshot handles GET /api/session/{id}.
func (h *Wizard) Snapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}

	now := time.Now()
	before := sess.Wizard.Step
	sess.Wizard.Tick(now)
	if sess.Wizard.Step != before {
		if err := h.store.Save(r.Context(), sess); err != nil {
			slog.Error("session save failed", "session", sess.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, snapshot(sess, now))
}

// Start handles POST /api/session/{id}/start.
func (h *Wizard) Start(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}

	now := time.Now()
	started, err := sess.Wizard.Start(now)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if started && sess.Profile != nil {
		go h.tracker.EngagedUser(sess.Profile.UserID)
	}
	h.save(w, r, sess, now)
}

type flipRequest struct {
	Direction string `json:"direction"`
}

// Flip handles POST /api/session/{id}/flip.
func (h *Wizard) Flip(w http.ResponseWriter, r *http.Request) {
	var req flipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	sess.Wizard.Tick(time.Now())

	var err error
	switch req.Direction {
	case "next":
		err = sess.Wizard.FlipNext()
	case "prev":
		err = sess.Wizard.FlipPrev()
	default:
		writeError(w, http.StatusBadRequest, "direction must be next or prev")
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.save(w, r, sess, time.Now())
}

// Confirm handles POST /api/session/{id}/confirm. It captures the page the
// pager is sitting on as the selected product.
func (h *Wizard) Confirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	sess.Wizard.Tick(time.Now())

	entry, err := sess.Wizard.ConfirmProduct()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	if sess.Profile != nil {
		go h.tracker.ProductSelected(sess.Profile.UserID, entry.AnalyticsEvent, entry.Title, entry.Product)
	}
	h.save(w, r, sess, time.Now())
}

// Form handles POST /api/session/{id}/form. A valid submission moves the
// wizard to the Result step and starts a background card render.
func (h *Wizard) Form(w http.ResponseWriter, r *http.Request) {
	var fields wizard.Fields
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	sess.Wizard.Tick(time.Now())

	if err := sess.Wizard.SubmitForm(fields); err != nil {
		var verr *wizard.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": verr.Error(),
				"field": verr.Field,
				"word":  verr.Word,
			})
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	gen, err := sess.Wizard.BeginComposite()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	entry := sess.Wizard.SelectedEntry()

	if !h.save(w, r, sess, time.Now()) {
		return
	}

	if sess.Profile != nil {
		go h.tracker.Complete(sess.Profile.UserID)
	}
	go h.composeCard(sess.ID, gen, entry, sess.Wizard.Fields)
}

// composeCard renders the card in the background and publishes the result
// under the generation it was started for. A render finishing after the
// visitor went back and resubmitted is discarded.
func (h *Wizard) composeCard(sessionID string, gen uint64, entry *catalog.Entry, fields wizard.Fields) {
	ctx, cancel := context.WithTimeout(context.Background(), composeTimeout)
	defer cancel()

	background := ""
	if entry != nil {
		background = entry.CardBackground
	}

	dataURL, renderErr := h.comp.Render(ctx, background, compositor.Text{
		To:      fields.To,
		From:    fields.From,
		Message: fields.Message,
	})
	if renderErr != nil {
		slog.Error("card render failed", "session", sessionID, "error", renderErr)
	}

	// The atomic update publishes against the latest stored state, so a
	// /back or resubmit landing during the render cannot be overwritten.
	var published bool
	err := h.store.Update(ctx, sessionID, func(sess *session.Session) bool {
		if renderErr != nil {
			published = sess.Wizard.FailCard(gen, "card generation failed")
		} else {
			published = sess.Wizard.PublishCard(gen, dataURL)
		}
		return published
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			slog.Warn("session gone before card publish", "session", sessionID)
		} else {
			slog.Error("session save failed", "session", sessionID, "error", err)
		}
		return
	}
	if !published {
		slog.Info("stale card render discarded", "session", sessionID, "generation", gen)
	}
}

// Card handles GET /api/session/{id}/card.
func (h *Wizard) Card(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}

	card := sess.Wizard.Card
	if card.Status == wizard.CardNone {
		writeError(w, http.StatusNotFound, "no card has been generated")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

type backRequest struct {
	To string `json:"to"`
}

// Back handles POST /api/session/{id}/back. Going back to the catalog
// clears the selection; going back to the form clears the rendered card.
func (h *Wizard) Back(w http.ResponseWriter, r *http.Request) {
	var req backRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	sess.Wizard.Tick(time.Now())

	var err error
	switch req.To {
	case "catalog":
		err = sess.Wizard.BackToCatalog()
	case "form":
		err = sess.Wizard.BackToForm()
	default:
		writeError(w, http.StatusBadRequest, "to must be catalog or form")
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.save(w, r, sess, time.Now())
}

// load fetches the session named in the URL, writing the error response
// itself when the session cannot be served.
func (h *Wizard) load(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return nil, false
	}

	sess, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		slog.Error("session load failed", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return sess, true
}

// save persists the session and writes a snapshot response. Returns false
// if persisting failed and an error response was already written.
func (h *Wizard) save(w http.ResponseWriter, r *http.Request, sess *session.Session, now time.Time) bool {
	if err := h.store.Save(r.Context(), sess); err != nil {
		slog.Error("session save failed", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	writeJSON(w, http.StatusOK, snapshot(sess, now))
	return true
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
