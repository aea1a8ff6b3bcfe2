// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package wizard implements the card-creation state machine:
// Welcome -> Catalog -> Form -> Result, with backward transitions
// Form -> Catalog and Result -> Form. The state is a plain JSON-serializable
// value so the session store can hold it; every method guards the legal
// transitions and the two core invariants:
//
//   - a product is selected if and only if the step is Form or Result, and
//   - the message never exceeds MaxMessageRunes, on any mutation.
package wizard

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"cartecard/internal/catalog"
)

// Step identifies the current wizard step.
type Step int

const (
	StepWelcome Step = iota
	StepCatalog
	StepForm
	StepResult
)

// String returns the step name used in API responses and logs.
func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepCatalog:
		return "catalog"
	case StepForm:
		return "form"
	case StepResult:
		return "result"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// MaxMessageRunes is the message length limit, counted in runes so Thai
// text is measured the same as Latin text.
const MaxMessageRunes = 50

// ErrBadTransition is returned when an operation is invoked in a step
// where it is not legal.
var ErrBadTransition = errors.New("wizard: operation not allowed in current step")

// Fields holds the three greeting inputs.
type Fields struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// ValidationError describes why a form mutation or submission was refused.
// The state is left on the Form step; the caller shows Reason inline.
type ValidationError struct {
	Field  string // "to", "from", or "message"
	Reason string // human-readable, shown inline
	Word   string // matched denylist entry, if any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("wizard: %s: %s", e.Field, e.Reason)
}

// CardStatus tracks the rendered card through its short life.
type CardStatus string

const (
	CardNone       CardStatus = ""
	CardGenerating CardStatus = "generating"
	CardReady      CardStatus = "ready"
	CardFailed     CardStatus = "failed"
)

// Card holds the compositor output for the Result step. It is cleared when
// the user navigates back to the Form step so a stale image is never shown
// while the next one is generated.
type Card struct {
	Status       CardStatus `json:"status,omitempty"`
	ImageDataURL string     `json:"image_data_url,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// State is the complete wizard state for one visitor session.
type State struct {
	Step       Step          `json:"step"`
	Pager      catalog.Pager `json:"pager"`
	Selected   int           `json:"selected,omitempty"` // 1-based product index, 0 = none
	Fields     Fields        `json:"fields"`
	Reveal     Reveal        `json:"reveal"`
	Generation uint64        `json:"generation"` // compositor invocation token
	Card       Card          `json:"card"`
}

// New returns a fresh wizard at the Welcome step with the campaign's
// default greeting prefilled.
func New() *State {
	return &State{
		Step:  StepWelcome,
		Pager: catalog.NewPager(),
		Fields: Fields{
			To:      "Dear Cartier",
			Message: "Happy Valentine's Day",
		},
	}
}

// Tick resolves time-derived transitions: once the reveal animation has
// shown its final frame the wizard advances from Welcome to Catalog.
// Call before reading or mutating the state.
func (s *State) Tick(now time.Time) {
	if s.Step == StepWelcome && s.Reveal.Done(now) {
		s.Step = StepCatalog
	}
}

// Start triggers the Welcome -> Catalog transition by kicking off the
// frame-reveal animation. The step advances only when the animation has
// run to completion (see Tick). Returns true on the first start so the
// caller can fire the engaged-user analytics event exactly once; repeated
// calls while the reveal runs are no-ops.
func (s *State) Start(now time.Time) (bool, error) {
	s.Tick(now)
	if s.Step != StepWelcome {
		return false, ErrBadTransition
	}
	if s.Reveal.StartedAt != nil {
		return false, nil
	}
	s.Reveal.Start(now)
	return true, nil
}

// FlipNext shows the next catalog page, bounded at the last page.
func (s *State) FlipNext() error {
	if s.Step != StepCatalog {
		return ErrBadTransition
	}
	s.Pager.Next()
	return nil
}

// FlipPrev shows the previous catalog page, bounded at the first page.
func (s *State) FlipPrev() error {
	if s.Step != StepCatalog {
		return ErrBadTransition
	}
	s.Pager.Prev()
	return nil
}

// ConfirmProduct captures the currently visible catalog page as the
// selected product and advances Catalog -> Form. The selected entry is
// returned so the caller can fire its product analytics event.
func (s *State) ConfirmProduct() (*catalog.Entry, error) {
	if s.Step != StepCatalog {
		return nil, ErrBadTransition
	}
	entry := catalog.Get(s.Pager.Page())
	if entry == nil {
		return nil, fmt.Errorf("wizard: page %d has no product", s.Pager.Page())
	}
	s.Selected = s.Pager.Page()
	s.Step = StepForm
	return entry, nil
}

// SaveDraft stores form input without advancing. A message longer than
// MaxMessageRunes refuses the whole mutation, keeping the previous values,
// so the length invariant holds after any sequence of input events.
func (s *State) SaveDraft(f Fields) error {
	if s.Step != StepForm {
		return ErrBadTransition
	}
	if utf8.RuneCountInString(f.Message) > MaxMessageRunes {
		return &ValidationError{
			Field:  "message",
			Reason: fmt.Sprintf("message is limited to %d characters", MaxMessageRunes),
		}
	}
	s.Fields = f
	return nil
}

// SubmitForm validates the three fields and advances Form -> Result.
// All fields must be non-empty and clear of denylisted words; otherwise a
// *ValidationError is returned and the step stays on Form. On success the
// caller fires the "complete" analytics event and starts the compositor.
func (s *State) SubmitForm(f Fields) error {
	if err := s.SaveDraft(f); err != nil {
		return err
	}

	for _, fv := range []struct{ name, value string }{
		{"to", f.To},
		{"from", f.From},
		{"message", f.Message},
	} {
		if fv.value == "" {
			return &ValidationError{Field: fv.name, Reason: "this field is required"}
		}
		if word, found := FindDisallowed(fv.value); found {
			return &ValidationError{
				Field:  fv.name,
				Reason: "contains a word that cannot be put on a card",
				Word:   word,
			}
		}
	}

	s.Step = StepResult
	return nil
}

// BackToCatalog returns Form -> Catalog, clearing the product selection.
// Field values are retained.
func (s *State) BackToCatalog() error {
	if s.Step != StepForm {
		return ErrBadTransition
	}
	s.Selected = 0
	s.Step = StepCatalog
	return nil
}

// BackToForm returns Result -> Form with field values retained. The
// rendered card is cleared so a stale image is never shown when the user
// comes forward again; any still-inflight composite is orphaned and will
// be discarded by PublishCard's generation check.
func (s *State) BackToForm() error {
	if s.Step != StepResult {
		return ErrBadTransition
	}
	s.Card = Card{}
	s.Step = StepForm
	return nil
}

// BeginComposite marks the card as generating and issues a new generation
// token. Only a completion carrying the returned token may publish.
func (s *State) BeginComposite() (uint64, error) {
	if s.Step != StepResult {
		return 0, ErrBadTransition
	}
	s.Generation++
	s.Card = Card{Status: CardGenerating}
	return s.Generation, nil
}

// PublishCard records a finished composite. Completions whose token is not
// the latest issued, or that arrive after the card was cleared, are
// discarded; the return value reports whether the card was accepted.
func (s *State) PublishCard(gen uint64, imageDataURL string) bool {
	if gen != s.Generation || s.Card.Status != CardGenerating {
		return false
	}
	s.Card = Card{Status: CardReady, ImageDataURL: imageDataURL}
	return true
}

// FailCard records a composite failure under the same staleness rules as
// PublishCard, clearing the in-progress flag so the user can retry.
func (s *State) FailCard(gen uint64, reason string) bool {
	if gen != s.Generation || s.Card.Status != CardGenerating {
		return false
	}
	s.Card = Card{Status: CardFailed, Error: reason}
	return true
}

// SelectedEntry returns the catalog entry for the current selection, or
// nil when no product is selected.
func (s *State) SelectedEntry() *catalog.Entry {
	return catalog.Get(s.Selected)
}
