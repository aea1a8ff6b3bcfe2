// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"net/url"
	"testing"
)

func TestEntries(t *testing.T) {
	if got := PageCount(); got != 4 {
		t.Fatalf("PageCount: got %d, want 4", got)
	}

	// Analytics reports the bare product name, not the display title.
	wantProducts := []string{"Rings", "Bracelets", "Watches", "Perfumes"}

	events := map[string]bool{}
	for i, e := range Entries {
		if e.Title == "" || e.Heading == "" || len(e.Copy) == 0 {
			t.Errorf("entry %d incomplete: %+v", i, e)
		}
		if e.Product != wantProducts[i] {
			t.Errorf("entry %d product: got %q, want %q", i, e.Product, wantProducts[i])
		}
		if e.AnalyticsEvent == "" {
			t.Errorf("entry %d missing analytics event", i)
		}
		if events[e.AnalyticsEvent] {
			t.Errorf("duplicate analytics event %q", e.AnalyticsEvent)
		}
		events[e.AnalyticsEvent] = true

		// Image references must live on the brand host so the image
		// proxy allowlist can relay them.
		for _, ref := range []string{e.ImageURL, e.CardBackground} {
			u, err := url.Parse(ref)
			if err != nil {
				t.Errorf("entry %d: bad URL %q: %v", i, ref, err)
				continue
			}
			if u.Hostname() != "www.cartier.com" {
				t.Errorf("entry %d: host %q not on the brand image host", i, u.Hostname())
			}
		}
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		page  int
		title string
	}{
		{1, "Cartier Rings"},
		{2, "Cartier Bracelets"},
		{3, "Cartier Watches"},
		{4, "Cartier Fragrances"},
	}
	for _, tt := range tests {
		e := Get(tt.page)
		if e == nil {
			t.Fatalf("Get(%d): nil", tt.page)
		}
		if e.Title != tt.title {
			t.Errorf("Get(%d): got %q, want %q", tt.page, e.Title, tt.title)
		}
	}

	for _, page := range []int{0, -1, 5, 100} {
		if Get(page) != nil {
			t.Errorf("Get(%d): expected nil", page)
		}
	}
}

func TestPagerBounds(t *testing.T) {
	p := NewPager()

	if p.Page() != 1 {
		t.Fatalf("new pager page: got %d, want 1", p.Page())
	}

	// Prev at the first page is a no-op, repeatedly.
	p.Prev()
	p.Prev()
	if p.Page() != 1 {
		t.Errorf("page after prev at start: got %d, want 1", p.Page())
	}

	for i := 0; i < PageCount()+2; i++ {
		p.Next()
	}
	if p.Page() != PageCount() {
		t.Errorf("page after next past end: got %d, want %d", p.Page(), PageCount())
	}

	p.Prev()
	if p.Page() != PageCount()-1 {
		t.Errorf("page after prev: got %d, want %d", p.Page(), PageCount()-1)
	}
}
