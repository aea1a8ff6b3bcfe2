// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog defines the fixed product catalog browsed in the flipbook
// step of the card wizard, and a bounded pager over its entries.
package catalog

// Entry describes one product page of the catalog. The catalog is defined
// at build time and never changes at runtime.
type Entry struct {
	Title          string   // Display title, e.g. "Cartier Rings"
	Product        string   // Bare product name reported to analytics, e.g. "Rings"
	Heading        string   // Short tagline shown on the page
	Copy           []string // Marketing copy paragraphs
	ImageURL       string   // Product image shown on the catalog page
	CardBackground string   // Background reference used by the compositor
	AnalyticsEvent string   // Selection event name reported when chosen
}

// Entries is the fixed four-product catalog: rings, bracelets, watches,
// and fragrances. Image URLs point at the brand's own image host, which is
// the only host the image proxy will relay.
var Entries = []Entry{
	{
		Title:   "Cartier Rings",
		Product: "Rings",
		Heading: "Timeless Elegance",
		Copy: []string{
			"Discover the iconic beauty of Cartier rings, masterpieces of craftsmanship and design.",
			"Each ring tells a story of love, commitment, and exceptional artistry.",
		},
		ImageURL:       "https://www.cartier.com/dw/image/v2/BGTJ_PRD/on/demandware.static/-/Sites-cartier-master/default/dw84f25cc7/images/large/fe332aeba0c7541399fcf9a7e11f9924.png?sw=350&sh=350&sm=fit&sfrm=png",
		CardBackground: "https://www.cartier.com/dw/image/v2/BGTJ_PRD/on/demandware.static/-/Sites-cartier-master/default/dw84f25cc7/images/large/fe332aeba0c7541399fcf9a7e11f9924.png?sw=350&sh=350&sm=fit&sfrm=png",
		AnalyticsEvent: "rings_selected",
	},
	{
		Title:   "Cartier Bracelets",
		Product: "Bracelets",
		Heading: "Luxury in Motion",
		Copy: []string{
			"Experience the sophistication of Cartier bracelets, where elegance meets everyday luxury.",
			"Handcrafted with precision, each piece reflects our commitment to perfection.",
		},
		ImageURL:       "https://www.cartier.com/dw/image/v2/BGTJ_PRD/on/demandware.static/-/Sites-cartier-master/default/dwa168da07/images/large/aa35bfeac8f057d89dc5916fad2fbb28.png?sw=750&sh=750&sm=fit&sfrm=png",
		CardBackground: "https://www.cartier.com/dw/image/v2/BGTJ_PRD/on/demandware.static/-/Sites-cartier-master/default/dwa168da07/images/large/aa35bfeac8f057d89dc5916fad2fbb28.png?sw=750&sh=750&sm=fit&sfrm=png",
		AnalyticsEvent: "bracelets_selected",
	},
	{
		Title:   "Cartier Watches",
		Product: "Watches",
		Heading: "Time in Perfection",
		Copy: []string{
			"Cartier watches combine technical innovation with timeless style and heritage.",
			"A symbol of sophistication and a companion for life's most precious moments.",
		},
		ImageURL:       "https://www.cartier.com/dw/image/v2/BGTJ_PRD/on/demandware.static/-/Sites-cartier-master/default/dwbb85beda/images/large/e595116d53265480a7df020d5d8e7d34.png?sw=750&sh=750&sm=fit&sfrm=png",
		CardBackground: "https://www.cartier.com/dw/image/v2/BGTJ_PRD/on/demandware.static/-/Sites-cartier-master/default/dwbb85beda/images/large/e595116d53265480a7df020d5d8e7d34.png?sw=750&sh=750&sm=fit&sfrm=png",
		AnalyticsEvent: "watches_selected",
	},
	{
		Title:   "Cartier Fragrances",
		Product: "Perfumes",
		Heading: "Essence of Luxury",
		Copy: []string{
			"Cartier fragrances capture the essence of elegance in every spritz.",
			"Discover scents that define moments, evoke emotions, and express your unique style.",
		},
		ImageURL:       "https://www.cartier.com/dw/image/v2/BGTJ_PRD/on/demandware.static/-/Sites-cartier-master/default/dwddafea2d/images/large/564c3c12ecd95efa931df3b297d6a0e3.png?sw=750&sh=750&sm=fit&sfrm=png",
		CardBackground: "https://www.cartier.com/dw/image/v2/BGTJ_PRD/on/demandware.static/-/Sites-cartier-master/default/dwddafea2d/images/large/564c3c12ecd95efa931df3b297d6a0e3.png?sw=750&sh=750&sm=fit&sfrm=png",
		AnalyticsEvent: "perfumes_selected",
	},
}

// PageCount is the number of browsable catalog pages.
func PageCount() int {
	return len(Entries)
}

// Get returns the entry for a 1-based page index, or nil if the index is
// out of range.
func Get(page int) *Entry {
	if page < 1 || page > len(Entries) {
		return nil
	}
	return &Entries[page-1]
}

// Pager tracks the currently visible catalog page. Navigation is bounded:
// flipping past either end leaves the page unchanged. The pager knows
// nothing about product selection; callers read Page at the moment a
// selection is confirmed.
type Pager struct {
	Current int `json:"current"` // 1-based page index
}

// NewPager returns a pager positioned at the first page.
func NewPager() Pager {
	return Pager{Current: 1}
}

// Page returns the current 1-based page index.
func (p Pager) Page() int {
	return p.Current
}

// Next advances to the following page, staying put at the last page.
func (p *Pager) Next() {
	if p.Current < len(Entries) {
		p.Current++
	}
}

// Prev moves to the preceding page, staying put at the first page.
func (p *Pager) Prev() {
	if p.Current > 1 {
		p.Current--
	}
}
