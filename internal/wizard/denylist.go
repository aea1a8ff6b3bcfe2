// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// denylist.go holds the word filter applied to card text before a card may
// be generated. Matching is case-insensitive substring matching over a
// normalized form of both the entries and the input.
//
// Some entries in the campaign's word list were delivered with trailing
// zero-width spaces (U+200B), which would make them unmatchable if compared
// byte-for-byte. The list is kept verbatim; instead the matcher strips
// zero-width code points from both sides, so every intended variant is
// reachable. The policy is tested directly in denylist_test.go.
package wizard

import "strings"

// denylist is the configured set of disallowed substrings, Thai and
// English, carried over verbatim from the campaign word list, including
// the entries that arrived with trailing zero-width spaces.
var denylist = []string{
	"ไอ้​",
	"อี​",
	"มึง​",
	"กู​",
	"ชั่ว​",
	"เลว",
	"ควาย",
	"เหี้ย",
	"สัตว์",
	"ไม่ดี",
	"หยาบคาย",
	"shit",
	"damn",
	"hell",
	"fuck",
	"bitch",
	"ค*ย",
	"ห*ี​",
	"แ*ตด",
	"เย็*ด",
}

// zero-width code points stripped before matching.
var zeroWidthStripper = strings.NewReplacer(
	"​", "", // zero width space
	"‌", "", // zero width non-joiner
	"‍", "", // zero width joiner
	"\uFEFF", "", // zero width no-break space / BOM
)

// normalizeForMatch lowercases the input and removes zero-width code
// points so that visually identical strings compare equal.
func normalizeForMatch(s string) string {
	return strings.ToLower(zeroWidthStripper.Replace(s))
}

// compiledDenylist holds the normalized, deduplicated entries the matcher
// actually runs against. Built once at init.
var compiledDenylist = compileDenylist(denylist)

func compileDenylist(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, entry := range raw {
		n := normalizeForMatch(entry)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// FindDisallowed reports the first disallowed substring contained in text,
// if any. The returned word is the normalized entry that matched.
func FindDisallowed(text string) (string, bool) {
	normalized := normalizeForMatch(text)
	for _, word := range compiledDenylist {
		if strings.Contains(normalized, word) {
			return word, true
		}
	}
	return "", false
}
