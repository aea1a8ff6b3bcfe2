// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// layout.go computes where each text block lands on the card. The layout
// is a pure function of the greeting text: the brand mark at the top, then
// "To:", the message lines, and "From:" as centered blocks at strictly
// increasing vertical offsets near the bottom of the card. Message lines
// are split on explicit line breaks only; no automatic word wrap.
package compositor

import "strings"

// Canvas and layout constants, in pixels on the 1024x1024 card.
const (
	CanvasSize = 1024

	brandMark = "CARTIER"
	brandY    = 140
	brandSize = 58.0

	nameSize    = 44.0 // "To:" and "From:" lines
	messageSize = 34.0

	toY         = 700
	messageTopY = 772
	lineHeight  = 46
	fromGap     = 26 // extra space between the last message line and "From:"
)

// Text is the greeting placed on the card.
type Text struct {
	To      string
	From    string
	Message string
}

// textBlock is one centered line of text at a fixed baseline.
type textBlock struct {
	text string
	y    int
	size float64
}

// layout returns the card's text blocks in draw order. The brand mark is
// always first; to/message/from follow at strictly increasing baselines.
func layout(t Text) []textBlock {
	blocks := []textBlock{
		{text: brandMark, y: brandY, size: brandSize},
		{text: "To: " + t.To, y: toY, size: nameSize},
	}

	y := messageTopY
	for _, line := range strings.Split(t.Message, "\n") {
		blocks = append(blocks, textBlock{text: line, y: y, size: messageSize})
		y += lineHeight
	}

	blocks = append(blocks, textBlock{text: "From: " + t.From, y: y + fromGap, size: nameSize})
	return blocks
}
