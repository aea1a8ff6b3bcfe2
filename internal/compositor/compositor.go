// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package compositor renders the finished greeting card: a cover-fitted
// background image under a dark scrim, with the brand mark and the
// to/message/from text drawn as centered blocks. The output is a JPEG
// data URL at maximum quality, published after a short fixed pacing pause
// so the result step never flashes in abruptly.
package compositor

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// DefaultDelay is the pacing pause between finishing the drawing and
// publishing the result. It is part of the step choreography, not a
// technical wait.
const DefaultDelay = 2 * time.Second

// jpegQuality is the encode quality for the finished card.
const jpegQuality = 100

// Compositor renders greeting cards. Loader is the primary background
// source; Fallback, when non-nil, is tried once if the primary fails.
// There is no third tier. A nil Fallback makes a primary failure final.
type Compositor struct {
	Loader   BackgroundLoader
	Fallback BackgroundLoader
	Delay    time.Duration
}

// New returns a compositor with the default pacing delay and the gradient
// fallback tier.
func New(loader BackgroundLoader) *Compositor {
	return &Compositor{
		Loader:   loader,
		Fallback: GradientLoader{},
		Delay:    DefaultDelay,
	}
}

// Render produces the card for the given background reference and
// greeting, returning a JPEG data URL. The context bounds the background
// fetch and the pacing pause.
func (c *Compositor) Render(ctx context.Context, backgroundRef string, text Text) (string, error) {
	bg, err := c.Loader.Load(ctx, backgroundRef)
	if err != nil {
		if c.Fallback == nil {
			return "", fmt.Errorf("compositor: background: %w", err)
		}
		slog.Warn("card background failed, using fallback", "ref", backgroundRef, "error", err)
		bg, err = c.Fallback.Load(ctx, backgroundRef)
		if err != nil {
			return "", fmt.Errorf("compositor: fallback background: %w", err)
		}
	}

	canvas, err := compose(bg, text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("compositor: encode: %w", err)
	}

	// Pacing pause before the result is published.
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// compose draws the card onto a fresh canvas.
func compose(bg image.Image, text Text) (*image.NRGBA, error) {
	// Cover-fit the background: fill the square canvas, centered, cropping
	// the overflow.
	canvas := imaging.Fill(bg, CanvasSize, CanvasSize, imaging.Center, imaging.Lanczos)

	// Dark scrim so white text stays readable on any background.
	scrim := image.NewUniform(color.NRGBA{A: 77})
	draw.Draw(canvas, canvas.Bounds(), scrim, image.Point{}, draw.Over)

	faces, err := loadFaces()
	if err != nil {
		return nil, err
	}

	for _, b := range layout(text) {
		face, ok := faces[b.size]
		if !ok {
			return nil, fmt.Errorf("compositor: no face for size %v", b.size)
		}
		drawCentered(canvas, face, b.text, b.y)
	}

	return canvas, nil
}

// drawCentered draws one line of text horizontally centered at baseline y,
// with a soft shadow behind it.
func drawCentered(dst draw.Image, face font.Face, text string, y int) {
	adv := font.MeasureString(face, text)
	x := (fixed.I(CanvasSize) - adv) / 2

	shadow := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{A: 160}),
		Face: face,
		Dot:  fixed.Point26_6{X: x + fixed.I(2), Y: fixed.I(y + 2)},
	}
	shadow.DrawString(text)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: fixed.I(y)},
	}
	d.DrawString(text)
}

var (
	facesOnce sync.Once
	faceCache map[float64]font.Face
	facesErr  error
)

// loadFaces parses the bundled fonts once and builds a face per layout
// size. The brand mark uses the italic face; everything else the regular.
func loadFaces() (map[float64]font.Face, error) {
	facesOnce.Do(func() {
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			facesErr = fmt.Errorf("compositor: parse regular font: %w", err)
			return
		}
		italic, err := opentype.Parse(goitalic.TTF)
		if err != nil {
			facesErr = fmt.Errorf("compositor: parse italic font: %w", err)
			return
		}

		faceCache = make(map[float64]font.Face, 3)
		for size, src := range map[float64]*sfnt.Font{
			brandSize:   italic,
			nameSize:    regular,
			messageSize: regular,
		} {
			face, err := opentype.NewFace(src, &opentype.FaceOptions{
				Size:    size,
				DPI:     72,
				Hinting: font.HintingFull,
			})
			if err != nil {
				facesErr = fmt.Errorf("compositor: face %v: %w", size, err)
				return
			}
			faceCache[size] = face
		}
	})
	return faceCache, facesErr
}
