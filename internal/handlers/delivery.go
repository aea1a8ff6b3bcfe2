// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"cartecard/internal/analytics"
	"cartecard/internal/liff"
	"cartecard/internal/storage"
)

// Delivery groups the routes that move a finished card off the device:
// pushing it to the user's LINE chat and archiving it in object storage.
// archive may be nil when S3 is not configured.
type Delivery struct {
	platform liff.Platform
	archive  *storage.Client
	tracker  *analytics.Tracker
}

// NewDelivery creates a new Delivery handler group.
func NewDelivery(platform liff.Platform, archive *storage.Client, tracker *analytics.Tracker) *Delivery {
	return &Delivery{platform: platform, archive: archive, tracker: tracker}
}

type sendImageRequest struct {
	UserID       string `json:"userId"`
	ImageDataURL string `json:"imageDataUrl"`
}

// SendImage handles POST /api/send-image. It pushes the card to the user's
// chat via the Messaging API. When object storage is configured the card is
// archived first and the stored URL is pushed; otherwise the data URL is
// forwarded as-is. Upstream rejections are passed through with their
// original status and body.
func (d *Delivery) SendImage(w http.ResponseWriter, r *http.Request) {
	var req sendImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.ImageDataURL == "" {
		writeError(w, http.StatusBadRequest, "userId and imageDataUrl are required")
		return
	}
	if !d.platform.CanPush() {
		writeError(w, http.StatusInternalServerError, "channel access token is not configured")
		return
	}

	imageURL := req.ImageDataURL
	if d.archive != nil {
		stored, err := d.archiveCard(r, req.ImageDataURL)
		if err != nil {
			slog.Error("card archive before push failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store card image")
			return
		}
		imageURL = stored
	}

	if err := d.platform.PushImage(r.Context(), req.UserID, imageURL); err != nil {
		var apiErr *liff.APIError
		if errors.As(err, &apiErr) {
			slog.Warn("push rejected", "user", req.UserID, "status", apiErr.Status)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(apiErr.Status)
			w.Write(apiErr.Body)
			return
		}
		slog.Error("push failed", "user", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send image")
		return
	}

	go d.tracker.Share(req.UserID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type uploadImageRequest struct {
	ImageDataURL string `json:"imageDataUrl"`
	ClientID     string `json:"clientId,omitempty"`
}

// UploadImage handles POST /api/upload-image. With object storage
// configured the card is stored under cards/<uuid>.jpg and its public URL
// returned; without it the data URL is echoed back so the client can offer
// it as a download directly.
func (d *Delivery) UploadImage(w http.ResponseWriter, r *http.Request) {
	var req uploadImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageDataURL == "" {
		writeError(w, http.StatusBadRequest, "imageDataUrl is required")
		return
	}

	if req.ClientID != "" {
		go d.tracker.Download(req.ClientID)
	}

	if d.archive == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "imageUrl": req.ImageDataURL})
		return
	}

	stored, err := d.archiveCard(r, req.ImageDataURL)
	if err != nil {
		slog.Error("card archive failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store card image")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "imageUrl": stored})
}

// archiveCard decodes a data URL and stores the image under a fresh key.
func (d *Delivery) archiveCard(r *http.Request, dataURL string) (string, error) {
	contentType, data, err := parseImageDataURL(dataURL)
	if err != nil {
		return "", err
	}

	ext := "jpg"
	if contentType == "image/png" {
		ext = "png"
	}
	key := fmt.Sprintf("cards/%s.%s", uuid.NewString(), ext)
	return d.archive.StoreCard(r.Context(), key, contentType, data)
}

// parseImageDataURL splits a base64 image data URL into its media type and
// decoded bytes.
func parseImageDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data url")
	}
	contentType, encoding, ok := strings.Cut(meta, ";")
	if !ok || encoding != "base64" {
		return "", nil, fmt.Errorf("unsupported data url encoding")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", nil, fmt.Errorf("unsupported media type %q", contentType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return contentType, data, nil
}
