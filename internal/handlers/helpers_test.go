// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"sync"

	"cartecard/internal/analytics"
	"cartecard/internal/liff"
)

// fakePlatform implements liff.Platform for handler tests.
type fakePlatform struct {
	mu         sync.Mutex
	verifyErr  error
	profile    *liff.Profile
	profileErr error
	pushErr    error
	pushable   bool
	pushes     []pushCall
}

type pushCall struct {
	userID   string
	imageURL string
}

func (f *fakePlatform) VerifyToken(_ context.Context, _ string) error {
	return f.verifyErr
}

func (f *fakePlatform) GetProfile(_ context.Context, _ string) (*liff.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile != nil {
		return f.profile, nil
	}
	return &liff.Profile{UserID: "U1234", DisplayName: "Test User"}, nil
}

func (f *fakePlatform) PushImage(_ context.Context, userID, imageURL string) error {
	f.mu.Lock()
	f.pushes = append(f.pushes, pushCall{userID: userID, imageURL: imageURL})
	f.mu.Unlock()
	return f.pushErr
}

func (f *fakePlatform) CanPush() bool {
	return f.pushable
}

// noopTracker returns a disabled analytics tracker.
func noopTracker() *analytics.Tracker {
	return analytics.New(analytics.Config{})
}
