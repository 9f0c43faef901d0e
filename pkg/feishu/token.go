package feishu

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// safetyMargin shortens every issued credential's lifetime so we never hand
// out a token the issuer already considers expired.
const safetyMargin = 60 * time.Second

// tokenCache holds one bearer credential and refreshes it on expiry. The
// mutex is held across the refresh call, so concurrent callers during an
// expired cache block behind a single refresh instead of storming the issuer.
type tokenCache struct {
	mu       sync.Mutex
	token    string
	expireAt time.Time

	fetch func(ctx context.Context) (token string, expiresIn time.Duration, err error)
	now   func() time.Time
}

func newTokenCache(fetch func(ctx context.Context) (string, time.Duration, error)) *tokenCache {
	return &tokenCache{fetch: fetch, now: time.Now}
}

func (tc *tokenCache) get(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.token != "" && tc.now().Before(tc.expireAt) {
		return tc.token, nil
	}

	token, expiresIn, err := tc.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	tc.token = token
	tc.expireAt = tc.now().Add(expiresIn - safetyMargin)
	return token, nil
}
