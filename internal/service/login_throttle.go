package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// LoginThrottle tracks failed logins per (email, ip) pair. A non-zero
// duration means further attempts must wait that long.
type LoginThrottle interface {
	Check(ctx context.Context, email, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, email, ip string) (time.Duration, error)
	Reset(ctx context.Context, email, ip string) error
}

type LoginThrottlePolicy struct {
	MaxFailures int
	Window      time.Duration
}

func (p LoginThrottlePolicy) normalized() LoginThrottlePolicy {
	if p.MaxFailures < 1 {
		p.MaxFailures = 5
	}
	if p.Window <= 0 {
		p.Window = 15 * time.Minute
	}
	return p
}

func throttleSubject(email, ip string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email) + "|" + strings.TrimSpace(ip)))
	return hex.EncodeToString(sum[:])
}

// LocalLoginThrottle keeps one fixed window per subject in process memory.
// The first failure opens a window of length Window; once MaxFailures land
// inside it the subject is locked until the window closes.
type LocalLoginThrottle struct {
	policy LoginThrottlePolicy
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*failureWindow
	nextSweep time.Time
}

type failureWindow struct {
	expiresAt time.Time
	failures  int
}

func NewLocalLoginThrottle(policy LoginThrottlePolicy) *LocalLoginThrottle {
	return &LocalLoginThrottle{
		policy:  policy.normalized(),
		now:     time.Now,
		windows: make(map[string]*failureWindow),
	}
}

func (t *LocalLoginThrottle) WithClock(now func() time.Time) *LocalLoginThrottle {
	t.now = now
	return t
}

func (t *LocalLoginThrottle) Check(_ context.Context, email, ip string) (time.Duration, error) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	win, ok := t.windows[throttleSubject(email, ip)]
	if !ok {
		return 0, nil
	}
	return t.wait(win, now), nil
}

func (t *LocalLoginThrottle) RegisterFailure(_ context.Context, email, ip string) (time.Duration, error) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweep(now)
	key := throttleSubject(email, ip)
	win, ok := t.windows[key]
	if !ok || !now.Before(win.expiresAt) {
		win = &failureWindow{expiresAt: now.Add(t.policy.Window)}
		t.windows[key] = win
	}
	win.failures++
	return t.wait(win, now), nil
}

func (t *LocalLoginThrottle) Reset(_ context.Context, email, ip string) error {
	t.mu.Lock()
	delete(t.windows, throttleSubject(email, ip))
	t.mu.Unlock()
	return nil
}

func (t *LocalLoginThrottle) wait(win *failureWindow, now time.Time) time.Duration {
	if win.failures < t.policy.MaxFailures || !now.Before(win.expiresAt) {
		return 0
	}
	return win.expiresAt.Sub(now)
}

// sweep drops closed windows. Caller holds mu.
func (t *LocalLoginThrottle) sweep(now time.Time) {
	if now.Before(t.nextSweep) {
		return
	}
	t.nextSweep = now.Add(t.policy.Window)
	for key, win := range t.windows {
		if !now.Before(win.expiresAt) {
			delete(t.windows, key)
		}
	}
}
