// Package ratelimit implements the sliding-window rate-limit accountant
// (C5): per (subject, window) counters keyed, in precedence order, by
// API-key id, user id, or client IP, with plan-driven thresholds.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// Window is one of the three sliding windows a subject is counted against.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// Period returns the wall-clock duration of the window.
func (w Window) Period() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// Thresholds is the plan-driven ceiling for each window, typically sourced
// from plan.Limits.APIRateLimitPer{Minute,Hour,Day}.
type Thresholds struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

func (t Thresholds) forWindow(w Window) int {
	switch w {
	case WindowMinute:
		return t.PerMinute
	case WindowHour:
		return t.PerHour
	case WindowDay:
		return t.PerDay
	default:
		return 0
	}
}

// SubjectKind distinguishes the precedence tier a subject was resolved at.
type SubjectKind string

const (
	SubjectAPIKey SubjectKind = "api_key"
	SubjectUser   SubjectKind = "user"
	SubjectIP     SubjectKind = "ip"
)

// Subject identifies who is being rate limited.
type Subject struct {
	Kind SubjectKind
	ID   string
}

func (s Subject) key(w Window) string {
	return fmt.Sprintf("%s:%s:%s", s.Kind, s.ID, w)
}

// ResolveSubject picks the rate-limit subject in precedence order:
// API-key id, then user id, then client IP.
func ResolveSubject(apiKeyID, userID core.ID, clientIP string) Subject {
	switch {
	case !apiKeyID.IsZero():
		return Subject{Kind: SubjectAPIKey, ID: apiKeyID.String()}
	case !userID.IsZero():
		return Subject{Kind: SubjectUser, ID: userID.String()}
	default:
		return Subject{Kind: SubjectIP, ID: clientIP}
	}
}

// Store is the atomic increment-if-below-threshold primitive the
// accountant is built on; implementations must be safe to race multiple
// callers against the same clock.
type Store interface {
	// Allow increments the counter for key within period if doing so would
	// keep it at or below limit, returning whether the call was allowed and,
	// if not, how long until the caller may retry.
	Allow(ctx context.Context, key string, period time.Duration, limit int) (allowed bool, retryAfter time.Duration, err error)
}

// Accountant answers rate-limit questions for a Subject across all three
// windows, implementing C5.
type Accountant struct {
	store Store
}

// NewAccountant builds an Accountant backed by store.
func NewAccountant(store Store) *Accountant {
	return &Accountant{store: store}
}

// Check increments the subject's counters for every window and fails with
// core.CodeRateLimited (including a retry_after detail, in seconds) the
// moment any window's threshold would be exceeded. Windows are checked in
// ascending order (minute, hour, day) so the tightest window reports first.
func (a *Accountant) Check(ctx context.Context, subject Subject, thresholds Thresholds) error {
	for _, w := range []Window{WindowMinute, WindowHour, WindowDay} {
		limit := thresholds.forWindow(w)
		if limit <= 0 {
			continue
		}
		allowed, retryAfter, err := a.store.Allow(ctx, subject.key(w), w.Period(), limit)
		if err != nil {
			return fmt.Errorf("ratelimit: %w", err)
		}
		if !allowed {
			return core.NewError(
				fmt.Errorf("rate limit exceeded for %s %s in the %s window", subject.Kind, subject.ID, w),
				core.CodeRateLimited,
				map[string]any{
					"window":      string(w),
					"limit":       limit,
					"retry_after": retryAfter.Seconds(),
				},
			)
		}
	}
	return nil
}
