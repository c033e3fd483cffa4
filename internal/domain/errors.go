package domain

import "errors"

// Sentinel errors shared across packages. Callers branch with errors.Is.
var (
	// ErrNotFound is returned when a profile id has no stored entry.
	// A normal outcome, not an exceptional one.
	ErrNotFound = errors.New("profile not found")

	// ErrConflict is returned when a save carries a stale expected
	// version; the caller must reload and retry or overwrite explicitly.
	ErrConflict = errors.New("profile version conflict")

	// ErrUnreachable is returned when the root page of a crawl fails on
	// every rung of the retry ladder. Distinct from "reachable but no
	// fields extracted".
	ErrUnreachable = errors.New("site unreachable")

	// ErrInvalidURL rejects malformed input before any network activity.
	ErrInvalidURL = errors.New("invalid url")
)
