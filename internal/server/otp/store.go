// Package otp issues and verifies short-lived numeric one-time codes used for
// step-up verification (e.g. confirming control of an email address).
//
// Two interchangeable implementations share one contract: an in-process store
// for single-node deployments and a redis-backed store for clustered ones.
package otp

import "context"

// CodeDigits is the fixed width of generated codes. Codes are compared as
// strings so leading zeros survive.
const CodeDigits = 6

// Store generates and verifies one-time codes bound to a subject key.
//
// At most one live code exists per key: Generate overwrites any prior code.
// Verify consumes the code on the first successful match; a mismatch leaves
// the code intact so the subject may retry until the TTL runs out. The TTL
// bounds the brute-force window; rate limiting is the caller's concern.
type Store interface {
	// Generate creates a fresh code for the key and stores it with the TTL.
	// The only expected failure is the backing store being unreachable.
	Generate(ctx context.Context, subjectKey string) (string, error)

	// Verify reports whether candidate matches the live code for the key.
	// Absent, expired and mismatching codes all yield (false, nil); the log
	// distinguishes the outcomes so responses do not leak enumeration hints.
	Verify(ctx context.Context, subjectKey, candidate string) (bool, error)
}
