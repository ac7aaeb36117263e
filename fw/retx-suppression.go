/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"time"

	"github.com/Pesa/NFD/table"
)

// Default retransmission suppression parameters.
const (
	RetxSuppressionInitialInterval = 10 * time.Millisecond
	RetxSuppressionMaxInterval     = 250 * time.Millisecond
	RetxSuppressionMultiplier      = 2.0
)

// RetxSuppressionResult is the decision for one retransmitted Interest
// toward one upstream.
type RetxSuppressionResult int

const (
	// RetxSuppressionNew indicates the Interest is new for this upstream (no out-record).
	RetxSuppressionNew RetxSuppressionResult = iota
	// RetxSuppressionForward indicates the retransmission should be forwarded.
	RetxSuppressionForward
	// RetxSuppressionSuppress indicates the retransmission should be suppressed.
	RetxSuppressionSuppress
)

func (r RetxSuppressionResult) String() string {
	switch r {
	case RetxSuppressionNew:
		return "New"
	case RetxSuppressionForward:
		return "Forward"
	case RetxSuppressionSuppress:
		return "Suppress"
	default:
		return "Unknown"
	}
}

// RetxSuppressionEntry is the suppression state for one (PIT entry, upstream) pair.
type RetxSuppressionEntry struct {
	currentInterval time.Duration
}

// RetxSuppressionExponential suppresses retransmissions using exponential backoff,
// independently per upstream face.
type RetxSuppressionExponential struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
}

// NewRetxSuppressionExponential creates a suppression module with the default parameters.
func NewRetxSuppressionExponential() *RetxSuppressionExponential {
	return &RetxSuppressionExponential{
		initialInterval: RetxSuppressionInitialInterval,
		maxInterval:     RetxSuppressionMaxInterval,
		multiplier:      RetxSuppressionMultiplier,
	}
}

// NewEntry creates the suppression state for a fresh (PIT entry, upstream) pair.
func (rs *RetxSuppressionExponential) NewEntry() *RetxSuppressionEntry {
	return &RetxSuppressionEntry{currentInterval: rs.initialInterval}
}

// DecidePerUpstream decides whether a retransmission toward the upstream of
// outRecord may be forwarded. A nil outRecord means the upstream has not been
// tried yet and the decision is New. On a Forward decision the suppression
// interval for this upstream backs off exponentially up to the maximum.
func (rs *RetxSuppressionExponential) DecidePerUpstream(
	outRecord *table.PitOutRecord,
	entry *RetxSuppressionEntry,
) RetxSuppressionResult {
	if outRecord == nil {
		return RetxSuppressionNew
	}

	if time.Since(outRecord.LatestTimestamp) < entry.currentInterval {
		return RetxSuppressionSuppress
	}

	entry.currentInterval = min(
		time.Duration(float64(entry.currentInterval)*rs.multiplier),
		rs.maxInterval)
	return RetxSuppressionForward
}
