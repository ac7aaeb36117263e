/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"math/rand"
	"time"
)

// Probing interval bounds.
const (
	DefaultProbingInterval = 60 * time.Second
	MinProbingInterval     = 1 * time.Second

	// firstProbingWindow bounds the delay before a namespace's first probe,
	// so that alternate paths are explored soon after a namespace becomes
	// active even when the probing interval is long.
	firstProbingWindow = 5 * time.Second
)

// ProbingModule decides when to probe a namespace and which face to probe.
// The RNG is injected so tests can be deterministic.
type ProbingModule struct {
	probingInterval time.Duration
	rng             *rand.Rand
}

// NewProbingModule creates a probing module with the given interval.
func NewProbingModule(probingInterval time.Duration, rng *rand.Rand) *ProbingModule {
	return &ProbingModule{
		probingInterval: probingInterval,
		rng:             rng,
	}
}

// ProbingInterval returns the configured probing interval.
func (p *ProbingModule) ProbingInterval() time.Duration {
	return p.probingInterval
}

// IsProbingNeeded returns whether a probe should accompany the next Interest
// for this namespace. The first probe for a namespace is scheduled uniformly
// within the first probing window.
func (p *ProbingModule) IsProbingNeeded(info *NamespaceInfo) bool {
	if info.probeDeadline.IsZero() {
		window := min(p.probingInterval, firstProbingWindow)
		info.probeDeadline = time.Now().Add(time.Duration(p.rng.Int63n(int64(window))))
		return false
	}

	return !info.probeOutstanding && !time.Now().Before(info.probeDeadline)
}

// GetFaceForProbing picks the face to probe: the first face in probing order
// that is not the face chosen for regular forwarding. Returns false if there
// is no eligible face.
func (p *ProbingModule) GetFaceForProbing(rankedFaces []FaceStats, exclude uint64) (uint64, bool) {
	for _, fs := range rankedFaces {
		if fs.Face != exclude {
			return fs.Face, true
		}
	}
	return 0, false
}

// AfterForwardingProbe records that a probe is in flight and schedules the
// next probe deadline with +/-10% jitter around the probing interval.
func (p *ProbingModule) AfterForwardingProbe(info *NamespaceInfo) {
	info.probeOutstanding = true

	low := int64(float64(p.probingInterval) * 0.9)
	high := int64(float64(p.probingInterval) * 1.1)
	info.probeDeadline = time.Now().Add(time.Duration(low + p.rng.Int63n(high-low+1)))
}

// AfterProbeSettled records that the outstanding probe was answered or
// abandoned, allowing the next probe to fire.
func (p *ProbingModule) AfterProbeSettled(info *NamespaceInfo) {
	info.probeOutstanding = false
}
