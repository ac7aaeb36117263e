/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package defn

import spec "github.com/named-data/ndnd/std/ndn/spec_2022"

// Nack reasons, as defined by NDNLPv2.
const (
	NackReasonNone       = spec.NackReasonNone
	NackReasonCongestion = spec.NackReasonCongestion
	NackReasonDuplicate  = spec.NackReasonDuplicate
	NackReasonNoRoute    = spec.NackReasonNoRoute
)

// NackReasonString returns a human-readable representation of a Nack reason.
func NackReasonString(reason uint64) string {
	switch reason {
	case NackReasonNone:
		return "None"
	case NackReasonCongestion:
		return "Congestion"
	case NackReasonDuplicate:
		return "Duplicate"
	case NackReasonNoRoute:
		return "NoRoute"
	default:
		return "Unknown"
	}
}
