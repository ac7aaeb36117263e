/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package defn

import (
	enc "github.com/named-data/ndnd/std/encoding"
	spec "github.com/named-data/ndnd/std/ndn/spec_2022"
	"github.com/named-data/ndnd/std/types/optional"
)

// Pkt represents a pending packet to be sent or recently
// received on the link, plus any associated metadata.
type Pkt struct {
	Name enc.Name
	L3   *spec.Packet
	Raw  enc.Wire

	PitToken       []byte
	CongestionMark optional.Optional[uint64]
	NackReason     optional.Optional[uint64]

	IncomingFaceID uint64
	NextHopFaceID  optional.Optional[uint64]
}

// IsNack returns whether the packet carries a network Nack.
func (p *Pkt) IsNack() bool {
	return p.NackReason.IsSet()
}

// CopyForNack returns a shallow copy of the packet carrying the
// given Nack reason. The L3 Interest is shared with the original.
func (p *Pkt) CopyForNack(reason uint64) *Pkt {
	return &Pkt{
		Name:           p.Name,
		L3:             p.L3,
		Raw:            p.Raw,
		NackReason:     optional.Some(reason),
		IncomingFaceID: p.IncomingFaceID,
	}
}
