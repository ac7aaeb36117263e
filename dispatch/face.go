/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package dispatch

import (
	"sync"

	"github.com/Pesa/NFD/defn"
)

// OutPkt is a packet handed to a face for transmission.
type OutPkt struct {
	Pkt *defn.Pkt

	// PitToken is the token for the outgoing packet, if any.
	PitToken []byte

	// InFace is the incoming face ID for the packet, if known.
	InFace uint64
}

// Face provides an interface that faces can satisfy
// (to avoid circular dependency between faces and forwarding)
type Face interface {
	String() string
	SetFaceID(faceID uint64)

	FaceID() uint64
	LocalURI() *defn.URI
	RemoteURI() *defn.URI
	Scope() defn.Scope
	LinkType() defn.LinkType
	MTU() int

	State() defn.State

	SendPacket(out OutPkt)
}

// faces is the map of face IDs to faces, shared between the face system and
// the forwarding threads.
var faces sync.Map

// AddFace adds the specified face to the dispatch list.
func AddFace(id uint64, face Face) {
	faces.Store(id, face)
}

// GetFace returns the face with the specified ID, or nil if it does not exist.
func GetFace(id uint64) Face {
	face, ok := faces.Load(id)
	if !ok {
		return nil
	}
	return face.(Face)
}

// RemoveFace removes the face with the specified ID from the dispatch list.
func RemoveFace(id uint64) {
	faces.Delete(id)
}
