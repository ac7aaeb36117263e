/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package defn

// MaxNDNPacketSize is the maximum allowed NDN packet size
const MaxNDNPacketSize = 8800

// Scope indicates the scope of a face
type Scope int

const (
	// Unknown indicates that the scope is unknown
	Unknown Scope = -1
	// NonLocal indicates the face is non-local (to another forwarder)
	NonLocal Scope = 0
	// Local indicates the face is local (to an application)
	Local Scope = 1
)

func (s Scope) String() string {
	switch s {
	case NonLocal:
		return "NonLocal"
	case Local:
		return "Local"
	default:
		return "Unknown"
	}
}

// LinkType indicates the type of link a face is on
type LinkType int

const (
	// PointToPoint indicates the face is on a point-to-point link
	PointToPoint LinkType = iota
	// MultiAccess indicates the face is on a multi-access link
	MultiAccess LinkType = iota
	// AdHoc indicates the face is on an ad-hoc link
	AdHoc LinkType = iota
)

func (l LinkType) String() string {
	switch l {
	case PointToPoint:
		return "PointToPoint"
	case MultiAccess:
		return "MultiAccess"
	case AdHoc:
		return "AdHoc"
	default:
		return "Unknown"
	}
}
