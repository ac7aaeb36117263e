/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"fmt"

	"github.com/Pesa/NFD/core"
)

// NullLinkService is a link service that drops all packets.
type NullLinkService struct {
	linkServiceBase
}

// MakeNullLinkService makes a NullLinkService.
func MakeNullLinkService(transport transport) *NullLinkService {
	l := new(NullLinkService)
	l.makeLinkServiceBase()
	l.transport = transport
	l.transport.setLinkService(l)
	return l
}

func (l *NullLinkService) String() string {
	return fmt.Sprintf("null-link-service (faceid=%d)", l.faceID)
}

// Run runs the NullLinkService.
func (l *NullLinkService) Run(initial []byte) {
	FaceTable.Add(l)
	go func() {
		l.transport.runReceive()
		FaceTable.Remove(l.transport.FaceID())
	}()
}

func (l *NullLinkService) handleIncomingFrame(frame []byte) {
	// Do nothing
	core.Log.Debug(l, "Received frame on null link service - DROP")
}
