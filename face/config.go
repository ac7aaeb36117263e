/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"github.com/Pesa/NFD/core"
)

// Initialize initializes the face system.
func Initialize() {
	go FaceTable.expirationHandler()
}

// CfgFaceQueueSize is the maximum number of packets that can be buffered
// to be sent or received on a face.
func CfgFaceQueueSize() int {
	return core.C.Faces.QueueSize
}

// CfgCongestionMarking indicates whether congestion marking is enabled.
func CfgCongestionMarking() bool {
	return core.C.Faces.CongestionMarking
}

// CfgLockThreadsToCores indicates whether face threads will be locked to cores.
func CfgLockThreadsToCores() bool {
	return core.C.Faces.LockThreadsToCores
}
