/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package defn

import enc "github.com/named-data/ndnd/std/encoding"

// Localhost prefix for the forwarder
var LOCAL_PREFIX = enc.Name{enc.LOCALHOST, enc.NewStringComponent(enc.TypeGenericNameComponent, "nfd")}

// Non-local prefix for the forwarder
var NON_LOCAL_PREFIX = enc.Name{enc.LOCALHOP, enc.NewStringComponent(enc.TypeGenericNameComponent, "nfd")}

// Prefix for all strategies
var STRATEGY_PREFIX = append(LOCAL_PREFIX, enc.NewStringComponent(enc.TypeGenericNameComponent, "strategy"))

// Default forwarding strategy name
var DEFAULT_STRATEGY = append(STRATEGY_PREFIX,
	enc.NewStringComponent(enc.TypeGenericNameComponent, "best-route"),
	enc.NewVersionComponent(1))
