/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Pesa/NFD/core"
	"github.com/Pesa/NFD/dispatch"
	"github.com/Pesa/NFD/face"
	"github.com/Pesa/NFD/fw"
	"github.com/Pesa/NFD/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// NFD is the wrapper class for the forwarding daemon.
// Note: only one instance of this class should be created.
type NFD struct {
	config   *core.Config
	profiler *Profiler
}

// NewNFD creates an NFD. Don't call this function twice.
func NewNFD(config *core.Config) *NFD {
	// Provide global configuration.
	core.C = config
	core.StartTimestamp = time.Now()

	// Initialize all modules here
	core.OpenLogger()
	face.Initialize()
	table.Initialize()

	return &NFD{
		config:   config,
		profiler: NewProfiler(config),
	}
}

func (n *NFD) String() string {
	return "nfd"
}

// Start runs the forwarder. Note: this function may exit the program when
// there is an error. This function is non-blocking.
func (n *NFD) Start() {
	core.Log.Info(n, "Starting NDN forwarder", "version", Version)

	// Start profiler
	n.profiler.Start()

	// Create null face
	face.MakeNullLinkService(face.MakeNullTransport()).Run(nil)

	// Create forwarding threads
	if fw.CfgNumThreads() < 1 || fw.CfgNumThreads() > fw.MaxFwThreads {
		core.Log.Fatal(n, "Number of forwarding threads out of range", "range", fmt.Sprintf("[1, %d]", fw.MaxFwThreads))
		os.Exit(2)
	}

	registry := fw.DefaultStrategyRegistry()

	fw.Threads = make([]*fw.Thread, fw.CfgNumThreads())
	var fwForDispatch []dispatch.FWThread
	for i := range fw.CfgNumThreads() {
		newThread := fw.NewThread(registry, i)
		fw.Threads[i] = newThread
		fwForDispatch = append(fwForDispatch, newThread)
	}
	dispatch.InitializeFWThreads(fwForDispatch)

	// Apply configured per-prefix strategy choices
	for _, choice := range core.C.Tables.StrategyChoice {
		prefix, err := enc.NameFromStr(choice.Prefix)
		if err != nil {
			core.Log.Fatal(n, "Invalid strategy choice prefix", "prefix", choice.Prefix, "err", err)
			os.Exit(2)
		}
		strategy, err := enc.NameFromStr(choice.Strategy)
		if err != nil {
			core.Log.Fatal(n, "Invalid strategy choice name", "strategy", choice.Strategy, "err", err)
			os.Exit(2)
		}
		table.FibStrategyTable.SetStrategyEnc(prefix, strategy)
		core.Log.Info(n, "Applied strategy choice", "prefix", prefix, "strategy", strategy)
	}

	for _, thread := range fw.Threads {
		go thread.Run()
	}
}

// Stop shuts down the forwarder.
func (n *NFD) Stop() {
	// Close log file last
	defer core.CloseLogger()

	// Stop the forwarder
	core.Log.Info(n, "Stopping NDN forwarder")
	defer core.Log.Info(n, "Stopped NDN forwarder")

	// Break all loops
	core.ShouldQuit = true

	// Stop profiler
	n.profiler.Stop()

	// Tell all faces to quit
	for _, face := range face.FaceTable.GetAll() {
		face.Close()
	}

	// Tell all forwarding threads to quit
	for _, fwThread := range fw.Threads {
		fwThread.TellToQuit()
	}

	// Wait for all forwarding threads to have quit
	for _, fwThread := range fw.Threads {
		<-fwThread.HasQuit
	}
}
