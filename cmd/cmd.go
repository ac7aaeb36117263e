/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Pesa/NFD/core"
	"github.com/spf13/cobra"
)

// Version of the forwarder, overridden at build time.
var Version = "devel"

var config = core.DefaultConfig()

var CmdNFD = &cobra.Command{
	Use:     "nfd CONFIG-FILE",
	Short:   "NFD-Go - An NDN Forwarding Daemon",
	Version: Version,
	Args:    cobra.ExactArgs(1),
	Run:     run,
}

func init() {
	CmdNFD.Flags().StringVar(&config.Core.CpuProfile, "cpu-profile", "", "Write CPU profile to file")
	CmdNFD.Flags().StringVar(&config.Core.MemProfile, "mem-profile", "", "Write memory profile to file")
	CmdNFD.Flags().StringVar(&config.Core.BlockProfile, "block-profile", "", "Write block profile to file")
}

func run(cmd *cobra.Command, args []string) {
	// read configuration file
	if err := core.LoadConfig(config, args[0]); err != nil {
		cmd.PrintErrln(err)
		os.Exit(3)
	}

	// create forwarder instance
	nfd := NewNFD(config)
	nfd.Start()

	// set up signal handler channel and wait for interrupt
	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt, syscall.SIGTERM)
	receivedSig := <-sigChannel
	core.Log.Info(nfd, "Received signal - exit", "signal", receivedSig)

	nfd.Stop()
}
