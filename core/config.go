/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Global initial configuration of the forwarder.
// This configuration is IMMUTABLE. Do not modify it.
var C = DefaultConfig()

// Config represents the configuration of the forwarder.
type Config struct {
	Core struct {
		// Logging level
		LogLevel string `json:"log_level"`
		// Output log to file
		LogFile string `json:"log_file"`

		// Config file base dir
		BaseDir string `json:"-"`
		// Enable CPU profiling
		CpuProfile string `json:"-"`
		// Enable memory profiling
		MemProfile string `json:"-"`
		// Enable block profiling
		BlockProfile string `json:"-"`
	} `json:"core"`

	Faces struct {
		// Size of queues in the face system
		QueueSize int `json:"queue_size"`
		// Enables or disables congestion marking
		CongestionMarking bool `json:"congestion_marking"`
		// If true, face threads will be locked to processor cores
		LockThreadsToCores bool `json:"lock_threads_to_cores"`
	} `json:"faces"`

	Fw struct {
		// Number of forwarding threads
		Threads int `json:"threads"`
		// Size of queues in the forwarding system
		QueueSize int `json:"queue_size"`
		// If true, forwarding threads will be locked to processor cores
		LockThreadsToCores bool `json:"lock_threads_to_cores"`
	} `json:"fw"`

	Tables struct {
		ContentStore struct {
			// Capacity of each forwarding thread's content store (in number of
			// Data packets). Note that the total capacity of all content stores
			// in the forwarder will be the number of threads multiplied by this
			// value.
			Capacity uint16 `json:"capacity"`
			// Whether contents will be admitted to the Content Store.
			Admit bool `json:"admit"`
			// Whether contents will be served from the Content Store.
			Serve bool `json:"serve"`
			// Cache replacement policy to use in each thread's content store.
			ReplacementPolicy string `json:"replacement_policy"`
		} `json:"content_store"`

		DeadNonceList struct {
			// Lifetime of entries in the Dead Nonce List (milliseconds)
			Lifetime int `json:"lifetime"`
		} `json:"dead_nonce_list"`

		NetworkRegion struct {
			// List of prefixes that the forwarder is in the producer region for
			Regions []string `json:"regions"`
		} `json:"network_region"`

		// Per-prefix forwarding strategy choices applied at startup. The
		// strategy is a full strategy name, possibly carrying parameter
		// components, e.g.
		// /localhost/nfd/strategy/asf/v=4/probing-interval~30000
		StrategyChoice []StrategyChoiceEntry `json:"strategy_choice"`
	} `json:"tables"`
}

// StrategyChoiceEntry configures the forwarding strategy for a prefix.
type StrategyChoiceEntry struct {
	Prefix   string `json:"prefix"`
	Strategy string `json:"strategy"`
}

// DefaultConfig returns the default configuration of the forwarder.
func DefaultConfig() *Config {
	c := &Config{}
	c.Core.LogLevel = "INFO"
	c.Core.LogFile = ""

	c.Core.BaseDir = ""
	c.Core.CpuProfile = ""
	c.Core.MemProfile = ""
	c.Core.BlockProfile = ""

	c.Faces.QueueSize = 1024
	c.Faces.CongestionMarking = true
	c.Faces.LockThreadsToCores = false

	c.Fw.Threads = 8
	c.Fw.QueueSize = 1024
	c.Fw.LockThreadsToCores = false

	c.Tables.ContentStore.Capacity = 1024
	c.Tables.ContentStore.Admit = true
	c.Tables.ContentStore.Serve = true
	c.Tables.ContentStore.ReplacementPolicy = "lru"

	c.Tables.DeadNonceList.Lifetime = 6000
	c.Tables.NetworkRegion.Regions = []string{}
	c.Tables.StrategyChoice = []StrategyChoiceEntry{}

	return c
}

// LoadConfig reads the configuration from a YAML file into dest.
func LoadConfig(dest *Config, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("unable to open configuration file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f, yaml.Strict())
	if err = dec.Decode(dest); err != nil {
		return fmt.Errorf("unable to parse configuration file: %w", err)
	}

	dest.Core.BaseDir = filepath.Dir(file)
	return nil
}

// ResolveRelPath resolves a possibly relative path based on config file path.
func (c *Config) ResolveRelPath(target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(c.Core.BaseDir, target)
}
