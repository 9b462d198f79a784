//
// config.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"bufio"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// Evaluation modes.
const (
	ModePlain  = "plain"
	ModeGarble = "garble"
)

// Config holds the pcfrun configuration. It can be loaded from a TOML
// file and the command line flags override the file values.
type Config struct {
	Mode         string
	Seed         string
	Wires        int
	MaxSteps     uint64
	MaxCallDepth int
	Verbose      bool
	Trace        bool
	TraceFile    string
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Mode:         ModePlain,
		MaxCallDepth: 1 << 16,
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModePlain, ModeGarble:
	default:
		return fmt.Errorf("invalid mode '%s'", c.Mode)
	}
	if c.Wires < 0 {
		return fmt.Errorf("invalid wire count %d", c.Wires)
	}
	if c.MaxCallDepth < 0 {
		return fmt.Errorf("invalid call depth %d", c.MaxCallDepth)
	}
	return nil
}

// These settings ensure that TOML keys use the same names as Go
// struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field,
			rt.String())
	},
}

func loadConfig(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = fmt.Errorf("%s, %s", file, err.Error())
	}
	return err
}
