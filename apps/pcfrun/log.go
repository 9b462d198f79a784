//
// log.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// newLogger creates the logger for the configuration. The messages
// go to w as text. If the trace file is set, the debug messages are
// also written to the file as JSON.
func newLogger(cfg *Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	level := new(slog.LevelVar)
	switch {
	case cfg.Trace && cfg.TraceFile == "":
		level.Set(slog.LevelDebug)
	case cfg.Verbose:
		level.Set(slog.LevelInfo)
	default:
		level.Set(slog.LevelWarn)
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		}),
	}
	var closer io.Closer = nopCloser{}

	if cfg.TraceFile != "" {
		f, err := os.Create(cfg.TraceFile)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f,
			&slog.HandlerOptions{
				Level: slog.LevelDebug,
			}))
		closer = f
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}
