//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/markkurossi/pcf/garble"
	"github.com/markkurossi/pcf/pcf"
	"github.com/markkurossi/pcf/plain"
	"github.com/markkurossi/pcf/timing"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	modeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "evaluation mode: plain or garble",
		Value: ModePlain,
	}
	aliceFlag = &cli.StringSliceFlag{
		Name:  "alice",
		Usage: "Alice's input words",
	}
	bobFlag = &cli.StringSliceFlag{
		Name:  "bob",
		Usage: "Bob's input words",
	}
	seedFlag = &cli.StringFlag{
		Name:  "seed",
		Usage: "label generator seed for reproducible garbling",
	}
	wiresFlag = &cli.IntFlag{
		Name:  "wires",
		Usage: "wire bank size, overrides the program's size",
	}
	maxStepsFlag = &cli.Uint64Flag{
		Name:  "max-steps",
		Usage: "maximum number of instructions to execute, 0 for unlimited",
	}
	maxCallDepthFlag = &cli.IntFlag{
		Name:  "max-call-depth",
		Usage: "maximum call stack depth, 0 for unlimited",
		Value: 1 << 16,
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "verbose output",
	}
	traceFlag = &cli.BoolFlag{
		Name:  "trace",
		Usage: "trace executed instructions",
	}
	traceFileFlag = &cli.StringFlag{
		Name:  "trace-file",
		Usage: "write the debug log as JSON to `FILE`",
	}

	runCommand = &cli.Command{
		Action:    runProgram,
		Name:      "run",
		Usage:     "Execute a PCF program",
		ArgsUsage: "<program.pcf>",
		Flags: []cli.Flag{
			configFlag,
			modeFlag,
			aliceFlag,
			bobFlag,
			seedFlag,
			wiresFlag,
			maxStepsFlag,
			maxCallDepthFlag,
			verboseFlag,
			traceFlag,
			traceFileFlag,
		},
		Description: `
The run command loads the PCF program and executes it with the
parties' input words. The output words of Alice and Bob are printed
to standard output.`,
	}
	dumpCommand = &cli.Command{
		Action:    dumpProgram,
		Name:      "dump",
		Usage:     "Print the program listing",
		ArgsUsage: "<program.pcf>",
	}
)

func main() {
	app := &cli.App{
		Name:  "pcfrun",
		Usage: "PCF bytecode interpreter",
		Commands: []*cli.Command{
			runCommand,
			dumpCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "pcfrun: %s\n", err)
		os.Exit(1)
	}
}

func programArg(ctx *cli.Context) (string, error) {
	if ctx.NArg() != 1 {
		return "", fmt.Errorf("expected one program file, got %d",
			ctx.NArg())
	}
	return ctx.Args().First(), nil
}

func dumpProgram(ctx *cli.Context) error {
	file, err := programArg(ctx)
	if err != nil {
		return err
	}
	prog, err := pcf.ParseFile(file)
	if err != nil {
		return err
	}
	prog.Dump(os.Stdout)
	return nil
}

// makeConfig loads the configuration file and applies the command
// line flags.
func makeConfig(ctx *cli.Context) (*Config, error) {
	cfg := NewConfig()
	if file := ctx.String(configFlag.Name); file != "" {
		if err := loadConfig(file, cfg); err != nil {
			return nil, err
		}
	}
	if ctx.IsSet(modeFlag.Name) {
		cfg.Mode = ctx.String(modeFlag.Name)
	}
	if ctx.IsSet(seedFlag.Name) {
		cfg.Seed = ctx.String(seedFlag.Name)
	}
	if ctx.IsSet(wiresFlag.Name) {
		cfg.Wires = ctx.Int(wiresFlag.Name)
	}
	if ctx.IsSet(maxStepsFlag.Name) {
		cfg.MaxSteps = ctx.Uint64(maxStepsFlag.Name)
	}
	if ctx.IsSet(maxCallDepthFlag.Name) {
		cfg.MaxCallDepth = ctx.Int(maxCallDepthFlag.Name)
	}
	if ctx.IsSet(verboseFlag.Name) {
		cfg.Verbose = ctx.Bool(verboseFlag.Name)
	}
	if ctx.IsSet(traceFlag.Name) {
		cfg.Trace = ctx.Bool(traceFlag.Name)
	}
	if ctx.IsSet(traceFileFlag.Name) {
		cfg.TraceFile = ctx.String(traceFileFlag.Name)
	}
	return cfg, cfg.Validate()
}

func parseWords(vals []string) ([]uint32, error) {
	var result []uint32
	for _, val := range vals {
		v, err := strconv.ParseUint(val, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid input word '%s': %w", val, err)
		}
		result = append(result, uint32(v))
	}
	return result, nil
}

// backend binds an evaluator to the run.
type backend struct {
	eval    pcf.Evaluator
	consts  [2]pcf.Key
	outputs func() [2][]uint32
	live    func() int64
	tables  func() uint64
}

func newBackend(cfg *Config, alice, bob []uint32) (*backend, error) {
	switch cfg.Mode {
	case ModeGarble:
		var seed []byte
		if len(cfg.Seed) > 0 {
			seed = []byte(cfg.Seed)
		}
		prg, err := garble.NewPRG(seed)
		if err != nil {
			return nil, err
		}
		e, err := garble.New(prg, alice, bob)
		if err != nil {
			return nil, err
		}
		return &backend{
			eval:   e,
			consts: e.Constants(),
			outputs: func() [2][]uint32 {
				return e.Outputs
			},
			live: e.Pool.Live,
			tables: func() uint64 {
				return e.Stats.TableBytes
			},
		}, nil

	default:
		e := plain.New(alice, bob)
		return &backend{
			eval:   e,
			consts: e.Constants(),
			outputs: func() [2][]uint32 {
				return e.Outputs
			},
			live: e.Pool.Live,
			tables: func() uint64 {
				return 0
			},
		}, nil
	}
}

func runProgram(ctx *cli.Context) error {
	file, err := programArg(ctx)
	if err != nil {
		return err
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	alice, err := parseWords(ctx.StringSlice(aliceFlag.Name))
	if err != nil {
		return err
	}
	bob, err := parseWords(ctx.StringSlice(bobFlag.Name))
	if err != nil {
		return err
	}

	return run(os.Stdout, log, cfg, file, alice, bob)
}

// evalTimer measures the time spent in the gate evaluator.
type evalTimer struct {
	eval pcf.Evaluator
	gate time.Duration
	io   time.Duration
}

func (e *evalTimer) Evaluate(st *pcf.State, g *pcf.Gate) (pcf.Key, error) {
	start := time.Now()
	key, err := e.eval.Evaluate(st, g)
	if g.Tag == pcf.Internal {
		e.gate += time.Since(start)
	} else {
		e.io += time.Since(start)
	}
	return key, err
}

func run(out io.Writer, log *slog.Logger, cfg *Config, file string,
	alice, bob []uint32) error {

	t := timing.New()

	prog, err := pcf.ParseFile(file)
	if err != nil {
		return err
	}
	t.Sample("Load", []string{fmt.Sprintf("%v", len(prog.Instrs))})
	log.Info("program loaded", "file", file, "instrs", len(prog.Instrs),
		"labels", prog.Labels.Len(), "wires", prog.NumWires)

	be, err := newBackend(cfg, alice, bob)
	if err != nil {
		return err
	}
	defer func() {
		for _, k := range be.consts {
			k.Release()
		}
		if live := be.live(); live != 0 {
			log.Warn("key leak", "live", live)
		}
	}()

	params := pcf.NewParams()
	params.NumWires = cfg.Wires
	params.MaxSteps = cfg.MaxSteps
	params.MaxCallDepth = cfg.MaxCallDepth
	params.Logger = log
	params.Trace = cfg.Trace

	timer := &evalTimer{
		eval: be.eval,
	}
	vm, err := pcf.New(prog, timer, be.consts, params)
	if err != nil {
		return err
	}
	defer vm.Close()
	initEnd := time.Now()

	err = vm.Run()
	st := vm.State()
	sample := t.Sample("Run", []string{fmt.Sprintf("%v", st.Stats.Steps)})
	sample.SubSample("Init", initEnd)
	sample.SubSample("Exec", sample.End)
	sample.AbsSubSample("Gate eval", timer.gate)
	sample.AbsSubSample("I/O eval", timer.io)
	if err != nil {
		return err
	}
	log.Info("program stopped", "status", st.Status,
		"code", st.Status.Code(), "steps", st.Stats.Steps)

	outputs := be.outputs()
	for p, name := range []string{"alice", "bob"} {
		for idx, word := range outputs[p] {
			fmt.Fprintf(out, "%s[%d]: %d (0x%08x)\n", name, idx, word, word)
		}
	}
	if cfg.Verbose {
		t.Print(out, st.Stats, be.tables())
	}
	return nil
}
