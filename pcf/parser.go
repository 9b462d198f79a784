//
// parser.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ParseFile parses the program text file.
func ParseFile(file string) (*Program, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	prog, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", file)
	}
	return prog, nil
}

// Parse parses a program in the text format from the input reader.
func Parse(in io.Reader) (*Program, error) {
	var instrs []Instr
	var numWires int

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var lineNo int
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], "WIRES") {
			if len(fields) != 2 {
				return nil, errors.Newf("%d: WIRES: expected 1 argument, got %d",
					lineNo, len(fields)-1)
			}
			n, err := parseUint32(fields[1])
			if err != nil {
				return nil, errors.Wrapf(err, "%d: WIRES", lineNo)
			}
			numWires = int(n)
			continue
		}
		instr, err := parseInstr(fields)
		if err != nil {
			return nil, errors.Wrapf(err, "%d", lineNo)
		}
		instrs = append(instrs, instr)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewProgram(instrs, numWires)
}

func parseInstr(fields []string) (instr Instr, err error) {
	op, ok := mnemonics[strings.ToUpper(fields[0])]
	if !ok {
		return instr, errors.Newf("unknown instruction %q", fields[0])
	}
	instr.Op = op
	args := fields[1:]

	nargs := func(n int) error {
		if len(args) != n {
			return errors.Newf("%s: expected %d arguments, got %d",
				op, n, len(args))
		}
		return nil
	}

	switch op {
	case Nop, Ret:
		err = nargs(0)

	case Label:
		if err = nargs(1); err == nil {
			instr.Target = args[0]
		}

	case InitBase:
		if err = nargs(1); err == nil {
			instr.Value, err = parseUint32(args[0])
		}

	case MkPtr:
		if err = nargs(1); err == nil {
			instr.Dest, err = parseUint32(args[0])
		}

	case Const:
		if err = nargs(2); err != nil {
			return
		}
		var vals []uint32
		vals, err = parseUint32s(args)
		if err == nil {
			instr.Dest = vals[0]
			instr.Value = vals[1]
		}

	case Bits:
		if len(args) < 1 {
			return instr, errors.Newf("%s: missing source", op)
		}
		var vals []uint32
		vals, err = parseUint32s(args)
		if err == nil {
			instr.Source = vals[0]
			instr.Dests = vals[1:]
		}

	case Copy, CopyIndirDest, CopyIndirSource:
		if err = nargs(3); err != nil {
			return
		}
		var vals []uint32
		vals, err = parseUint32s(args)
		if err == nil {
			instr.Dest = vals[0]
			instr.Source = vals[1]
			instr.Width = vals[2]
		}

	case GateOp:
		if len(args) != 4 && len(args) != 7 {
			return instr, errors.Newf("%s: expected 4 or 7 arguments, got %d",
				op, len(args))
		}
		var vals []uint32
		vals, err = parseUint32s(args)
		if err != nil {
			return
		}
		instr.Dest = vals[0]
		instr.Wire1 = vals[1]
		instr.Wire2 = vals[2]
		if len(vals) == 4 {
			if vals[3] > math.MaxUint8 {
				return instr, errors.Newf("%s: invalid truth table %d",
					op, vals[3])
			}
			instr.Table = uint8(vals[3])
		} else {
			for bit, v := range vals[3:] {
				if v > 1 {
					return instr, errors.Newf("%s: invalid truth table bit %d",
						op, v)
				}
				instr.Table |= uint8(v) << bit
			}
		}

	case Call:
		if err = nargs(2); err == nil {
			instr.Target = args[0]
			instr.Value, err = parseUint32(args[1])
		}

	default:
		err = errors.Newf("unsupported instruction %s", op)
	}
	return
}

func parseUint32(val string) (uint32, error) {
	v, err := strconv.ParseUint(val, 0, 32)
	if err != nil {
		return 0, errors.Newf("invalid number %q", val)
	}
	return uint32(v), nil
}

func parseUint32s(vals []string) ([]uint32, error) {
	result := make([]uint32, len(vals))
	for idx, val := range vals {
		v, err := parseUint32(val)
		if err != nil {
			return nil, err
		}
		result[idx] = v
	}
	return result, nil
}
