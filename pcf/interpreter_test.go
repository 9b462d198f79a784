//
// interpreter_test.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"testing"

	"github.com/cockroachdb/errors"
)

type testKeys struct {
	live int
}

func (keys *testKeys) newKey(bit uint32) *testKey {
	keys.live++
	return &testKey{
		keys: keys,
		bit:  bit,
	}
}

type testKey struct {
	keys     *testKeys
	bit      uint32
	released bool
}

func (k *testKey) Clone() Key {
	if k.released {
		panic("Clone on released key")
	}
	return k.keys.newKey(k.bit)
}

func (k *testKey) Release() {
	if k.released {
		panic("double release")
	}
	k.released = true
	k.keys.live--
}

// testEvaluator records the delegated gates and returns fresh keys.
type testEvaluator struct {
	keys  *testKeys
	gates []Gate
	fn    func(st *State, g *Gate) (Key, error)
}

func (e *testEvaluator) Evaluate(st *State, g *Gate) (Key, error) {
	e.gates = append(e.gates, *g)
	if e.fn != nil {
		return e.fn(st, g)
	}
	return e.keys.newKey(0), nil
}

func newTestVM(t *testing.T, params *Params, instrs ...Instr) (
	*Interpreter, *testEvaluator) {

	prog, err := NewProgram(instrs, 0)
	if err != nil {
		t.Fatalf("NewProgram failed: %s", err)
	}
	keys := new(testKeys)
	eval := &testEvaluator{
		keys: keys,
	}
	vm, err := New(prog, eval, [2]Key{keys.newKey(0), keys.newKey(1)},
		params)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	return vm, eval
}

func wire(t *testing.T, vm *Interpreter, addr uint32) Wire {
	w, err := vm.Wires().Get(addr)
	if err != nil {
		t.Fatalf("wire %d: %s", addr, err)
	}
	return w
}

func indexBits(boundary uint32) []uint32 {
	var result []uint32
	for i := uint32(IORounds); i > 0; i-- {
		result = append(result, boundary-i)
	}
	return result
}

func TestKnownGates(t *testing.T) {
	for table := uint8(0); table < 16; table++ {
		for a := uint32(0); a < 2; a++ {
			for b := uint32(0); b < 2; b++ {
				vm, eval := newTestVM(t, nil,
					NewConst(0, a),
					NewConst(1, b),
					NewGate(2, 0, 1, table))
				if err := vm.Run(); err != nil {
					t.Fatalf("Run failed: %s", err)
				}
				w := wire(t, vm, 2)
				expected := uint32(table>>(a+2*b)) & 1
				if w.Flag != Known || w.Value != expected {
					t.Errorf("table %04b(%d,%d): got %v/%v, expected %v",
						table, a, b, w.Flag, w.Value, expected)
				}
				k, ok := w.Key.(*testKey)
				if !ok || k.bit != expected {
					t.Errorf("table %04b(%d,%d): invalid key %v",
						table, a, b, w.Key)
				}
				if len(eval.gates) != 0 {
					t.Errorf("known gate delegated: %v", eval.gates)
				}
			}
		}
	}
}

func TestGate(t *testing.T) {
	vm, _ := newTestVM(t, nil,
		NewConst(0, 1),
		NewConst(1, 0),
		NewGate(2, 0, 1, 0b0110))
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if w := wire(t, vm, 2); w.Flag != Known || w.Value != 1 {
		t.Errorf("1^0: got %v", &w)
	}
}

func TestConst(t *testing.T) {
	vm, eval := newTestVM(t, nil,
		NewConst(5, 1),
		NewBits(5, 1),
		NewConst(1, 42))
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	w := wire(t, vm, 5)
	if w.Flag != Known || w.Value != 1 {
		t.Errorf("CONST: got %v", &w)
	}
	w = wire(t, vm, 1)
	if w.Flag != Known || w.Value != 42 || w.Key != nil {
		t.Errorf("CONST: got %v key=%v", &w, w.Key)
	}
	// Constant keys and the released BITS key.
	if eval.keys.live != 2 {
		t.Errorf("live keys: %d", eval.keys.live)
	}
}

func TestBits(t *testing.T) {
	vm, _ := newTestVM(t, nil,
		NewConst(10, 0b101),
		NewBits(10, 0, 1, 2))
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	for idx, expected := range []uint32{1, 0, 1} {
		w := wire(t, vm, uint32(idx))
		if w.Flag != Known || w.Value != expected {
			t.Errorf("bit %d: got %v, expected %v", idx, &w, expected)
		}
		k, ok := w.Key.(*testKey)
		if !ok || k.bit != expected {
			t.Errorf("bit %d: invalid key %v", idx, w.Key)
		}
	}
}

func TestBitsRoundTrip(t *testing.T) {
	var dests []uint32
	for i := uint32(0); i < 32; i++ {
		dests = append(dests, 40+i)
	}
	for _, val := range []uint32{0, 1, 0b101, 0x80000000, 0xdeadbeef,
		0xffffffff} {
		vm, eval := newTestVM(t, nil,
			NewConst(0, val),
			NewBits(0, dests...))
		if err := vm.Run(); err != nil {
			t.Fatalf("Run failed: %s", err)
		}
		var got uint32
		for i, addr := range dests {
			got |= wire(t, vm, addr).Value << i
		}
		if got != val {
			t.Errorf("BITS round-trip: got %x, expected %x", got, val)
		}
		vm.Close()
		if eval.keys.live != 2 {
			t.Errorf("live keys after Close: %d", eval.keys.live)
		}
	}
}

func TestMkPtr(t *testing.T) {
	vm, _ := newTestVM(t, nil,
		NewInitBase(10),
		NewLabel("main"),
		NewConst(0, 3),
		NewMkPtr(0))
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if w := wire(t, vm, 10); w.Value != 13 {
		t.Errorf("MKPTR: got %v, expected 13", &w)
	}
}

func TestCallRet(t *testing.T) {
	vm, _ := newTestVM(t, nil,
		NewInitBase(0),
		NewLabel("f"),
		NewConst(0, 7),
		NewRet(),
		NewLabel("main"),
		NewCall("f", 10),
		NewConst(1, 3))

	for !vm.Done() {
		if err := vm.Step(); err != nil {
			t.Fatalf("Step failed: %s", err)
		}
		if vm.State().PC == 3 && vm.State().Depth() != 1 {
			t.Errorf("depth in f: %d", vm.State().Depth())
		}
	}
	st := vm.State()
	if st.Status != Finished || st.Status.Code() != 0 {
		t.Errorf("status: %v", st.Status)
	}
	if st.Depth() != 0 {
		t.Errorf("depth: %d", st.Depth())
	}
	if st.Stats.Calls != 1 || st.Stats.Returns != 1 {
		t.Errorf("calls=%d, returns=%d", st.Stats.Calls, st.Stats.Returns)
	}
	// The frame base is not restored on return.
	if st.Base != 10 {
		t.Errorf("base: %d", st.Base)
	}
	if w := wire(t, vm, 10); w.Value != 7 {
		t.Errorf("f result: %v", &w)
	}
	if w := wire(t, vm, 11); w.Value != 3 {
		t.Errorf("main result: %v", &w)
	}
}

func TestRetEmptyStack(t *testing.T) {
	vm, _ := newTestVM(t, nil,
		NewRet(),
		NewConst(0, 1))
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	st := vm.State()
	if st.Status != Halted || st.Status.Code() != -1 {
		t.Errorf("status: %v (%d)", st.Status, st.Status.Code())
	}
	if w := wire(t, vm, 0); w.Value != 0 {
		t.Errorf("instruction after halt executed")
	}
	if err := vm.Step(); !errors.Is(err, ErrHalted) {
		t.Errorf("Step after halt: %v", err)
	}
}

func TestInputRole(t *testing.T) {
	const boundary = 64

	instrs := []Instr{
		NewConst(200, 5),
		NewBits(200, indexBits(boundary)...),
		NewCall(RoleAlice, boundary),
		NewCall(RoleBob, boundary),
	}
	vm, eval := newTestVM(t, nil, instrs...)

	// CONST and BITS.
	for i := 0; i < 2; i++ {
		if err := vm.Step(); err != nil {
			t.Fatalf("Step failed: %s", err)
		}
	}
	for round := 0; round < IORounds; round++ {
		if vm.State().IORound() != round {
			t.Fatalf("round %d: cursor at %d", round, vm.State().IORound())
		}
		if err := vm.Step(); err != nil {
			t.Fatalf("Step failed: %s", err)
		}
		if vm.State().PC != 2 {
			t.Fatalf("round %d: PC %d", round, vm.State().PC)
		}
	}
	if !vm.State().IOActive() {
		t.Fatalf("I/O not active after %d rounds", IORounds)
	}
	if err := vm.Step(); err != nil {
		t.Fatalf("Step failed: %s", err)
	}
	if vm.State().IOActive() || vm.State().PC != 3 {
		t.Fatalf("I/O cursor not reset: %s", vm.State())
	}
	if len(eval.gates) != IORounds {
		t.Fatalf("got %d callbacks, expected %d", len(eval.gates), IORounds)
	}
	for r, g := range eval.gates {
		expected := Gate{
			Wire1:      5 + uint32(r),
			Wire2:      5 + uint32(r),
			Result:     boundary + uint32(r),
			TruthTable: 5,
			Tag:        InputA,
		}
		if g != expected {
			t.Errorf("round %d: got %v, expected %v", r, g, expected)
		}
		w := wire(t, vm, boundary+uint32(r))
		if w.Flag != Unknown || w.Key == nil {
			t.Errorf("input wire %d: %v", boundary+r, &w)
		}
	}

	// The second call starts from a fresh cursor.
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if len(eval.gates) != 2*IORounds {
		t.Fatalf("got %d callbacks, expected %d", len(eval.gates),
			2*IORounds)
	}
	if g := eval.gates[IORounds]; g.Tag != InputB || g.Wire1 != 5 {
		t.Errorf("bob round 0: %v", g)
	}
	if vm.State().Stats.IORounds != 2*IORounds {
		t.Errorf("I/O rounds: %d", vm.State().Stats.IORounds)
	}
	vm.Close()
	if eval.keys.live != 2 {
		t.Errorf("live keys after Close: %d", eval.keys.live)
	}
}

func TestOutputRole(t *testing.T) {
	const boundary = 64

	vm, eval := newTestVM(t, nil, NewCall(RoleOutputBob, boundary))
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if len(eval.gates) != IORounds {
		t.Fatalf("got %d callbacks, expected %d", len(eval.gates), IORounds)
	}
	for r, g := range eval.gates {
		addr := uint32(boundary - IORounds + r)
		expected := Gate{
			Wire1:      addr,
			Wire2:      addr,
			Result:     addr,
			TruthTable: 5,
			Tag:        OutputB,
		}
		if g != expected {
			t.Errorf("round %d: got %v, expected %v", r, g, expected)
		}
	}
	// The keys returned by the output rounds are released.
	if eval.keys.live != 2 {
		t.Errorf("live keys: %d", eval.keys.live)
	}
}

func TestCopy(t *testing.T) {
	vm, eval := newTestVM(t, nil,
		NewConst(0, 0b1101),
		NewBits(0, 1, 2, 3, 4),
		NewCopy(Copy, 10, 1, 4),
		NewConst(1, 0),
		// Pointer to wire 20.
		NewConst(5, 20),
		NewCopy(CopyIndirDest, 5, 10, 4),
		// Pointer to wire 2.
		NewConst(6, 2),
		NewCopy(CopyIndirSource, 30, 6, 2))
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}

	check := func(base uint32, vals []uint32) {
		for i, v := range vals {
			w := wire(t, vm, base+uint32(i))
			if w.Value != v {
				t.Errorf("wire %d: got %v, expected %v", base+uint32(i),
					&w, v)
			}
		}
	}
	check(1, []uint32{0, 0, 1, 1})
	check(10, []uint32{1, 0, 1, 1})
	check(20, []uint32{1, 0, 1, 1})
	check(30, []uint32{0, 1})

	// Each copy owns its own key handle.
	k1 := wire(t, vm, 10).Key
	k2 := wire(t, vm, 20).Key
	if k1 == nil || k2 == nil || k1 == k2 {
		t.Errorf("copies share key handles")
	}
	// Wire 1 overwritten with CONST after the copy.
	if wire(t, vm, 1).Key != nil {
		t.Errorf("CONST did not release key")
	}
	vm.Close()
	if eval.keys.live != 2 {
		t.Errorf("live keys after Close: %d", eval.keys.live)
	}
}

func TestCopyDestination(t *testing.T) {
	vm, eval := newTestVM(t, nil,
		NewCall(RoleAlice, 64),
		NewCopy(Copy, 10, 64, 2),
		NewConst(10, 1),
		NewGate(11, 10, 10, TableAND))

	var inputs []*testKey
	eval.fn = func(st *State, g *Gate) (Key, error) {
		k := eval.keys.newKey(0)
		inputs = append(inputs, k)
		return k, nil
	}
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if len(inputs) != IORounds {
		t.Fatalf("got %d input keys, expected %d", len(inputs), IORounds)
	}

	// Writing the copies leaves the sources intact.
	for i := uint32(0); i < 2; i++ {
		src := wire(t, vm, 64+i)
		if src.Flag != Unknown || src.Value != 0 {
			t.Errorf("source wire %d modified: %v %v", 64+i, src.Flag,
				src.Value)
		}
		if src.Key != Key(inputs[i]) || inputs[i].released {
			t.Errorf("source wire %d lost its key", 64+i)
		}
		dst := wire(t, vm, 10+i)
		if dst.Flag != Known || dst.Value != 1 {
			t.Errorf("wire %d: got %v, expected 1", 10+i, &dst)
		}
		if dst.Key == nil || dst.Key == src.Key {
			t.Errorf("wire %d shares key with source", 10+i)
		}
	}
	vm.Close()
	if eval.keys.live != 2 {
		t.Errorf("live keys after Close: %d", eval.keys.live)
	}
}

func TestCopyOverlap(t *testing.T) {
	vm, eval := newTestVM(t, nil,
		NewConst(0, 0b111),
		NewBits(0, 1, 2, 3),
		NewCopy(Copy, 1, 1, 3),
		NewCopy(Copy, 2, 1, 2))
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	for addr := uint32(1); addr <= 3; addr++ {
		if w := wire(t, vm, addr); w.Value != 1 || w.Key == nil {
			t.Errorf("wire %d: %v", addr, &w)
		}
	}
	vm.Close()
	if eval.keys.live != 2 {
		t.Errorf("live keys after Close: %d", eval.keys.live)
	}
}

func TestDelegatedGate(t *testing.T) {
	const boundary = 64

	instrs := []Instr{
		NewCall(RoleAlice, boundary),
		NewConst(10, 1),
		NewBits(10, 11),
		NewGate(12, boundary, 11, TableAND),
	}
	vm, eval := newTestVM(t, nil, instrs...)
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	g := eval.gates[len(eval.gates)-1]
	expected := Gate{
		Wire1:      boundary,
		Wire2:      11,
		Result:     12,
		TruthTable: TableAND,
		Tag:        Internal,
	}
	if g != expected {
		t.Errorf("got %v, expected %v", g, expected)
	}
	w := wire(t, vm, 12)
	if w.Flag != Unknown || w.Key == nil {
		t.Errorf("result wire: %v", &w)
	}
	if vm.State().Pending() != nil {
		t.Errorf("pending gate not cleared")
	}
	if vm.State().Stats.Delegated != IORounds+1 {
		t.Errorf("delegated: %d", vm.State().Stats.Delegated)
	}
}

func TestNoLeak(t *testing.T) {
	const boundary = 64

	instrs := []Instr{
		NewCall(RoleAlice, boundary),
		NewConst(10, 1),
		NewBits(10, 11),
	}
	for i := 0; i < 10000; i++ {
		switch i % 3 {
		case 0:
			instrs = append(instrs, NewConst(20, uint32(i&1)))
		case 1:
			instrs = append(instrs, NewGate(20, 11, 11, TableXOR))
		default:
			instrs = append(instrs, NewGate(20, boundary, 11, TableXOR))
		}
	}
	vm, eval := newTestVM(t, nil, instrs...)
	if err := vm.Run(); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if eval.keys.live != vm.Wires().Keys()+2 {
		t.Errorf("live keys %d, bank holds %d", eval.keys.live,
			vm.Wires().Keys())
	}
	vm.Close()
	if eval.keys.live != 2 {
		t.Errorf("live keys after Close: %d", eval.keys.live)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		params *Params
		instrs []Instr
		err    error
	}{
		{
			name:   "undefined call",
			instrs: []Instr{NewCall("f", 0)},
			err:    ErrUndefinedLabel,
		},
		{
			name:   "no main",
			instrs: []Instr{NewInitBase(0)},
			err:    ErrUndefinedLabel,
		},
		{
			name: "non-boolean operand",
			instrs: []Instr{
				NewConst(0, 2),
				NewGate(1, 0, 0, TableAND),
			},
			err: ErrWireTypeViolation,
		},
		{
			name: "operand without key",
			instrs: []Instr{
				NewCall(RoleAlice, 64),
				NewGate(1, 64, 0, TableAND),
			},
			err: ErrWireTypeViolation,
		},
		{
			name: "unknown bits source",
			instrs: []Instr{
				NewCall(RoleAlice, 64),
				NewBits(64, 1),
			},
			err: ErrWireTypeViolation,
		},
		{
			name: "unknown pointer",
			instrs: []Instr{
				NewCall(RoleAlice, 64),
				NewCopy(CopyIndirSource, 1, 64, 1),
			},
			err: ErrWireTypeViolation,
		},
		{
			name: "non-boolean input index",
			instrs: []Instr{
				NewConst(63, 2),
				NewCall(RoleAlice, 64),
			},
			err: ErrWireTypeViolation,
		},
		{
			name:   "truth table",
			instrs: []Instr{NewGate(2, 0, 1, 16)},
			err:    ErrOutOfRangeTruthTable,
		},
		{
			name: "const bounds",
			params: &Params{
				NumWires: MinWires,
			},
			instrs: []Instr{NewConst(0, 0), NewConst(1000, 0)},
			err:    ErrIndexOutOfBounds,
		},
		{
			name: "address wraparound",
			params: &Params{
				NumWires: MinWires,
			},
			instrs: []Instr{
				NewInitBase(0xfffffff0),
				NewLabel("main"),
				NewConst(0x20, 1),
			},
			err: ErrIndexOutOfBounds,
		},
		{
			name: "gate wraparound",
			params: &Params{
				NumWires: MinWires,
			},
			instrs: []Instr{
				NewInitBase(0xfffffff0),
				NewLabel("main"),
				NewGate(0x10, 0x11, 0x12, TableAND),
			},
			err: ErrIndexOutOfBounds,
		},
		{
			name: "copy wraparound",
			params: &Params{
				NumWires: MinWires,
			},
			instrs: []Instr{
				NewInitBase(0xfffffff0),
				NewLabel("main"),
				NewCopy(Copy, 0x20, 0x21, 1),
			},
			err: ErrIndexOutOfBounds,
		},
		{
			name: "input boundary wraparound",
			params: &Params{
				NumWires: MinWires,
			},
			instrs: []Instr{
				NewInitBase(0xfffffff0),
				NewLabel("main"),
				NewCall(RoleAlice, 0x30),
			},
			err: ErrIndexOutOfBounds,
		},
		{
			name: "frame base overflow",
			params: &Params{
				NumWires: MinWires,
			},
			instrs: []Instr{
				NewInitBase(0xfffffff0),
				NewLabel("main"),
				NewCall("f", 0x20),
				NewLabel("f"),
			},
			err: ErrIndexOutOfBounds,
		},
		{
			name: "unknown mkptr",
			instrs: []Instr{
				NewCall(RoleAlice, 64),
				NewMkPtr(64),
			},
			err: ErrWireTypeViolation,
		},
		{
			name: "copy bounds",
			instrs: []Instr{
				NewConst(0, 90),
				NewCopy(CopyIndirDest, 0, 1, 10),
			},
			err: ErrIndexOutOfBounds,
		},
		{
			name: "call depth",
			params: &Params{
				MaxCallDepth: 10,
			},
			instrs: []Instr{
				NewInitBase(0),
				NewLabel("main"),
				NewCall("main", 0),
			},
			err: ErrAllocationFailure,
		},
		{
			name: "step limit",
			params: &Params{
				MaxSteps: 100,
			},
			instrs: []Instr{
				NewInitBase(0),
				NewLabel("main"),
				NewCall("main", 0),
			},
			err: ErrStepLimit,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			vm, _ := newTestVM(t, test.params, test.instrs...)
			err := vm.Run()
			if !errors.Is(err, test.err) {
				t.Fatalf("got error %v, expected %v", err, test.err)
			}
			if !vm.Done() {
				t.Errorf("interpreter not done after error")
			}
			if err2 := vm.Step(); err2 != err {
				t.Errorf("error not sticky: %v", err2)
			}
		})
	}
}

func TestReentrancy(t *testing.T) {
	vm, eval := newTestVM(t, nil,
		NewCall(RoleAlice, 64),
		NewGate(2, 0, 1, TableAND))
	eval.fn = func(st *State, g *Gate) (Key, error) {
		if st.Pending() == nil || *st.Pending() != *g {
			t.Errorf("pending gate not set")
		}
		if err := vm.Step(); err != nil {
			return nil, err
		}
		return eval.keys.newKey(0), nil
	}
	err := vm.Run()
	if !errors.Is(err, ErrGateReentrancy) {
		t.Fatalf("got error %v, expected %v", err, ErrGateReentrancy)
	}
	if vm.State().Pending() != nil {
		t.Errorf("pending gate not cleared after error")
	}
}

func TestEvaluatorNil(t *testing.T) {
	vm, eval := newTestVM(t, nil, NewCall(RoleBob, 64))
	eval.fn = func(st *State, g *Gate) (Key, error) {
		return nil, nil
	}
	if err := vm.Run(); !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("got error %v, expected %v", err, ErrAllocationFailure)
	}
}

func TestNew(t *testing.T) {
	prog, err := NewProgram(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	keys := new(testKeys)
	eval := &testEvaluator{keys: keys}
	if _, err := New(prog, nil, [2]Key{keys.newKey(0), keys.newKey(1)},
		nil); err == nil {
		t.Errorf("New accepted nil evaluator")
	}
	if _, err := New(prog, eval, [2]Key{keys.newKey(0), nil},
		nil); !errors.Is(err, ErrAllocationFailure) {
		t.Errorf("New accepted nil constant: %v", err)
	}

	vm, err := New(prog, eval, [2]Key{keys.newKey(0), keys.newKey(1)},
		&Params{NumWires: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if vm.Wires().Size() != 1000 {
		t.Errorf("wire bank size %d", vm.Wires().Size())
	}
	if err := vm.Run(); err != nil {
		t.Errorf("empty program failed: %s", err)
	}
	if vm.State().Status != Finished {
		t.Errorf("empty program status %s", vm.State().Status)
	}
}
