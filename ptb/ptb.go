// Package ptb builds programmable transaction blocks: append-only lists of
// on-chain call descriptors that a fullnode dry-runs or executes as one
// atomic transaction.
//
// A Builder accumulates typed inputs and commands; command results are
// opaque Argument handles that later commands can consume. Errors stick to
// the builder and surface at Finish, so call sites chain without per-step
// checks:
//
//	b := ptb.New()
//	b.SetSender(sender)
//	coin := b.SplitCoins(b.GasCoin(), b.PureU64(1_000_000))
//	b.MoveCall("0x..::market::supply", []string{poolType}, market, coin)
//	tx, err := b.Finish()
package ptb

import (
	"encoding/json"
	"fmt"
	"strings"

	meridian "github.com/meridianfi/meridian-go"
)

// Argument references an input or a prior command's result within one
// transaction block. Arguments are only meaningful for the builder that
// produced them.
type Argument struct {
	kind        string
	index       int
	resultIndex int
}

const (
	argInput        = "input"
	argResult       = "result"
	argNestedResult = "nestedResult"
	argGasCoin      = "gasCoin"
)

// Nth selects one element of a multi-result command (e.g. a SplitCoins that
// produced several coins).
func (a Argument) Nth(i int) Argument {
	return Argument{kind: argNestedResult, index: a.index, resultIndex: i}
}

// Builder accumulates inputs and commands for one transaction block.
// The zero value is not usable; use New.
type Builder struct {
	sender    meridian.Address
	gasBudget uint64
	inputs    []Input
	inputKeys map[string]int
	commands  []Command
	err       error
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{inputKeys: make(map[string]int)}
}

// SetSender records the transaction sender.
func (b *Builder) SetSender(sender meridian.Address) *Builder {
	if !sender.Valid() {
		b.fail(fmt.Errorf("invalid sender address %q", sender))
		return b
	}
	b.sender = sender
	return b
}

// SetGasBudget caps the gas spent executing the block, in base units.
func (b *Builder) SetGasBudget(budget uint64) *Builder {
	b.gasBudget = budget
	return b
}

// Err returns the first error recorded by any builder call, if any.
func (b *Builder) Err() error { return b.err }

// Pure adds a JSON-encodable value as a transaction input. Identical pure
// inputs are deduplicated.
func (b *Builder) Pure(v any) Argument {
	data, err := json.Marshal(v)
	if err != nil {
		b.fail(fmt.Errorf("encode pure input: %w", err))
		return Argument{}
	}
	return b.addInput("pure\x00"+string(data), Input{Kind: "pure", Value: data})
}

// PureU64 adds an unsigned integer input encoded as a base-10 string, the
// node's wire convention for u64 values.
func (b *Builder) PureU64(v uint64) Argument {
	return b.Pure(fmt.Sprintf("%d", v))
}

// Object adds an owned-object input by ID.
func (b *Builder) Object(id meridian.Address) Argument {
	if !id.Valid() {
		b.fail(fmt.Errorf("invalid object id %q", id))
		return Argument{}
	}
	return b.addInput("object\x00"+string(id), Input{Kind: "object", ObjectID: id})
}

// SharedObject adds a shared-object input by ID. Mutable must be true when
// the call mutates the object.
func (b *Builder) SharedObject(id meridian.Address, mutable bool) Argument {
	if !id.Valid() {
		b.fail(fmt.Errorf("invalid shared object id %q", id))
		return Argument{}
	}
	key := fmt.Sprintf("shared\x00%s\x00%t", id, mutable)
	return b.addInput(key, Input{Kind: "sharedObject", ObjectID: id, Mutable: mutable})
}

// GasCoin references the transaction's gas coin, usable as a coin argument.
func (b *Builder) GasCoin() Argument {
	return Argument{kind: argGasCoin}
}

// MoveCall appends a call to pkg::module::function and returns a handle to
// its result.
func (b *Builder) MoveCall(target string, typeArgs []string, args ...Argument) Argument {
	if _, err := ParseTarget(target); err != nil {
		b.fail(err)
		return Argument{}
	}
	refs, err := b.refs(args)
	if err != nil {
		b.fail(err)
		return Argument{}
	}
	return b.addCommand(Command{
		Kind:          "moveCall",
		Target:        target,
		TypeArguments: typeArgs,
		Arguments:     refs,
	})
}

// SplitCoins splits amounts off a coin, returning a handle to the produced
// coins. Use Nth to address individual coins when splitting more than one
// amount.
func (b *Builder) SplitCoins(coin Argument, amounts ...Argument) Argument {
	if len(amounts) == 0 {
		b.fail(fmt.Errorf("split requires at least one amount"))
		return Argument{}
	}
	coinRef, err := b.ref(coin)
	if err != nil {
		b.fail(err)
		return Argument{}
	}
	refs, err := b.refs(amounts)
	if err != nil {
		b.fail(err)
		return Argument{}
	}
	return b.addCommand(Command{Kind: "splitCoins", Coin: &coinRef, Amounts: refs})
}

// MergeCoins merges sources into destination.
func (b *Builder) MergeCoins(destination Argument, sources ...Argument) {
	if len(sources) == 0 {
		b.fail(fmt.Errorf("merge requires at least one source"))
		return
	}
	dstRef, err := b.ref(destination)
	if err != nil {
		b.fail(err)
		return
	}
	refs, err := b.refs(sources)
	if err != nil {
		b.fail(err)
		return
	}
	b.addCommand(Command{Kind: "mergeCoins", Destination: &dstRef, Sources: refs})
}

// TransferObjects sends objects to a recipient address.
func (b *Builder) TransferObjects(recipient meridian.Address, objects ...Argument) {
	if !recipient.Valid() {
		b.fail(fmt.Errorf("invalid recipient address %q", recipient))
		return
	}
	if len(objects) == 0 {
		b.fail(fmt.Errorf("transfer requires at least one object"))
		return
	}
	refs, err := b.refs(objects)
	if err != nil {
		b.fail(err)
		return
	}
	recipientRef, err := b.ref(b.Pure(string(recipient)))
	if err != nil {
		b.fail(err)
		return
	}
	b.addCommand(Command{Kind: "transferObjects", Objects: refs, Recipient: &recipientRef})
}

// Finish validates the accumulated block and returns its wire form.
func (b *Builder) Finish() (*TransactionBlock, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.sender == "" {
		return nil, fmt.Errorf("transaction sender not set")
	}
	if len(b.commands) == 0 {
		return nil, fmt.Errorf("transaction has no commands")
	}
	return &TransactionBlock{
		Sender:    b.sender,
		GasBudget: b.gasBudget,
		Inputs:    b.inputs,
		Commands:  b.commands,
	}, nil
}

func (b *Builder) addInput(key string, in Input) Argument {
	if idx, ok := b.inputKeys[key]; ok {
		return Argument{kind: argInput, index: idx}
	}
	b.inputs = append(b.inputs, in)
	idx := len(b.inputs) - 1
	b.inputKeys[key] = idx
	return Argument{kind: argInput, index: idx}
}

func (b *Builder) addCommand(cmd Command) Argument {
	b.commands = append(b.commands, cmd)
	return Argument{kind: argResult, index: len(b.commands) - 1}
}

func (b *Builder) refs(args []Argument) ([]ArgumentRef, error) {
	out := make([]ArgumentRef, 0, len(args))
	for _, a := range args {
		ref, err := b.ref(a)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func (b *Builder) ref(a Argument) (ArgumentRef, error) {
	switch a.kind {
	case argInput:
		if a.index < 0 || a.index >= len(b.inputs) {
			return ArgumentRef{}, fmt.Errorf("argument references input %d of %d", a.index, len(b.inputs))
		}
	case argResult, argNestedResult:
		if a.index < 0 || a.index >= len(b.commands) {
			return ArgumentRef{}, fmt.Errorf("argument references command %d of %d", a.index, len(b.commands))
		}
	case argGasCoin:
	default:
		return ArgumentRef{}, fmt.Errorf("argument from another builder or zero value")
	}
	return ArgumentRef{Kind: a.kind, Index: a.index, ResultIndex: a.resultIndex}, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Target is a parsed pkg::module::function call target.
type Target struct {
	Package  meridian.Address
	Module   string
	Function string
}

// ParseTarget validates a call target of the form pkg::module::function.
func ParseTarget(s string) (Target, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 3 {
		return Target{}, fmt.Errorf("target %q must be pkg::module::function", s)
	}
	pkg, err := meridian.ParseAddress(parts[0])
	if err != nil {
		return Target{}, fmt.Errorf("target %q: %w", s, err)
	}
	for _, ident := range parts[1:] {
		if !validIdent(ident) {
			return Target{}, fmt.Errorf("target %q has invalid identifier %q", s, ident)
		}
	}
	return Target{Package: pkg, Module: parts[1], Function: parts[2]}, nil
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
