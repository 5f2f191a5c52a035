package ptb

import (
	"encoding/json"

	meridian "github.com/meridianfi/meridian-go"
)

// TransactionBlock is the wire form submitted to a fullnode for dry-run or
// execution.
type TransactionBlock struct {
	Sender    meridian.Address `json:"sender"`
	GasBudget uint64           `json:"gasBudget,omitempty"`
	Inputs    []Input          `json:"inputs"`
	Commands  []Command        `json:"commands"`
}

// Input is one transaction input.
type Input struct {
	Kind     string           `json:"kind"`
	Value    json.RawMessage  `json:"value,omitempty"`
	ObjectID meridian.Address `json:"objectId,omitempty"`
	Mutable  bool             `json:"mutable,omitempty"`
}

// Command is one call descriptor in the block.
type Command struct {
	Kind string `json:"kind"`

	// moveCall
	Target        string        `json:"target,omitempty"`
	TypeArguments []string      `json:"typeArguments,omitempty"`
	Arguments     []ArgumentRef `json:"arguments,omitempty"`

	// splitCoins
	Coin    *ArgumentRef  `json:"coin,omitempty"`
	Amounts []ArgumentRef `json:"amounts,omitempty"`

	// mergeCoins
	Destination *ArgumentRef  `json:"destination,omitempty"`
	Sources     []ArgumentRef `json:"sources,omitempty"`

	// transferObjects
	Objects   []ArgumentRef `json:"objects,omitempty"`
	Recipient *ArgumentRef  `json:"recipient,omitempty"`
}

// ArgumentRef is the wire form of an Argument.
type ArgumentRef struct {
	Kind        string `json:"kind"`
	Index       int    `json:"index,omitempty"`
	ResultIndex int    `json:"resultIndex,omitempty"`
}
