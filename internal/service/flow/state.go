package flow

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// State is the assistant's position in the order-collection sequence.
type State string

const (
	Idle              State = "Idle"
	AskingName        State = "AskingName"
	AskingPhone       State = "AskingPhone"
	AskingAddress     State = "AskingAddress"
	AskingRecipient   State = "AskingRecipient"
	AskingCardMessage State = "AskingCardMessage"
	AskingAddOns      State = "AskingAddOns"
)

const (
	eventOrder  = "order"
	eventAnswer = "answer"
)

// chain is the linear collection sequence; only Idle can start it and the
// last answer returns to Idle.
var chain = fsm.Events{
	{Name: eventOrder, Src: []string{string(Idle)}, Dst: string(AskingName)},
	{Name: eventAnswer, Src: []string{string(AskingName)}, Dst: string(AskingPhone)},
	{Name: eventAnswer, Src: []string{string(AskingPhone)}, Dst: string(AskingAddress)},
	{Name: eventAnswer, Src: []string{string(AskingAddress)}, Dst: string(AskingRecipient)},
	{Name: eventAnswer, Src: []string{string(AskingRecipient)}, Dst: string(AskingCardMessage)},
	{Name: eventAnswer, Src: []string{string(AskingCardMessage)}, Dst: string(AskingAddOns)},
	{Name: eventAnswer, Src: []string{string(AskingAddOns)}, Dst: string(Idle)},
}

var states = []State{Idle, AskingName, AskingPhone, AskingAddress, AskingRecipient, AskingCardMessage, AskingAddOns}

// ParseState converts a persisted value back to a State.
func ParseState(raw string) (State, bool) {
	for _, s := range states {
		if string(s) == raw {
			return s, true
		}
	}
	return Idle, false
}

// Collecting reports whether s is one of the question states.
func (s State) Collecting() bool {
	switch s {
	case AskingName, AskingPhone, AskingAddress, AskingRecipient, AskingCardMessage, AskingAddOns:
		return true
	}
	return false
}

func advance(ctx context.Context, from State, event string) (State, error) {
	machine := fsm.NewFSM(string(from), chain, fsm.Callbacks{})
	if err := machine.Event(ctx, event); err != nil {
		return from, fmt.Errorf("flow %s on %s: %w", event, from, err)
	}
	return State(machine.Current()), nil
}
