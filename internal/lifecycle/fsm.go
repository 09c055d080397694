package lifecycle

import (
	"context"
	"fmt"
)

// GameFSM manages the lifecycle transitions of one game using the
// ProcessEvent pattern. The FSM itself is ephemeral: the controller rebuilds
// it from the stored record for every incoming event, so the record's flags
// stay the single source of truth.
type GameFSM struct {
	state GameState
	env   *Environment
}

// NewGameFSM creates an FSM starting in the given state.
func NewGameFSM(state GameState, env *Environment) *GameFSM {
	return &GameFSM{
		state: state,
		env:   env,
	}
}

// ProcessEvent processes an event and returns the side effects that should
// be executed by the controller.
func (f *GameFSM) ProcessEvent(ctx context.Context,
	event GameEvent) ([]SideEffect, error) {

	transition, err := f.state.ProcessEvent(ctx, event, f.env)
	if err != nil {
		return nil, fmt.Errorf("process event %T: %w", event, err)
	}

	f.state = transition.NextState

	return transition.OutboxEvents, nil
}

// CurrentState returns a string representation of the current state.
func (f *GameFSM) CurrentState() string {
	return f.state.String()
}

// State returns the current GameState.
func (f *GameFSM) State() GameState {
	return f.state
}

// IsTerminal returns true if the game has reached a terminal state.
func (f *GameFSM) IsTerminal() bool {
	return f.state.IsTerminal()
}
