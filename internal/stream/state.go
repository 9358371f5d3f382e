package stream

import "slices"

// State is the load state of the message view.
type State string

const (
	Idle    State = "IDLE"
	Loading State = "LOADING"
	Loaded  State = "LOADED"
	Errored State = "ERRORED"
)

// validTransitions defines allowed view transitions. Any state may jump to
// Loaded when an empty conversation is opened, and Loading may restart when
// another conversation is opened before the previous fetch returned.
var validTransitions = map[State][]State{
	Idle:    {Loading, Loaded},
	Loading: {Loaded, Errored, Loading},
	Loaded:  {Loading, Loaded},
	Errored: {Loading, Loaded},
}

func canTransition(from, to State) bool {
	return slices.Contains(validTransitions[from], to)
}

// StateChange is the payload of a stream.state_changed event.
type StateChange struct {
	From           State  `json:"from"`
	To             State  `json:"to"`
	ConversationID string `json:"conversation_id,omitempty"`
}
