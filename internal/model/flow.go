package model

// FlowState is the lifecycle state of a submitted transaction flow.
type FlowState string

// Flow states, in lifecycle order.
const (
	FlowIdle              FlowState = "idle"
	FlowConfirming        FlowState = "confirming"
	FlowProcessing        FlowState = "processing"
	FlowPendingBlockchain FlowState = "pending_blockchain"
	FlowCompleted         FlowState = "completed"
	FlowFailed            FlowState = "failed"
)

// flowTransitions holds the allowed forward edges. Cancel (any non-terminal
// state back to idle) and retry (failed back to confirming) are the only
// backward edges.
var flowTransitions = map[FlowState][]FlowState{
	FlowIdle:              {FlowConfirming},
	FlowConfirming:        {FlowProcessing, FlowIdle},
	FlowProcessing:        {FlowPendingBlockchain, FlowCompleted, FlowFailed, FlowIdle},
	FlowPendingBlockchain: {FlowCompleted, FlowFailed, FlowIdle},
	FlowFailed:            {FlowConfirming},
	FlowCompleted:         {},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s FlowState) CanTransition(next FlowState) bool {
	for _, allowed := range flowTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state ends the flow. Failed is not fully
// terminal because an explicit retry may move it back to confirming.
func (s FlowState) IsTerminal() bool {
	return s == FlowCompleted
}
