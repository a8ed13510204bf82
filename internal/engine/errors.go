package engine

import "errors"

var (
	// ErrInvalidRange reports malformed interval bounds handed to an
	// IntervalGenerator. Settings validation keeps this unreachable in normal
	// operation, so hitting it means a caller bug.
	ErrInvalidRange = errors.New("invalid interval range")

	// ErrInvalidSettings reports a settings update that cannot be made
	// internally consistent. The previous settings are retained.
	ErrInvalidSettings = errors.New("invalid timer settings")

	// ErrSkipNotAllowed reports a skip that the current mode forbids: Focus in
	// classic mode, and ForcedBreak always.
	ErrSkipNotAllowed = errors.New("skip not allowed for current phase")

	// ErrInvalidTransition reports a phase change outside the transition table.
	ErrInvalidTransition = errors.New("invalid phase transition")
)
