package domain

import "errors"

// SignalKind distinguishes the two control signals.
type SignalKind int

const (
	// SignalSkip abandons the current source record and continues with the next one.
	SignalSkip SignalKind = iota + 1
	// SignalStop abandons the current source record and ends the migration.
	SignalStop
)

func (k SignalKind) String() string {
	switch k {
	case SignalSkip:
		return "skip"
	case SignalStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Signal is a control-flow value travelling on the error path.
// It is never a failure: the migration driver consumes it at the record boundary.
type Signal struct {
	Kind SignalKind
}

func (s *Signal) Error() string {
	return "signal: " + s.Kind.String()
}

var (
	skipSignal = &Signal{Kind: SignalSkip}
	stopSignal = &Signal{Kind: SignalStop}
)

// Skip returns the skip signal.
func Skip() error { return skipSignal }

// Stop returns the stop signal.
func Stop() error { return stopSignal }

// AsSignal reports whether err carries a control signal and returns it.
func AsSignal(err error) (*Signal, bool) {
	var sig *Signal
	if errors.As(err, &sig) {
		return sig, true
	}
	return nil, false
}

// IsSkip reports whether err is the skip signal.
func IsSkip(err error) bool {
	sig, ok := AsSignal(err)
	return ok && sig.Kind == SignalSkip
}

// IsStop reports whether err is the stop signal.
func IsStop(err error) bool {
	sig, ok := AsSignal(err)
	return ok && sig.Kind == SignalStop
}
