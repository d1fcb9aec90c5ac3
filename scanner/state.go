package scanner

// State is a position in the scanner's state machine:
//
//	Idle -> LiveView -> Captured -> Processing -> Success | Error
//
// Success and Error return to Idle on reset or retry, and Success closes
// the scanner on confirm. Gallery intake goes from Idle straight to
// Captured.
type State int

const (
	StateIdle State = iota
	StateLiveView
	StateCaptured
	StateProcessing
	StateSuccess
	StateError
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLiveView:
		return "live_view"
	case StateCaptured:
		return "captured"
	case StateProcessing:
		return "processing"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
