package randpool

// Status classifies the result of an asynchronous lifecycle operation. The
// numeric encoding is stable and safe to persist or transmit.
type Status int

const (
	StatusSuccess Status = iota
	StatusFileNotFound
	StatusDecryptionError
	StatusUnknownError
)

// String returns the canonical message for the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusFileNotFound:
		return "File Not Found"
	case StatusDecryptionError:
		return "Decryption Error"
	default:
		return "Unknown Error"
	}
}

// Outcome is the single result delivered on the channel returned by Probe
// and SaveState. Message carries the canonical status text; Err holds the
// underlying cause when the operation failed, nil on success and on the
// expected not-found case.
type Outcome struct {
	Code    Status
	Message string
	Err     error
}

func newOutcome(code Status, err error) Outcome {
	return Outcome{Code: code, Message: code.String(), Err: err}
}
