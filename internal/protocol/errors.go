package protocol

const (
	ErrBadRequest      = "E_BAD_REQUEST"
	ErrInvalidPosition = "E_INVALID_POSITION"
	ErrBusy            = "E_BUSY"
	ErrFaulted         = "E_FAULTED"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:      {},
	ErrInvalidPosition: {},
	ErrBusy:            {},
	ErrFaulted:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
