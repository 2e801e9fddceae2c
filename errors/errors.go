package errors

import "fmt"

var (
	ErrValidation         = fmt.Errorf("invalid payload")
	ErrDecode             = fmt.Errorf("chunk decode failed")
	ErrTransferNotFound   = fmt.Errorf("transfer not found")
	ErrTransferIncomplete = fmt.Errorf("transfer incomplete")
	ErrFileNotFound       = fmt.Errorf("stored file not found")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

// MissingChunkError reports a hole in a transfer that passed the
// completeness check. It should be unreachable; seeing it means the
// receivedCount invariant was broken somewhere.
type MissingChunkError struct {
	Index int
}

func (e MissingChunkError) Error() string {
	return fmt.Sprintf("missing chunk %d", e.Index)
}
