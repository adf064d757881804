package analysis

import "fmt"

// WorkerError describes one failed analysis chunk. Failed
// chunks contribute no verdicts; the run as a whole still
// succeeds, so these surface only through logs and errors.As.
type WorkerError struct {
	Chunk       int
	Timeout     bool
	Unparseable bool
	Err         error
}

func (e *WorkerError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("chunk %d: worker timed out: %v",
			e.Chunk, e.Err)
	case e.Unparseable:
		return fmt.Sprintf("chunk %d: no verdict array in reply",
			e.Chunk)
	default:
		return fmt.Sprintf("chunk %d: %v", e.Chunk, e.Err)
	}
}

func (e *WorkerError) Unwrap() error { return e.Err }
