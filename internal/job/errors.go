package job

import "fmt"

// InputOpenError reports that the source could not be opened for reading.
type InputOpenError struct {
	Path string
	Err  error
}

func (e *InputOpenError) Error() string {
	return fmt.Sprintf("unable to open input file %s: %v", e.Path, e.Err)
}

func (e *InputOpenError) Unwrap() error { return e.Err }

// OutputCreateError reports that the destination could not be created or
// committed.
type OutputCreateError struct {
	Path string
	Err  error
}

func (e *OutputCreateError) Error() string {
	return fmt.Sprintf("unable to create output file %s: %v", e.Path, e.Err)
}

func (e *OutputCreateError) Unwrap() error { return e.Err }
