package archive

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrBuild matches every BuildError.
	ErrBuild = errors.New("archive build failed")

	ErrUnknownStrategy = errors.New("unknown backup strategy")
)

// BuildError reports a failed archive build. Reason is a short, stable
// description of the failed step; Err carries the cause.
type BuildError struct {
	Project string
	Reason  string
	Err     error
}

func (e *BuildError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("build %s: %s", e.Project, e.Reason)
	}
	return fmt.Sprintf("build %s: %s: %v", e.Project, e.Reason, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

func (e *BuildError) Is(target error) bool { return target == ErrBuild }

// NewBuildError wraps cause as a BuildError with a stack.
func NewBuildError(project, reason string, cause error) error {
	return errors.WithStack(&BuildError{Project: project, Reason: reason, Err: cause})
}
