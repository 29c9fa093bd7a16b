package lowering

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnsupportedConfiguration is wrapped by every internal contract
// violation: input the feasibility classifier should have rejected before
// lowering. A correct caller never observes it.
var ErrUnsupportedConfiguration = errors.New("unsupported configuration")

// NotSupportedError reports a legitimate graph shape the hardware cannot
// run. The caller may restructure the network and retry; unlike internal
// contract violations this is a user-facing condition.
type NotSupportedError struct {
	Reason string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("not supported: %s", e.Reason)
}
