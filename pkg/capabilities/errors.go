package capabilities

import (
	"fmt"
	"strings"

	"github.com/entrhq/sessionrig/pkg/config"
)

// UnsupportedTargetError is returned for a target name the negotiator does not know.
type UnsupportedTargetError struct {
	Name  string
	Mode  config.Mode
	Known []string
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("unsupported %s target %q (available: %s)", e.Mode, e.Name, strings.Join(e.Known, ", "))
}
