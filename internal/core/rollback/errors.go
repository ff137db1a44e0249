package rollback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zeusync/duelsim/internal/core/game"
)

// ErrFrameAlreadyValidated is returned when validation is asked for a frame
// that is not ahead of the last validated one. Nothing is simulated.
var ErrFrameAlreadyValidated = errors.New("rollback: frame already validated")

// PreconditionError is the panic value raised on caller bugs: reading input
// outside the history window or validating ahead of received input.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("rollback: %s: %s", e.Op, e.Reason)
}

func precondition(op, format string, args ...any) {
	panic(&PreconditionError{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// Mismatch is one participant whose local checksum disagrees with the
// authority.
type Mismatch struct {
	Player    game.PlayerNumber
	Authority PhysicsState
	Local     PhysicsState
}

// DesyncError reports a confirmed frame whose checksums diverge.
type DesyncError struct {
	Frame      game.Frame
	Mismatches []Mismatch
}

func (e *DesyncError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rollback: desync at frame %d:", e.Frame)
	for _, m := range e.Mismatches {
		fmt.Fprintf(&b, " player %d (authority %d, local %d)", m.Player, m.Authority, m.Local)
	}
	return b.String()
}
