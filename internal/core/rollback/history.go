package rollback

import "github.com/zeusync/duelsim/internal/core/game"

// DefaultWindowSize keeps five seconds of input at 50 ticks per second.
const DefaultWindowSize = 250

// History is a participant input ring indexed by age: slot 0 holds the
// input of the current frame, slot i the input of currentFrame-i.
type History struct {
	inputs []game.PlayerInput
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &History{inputs: make([]game.PlayerInput, size)}
}

func (h *History) Len() int { return len(h.inputs) }

// At returns the input offset frames ago. Offsets outside the window panic.
func (h *History) At(offset uint32) game.PlayerInput {
	h.check("input at", offset)
	return h.inputs[offset]
}

// Set records the input offset frames ago.
func (h *History) Set(offset uint32, input game.PlayerInput) {
	h.check("set input", offset)
	h.inputs[offset] = input
}

// Fill writes input into the slots [0, n).
func (h *History) Fill(n uint32, input game.PlayerInput) {
	if n > uint32(len(h.inputs)) {
		n = uint32(len(h.inputs))
	}
	for i := uint32(0); i < n; i++ {
		h.inputs[i] = input
	}
}

// Shift ages every input by delta frames. The exposed slots repeat the
// previous latest input.
func (h *History) Shift(delta uint32) {
	if delta == 0 {
		return
	}
	latest := h.inputs[0]
	if delta < uint32(len(h.inputs)) {
		copy(h.inputs[delta:], h.inputs[:uint32(len(h.inputs))-delta])
	}
	h.Fill(delta, latest)
}

// Window copies the n most recent inputs, newest first.
func (h *History) Window(n int) []game.PlayerInput {
	if n > len(h.inputs) {
		n = len(h.inputs)
	}
	out := make([]game.PlayerInput, n)
	copy(out, h.inputs[:n])
	return out
}

func (h *History) check(op string, offset uint32) {
	if offset >= uint32(len(h.inputs)) {
		precondition(op, "offset %d outside history window of %d frames", offset, len(h.inputs))
	}
}
