package rewriter

import (
	"fmt"

	"armlift/internal/arm"
	"armlift/internal/ir"
)

// State is the position of a Rewriter in its life cycle.
type State uint8

const (
	// Ready means no instruction has been pulled since construction or the last Seek.
	Ready State = iota
	// Emitting means the last pull lifted an instruction.
	Emitting
	// Exhausted means the cursor reached the end of the buffer.
	Exhausted
	// Faulted means an instruction could not be lifted or the host aborted.
	Faulted
)

var stateNames = [...]string{"ready", "emitting", "exhausted", "faulted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Terminal reports whether further pulls can make progress.
func (s State) Terminal() bool { return s == Exhausted || s == Faulted }

// Rewriter lifts the instructions of a byte buffer one at a time and
// pushes their statements to a sink. A Rewriter is not safe for
// concurrent use; independent Rewriters over the same buffer are.
type Rewriter struct {
	buf   []byte
	start uint32
	pos   uint32
	base  uint64

	sink    ir.Sink
	host    Host
	dec     *arm.Decoder
	tr      *translator
	state   State
	err     error
	cluster Cluster
}

// New returns a rewriter over raw[offset:length] whose first byte is at
// address. The buffer is borrowed and must not change while in use.
func New(raw []byte, length, offset uint32, address uint64, sink ir.Sink, host Host) (*Rewriter, error) {
	switch {
	case sink == nil:
		return nil, fmt.Errorf("%w: nil sink", ErrInvalidArgument)
	case host == nil:
		return nil, fmt.Errorf("%w: nil host", ErrInvalidArgument)
	case uint64(length) > uint64(len(raw)):
		return nil, fmt.Errorf("%w: length %d exceeds buffer of %d bytes", ErrInvalidArgument, length, len(raw))
	case offset > length:
		return nil, fmt.Errorf("%w: offset %d beyond length %d", ErrInvalidArgument, offset, length)
	}
	return &Rewriter{
		buf:   raw[:length:length],
		start: offset,
		pos:   offset,
		base:  address,
		sink:  sink,
		host:  host,
		dec:   arm.NewDecoder(host.Features()),
		tr:    newTranslator(host),
	}, nil
}

// State returns the current state.
func (r *Rewriter) State() State { return r.state }

// Err returns the reason the rewriter faulted, or nil.
func (r *Rewriter) Err() error { return r.err }

// Address returns the address of the next instruction, or of the failed
// one once Faulted.
func (r *Rewriter) Address() uint64 { return r.base + uint64(r.pos-r.start) }

// Offset returns the cursor relative to the start of the sub-buffer.
func (r *Rewriter) Offset() uint32 { return r.pos - r.start }

// Remaining returns the number of bytes left after the cursor.
func (r *Rewriter) Remaining() uint32 { return uint32(len(r.buf)) - r.pos }

// Cluster returns the metadata of the most recently lifted instruction.
func (r *Rewriter) Cluster() Cluster { return r.cluster }

// Next lifts one instruction and returns the resulting state. It returns
// Emitting after each lifted instruction, including the last; the pull
// after that returns Exhausted. Terminal states are sticky until Seek.
func (r *Rewriter) Next() State {
	if r.state.Terminal() {
		return r.state
	}
	if r.Remaining() == 0 {
		r.state = Exhausted
		return r.state
	}

	addr := r.Address()
	in, err := r.dec.Decode(r.buf[r.pos:], uint32(addr))
	if err != nil {
		return r.fault(err)
	}
	class, err := r.tr.translate(in)
	if err != nil {
		return r.fault(err)
	}
	if r.state == Faulted {
		// Aborted from inside a host callback.
		r.tr.stage.Reset()
		return r.state
	}

	r.cluster = Cluster{
		Address:     addr,
		Length:      in.Len,
		Class:       class,
		Conditional: in.Cond.Conditional(),
		Statements:  r.tr.stage.Len(),
		Raw:         in.Raw,
		Text:        in.String(),
	}
	r.tr.stage.Flush(r.sink)
	r.pos += uint32(in.Len)
	r.state = Emitting
	return r.state
}

func (r *Rewriter) fault(err error) State {
	r.state, r.err = Faulted, err
	return r.state
}

// Seek moves the cursor to addr, which must lie inside the buffer, and
// clears any fault.
func (r *Rewriter) Seek(addr uint64) error {
	end := r.base + uint64(uint32(len(r.buf))-r.start)
	if addr < r.base || addr > end {
		return fmt.Errorf("%w: address %#x outside [%#x, %#x]", ErrInvalidArgument, addr, r.base, end)
	}
	r.pos = r.start + uint32(addr-r.base)
	r.state, r.err = Ready, nil
	r.cluster = Cluster{}
	return nil
}

// Abort moves the rewriter to Faulted. Called from Host.Error during a
// pull, it also discards the statements of the instruction being lifted.
func (r *Rewriter) Abort(err error) {
	if err == nil {
		err = ErrAborted
	}
	r.fault(err)
}
