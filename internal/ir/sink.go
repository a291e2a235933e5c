package ir

// Sink receives statements in emission order.
type Sink interface {
	Emit(Statement)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Statement)

func (f SinkFunc) Emit(s Statement) { f(s) }

// Buffer is an in-memory Sink.
type Buffer struct {
	stmts []Statement
}

func (b *Buffer) Emit(s Statement) { b.stmts = append(b.stmts, s) }

// Statements returns the buffered statements. The slice is owned by the
// buffer until the next Reset.
func (b *Buffer) Statements() []Statement { return b.stmts }

func (b *Buffer) Len() int { return len(b.stmts) }

// Reset discards the buffered statements, keeping the allocation.
func (b *Buffer) Reset() {
	clear(b.stmts)
	b.stmts = b.stmts[:0]
}

// Flush emits every buffered statement to s in order and resets b.
func (b *Buffer) Flush(s Sink) {
	for _, st := range b.stmts {
		s.Emit(st)
	}
	b.Reset()
}

// Strings renders statements one per element.
func Strings(stmts []Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.String()
	}
	return out
}
