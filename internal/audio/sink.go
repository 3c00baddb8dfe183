package audio

// Sink receives every chunk of a synthesis run. Implementations must not fail
// the run: errors are handled or recorded internally.
type Sink interface {
	Write(c Chunk)
	Close()
}

// Fanout forwards each chunk to every sink in order.
type Fanout []Sink

func (f Fanout) Write(c Chunk) {
	for _, s := range f {
		s.Write(c)
	}
}

// Close closes sinks in reverse order.
func (f Fanout) Close() {
	for i := len(f) - 1; i >= 0; i-- {
		f[i].Close()
	}
}

// Accumulator appends every chunk to a Buffer.
type Accumulator struct {
	buf *Buffer
	err error
}

func NewAccumulator(buf *Buffer) *Accumulator {
	return &Accumulator{buf: buf}
}

func (a *Accumulator) Write(c Chunk) {
	if a.err != nil {
		return
	}
	a.err = a.buf.Append(c)
}

func (a *Accumulator) Close() {}

// Err returns the first append failure, if any. After a failure the
// accumulator ignores further chunks so the buffer stays consistent.
func (a *Accumulator) Err() error { return a.err }

func (a *Accumulator) Buffer() *Buffer { return a.buf }
