package crud

// Pending is the handle of one call running in the background.
// Its outcome belongs to it alone: concurrent calls never share status.
type Pending[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn in its own goroutine.
func Go[T any](fn func() (T, error)) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.value, p.err = fn()
	}()
	return p
}

// Done is closed when the call returns.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Wait blocks until the call returns and reports its outcome.
func (p *Pending[T]) Wait() (T, error) {
	<-p.done
	return p.value, p.err
}
