package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/tally/vm"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("vm worker stopped")

// vmRequest is one call queued for the worker goroutine.
type vmRequest struct {
	fn   func(*vm.VM) (any, error)
	done chan vmResult
}

type vmResult struct {
	value any
	err   error
}

// VMWorker owns one VM and runs every call on it from a single
// goroutine, in arrival order.
type VMWorker struct {
	vm       *vm.VM
	requests chan vmRequest
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewVMWorker starts a worker for v.
func NewVMWorker(v *vm.VM) *VMWorker {
	w := &VMWorker{
		vm:       v,
		requests: make(chan vmRequest, 16),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *VMWorker) loop() {
	defer close(w.stopped)
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute turns a panic in fn into an error.
func (w *VMWorker) execute(fn func(*vm.VM) (any, error)) (result vmResult) {
	defer func() {
		if r := recover(); r != nil {
			result = vmResult{err: fmt.Errorf("vm worker: panic: %v", r)}
		}
	}()
	value, err := fn(w.vm)
	return vmResult{value: value, err: err}
}

// Do runs fn on the worker's VM and waits for its result. After Stop it
// returns ErrWorkerStopped without running fn.
func (w *VMWorker) Do(fn func(*vm.VM) (any, error)) (any, error) {
	req := vmRequest{
		fn:   fn,
		done: make(chan vmResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.stopped:
		return nil, ErrWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.stopped:
		return nil, ErrWorkerStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *VMWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	<-w.stopped
}
