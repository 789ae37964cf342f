package panel

import "sync"

// loop runs submitted functions one at a time on a single goroutine. It
// stands in for the host UI thread: engine callbacks and public calls both
// funnel through it, so panel state needs no further locking.
type loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

func newLoop() *loop {
	l := &loop{
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) run() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.done:
			return
		}
	}
}

// Do runs fn on the loop and waits for it. It reports false when the loop
// has stopped and fn did not run.
func (l *loop) Do(fn func()) bool {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.tasks <- task:
	case <-l.done:
		return false
	}
	<-finished
	return true
}

// Stop ends the loop after the running task, if any.
func (l *loop) Stop() {
	l.closeOnce.Do(func() { close(l.done) })
}
