package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// entry is either a log line or, when ack is set, a flush barrier.
type entry struct {
	line []byte
	ack  chan error
}

// asyncWriter fans lines out to its sinks from a single goroutine, so
// callers never block on file or terminal I/O unless the queue is full.
type asyncWriter struct {
	queue chan entry
	done  chan struct{}
	once  sync.Once
	sinks []*bufio.Writer

	mu  sync.Mutex
	err error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		queue: make(chan entry, 256),
		done:  make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for e := range w.queue {
		if e.ack != nil {
			e.ack <- w.flush()
			continue
		}
		for _, s := range w.sinks {
			if _, err := s.Write(e.line); err != nil {
				w.fail(err)
				continue
			}
			if err := s.Flush(); err != nil {
				w.fail(err)
			}
		}
	}
	w.fail(w.flush())
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *asyncWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Write queues a copy of p. It blocks only when the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.queue <- entry{line: append([]byte(nil), p...)}
	return nil
}

// Flush returns once every line queued before it has reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.firstErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.queue <- entry{ack: ack}
	return <-ack
}

// Close drains the queue and reports the first write error.
func (w *asyncWriter) Close() error {
	w.once.Do(func() { close(w.queue) })
	<-w.done
	return w.firstErr()
}
