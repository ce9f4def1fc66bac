// pkg/logging/sink.go
package logging

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// asyncWriter queues encoded records and writes them to the sink from a
// background goroutine, so a slow sink never stalls the logging call.
// When the queue is full the record is dropped and counted.
type asyncWriter struct {
	ws      zapcore.WriteSyncer
	batch   *zapcore.BufferedWriteSyncer
	entries chan []byte
	flush   chan chan struct{}
	stop    chan struct{}
	done    chan struct{}
	dropped atomic.Uint64
	closed  atomic.Bool
	once    sync.Once
}

func newAsyncWriter(ws zapcore.WriteSyncer, cfg BufferConfig) *asyncWriter {
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = DefaultQueueSize
	}
	w := &asyncWriter{
		ws: ws,
		batch: &zapcore.BufferedWriteSyncer{
			WS:            ws,
			Size:          cfg.Size,
			FlushInterval: cfg.FlushInterval,
		},
		entries: make(chan []byte, queue),
		flush:   make(chan chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Write copies p into the queue. zap reuses its encoder buffers, so the
// bytes cannot be retained as-is.
func (w *asyncWriter) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return w.ws.Write(p)
	}
	b := make([]byte, len(p))
	copy(b, p)
	select {
	case w.entries <- b:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Sync blocks until everything queued before the call reached the sink.
func (w *asyncWriter) Sync() error {
	if !w.closed.Load() {
		ack := make(chan struct{})
		select {
		case w.flush <- ack:
			<-ack
		case <-w.done:
		}
	}
	return w.batch.Sync()
}

// Stop drains the queue, flushes and stops the background goroutines.
// Writes after Stop go straight to the sink.
func (w *asyncWriter) Stop() error {
	w.once.Do(func() {
		w.closed.Store(true)
		close(w.stop)
	})
	<-w.done
	return w.batch.Stop()
}

// Dropped returns the number of records lost to a full queue.
func (w *asyncWriter) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case b := <-w.entries:
			_, _ = w.batch.Write(b)
		case ack := <-w.flush:
			w.drain()
			close(ack)
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *asyncWriter) drain() {
	for {
		select {
		case b := <-w.entries:
			_, _ = w.batch.Write(b)
		default:
			return
		}
	}
}
