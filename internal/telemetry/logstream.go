package telemetry

import (
	"context"
	"errors"
	"io"
	"sync"
)

// LogSource opens a fresh log byte stream for a container; each call must
// return an independent reader so that every subscriber gets its own cold
// producer.
type LogSource interface {
	LogsStream(ctx context.Context, name string, follow bool, tail string) (io.ReadCloser, error)
}

// StreamLogLines opens one log stream for name and sends normalized lines
// to the returned channel until ctx is cancelled or the stream ends. The
// channel is closed on every exit path, and the underlying reader is
// always closed.
func StreamLogLines(ctx context.Context, src LogSource, name string, hasTTY bool, tail string) (<-chan string, error) {
	rc, err := src.LogsStream(ctx, name, true, tail)
	if err != nil {
		return nil, err
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)

		var closeOnce sync.Once
		closeRC := func() { closeOnce.Do(func() { rc.Close() }) }
		defer closeRC()

		go func() {
			<-ctx.Done()
			closeRC()
		}()

		dec := newFrameDecoder(hasTTY)
		buf := make([]byte, 32*1024)
		for {
			n, err := rc.Read(buf)
			if n > 0 {
				for _, line := range dec.feed(buf[:n]) {
					select {
					case out <- line:
					case <-ctx.Done():
						return
					}
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					// Transient stream hiccup: swallow, nothing more to read.
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	return out, nil
}
