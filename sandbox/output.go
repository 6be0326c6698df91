package sandbox

import (
	"bytes"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// logMarkers select which output lines reach the operational log.
var logMarkers = []string{"error", "Error", "warn", "success"}

// outputLog buffers the full output of a phase command and logs marked lines
// as they complete. It is safe for concurrent use: after a timeout the
// executor may read it while the cancelled exec is still writing.
type outputLog struct {
	mu      sync.Mutex
	logger  *zap.Logger
	buf     bytes.Buffer
	partial []byte
}

func newOutputLog(logger *zap.Logger) *outputLog {
	return &outputLog{logger: logger}
}

func (o *outputLog) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.buf.Write(p)
	o.partial = append(o.partial, p...)
	for {
		idx := bytes.IndexByte(o.partial, '\n')
		if idx < 0 {
			break
		}
		o.logLine(string(o.partial[:idx]))
		o.partial = o.partial[idx+1:]
	}
	return len(p), nil
}

// String flushes any unterminated line and returns everything written so far.
func (o *outputLog) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.partial) > 0 {
		o.logLine(string(o.partial))
		o.partial = nil
	}
	return o.buf.String()
}

func (o *outputLog) logLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	for _, marker := range logMarkers {
		if strings.Contains(line, marker) {
			o.logger.Info(line)
			return
		}
	}
}
