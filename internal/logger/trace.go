package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceTimeLayout prefixes every trace line.
const TraceTimeLayout = "15:04:05"

// Trace collects the log lines of one request so they can be returned
// to the caller alongside the result.
type Trace struct {
	mu    sync.Mutex
	lines []string
}

// Lines returns a copy of the recorded lines, oldest first.
func (t *Trace) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

func (t *Trace) add(line string) {
	t.mu.Lock()
	t.lines = append(t.lines, line)
	t.mu.Unlock()
}

// WithTrace returns a logger that writes to log and also records every
// entry at debug level or above into the returned Trace.
func WithTrace(log *zap.Logger) (*zap.Logger, *Trace) {
	t := &Trace{}
	tc := &traceCore{LevelEnabler: zapcore.DebugLevel, trace: t}
	base := OrNop(log)
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, tc)
	})), t
}

type traceCore struct {
	zapcore.LevelEnabler
	trace  *Trace
	fields []zapcore.Field
}

func (c *traceCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &traceCore{LevelEnabler: c.LevelEnabler, trace: c.trace}
	clone.fields = append(append(clone.fields, c.fields...), fields...)
	return clone
}

func (c *traceCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *traceCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	var b strings.Builder
	b.WriteString(e.Time.Format(TraceTimeLayout))
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, enc.Fields[k])
	}

	c.trace.add(b.String())
	return nil
}

func (c *traceCore) Sync() error { return nil }
