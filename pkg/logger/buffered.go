package logger

import (
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Entry is a single buffered log record.
type Entry struct {
	Time          time.Time      `json:"time"`
	Level         LogLevel       `json:"level"`
	Message       string         `json:"message"`
	Data          map[string]any `json:"data,omitempty"`
	Context       string         `json:"context"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// Options configures a BufferedLogger.
type Options struct {
	// Level is the minimum level recorded; lower levels are dropped.
	Level LogLevel
	// Capacity bounds the buffer; the oldest entry is evicted when full.
	Capacity int
	// MirrorTo receives every recorded entry at the matching level. Nil
	// defaults to Discard.
	MirrorTo Logger
	// MaskSensitive enables masking of sensitive fields in entry data.
	MaskSensitive bool
	// IncludeStack attaches a stack trace to error-level entries.
	IncludeStack bool
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{
		Level:         Info,
		Capacity:      1000,
		MaskSensitive: true,
	}
}

// BufferedLogger records structured entries into a bounded in-memory buffer.
// It is created once per connector execution and discarded with the run's
// output; there is no cross-run persistence. A single goroutine owns each
// buffer, so access is unsynchronized.
type BufferedLogger struct {
	opts          Options
	context       string
	correlationID string
	entries       []Entry
}

// NewBuffered creates a buffered logger with the given context label.
func NewBuffered(context string, opts Options) *BufferedLogger {
	if opts.Level == 0 {
		opts.Level = Info
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultOptions().Capacity
	}
	if opts.MirrorTo == nil {
		opts.MirrorTo = Discard
	}
	return &BufferedLogger{
		opts:          opts,
		context:       context,
		correlationID: uuid.NewString(),
	}
}

// Child returns a logger scoped to a sub-operation. The child shares
// configuration and correlation ID but owns an independent buffer; its context
// is "{parent}:{label}".
func (b *BufferedLogger) Child(label string) *BufferedLogger {
	return &BufferedLogger{
		opts:          b.opts,
		context:       b.context + ":" + label,
		correlationID: b.correlationID,
	}
}

// Context returns the logger's context label.
func (b *BufferedLogger) Context() string { return b.context }

// CorrelationID returns the ID shared by this logger and its children.
func (b *BufferedLogger) CorrelationID() string { return b.correlationID }

// Log records an entry if level passes the configured minimum.
func (b *BufferedLogger) Log(level LogLevel, msg string, data map[string]any) {
	if level > b.opts.Level || level == Silent {
		return
	}
	if b.opts.MaskSensitive {
		data = MaskSensitiveData(data)
	}
	if b.opts.IncludeStack && level == Error {
		if data == nil {
			data = make(map[string]any, 1)
		}
		data["stack"] = string(debug.Stack())
	}
	entry := Entry{
		Time:          time.Now(),
		Level:         level,
		Message:       msg,
		Data:          data,
		Context:       b.context,
		CorrelationID: b.correlationID,
	}
	if len(b.entries) >= b.opts.Capacity {
		b.entries = b.entries[1:]
	}
	b.entries = append(b.entries, entry)
	b.mirror(level, msg, data)
}

func (b *BufferedLogger) mirror(level LogLevel, msg string, data map[string]any) {
	args := flatten(data)
	switch level {
	case Error:
		b.opts.MirrorTo.Error(msg, args...)
	case Warn:
		b.opts.MirrorTo.Warn(msg, args...)
	case Info:
		b.opts.MirrorTo.Info(msg, args...)
	case Debug:
		b.opts.MirrorTo.Debug(msg, args...)
	}
}

// flatten turns a data map into ordered key-value args for mirroring.
func flatten(data map[string]any) []any {
	if len(data) == 0 {
		return nil
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(data)*2)
	for _, k := range keys {
		args = append(args, k, data[k])
	}
	return args
}

// kvToMap converts variadic key-value args into an entry data map.
func kvToMap(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	data := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprintf("%v", args[i])
		var val any = "(no value)"
		if i+1 < len(args) {
			val = args[i+1]
		}
		data[key] = val
	}
	return data
}

// LogMode returns a derived logger with the given minimum level and an
// independent buffer.
func (b *BufferedLogger) LogMode(level LogLevel) Logger {
	opts := b.opts
	opts.Level = level
	return &BufferedLogger{
		opts:          opts,
		context:       b.context,
		correlationID: b.correlationID,
	}
}

// Info records an informational entry.
func (b *BufferedLogger) Info(msg string, args ...any) { b.Log(Info, msg, kvToMap(args)) }

// Warn records a warning entry.
func (b *BufferedLogger) Warn(msg string, args ...any) { b.Log(Warn, msg, kvToMap(args)) }

// Error records an error entry.
func (b *BufferedLogger) Error(msg string, args ...any) { b.Log(Error, msg, kvToMap(args)) }

// Debug records a debug entry.
func (b *BufferedLogger) Debug(msg string, args ...any) { b.Log(Debug, msg, kvToMap(args)) }

// Entries returns a copy of the buffered entries in record order.
func (b *BufferedLogger) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of buffered entries.
func (b *BufferedLogger) Len() int { return len(b.entries) }

// Reset clears the buffer.
func (b *BufferedLogger) Reset() { b.entries = nil }

// ExecutionStart records the start of a named operation.
func (b *BufferedLogger) ExecutionStart(operation string) {
	b.Log(Info, "execution started", map[string]any{"operation": operation})
}

// ExecutionEnd records the end of a named operation with its duration and outcome.
func (b *BufferedLogger) ExecutionEnd(operation string, duration time.Duration, success bool) {
	b.Log(Info, "execution finished", map[string]any{
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
		"success":     success,
	})
}

// HTTPRequest records an outbound HTTP request. The URL is masked before
// buffering regardless of the MaskSensitive option since webhook URLs embed
// the bot secret.
func (b *BufferedLogger) HTTPRequest(method, url string, bodySize int) {
	b.Log(Debug, "http request", map[string]any{
		"method":    method,
		"url":       MaskURL(url),
		"body_size": bodySize,
	})
}

// HTTPResponse records an inbound HTTP response.
func (b *BufferedLogger) HTTPResponse(statusCode int, duration time.Duration, bodySize int) {
	b.Log(Debug, "http response", map[string]any{
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
		"body_size":   bodySize,
	})
}

// RetryAttempt records a retry decision.
func (b *BufferedLogger) RetryAttempt(attempt int, delay time.Duration, err error) {
	data := map[string]any{
		"attempt":  attempt,
		"delay_ms": delay.Milliseconds(),
	}
	if err != nil {
		data["error"] = err.Error()
	}
	b.Log(Warn, "retrying after error", data)
}

// Validation records the outcome of a validation pass.
func (b *BufferedLogger) Validation(target string, valid bool, errs []string) {
	data := map[string]any{
		"target": target,
		"valid":  valid,
	}
	if len(errs) > 0 {
		data["errors"] = errs
	}
	level := Debug
	if !valid {
		level = Warn
	}
	b.Log(level, "validation result", data)
}

// Performance records a named performance measurement.
func (b *BufferedLogger) Performance(operation string, duration time.Duration, extra map[string]any) {
	data := map[string]any{
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
	}
	for k, v := range extra {
		data[k] = v
	}
	b.Log(Info, "performance measurement", data)
}
