package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	slogmulti "github.com/samber/slog-multi"
)

type RelayLogger struct {
	*slog.Logger
}

var relayLogger *RelayLogger

// InitLogger initializes the global logger. Additional writers receive a copy
// of every record in the same format as the primary output.
func InitLogger(logLevel, format, output string, mirrors ...io.Writer) error {
	var writer io.Writer
	switch output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		return errors.New("invalid log output")
	}
	return InitLoggerWithWriter(logLevel, format, writer, true, mirrors...)
}

func InitLoggerWithWriter(logLevel, format string, writer io.Writer, addSource bool, mirrors ...io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	}

	newHandler := func(w io.Writer) (slog.Handler, error) {
		switch format {
		case "text":
			return slog.NewTextHandler(w, handlerOpts), nil
		case "json":
			return slog.NewJSONHandler(w, handlerOpts), nil
		default:
			return nil, errors.New("invalid log format")
		}
	}

	handler, err := newHandler(writer)
	if err != nil {
		return err
	}
	if len(mirrors) > 0 {
		handlers := []slog.Handler{handler}
		for _, w := range mirrors {
			h, err := newHandler(w)
			if err != nil {
				return err
			}
			handlers = append(handlers, h)
		}
		handler = slogmulti.Fanout(handlers...)
	}

	relayLogger = &RelayLogger{slog.New(handler)}
	return nil
}

func GetLogger() *RelayLogger {
	if relayLogger == nil {
		// fallback for code paths that log before initialization
		relayLogger = &RelayLogger{slog.Default()}
	}
	return relayLogger
}

// log emits a record whose source location points at the caller of the
// exported wrapper, not at this package.
func (rl *RelayLogger) log(level slog.Level, callDepth int, msg string, args ...any) {
	ctx := context.Background()
	if !rl.Logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3+callDepth, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	if err := rl.Logger.Handler().Handle(ctx, r); err != nil {
		fmt.Fprintf(os.Stderr, "failed to handle log record: %v\n", err)
	}
}

// Error logs the message with the error and its stack trace attached.
func (rl *RelayLogger) Error(msg string, err error, otherArgs ...any) {
	err = errors.WithStackDepth(err, 1)
	args := []any{"error", err.Error(), "stack", fmt.Sprintf("%+v", err)}
	args = append(args, otherArgs...)
	rl.log(slog.LevelError, 1, msg, args...)
}

func (rl *RelayLogger) ErrorContext(ctx context.Context, msg string, err error, otherArgs ...any) {
	err = errors.WithStackDepth(err, 1)
	args := []any{"error", err.Error(), "stack", fmt.Sprintf("%+v", err)}
	args = append(args, otherArgs...)
	rl.log(slog.LevelError, 1, msg, args...)
}

// Fatal logs the error and terminates the process.
func (rl *RelayLogger) Fatal(msg string, err error, otherArgs ...any) {
	err = errors.WithStackDepth(err, 1)
	args := []any{"error", err.Error(), "stack", fmt.Sprintf("%+v", err)}
	args = append(args, otherArgs...)
	rl.log(slog.LevelError, 1, msg, args...)
	os.Exit(1)
}

// TimeTrack logs the time elapsed since start. Intended for use with defer.
func (rl *RelayLogger) TimeTrack(start time.Time, name string, otherArgs ...any) {
	args := []any{"name", name, "elapsed", time.Since(start).Nanoseconds()}
	args = append(args, otherArgs...)
	rl.log(slog.LevelInfo, 1, "time track", args...)
}

func (rl *RelayLogger) WithModule(moduleName string) *RelayLogger {
	return &RelayLogger{
		rl.Logger.With("module", moduleName),
	}
}

func (rl *RelayLogger) WithChain(chainID string) *RelayLogger {
	return &RelayLogger{
		rl.Logger.With("chain_id", chainID),
	}
}

func (rl *RelayLogger) WithChainPair(srcChainID, dstChainID string) *RelayLogger {
	return &RelayLogger{
		rl.Logger.With(
			"src_chain_id", srcChainID,
			"dst_chain_id", dstChainID,
		),
	}
}

func (rl *RelayLogger) WithMessage(msgHash string) *RelayLogger {
	return &RelayLogger{
		rl.Logger.With("msg_hash", msgHash),
	}
}
