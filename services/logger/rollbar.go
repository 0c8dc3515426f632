// Package logsvc implements core.Logger over a standard logger, reporting to Rollbar.
package logsvc

import (
	"context"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/academia/core"
)

// RollbarLogger prints every entry and reports Info and above to its own Rollbar client.
// Debug entries are printed only when verbose.
type RollbarLogger struct {
	std     *log.Logger
	client  *rollbar.Client
	verbose bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.NewAsync(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "")
	client.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std, client: client, verbose: conf.Debug}
}

// Enable turns Rollbar reporting on or off. Entries are printed either way.
func (l *RollbarLogger) Enable(enabled bool) {
	l.client.SetEnabled(enabled)
}

// Close flushes the reports still queued.
func (l *RollbarLogger) Close() error {
	return l.client.Close()
}

// report builds the arguments of a Rollbar call: msg, errors and extras as given,
// and the first non-anonymous core.Operator as the person of a context.
func report(msg string, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+2)
	out = append(out, msg)
	var person *rollbar.Person
	for _, arg := range args {
		op, ok := arg.(core.Operator)
		if !ok {
			out = append(out, arg)
			continue
		}
		if person == nil && op.Email != "" {
			person = &rollbar.Person{Id: op.ID, Username: op.Email, Email: op.Email}
		}
	}
	if person != nil {
		out = append(out, rollbar.NewPersonContext(context.Background(), person))
	}
	return out
}

func (l *RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s %s", level, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Operator:
			if a.Email != "" {
				l.std.Printf("\toperator: %s", a.Email)
			}
		case error:
			l.std.Printf("\terror: %+v", a)
		default:
			l.std.Printf("\t%+v", a)
		}
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.verbose {
		l.print("DEBUG", msg, args)
	}
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.client.Info(report(msg, args)...)
	l.print("INFO", msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.client.Warning(report(msg, args)...)
	l.print("WARN", msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.client.Error(report(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.client.Critical(report(msg, args)...)
	l.print("FATAL", msg, args)
	_ = l.client.Close()
	l.std.Fatal(msg)
}
