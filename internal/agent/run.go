package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// ExitUsage is the exit code for argument errors.
const ExitUsage = 2

// UsageError reports invalid arguments discovered by Handle. Run prints it
// like a flag parse failure and exits with ExitUsage.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Usagef returns a *UsageError with a formatted message.
func Usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// Run parses args with the agent's flag set and hands the positional
// remainder to Handle. Help goes to stdout and exits 0; argument errors are
// printed as "<name>: error: <msg>" and exit 2; any other error exits 1.
func Run(ctx context.Context, a Agent, args []string, stdout, stderr io.Writer) int {
	if p, ok := a.(Passthrough); ok && p.Passthrough() {
		return finish(ctx, a, args, stderr)
	}

	fs := a.Flags()

	var help bytes.Buffer
	fs.SetOutput(&help)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			_, _ = io.Copy(stdout, &help)
			return 0
		}
		fmt.Fprintf(stderr, "usage: %s [flags]\n%s: error: %v\n", a.Name(), a.Name(), err)
		return ExitUsage
	}

	return finish(ctx, a, fs.Args(), stderr)
}

func finish(ctx context.Context, a Agent, args []string, stderr io.Writer) int {
	code, err := a.Handle(ctx, args)
	if err != nil {
		var usage *UsageError
		if errors.As(err, &usage) {
			fmt.Fprintf(stderr, "usage: %s [flags]\n%s: error: %s\n", a.Name(), a.Name(), usage.Msg)
			return ExitUsage
		}
		fmt.Fprintf(stderr, "%s: error: %v\n", a.Name(), err)
		if code == 0 {
			code = 1
		}
	}
	return code
}
