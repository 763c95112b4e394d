package ffmpeg

import (
	"context"
	"strings"
)

// --- Mock implementations for testing ---

// fakeRunner implements CommandRunner for testing
type fakeRunner struct {
	output   []byte // stdout returned by Output and RunPiped
	err      error
	failArg  string // fail any call whose args contain this value
	gotStdin []byte
	gotName  string
	calls    [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	f.record(name, nil, args)
	return f.errFor(args)
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.record(name, nil, args)
	if err := f.errFor(args); err != nil {
		return nil, err
	}
	return f.output, nil
}

func (f *fakeRunner) RunPiped(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	f.record(name, stdin, args)
	if err := f.errFor(args); err != nil {
		return nil, err
	}
	return f.output, nil
}

func (f *fakeRunner) record(name string, stdin []byte, args []string) {
	f.gotName = name
	if stdin != nil {
		f.gotStdin = stdin
	}
	f.calls = append(f.calls, args)
}

func (f *fakeRunner) errFor(args []string) error {
	if f.err != nil && (f.failArg == "" || containsArg(args, f.failArg)) {
		return f.err
	}
	return nil
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func argsContainPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func joinArgs(calls [][]string) string {
	parts := make([]string, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, strings.Join(c, " "))
	}
	return strings.Join(parts, "; ")
}
