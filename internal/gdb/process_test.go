package gdb

import (
	"strings"
	"testing"

	"github.com/ctagard/gdb-mcp/pkg/types"
)

// TestBuildArgs verifies spawn parameters map to gdb flags with the MI
// interpreter first and the program last.
func TestBuildArgs(t *testing.T) {
	req := types.CreateSessionRequest{
		Program:     "./a.out",
		Workdir:     "/src",
		SymbolFile:  "a.sym",
		CoreFile:    "core.1234",
		CommandFile: "init.gdb",
		SourceDir:   "/src/lib",
		TTY:         "/dev/pts/3",
		BaudRate:    115200,
		NoInit:      true,
		NoHome:      true,
		Quiet:       true,
	}
	args := buildArgs(req)

	if args[0] != "--interpreter=mi2" {
		t.Fatalf("expected MI interpreter first, got %q", args[0])
	}
	if args[len(args)-1] != "./a.out" {
		t.Errorf("expected program last, got %q", args[len(args)-1])
	}

	joined := " " + strings.Join(args, " ") + " "
	for _, want := range []string{
		" -q ", " -nx ", " -nh ", " --cd=/src ", " -b 115200 ",
		" --symbols a.sym ", " --core core.1234 ", " --command init.gdb ",
		" --directory /src/lib ", " --tty /dev/pts/3 ",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in args, got %v", strings.TrimSpace(want), args)
		}
	}
}

// TestBuildArgs_InferiorArguments verifies --args consumes the remainder.
func TestBuildArgs_InferiorArguments(t *testing.T) {
	req := types.CreateSessionRequest{
		Program: "./a.out",
		Args:    []string{"-v", "input.txt"},
	}
	args := buildArgs(req)

	n := len(args)
	if n < 4 || args[n-4] != "--args" || args[n-3] != "./a.out" {
		t.Fatalf("expected trailing --args ./a.out, got %v", args)
	}
	if args[n-2] != "-v" || args[n-1] != "input.txt" {
		t.Errorf("expected inferior args preserved in order, got %v", args)
	}
}

// TestBuildArgs_AttachOnly verifies a pid-only request has no program arg.
func TestBuildArgs_AttachOnly(t *testing.T) {
	args := buildArgs(types.CreateSessionRequest{AttachPID: 4242, Quiet: true})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--pid 4242") {
		t.Errorf("expected --pid 4242, got %v", args)
	}
	if args[len(args)-1] == "" || args[len(args)-1] == "--args" {
		t.Errorf("unexpected trailing argument: %v", args)
	}
}
