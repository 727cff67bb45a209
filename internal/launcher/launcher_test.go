package launcher

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeFakeServer creates an executable shell script standing in for the
// server binary.
func writeFakeServer(t *testing.T, script string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake server scripts require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), ServerBinaryName)
	content := "#!/bin/sh\n" + script + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("Failed to write fake server: %v", err)
	}
	return path
}

func TestRunMissingServer(t *testing.T) {
	var out strings.Builder
	l := &Launcher{
		ServerPath: filepath.Join(t.TempDir(), ServerBinaryName),
		Out:        &out,
	}

	if code := l.Run(); code != 1 {
		t.Errorf("Expected exit code 1 for missing server, got %d", code)
	}
	if !strings.Contains(out.String(), "Server binary not found") {
		t.Errorf("Expected missing-server diagnostic, got %q", out.String())
	}
}

func TestRunSuccess(t *testing.T) {
	var out strings.Builder
	l := &Launcher{
		ServerPath: writeFakeServer(t, "exit 0"),
		Out:        &out,
	}

	if code := l.Run(); code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no diagnostics on clean exit, got %q", out.String())
	}
}

func TestRunPropagatesExitCode(t *testing.T) {
	var out strings.Builder
	l := &Launcher{
		ServerPath: writeFakeServer(t, "exit 7"),
		Out:        &out,
	}

	if code := l.Run(); code != 7 {
		t.Errorf("Expected exit code 7, got %d", code)
	}
	if !strings.Contains(out.String(), "Error running server") {
		t.Errorf("Expected failure diagnostic, got %q", out.String())
	}
}

func TestRunForwardsArguments(t *testing.T) {
	// The fake server exits 0 only when it sees the expected arguments.
	script := `[ "$1" = "--flag" ] && [ "$2" = "value with spaces" ] && exit 0
exit 3`

	l := &Launcher{
		ServerPath: writeFakeServer(t, script),
		Args:       []string{"--flag", "value with spaces"},
		Out:        &strings.Builder{},
	}

	if code := l.Run(); code != 0 {
		t.Errorf("Expected arguments to be forwarded verbatim, got exit code %d", code)
	}
}

func TestRunInterrupt(t *testing.T) {
	// The fake server exits on SIGINT after a long sleep.
	script := `trap 'exit 130' INT
sleep 10`

	interrupts := make(chan os.Signal, 1)
	var out strings.Builder
	l := &Launcher{
		ServerPath: writeFakeServer(t, script),
		Out:        &out,
		Interrupts: interrupts,
	}

	codeCh := make(chan int, 1)
	go func() {
		codeCh <- l.Run()
	}()

	// Give the child time to install its trap, then interrupt.
	time.Sleep(200 * time.Millisecond)
	interrupts <- os.Interrupt

	select {
	case code := <-codeCh:
		if code != 0 {
			t.Errorf("Expected exit code 0 after interrupt, got %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Launcher did not return after interrupt")
	}

	if !strings.Contains(out.String(), "Server stopped by user") {
		t.Errorf("Expected interrupt diagnostic, got %q", out.String())
	}
}
