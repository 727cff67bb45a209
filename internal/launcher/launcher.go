// Package launcher runs the MCP server binary that ships alongside the
// launcher executable, forwarding arguments and propagating its exit code.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// ServerBinaryName is the server executable expected next to the launcher.
const ServerBinaryName = "factmemory-server"

// Launcher starts the server binary as a child process and relays its
// outcome. Output writers and the interrupt channel are fields so tests
// can capture diagnostics and inject interrupts.
type Launcher struct {
	// ServerPath is the server binary to execute.
	ServerPath string

	// Args are passed to the server verbatim.
	Args []string

	// Out receives launcher diagnostics. Defaults to os.Stdout.
	Out io.Writer

	// Interrupts delivers interrupt signals. Defaults to none; the
	// command wires it to SIGINT.
	Interrupts <-chan os.Signal
}

// ResolveServerPath returns the path of the server binary sitting next to
// the running executable.
func ResolveServerPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot determine launcher location: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), ServerBinaryName), nil
}

// Run executes the server and returns the launcher's exit code: 1 when the
// server binary is missing or cannot start, the server's own exit code when
// it terminates, and 0 when the user interrupts the server.
func (l *Launcher) Run() int {
	out := l.Out
	if out == nil {
		out = os.Stdout
	}

	if _, err := os.Stat(l.ServerPath); err != nil {
		fmt.Fprintf(out, "Error: Server binary not found at %s\n", l.ServerPath)
		return 1
	}

	cmd := exec.Command(l.ServerPath, l.Args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(out, "Error running server: %v\n", err)
		return 1
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	interrupted := false
	for {
		select {
		case <-l.Interrupts:
			// Forward the interrupt and keep waiting for the server to
			// exit so it can shut down cleanly.
			interrupted = true
			cmd.Process.Signal(os.Interrupt)

		case err := <-done:
			if interrupted {
				fmt.Fprintf(out, "\nServer stopped by user\n")
				return 0
			}
			if err == nil {
				return 0
			}

			fmt.Fprintf(out, "Error running server: %v\n", err)
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
				return exitErr.ExitCode()
			}
			return 1
		}
	}
}
