// Command factmemory-launch starts the factmemory-server binary that ships
// next to it, forwarding all arguments and propagating its exit code.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/facttools/factmemory/internal/launcher"
)

func main() {
	serverPath, err := launcher.ResolveServerPath()
	if err != nil {
		fmt.Printf("Error running server: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	l := &launcher.Launcher{
		ServerPath: serverPath,
		Args:       os.Args[1:],
		Interrupts: sigCh,
	}
	os.Exit(l.Run())
}
