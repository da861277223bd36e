// Command marketstream streams raw market data from an exchange WebSocket
// endpoint to stdout, with connection health exposed over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
