// The main package for the riverscout executable.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nzflyfish/riverscout/cmd"
	"github.com/nzflyfish/riverscout/internal/fetch"
)

// main defers execution to the Cobra CLI and maps the outcome onto exit
// codes: 0 for success, 2 when the crawl halted on repeated server
// errors, 1 for anything else.
func main() {
	err := cmd.Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	var halt *fetch.HaltError
	if errors.As(err, &halt) {
		os.Exit(2)
	}
	os.Exit(1)
}
