// Command compass parses county and farm CSV exports offline: it prints the
// normalized records, import stats and hot list, or writes a flattened CSV.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
