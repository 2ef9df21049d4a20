// Command dirwatch is a manual-testing tool around the dirwatch library's
// five public operations — it is not the library's binding layer.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dirwatch: %v\n", err)
		os.Exit(1)
	}
}
