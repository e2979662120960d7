// Command ibmq routes OpenQASM programs onto IBM Q devices, runs them, and
// prints the measured outcomes.  It can also simulate programs locally and
// serve a fake execution service for testing.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ibmq:", err)
		os.Exit(1)
	}
}
