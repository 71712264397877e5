package main

import (
	"fmt"
	"os"
)

// Version is the current tanoko version.
var Version = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
