// Command binprobe reads typed fields from local files, HTTP URLs and S3
// objects through binfile sources, and profiles remote read patterns.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "binprobe:", err)
		os.Exit(1)
	}
}
