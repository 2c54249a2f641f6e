// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/redhat-cip/dci-pipeline/internal/pipelinecli"
)

func main() {
	exitCode := 0
	rootCmd := pipelinecli.NewRootCommand(&exitCode)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
