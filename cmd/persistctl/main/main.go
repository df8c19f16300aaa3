package main

import (
	"fmt"
	"os"

	"github.com/cocoonpersist/persist/cmd/persistctl"
)

func main() {
	if err := persistctl.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
