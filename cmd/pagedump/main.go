package main

import (
	"os"

	"github.com/likearthian/pagedstore/cmd/pagedump/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
