// Package main is the entry point for the zhuyin CLI.
package main

import (
	"os"

	"github.com/f3rmion/zhuyin/cmd/zhuyin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
