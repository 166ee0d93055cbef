package main

import (
	"os"

	"github.com/hooklog/hooklog/internal/hookctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
