package main

import (
	"os"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
