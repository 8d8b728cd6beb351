package main

import (
	"os"

	"github.com/taskstate/tasksync/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
