package main

import (
	"os"

	"ai_dungeon_master/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
