package main

import (
	"os"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/cmd/stretchctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
