package main

import (
	"os"

	"github.com/Tanishq67m/EventPulse/cmd/pulsectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
