package main

import (
	"os"

	"github.com/tanpawarit/cdgi-bus-assistant/cmd"
	_ "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger/autoload"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
