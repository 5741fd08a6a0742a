package main

import (
	"fmt"
	"os"

	servecmder "github.com/papercomputeco/astra/cmd/astra/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()

	cmd.Use = "astrarelay"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .astra/ config directory")

	err := cmd.Execute()
	if err != nil {
		fmt.Printf("Error executing root command: %v\n", err)
		os.Exit(1)
	}
}
