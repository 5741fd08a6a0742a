package main

import (
	"os"

	astracmder "github.com/papercomputeco/astra/cmd/astra"
)

func main() {
	cmd := astracmder.NewAstraCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
