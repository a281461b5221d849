package main

import (
	"log"
	"os"

	"github.com/bibliodesign/site/cmd/site/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
