package main

import (
	"errors"
	"log"
	"os"

	"github.com/thiagokokada/gitviz-go/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		if errors.Is(err, cmd.ErrIncomplete) {
			os.Exit(1)
		}
		log.Fatalf("gitviz: %v", err)
	}
}
