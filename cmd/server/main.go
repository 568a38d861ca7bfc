package main

import (
	"log"

	"github.com/ayush/guestbook/backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Fatalf("guestbook: %v", err)
	}
}
