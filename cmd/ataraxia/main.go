package main

import (
	"log"

	"ataraxia/internal/cli"
)

func main() {
	log.SetFlags(0)
	if err := cli.New().Execute(); err != nil {
		log.Fatalf("ataraxia: %v", err)
	}
}
