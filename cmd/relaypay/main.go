package main

import (
	"log"

	"github.com/reserve-vault/relaypay/go/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
