package main

import (
	"log"

	"github.com/grimoire-app/grimoire/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatal(err)
	}
}
