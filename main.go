package main

import (
	"log"

	"github.com/datachainlab/crossdomain-relayer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
