package main

import (
	"log"

	"github.com/tidewell/rpcgate/cmd/rpcgate"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	rpcgate.Execute()
}
