// Command pcktsim runs packet-level network simulations
package main

import (
	"log"
	"os"

	"github.com/iti/pcktsim"
)

func main() {
	log.SetPrefix("pcktsim: ")
	log.SetFlags(log.Ltime)
	pcktsim.SetLogOutput(os.Stderr)
	Execute()
}
