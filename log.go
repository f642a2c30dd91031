package pcktsim

import (
	"io"
	"log"
	"os"
)

// kernelLog reports drops, topology changes and run boundaries
var kernelLog = log.New(os.Stderr, "PCKTSIM: ", log.Ltime)

// SetLogOutput redirects the kernel logger
func SetLogOutput(w io.Writer) {
	kernelLog.SetOutput(w)
}

// Logger returns the kernel logger, for subsystems that share its output
func Logger() *log.Logger {
	return kernelLog
}
