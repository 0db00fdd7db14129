package govsim

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/axiomesh/govsim.CurrentCommit=..." at build time.
var (
	CurrentVersion = "0.1.0"
	CurrentBranch  = ""
	CurrentCommit  = ""
	BuildDate      = ""

	Platform  = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	GoVersion = runtime.Version()
)
