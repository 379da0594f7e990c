package main

import (
	"os"

	"github.com/tphakala/snapquote/cmd"
	"github.com/tphakala/snapquote/internal/buildinfo"
	"github.com/tphakala/snapquote/internal/runtime"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   string
	buildDate string
)

func main() {
	rt := runtime.New(buildinfo.NewContext(version, buildDate))
	os.Exit(cmd.Run(rt, os.Args[1:], os.Stdout, os.Stderr))
}
