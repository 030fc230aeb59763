package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/robotalks/rtloop/pkg/cli/sh"
	"github.com/robotalks/rtloop/pkg/env"
)

func init() {
	env.SetupFlags()
	flag.Set("logtostderr", "true")
}

func main() {
	sh.Main()
}
