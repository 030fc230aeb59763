package main

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/rtloop/pkg/env"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	sys := env.NewConfig().MustNewSystem()
	if err := env.Run(sys); err != nil {
		glog.Fatalln(err)
	}
}
