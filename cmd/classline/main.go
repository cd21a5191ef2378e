package main

import (
	"github.com/classline/classline/internal/cli"
	"github.com/classline/classline/internal/common/logtrace"
)

func init() {
	logtrace.InitCLILogger()
}

func main() {
	cli.Execute()
}
