// Package main is the pmgen command itself.
package main

import (
	"os"

	"github.com/drivelab/perspective/cli"
	"github.com/drivelab/perspective/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.Global().AsZap().Fatal(err)
	}
}
