// Command rculist-churn stress-tests the RCU-guarded list with concurrent readers and writers.
package main

import (
	"log"
	"os"
	"sort"

	"github.com/urfave/cli/v2"
	"github.com/usnistgov/rcuguard/core/logging"
	"github.com/usnistgov/rcuguard/core/version"
)

var logger = logging.New("main")

var app = &cli.App{
	Version: version.Get().String(),
	Usage:   "Stress-test the RCU-guarded list.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "log",
			Usage:   "Log level `assignments`, such as 'D' or 'churn=D,urcu=I'.",
			EnvVars: []string{logging.EnvPrefix},
		},
	},
	Before: func(c *cli.Context) error {
		return logging.ApplyAssignments(c.String("log"))
	},
	After: func(c *cli.Context) error {
		logging.Sync()
		return nil
	},
}

func defineCommand(command *cli.Command) {
	app.Commands = append(app.Commands, command)
}

func main() {
	sort.Sort(cli.CommandsByName(app.Commands))
	e := app.Run(os.Args)
	if e != nil {
		log.Fatal(e)
	}
}
