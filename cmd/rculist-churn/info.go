package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/usnistgov/rcuguard/app/churn"
	"github.com/usnistgov/rcuguard/core/hwinfo"
	"github.com/usnistgov/rcuguard/core/version"
)

func printJSON(obj any) error {
	j, e := json.MarshalIndent(obj, "", "  ")
	if e != nil {
		return e
	}
	fmt.Println(string(j))
	return nil
}

func init() {
	defineCommand(&cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the configuration.",
		Action: func(c *cli.Context) error {
			_, e := os.Stdout.Write(churn.Schema())
			return e
		},
	})
}

func init() {
	defineCommand(&cli.Command{
		Name:  "version",
		Usage: "Print build version information as JSON.",
		Action: func(c *cli.Context) error {
			return printJSON(version.Get())
		},
	})
}

func init() {
	defineCommand(&cli.Command{
		Name:  "hwinfo",
		Usage: "Print CPU cores usable by this process.",
		Action: func(c *cli.Context) error {
			cores, e := hwinfo.Default.Cores()
			if e != nil {
				return e
			}
			return printJSON(map[string]any{
				"summary": cores.Summary(),
				"cores":   cores,
			})
		},
	})
}
