package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "govsim"
	app.Usage = "Governance proposal lifecycle simulator for EVM test nodes"
	app.Compiled = time.Now()

	cli.VersionPrinter = func(c *cli.Context) {
		printVersion()
	}

	// global flags
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "repo",
			Usage: "govsim storage repo path",
		},
	}

	app.Commands = []*cli.Command{
		configCMD,
		runCMD,
		{
			Name:   "status",
			Usage:  "Show the contracts and proposal left by the last run",
			Action: status,
		},
		{
			Name:  "mine",
			Usage: "Advance the test node by mining empty blocks",
			Flags: []cli.Flag{
				&cli.Uint64Flag{
					Name:  "blocks",
					Usage: "number of blocks to mine",
					Value: 1,
				},
			},
			Action: mine,
		},
		{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "govsim version",
			Action: func(ctx *cli.Context) error {
				printVersion()
				return nil
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
