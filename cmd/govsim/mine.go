package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func mine(ctx *cli.Context) error {
	r, err := setup(ctx)
	if err != nil {
		return err
	}

	l, err := dial(ctx.Context, r)
	if err != nil {
		return err
	}
	defer l.Close()

	n := ctx.Uint64("blocks")
	if err := l.Mine(ctx.Context, n); err != nil {
		return err
	}
	block, err := l.BlockNumber(ctx.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Moved %d blocks, block: %d\n", n, block)
	return nil
}
