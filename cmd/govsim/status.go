package main

import (
	"errors"
	"fmt"

	"github.com/axiomesh/govsim/core"
	"github.com/urfave/cli/v2"
)

func status(ctx *cli.Context) error {
	r, err := setup(ctx)
	if err != nil {
		return err
	}

	sim, err := newSimulator(ctx.Context, r)
	if err != nil {
		return err
	}
	defer sim.Stop()

	if err := sim.Attach(ctx.Context); err != nil {
		if errors.Is(err, core.ErrNotDeployed) {
			fmt.Println("no simulation recorded")
			return nil
		}
		return err
	}

	block, err := sim.Ledger.BlockNumber(ctx.Context)
	if err != nil {
		return err
	}

	d := sim.Deployment()
	fmt.Printf("Block:      %d\n", block)
	fmt.Printf("Last phase: %s\n", sim.Journal.Phase())
	fmt.Printf("Token:      %s\n", d.Token)
	fmt.Printf("Governor:   %s\n", d.Governor)
	fmt.Printf("Target:     %s\n", d.Target)

	value, err := sim.Value(ctx.Context)
	if err != nil {
		return err
	}
	fmt.Printf("daoVal:     %s\n", value)

	accounts, err := sim.AccountStates(ctx.Context)
	if err != nil {
		return err
	}
	for _, acct := range accounts {
		fmt.Printf("Account:    %s balance %s votes %s delegatee %s\n", acct.Address, acct.Balance, acct.Votes, acct.Delegatee)
	}

	p := sim.Proposal()
	if p == nil {
		fmt.Println("no proposal recorded")
		return nil
	}

	fmt.Println()
	fmt.Printf("Proposal:   %s\n", p.ID)
	fmt.Printf("Description: %q (%s)\n", p.Description, p.DescriptionHash)
	fmt.Printf("Voting:     blocks %d to %d\n", p.VoteStart, p.VoteEnd)

	state, err := sim.State(ctx.Context)
	if err != nil {
		return err
	}
	fmt.Printf("State:      %s\n", state)

	tally, err := sim.Tally(ctx.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Votes:      for %s, against %s, abstain %s\n", tally.For, tally.Against, tally.Abstain)

	quorum, err := sim.Quorum(ctx.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Quorum:     %s at block %d\n", quorum, p.VoteStart)
	return nil
}
