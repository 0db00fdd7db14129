package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/govsim"
	"github.com/axiomesh/govsim/core"
	"github.com/axiomesh/govsim/ledger"
	"github.com/axiomesh/govsim/repo"
	"github.com/urfave/cli/v2"
)

var runCMD = &cli.Command{
	Name:  "run",
	Usage: "Deploy the contracts and drive one proposal from creation to execution",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "skip-verify",
			Usage: "do not fail when the target value differs from the proposed value",
		},
	},
	Action: run,
}

func run(ctx *cli.Context) error {
	r, err := setup(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool("skip-verify") {
		r.Config.Simulation.Verify = false
	}

	printVersion()

	c, cancel := context.WithCancel(ctx.Context)
	defer cancel()
	handleShutdown(cancel)

	sim, err := newSimulator(c, r)
	if err != nil {
		return err
	}
	defer sim.Stop()

	if err := sim.Run(c); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	fmt.Println("=============Simulation finished=============")
	return nil
}

// setup loads the repo and initializes file logging under <repo>/logs.
func setup(ctx *cli.Context) (*repo.Repo, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	r, err := repo.Load(p)
	if err != nil {
		return nil, err
	}

	err = log.Initialize(
		log.WithReportCaller(r.Config.Log.ReportCaller),
		log.WithPersist(true),
		log.WithFilePath(filepath.Join(r.Config.RepoRoot, repo.LogsDirName)),
		log.WithFileName(r.Config.Log.Filename),
		log.WithMaxAge(r.Config.Log.MaxAge),
		log.WithRotationTime(r.Config.Log.RotationTime),
	)
	if err != nil {
		return nil, fmt.Errorf("log initialize: %w", err)
	}
	return r, nil
}

func dial(ctx context.Context, r *repo.Repo) (*ledger.RPCLedger, error) {
	logger := log.New()
	logger.SetLevel(log.ParseLevel(r.Config.Log.Level))

	return ledger.Dial(ctx, r.Config.DialUrl, ledger.Options{
		GasLimit:     r.Config.Tx.GasLimit,
		PollInterval: r.Config.Tx.ReceiptPollInterval,
		PollLimit:    r.Config.Tx.ReceiptPollLimit,
		Logger:       logger.WithField("module", "ledger"),
	})
}

func newSimulator(ctx context.Context, r *repo.Repo) (*core.Simulator, error) {
	l, err := dial(ctx, r)
	if err != nil {
		return nil, err
	}
	journal, err := core.OpenJournal(r.Config.JournalPath())
	if err != nil {
		l.Close()
		return nil, err
	}
	return core.NewSimulator(r.Config, l, journal), nil
}

func printVersion() {
	fmt.Printf("govsim version: %s-%s-%s\n", govsim.CurrentVersion, govsim.CurrentBranch, govsim.CurrentCommit)
	fmt.Printf("App build date: %s\n", govsim.BuildDate)
	fmt.Printf("System version: %s\n", govsim.Platform)
	fmt.Printf("Golang version: %s\n", govsim.GoVersion)
	fmt.Println()
}

// handleShutdown cancels the run on SIGINT/SIGTERM; the pending step returns
// the context error and the simulator stops.
func handleShutdown(cancel context.CancelFunc) {
	var stop = make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)

	go func() {
		<-stop
		fmt.Println("received interrupt signal, shutting down...")
		cancel()
	}()
}
