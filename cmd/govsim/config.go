package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/axiomesh/govsim/contracts"
	"github.com/axiomesh/govsim/repo"
	"github.com/urfave/cli/v2"
)

var errRepoNotExist = errors.New("govsim repo not exist, run `govsim config generate` first")

var configCMD = &cli.Command{
	Name:  "config",
	Usage: "The config manage commands",
	Subcommands: []*cli.Command{
		{
			Name:   "generate",
			Usage:  "Generate default config",
			Action: generate,
		},
		{
			Name:   "show",
			Usage:  "Show the complete config processed by the environment variable",
			Action: show,
		},
		{
			Name:   "check",
			Usage:  "Check if the config file is valid and the contract artifacts are deployable",
			Action: check,
		},
		{
			Name:   "rewrite-with-env",
			Usage:  "Rewrite config with env",
			Action: rewriteWithEnv,
		},
	},
}

func generate(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	if repo.Exist(p) {
		fmt.Println("govsim repo already exists")
		return nil
	}

	if err := os.MkdirAll(p, 0755); err != nil {
		return err
	}

	r := &repo.Repo{
		Config: repo.DefaultConfig(p),
	}
	if err := r.Flush(); err != nil {
		return err
	}

	fmt.Printf("initializing govsim at %s\n", p)
	fmt.Printf("put compiled artifacts under %s\n", r.Config.ArtifactPath(""))
	return nil
}

func show(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil {
		return err
	}
	str, err := repo.MarshalConfig(r.Config)
	if err != nil {
		return err
	}
	fmt.Println(str)
	return nil
}

func check(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil {
		if errors.Is(err, errRepoNotExist) {
			return err
		}
		fmt.Println("config file format error, please check:", err)
		os.Exit(1)
		return nil
	}

	if len(r.Config.Accounts.Voters) == 0 {
		return errors.New("accounts.voters is empty, the proposal can not pass without votes")
	}
	for _, name := range []string{r.Config.Artifacts.Token, r.Config.Artifacts.Governor, r.Config.Artifacts.Target} {
		a, err := contracts.LoadArtifact(r.Config.ArtifactPath(name))
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d bytes of bytecode\n", a.Name, len(a.Bytecode))
	}
	fmt.Println("config ok")
	return nil
}

func rewriteWithEnv(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil {
		return err
	}
	return r.Flush()
}

func loadRepo(ctx *cli.Context) (*repo.Repo, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	if !repo.Exist(p) {
		return nil, errRepoNotExist
	}
	return repo.Load(p)
}

func getRootPath(ctx *cli.Context) (string, error) {
	return repo.LoadRepoRootFromEnv(ctx.String("repo"))
}
