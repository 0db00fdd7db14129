package repo

import (
	"time"
)

type Config struct {
	RepoRoot   string     `mapstructure:"-" toml:"-"`
	DialUrl    string     `mapstructure:"dial_url" toml:"dial_url"`
	Log        Log        `mapstructure:"log" toml:"log"`
	Artifacts  Artifacts  `mapstructure:"artifacts" toml:"artifacts"`
	Accounts   Accounts   `mapstructure:"accounts" toml:"accounts"`
	Simulation Simulation `mapstructure:"simulation" toml:"simulation"`
	Blocks     Blocks     `mapstructure:"blocks" toml:"blocks"`
	Tx         Tx         `mapstructure:"tx" toml:"tx"`
}

type Log struct {
	Level        string        `mapstructure:"level" toml:"level"`
	Filename     string        `mapstructure:"filename" toml:"filename"`
	ReportCaller bool          `mapstructure:"report_caller" toml:"report_caller"`
	MaxAge       time.Duration `mapstructure:"max_age" toml:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time" toml:"rotation_time"`
}

// Artifacts points at compiled contract JSON files (truffle or hardhat layout).
// Relative file names are resolved against Dir, a relative Dir against the repo root.
type Artifacts struct {
	Dir      string `mapstructure:"dir" toml:"dir"`
	Token    string `mapstructure:"token" toml:"token"`
	Governor string `mapstructure:"governor" toml:"governor"`
	Target   string `mapstructure:"target" toml:"target"`
}

// Accounts are indexes into the node's eth_accounts list.
type Accounts struct {
	Owner  uint   `mapstructure:"owner" toml:"owner"`
	Voters []uint `mapstructure:"voters" toml:"voters"`
}

type Simulation struct {
	MintAmount    uint64 `mapstructure:"mint_amount" toml:"mint_amount"`
	ProposedValue uint64 `mapstructure:"proposed_value" toml:"proposed_value"`
	Description   string `mapstructure:"description" toml:"description"`
	// Verify fails the run when the target value differs from ProposedValue
	Verify bool `mapstructure:"verify" toml:"verify"`
}

type Blocks struct {
	// blocks mined after propose, 0 means governor votingDelay + 1
	AfterPropose uint64 `mapstructure:"after_propose" toml:"after_propose"`
	// blocks mined after the votes, 0 means governor votingPeriod
	AfterVote uint64 `mapstructure:"after_vote" toml:"after_vote"`
}

type Tx struct {
	GasLimit            uint64        `mapstructure:"gas_limit" toml:"gas_limit"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval" toml:"receipt_poll_interval"`
	ReceiptPollLimit    uint          `mapstructure:"receipt_poll_limit" toml:"receipt_poll_limit"`
}

func DefaultConfig(repoRoot string) *Config {
	return &Config{
		RepoRoot: repoRoot,
		DialUrl:  "http://localhost:8545",
		Log: Log{
			Level:        "info",
			Filename:     "govsim.log",
			ReportCaller: false,
			MaxAge:       30 * 24 * time.Hour,
			RotationTime: 24 * time.Hour,
		},
		Artifacts: Artifacts{
			Dir:      "build/contracts",
			Token:    "GovToken.json",
			Governor: "DaoGovernor.json",
			Target:   "Dao.json",
		},
		Accounts: Accounts{
			Owner:  0,
			Voters: []uint{1, 2},
		},
		Simulation: Simulation{
			MintAmount:    100,
			ProposedValue: 42,
			Description:   "Updating DAO value to 42",
			Verify:        true,
		},
		Blocks: Blocks{
			AfterPropose: 0,
			AfterVote:    0,
		},
		Tx: Tx{
			GasLimit:            6_000_000,
			ReceiptPollInterval: 200 * time.Millisecond,
			ReceiptPollLimit:    50,
		},
	}
}
