package contracts

import "fmt"

// ProposalState mirrors IGovernor.ProposalState. The governor owns the
// transitions, this type only names what it reports.
type ProposalState uint8

const (
	Pending ProposalState = iota
	Active
	Canceled
	Defeated
	Succeeded
	Queued
	Expired
	Executed
)

var proposalStateNames = [...]string{
	Pending:   "Pending",
	Active:    "Active",
	Canceled:  "Canceled",
	Defeated:  "Defeated",
	Succeeded: "Succeeded",
	Queued:    "Queued",
	Expired:   "Expired",
	Executed:  "Executed",
}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return fmt.Sprintf("Unknown(%d)", uint8(s))
}

// Executable reports whether the governor accepts execute for a proposal in s.
func (s ProposalState) Executable() bool {
	return s == Succeeded || s == Queued
}

// VoteType is the support argument of castVote under GovernorCountingSimple.
type VoteType uint8

const (
	Against VoteType = iota
	For
	Abstain
)

func (v VoteType) String() string {
	switch v {
	case Against:
		return "Against"
	case For:
		return "For"
	case Abstain:
		return "Abstain"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(v))
	}
}

func ParseVoteType(s string) (VoteType, error) {
	switch s {
	case "against", "Against", "0":
		return Against, nil
	case "for", "For", "1":
		return For, nil
	case "abstain", "Abstain", "2":
		return Abstain, nil
	}
	return 0, fmt.Errorf("unknown vote type %q", s)
}
