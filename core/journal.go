package core

import (
	"encoding/json"
	"fmt"

	"github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/ethereum/go-ethereum/common"
)

const (
	tokenKey    = "deployment.token"
	governorKey = "deployment.governor"
	targetKey   = "deployment.target"
	proposalKey = "proposal"
	phaseKey    = "phase"
)

var journalKeys = []string{tokenKey, governorKey, targetKey, proposalKey, phaseKey}

// Journal records what the last run left on chain. It is informational only:
// a failed run is never resumed from it.
type Journal struct {
	db storage.Storage
}

func OpenJournal(path string) (*Journal, error) {
	db, err := leveldb.New(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return NewJournal(db), nil
}

func NewJournal(db storage.Storage) *Journal {
	return &Journal{db: db}
}

// Reset forgets the previous run.
func (j *Journal) Reset() {
	for _, k := range journalKeys {
		j.db.Delete([]byte(k))
	}
}

func (j *Journal) SaveDeployment(d Deployment) {
	j.db.Put([]byte(tokenKey), d.Token.Bytes())
	j.db.Put([]byte(governorKey), d.Governor.Bytes())
	j.db.Put([]byte(targetKey), d.Target.Bytes())
}

func (j *Journal) Deployment() (Deployment, bool) {
	d := Deployment{
		Token:    common.BytesToAddress(j.db.Get([]byte(tokenKey))),
		Governor: common.BytesToAddress(j.db.Get([]byte(governorKey))),
		Target:   common.BytesToAddress(j.db.Get([]byte(targetKey))),
	}
	return d, !d.Empty()
}

func (j *Journal) SaveProposal(p *Proposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}
	j.db.Put([]byte(proposalKey), data)
	return nil
}

// Proposal returns nil without error when no proposal was recorded.
func (j *Journal) Proposal() (*Proposal, error) {
	data := j.db.Get([]byte(proposalKey))
	if data == nil {
		return nil, nil
	}
	p := &Proposal{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("unmarshal proposal: %w", err)
	}
	return p, nil
}

func (j *Journal) SetPhase(phase string) {
	j.db.Put([]byte(phaseKey), []byte(phase))
}

func (j *Journal) Phase() string {
	return string(j.db.Get([]byte(phaseKey)))
}

func (j *Journal) Close() error {
	return j.db.Close()
}
