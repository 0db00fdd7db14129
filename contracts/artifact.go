package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrEmptyBytecode = errors.New("artifact has no deployable bytecode")

// Artifact is the deployable part of a compiled contract.
type Artifact struct {
	Name     string
	Bytecode []byte
}

type artifactFile struct {
	ContractName string          `json:"contractName"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// LoadArtifact reads truffle/hardhat JSON (bytecode as a hex string) or
// foundry JSON (bytecode.object).
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var f artifactFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}

	code, err := decodeBytecode(f.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}

	name := f.ContractName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &Artifact{
		Name:     name,
		Bytecode: code,
	}, nil
}

func decodeBytecode(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrEmptyBytecode
	}

	var hexCode string
	if raw[0] == '{' {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		hexCode = obj.Object
	} else if err := json.Unmarshal(raw, &hexCode); err != nil {
		return nil, err
	}

	if !strings.HasPrefix(hexCode, "0x") {
		hexCode = "0x" + hexCode
	}
	code, err := hexutil.Decode(hexCode)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, ErrEmptyBytecode
	}
	return code, nil
}

// DeployData appends the ABI encoded constructor arguments to the bytecode.
func (a *Artifact) DeployData(contractABI abi.ABI, args ...any) ([]byte, error) {
	packed, err := contractABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s constructor: %w", a.Name, err)
	}
	data := make([]byte, 0, len(a.Bytecode)+len(packed))
	data = append(data, a.Bytecode...)
	return append(data, packed...), nil
}
