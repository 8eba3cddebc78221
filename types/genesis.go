package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
)


type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

const ModuleName = "democracy"
const DefaultPower = 1000

// GovernanceParams are the chain wide democracy parameters. They are fixed at
// genesis so every node tallies with the same values.
type GovernanceParams struct {
	// ReputationLifetime is the number of past cycles whose reputation can be spent.
	ReputationLifetime uint32 `json:"reputation_lifetime"`
	// MinTurnout is the quorum in permill of the electorate.
	MinTurnout             uint64 `json:"min_turnout"`
	ConfirmationPeriod     uint64 `json:"confirmation_period"`
	ProposalLifetime       uint64 `json:"proposal_lifetime"`
	ProposalLifetimeCycles uint64 `json:"proposal_lifetime_cycles"`
	MaxReputationVecLength uint32 `json:"max_reputation_vec_length"`
}

func DefaultGovernanceParams() GovernanceParams {
	return GovernanceParams{
		ReputationLifetime:     5,
		MinTurnout:             20,
		ConfirmationPeriod:     10,
		ProposalLifetime:       40,
		ProposalLifetimeCycles: 1,
		MaxReputationVecLength: 10,
	}
}

func (p GovernanceParams) Validate() error {
	switch {
	case p.MinTurnout > 1000:
		return fmt.Errorf("min_turnout %d above 1000 permill", p.MinTurnout)
	case p.ProposalLifetimeCycles == 0:
		return errors.New("proposal_lifetime_cycles is zero")
	case p.MaxReputationVecLength == 0:
		return errors.New("max_reputation_vec_length is zero")
	}
	return nil
}

type GenesisCommunity struct {
	Geohash       string `json:"geohash"`
	Name          string `json:"name"`
	NominalIncome uint64 `json:"nominal_income"`
	Demurrage     uint64 `json:"demurrage"`
}

type GenesisScheduler struct {
	// PhaseBlocks is the length in blocks of the registering, assigning and
	// attesting phases.
	PhaseBlocks   [3]uint64     `json:"phase_blocks"`
	CeremonyIndex CeremonyIndex `json:"ceremony_index"`
}

// GenesisAppState is the app_state section of the genesis file.
type GenesisAppState struct {
	// Council holds the hex addresses allowed to send administrative txs.
	Council           []string           `json:"council"`
	Communities       []GenesisCommunity `json:"communities"`
	Scheduler         GenesisScheduler   `json:"scheduler"`
	Params            GovernanceParams   `json:"params"`
	InactivityTimeout uint32             `json:"inactivity_timeout"`
}

func DefaultGenesisAppState() *GenesisAppState {
	return &GenesisAppState{
		Council:     []string{},
		Communities: []GenesisCommunity{},
		Scheduler: GenesisScheduler{
			PhaseBlocks:   [3]uint64{20, 10, 10},
			CeremonyIndex: 1,
		},
		Params:            DefaultGovernanceParams(),
		InactivityTimeout: 40,
	}
}

func (gs *GenesisAppState) Validate() error {
	for i, n := range gs.Scheduler.PhaseBlocks {
		if n == 0 {
			return fmt.Errorf("phase %v has zero blocks", CeremonyPhase(i))
		}
	}
	if gs.Scheduler.CeremonyIndex == 0 {
		return errors.New("ceremony index starts at 1")
	}
	return gs.Params.Validate()
}

func ParseGenesisAppState(dat []byte) (*GenesisAppState, error) {
	gs := DefaultGenesisAppState()
	if len(dat) != 0 {
		if err := json.Unmarshal(dat, gs); err != nil {
			return nil, err
		}
	}
	return gs, gs.Validate()
}
