package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/calehh/qf-app/mechanism"
	"github.com/calehh/qf-app/qf"
	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
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

	if len(ag.AppState) != 0 {
		var st GenesisAppState
		if err := json.Unmarshal(ag.AppState, &st); err != nil {
			return fmt.Errorf("decode app_state: %w", err)
		}
		if err := st.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

const QFModuleName = "qf"
const DefaultPower = 1000

const (
	StrategyQuadratic = "quadratic"
	StrategyThreshold = "threshold"
)

// PoolAddress is the account holding deposits and the matching pool. Nobody
// holds its key; only the mechanism moves its funds.
var PoolAddress = common.BytesToAddress(ethcrypto.Keccak256([]byte("qf/pool"))[12:])

// Params configure the round the chain runs.
type Params struct {
	Mechanism         mechanism.Config `json:"mechanism"`
	Strategy          string           `json:"strategy"`
	PayoutThreshold   *uint256.Int     `json:"payoutThreshold,omitempty"`
	RestrictProposers bool             `json:"restrictProposers"`
}

func (p Params) Validate() error {
	if err := p.Mechanism.Validate(); err != nil {
		return err
	}
	switch p.Strategy {
	case "", StrategyQuadratic:
	case StrategyThreshold:
		if p.PayoutThreshold == nil {
			return errors.New("threshold strategy needs payoutThreshold")
		}
	default:
		return fmt.Errorf("unknown strategy %q", p.Strategy)
	}
	return nil
}

func (p Params) NewStrategy() mechanism.Strategy {
	if p.Strategy == StrategyThreshold {
		return mechanism.ThresholdPayout{Threshold: p.PayoutThreshold}
	}
	return mechanism.QuadraticVoting{}
}

type Allocation struct {
	Address common.Address `json:"address"`
	Amount  *uint256.Int   `json:"amount"`
}

// GenesisAppState is the app_state of the genesis file.
type GenesisAppState struct {
	Params      Params           `json:"params"`
	Allocations []Allocation     `json:"allocations"`
	Proposers   []common.Address `json:"proposers"`
}

func (s *GenesisAppState) Validate() error {
	if err := s.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	seen := make(map[common.Address]bool)
	for _, a := range s.Allocations {
		if a.Address == (common.Address{}) || a.Address == s.Params.Mechanism.Pool {
			return fmt.Errorf("invalid allocation account %s", a.Address.Hex())
		}
		if a.Amount == nil || a.Amount.IsZero() {
			return fmt.Errorf("zero allocation for %s", a.Address.Hex())
		}
		if seen[a.Address] {
			return fmt.Errorf("duplicate allocation %s", a.Address.Hex())
		}
		seen[a.Address] = true
	}
	return nil
}

// DefaultGenesisAppState opens a round at start with one day of proposing, a
// week of voting, a one day timelock and a two week grace period.
func DefaultGenesisAppState(owner common.Address, start time.Time) GenesisAppState {
	return GenesisAppState{
		Params: Params{
			Mechanism: mechanism.Config{
				Name:          "Quadratic Funding Round",
				Symbol:        "QFS",
				AssetDecimals: 18,
				Owner:         owner,
				Pool:          PoolAddress,
				StartTime:     start,
				VotingDelay:   24 * time.Hour,
				VotingPeriod:  7 * 24 * time.Hour,
				TimelockDelay: 24 * time.Hour,
				GracePeriod:   14 * 24 * time.Hour,
				Alpha:         qf.PureQuadratic(),
			},
			Strategy: StrategyQuadratic,
		},
		Proposers: []common.Address{owner},
	}
}
