package simulation

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sort"

	sdkmath "cosmossdk.io/math"
	"gopkg.in/yaml.v3"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/market"
)

// Step operations.
const (
	OpSubmit      = "submit"
	OpApprove     = "approve"
	OpReject      = "reject"
	OpIssue       = "issue"
	OpBuy         = "buy"
	OpSell        = "sell"
	OpReconfigure = "reconfigure"
)

// ErrInvalidScenario is returned for scenarios that cannot be run.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a scripted sequence of launchpad operations between named actors.
type Scenario struct {
	Name      string            `yaml:"name"`
	StartTime int64             `yaml:"start_time"` // ms; each step advances the clock by StepMs
	StepMs    int64             `yaml:"step_ms"`
	Owner     string            `yaml:"owner"`
	Admins    []string          `yaml:"admins"`
	Threshold int               `yaml:"threshold"`
	Market    MarketConfig      `yaml:"market"`
	Genesis   map[string]string `yaml:"genesis"` // actor -> whole units of base currency
	Steps     []Step            `yaml:"steps"`
}

// MarketConfig overrides the default curve parameters. Values are base units.
type MarketConfig struct {
	BasePrice string `yaml:"base_price"`
	Slope     string `yaml:"slope"`
	MaxSupply string `yaml:"max_supply"`
}

// Step is one operation. Request labels name submitted requests so later
// steps can refer to them; markets are addressed by the label of the request
// that issued them.
type Step struct {
	Op          string   `yaml:"op"`
	By          string   `yaml:"by"`
	Request     string   `yaml:"request"`
	Name        string   `yaml:"name"`
	Symbol      string   `yaml:"symbol"`
	Amount      string   `yaml:"amount"` // whole units
	For         string   `yaml:"for"`    // buy beneficiary; defaults to By
	Admins      []string `yaml:"admins"`
	Threshold   int      `yaml:"threshold"`
	ExpectError string   `yaml:"expect_error"` // substring the step's error must contain
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario structure. Domain rules are left to the engines.
func (sc *Scenario) Validate() error {
	if sc.Owner == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidScenario)
	}
	if len(sc.Admins) == 0 {
		return fmt.Errorf("%w: at least one admin is required", ErrInvalidScenario)
	}
	for i, st := range sc.Steps {
		if st.By == "" {
			return fmt.Errorf("%w: step %d: by is required", ErrInvalidScenario, i+1)
		}
		switch st.Op {
		case OpSubmit:
			if st.Request == "" {
				return fmt.Errorf("%w: step %d: submit needs a request label", ErrInvalidScenario, i+1)
			}
		case OpApprove, OpReject, OpIssue, OpBuy, OpSell:
			if st.Request == "" {
				return fmt.Errorf("%w: step %d: %s needs a request label", ErrInvalidScenario, i+1, st.Op)
			}
		case OpReconfigure:
		default:
			return fmt.Errorf("%w: step %d: unknown op %q", ErrInvalidScenario, i+1, st.Op)
		}
	}
	return nil
}

// marketParams merges overrides onto the defaults.
func (sc *Scenario) marketParams() (domain.MarketParams, error) {
	params := market.DefaultParams()
	set := func(dst *sdkmath.Int, s, field string) error {
		if s == "" {
			return nil
		}
		v, err := domain.ParseAmount(s)
		if err != nil {
			return fmt.Errorf("%w: market.%s: %v", ErrInvalidScenario, field, err)
		}
		*dst = v
		return nil
	}
	if err := set(&params.BasePrice, sc.Market.BasePrice, "base_price"); err != nil {
		return params, err
	}
	if err := set(&params.Slope, sc.Market.Slope, "slope"); err != nil {
		return params, err
	}
	if err := set(&params.MaxSupply, sc.Market.MaxSupply, "max_supply"); err != nil {
		return params, err
	}
	return params, nil
}

// genesisActors returns genesis actor names in sorted order.
func (sc *Scenario) genesisActors() []string {
	names := make([]string, 0, len(sc.Genesis))
	for name := range sc.Genesis {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActorKey derives the deterministic signing key of a named actor.
func ActorKey(name string) ed25519.PrivateKey {
	seed := sha256.Sum256([]byte("actor:" + name))
	return ed25519.NewKeyFromSeed(seed[:])
}

// ActorAccount returns the account of a named actor: its ed25519 public key.
func ActorAccount(name string) domain.Account {
	var a domain.Account
	copy(a[:], ActorKey(name).Public().(ed25519.PublicKey))
	return a
}
