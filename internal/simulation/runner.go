package simulation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/issuance"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/market"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/reporting"
	"token-launchpad/internal/storage"
	"token-launchpad/internal/storage/memory"
	"token-launchpad/internal/verification"
)

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Index  int    `json:"index"`
	Op     string `json:"op"`
	By     string `json:"by"`
	OK     bool   `json:"ok"`               // step matched its expectation
	Error  string `json:"error,omitempty"`  // engine error, if any
	Detail string `json:"detail,omitempty"` // human-readable effect
}

// Result is the outcome of a scenario run.
type Result struct {
	Scenario     string
	Steps        []StepResult
	Failed       int // steps whose outcome did not match expectation
	Events       []domain.Event
	Report       *reporting.Report
	Verification *verification.Report
	Chain        *verification.ChainReport
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	// EventStore and TradeStore default to fresh in-memory stores per run.
	EventStore storage.EventStore
	TradeStore storage.TradeStore
	Logger     *log.Logger
}

// Runner executes scenarios against in-process engines.
type Runner struct {
	eventStore storage.EventStore
	tradeStore storage.TradeStore
	logger     *log.Logger
}

// NewRunner creates a scenario runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		eventStore: opts.EventStore,
		tradeStore: opts.TradeStore,
		logger:     logger,
	}
}

// run is the per-scenario engine set.
type run struct {
	sc        *Scenario
	clock     int64
	registry  *registry.Registry
	coord     *issuance.Coordinator
	directory *market.Directory
	base      *ledger.Ledger
	requests  map[string]domain.RequestID
	markets   map[string]domain.Account
}

func (r *run) now() int64 { return r.clock }

// Run executes sc step by step. A step that fails is recorded, not fatal;
// only a malformed scenario returns an error.
// Steps:
//  1. Build stores, event bus and engines with a scripted clock
//  2. Mint genesis balances
//  3. Execute each step and compare with its expectation
//  4. Reconcile markets and verify the audit chain
//  5. Generate the report
func (rn *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	params, err := sc.marketParams()
	if err != nil {
		return nil, err
	}

	// 1. Stores, bus and engines
	eventStore := rn.eventStore
	if eventStore == nil {
		eventStore = memory.NewEventStore()
	}
	tradeStore := rn.tradeStore
	if tradeStore == nil {
		tradeStore = memory.NewTradeStore()
	}

	st := &run{
		sc:       sc,
		clock:    sc.StartTime,
		requests: make(map[string]domain.RequestID),
		markets:  make(map[string]domain.Account),
	}

	collector := events.NewCollector()
	bus := events.NewBus(
		events.NewRecorder(events.RecorderOptions{Store: eventStore, Logger: rn.logger, Now: st.now}),
		events.NewTradeRecorder(tradeStore, rn.logger),
		collector,
	)

	admins := make([]domain.Account, len(sc.Admins))
	for i, name := range sc.Admins {
		admins[i] = ActorAccount(name)
	}
	st.registry, err = registry.New(registry.Options{
		Owner:     ActorAccount(sc.Owner),
		Admins:    admins,
		Threshold: sc.Threshold,
		Sink:      bus,
		Now:       st.now,
		Logger:    rn.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	// 2. Genesis
	st.base = ledger.New("BASE")
	for _, name := range sc.genesisActors() {
		amount, err := domain.ParseUnits(sc.Genesis[name])
		if err != nil {
			return nil, fmt.Errorf("%w: genesis %s: %v", ErrInvalidScenario, name, err)
		}
		if err := st.base.Mint(ActorAccount(name), amount); err != nil {
			return nil, fmt.Errorf("%w: genesis %s: %v", ErrInvalidScenario, name, err)
		}
	}

	st.directory = market.NewDirectory()
	st.coord, err = issuance.New(issuance.Options{
		Registry:  st.registry,
		Directory: st.directory,
		Base:      st.base,
		Params:    params,
		ProgramID: idhash.DefaultProgramID,
		Sink:      bus,
		Now:       st.now,
		Logger:    rn.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	// 3. Steps
	res := &Result{Scenario: sc.Name}
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st.clock = sc.StartTime + int64(i+1)*stepMs(sc)

		detail, stepErr := st.apply(ctx, step)
		sr := StepResult{Index: i + 1, Op: step.Op, By: step.By, Detail: detail}
		if stepErr != nil {
			sr.Error = stepErr.Error()
		}
		sr.OK = matchesExpectation(step, stepErr)
		if !sr.OK {
			res.Failed++
			rn.logger.Printf("step %d (%s by %s) did not match expectation: err=%v expect=%q",
				sr.Index, step.Op, step.By, stepErr, step.ExpectError)
		}
		res.Steps = append(res.Steps, sr)
	}
	res.Events = collector.Events()

	// 4. Reconciliation and audit chain
	reconciler := verification.NewReconciler(verification.ReconcilerOptions{
		Directory: st.directory,
		Base:      st.base,
		Trades:    tradeStore,
	})
	res.Verification, err = reconciler.VerifyAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	res.Chain, err = verification.VerifyChain(ctx, eventStore)
	if err != nil {
		return nil, fmt.Errorf("verify chain: %w", err)
	}

	// 5. Report
	end := time.UnixMilli(st.clock).UTC()
	res.Report, err = reporting.NewGenerator(reporting.GeneratorOptions{
		Registry:  st.registry,
		Directory: st.directory,
		Trades:    tradeStore,
		Verifier:  reconciler,
	}).WithClock(func() time.Time { return end }).Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	return res, nil
}

func stepMs(sc *Scenario) int64 {
	if sc.StepMs > 0 {
		return sc.StepMs
	}
	return 1000
}

func matchesExpectation(step Step, err error) bool {
	if step.ExpectError == "" {
		return err == nil
	}
	return err != nil && strings.Contains(err.Error(), step.ExpectError)
}

// apply executes one step against the engines.
func (r *run) apply(ctx context.Context, step Step) (string, error) {
	by := ActorAccount(step.By)

	switch step.Op {
	case OpSubmit:
		id, err := r.registry.Submit(ctx, by, step.Name, step.Symbol)
		if err != nil {
			return "", err
		}
		r.requests[step.Request] = id
		return fmt.Sprintf("request %s submitted as %s", step.Request, id), nil

	case OpApprove:
		id, err := r.requestID(step.Request)
		if err != nil {
			return "", err
		}
		req, err := r.registry.Approve(ctx, by, id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("request %s has %d approvals (%s)", step.Request, req.Approvals, req.Status), nil

	case OpReject:
		id, err := r.requestID(step.Request)
		if err != nil {
			return "", err
		}
		if _, err := r.registry.Reject(ctx, by, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("request %s rejected", step.Request), nil

	case OpIssue:
		id, err := r.requestID(step.Request)
		if err != nil {
			return "", err
		}
		payment, err := parseStepAmount(step.Amount)
		if err != nil {
			return "", err
		}
		out, err := r.coord.Issue(ctx, by, id, payment)
		if err != nil {
			return "", err
		}
		r.markets[step.Request] = out.Market.Address()
		detail := fmt.Sprintf("market %s issued at %s", out.Market.Symbol(), out.Market.Address())
		if out.Purchase != nil {
			detail += fmt.Sprintf(", creator bought %s", domain.FormatUnits(out.Purchase.TokenAmount))
		}
		return detail, nil

	case OpBuy:
		m, err := r.market(step.Request)
		if err != nil {
			return "", err
		}
		payment, err := parseStepAmount(step.Amount)
		if err != nil {
			return "", err
		}
		beneficiary := by
		if step.For != "" {
			beneficiary = ActorAccount(step.For)
		}
		t, err := m.Buy(ctx, by, beneficiary, payment)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("bought %s %s for %s", domain.FormatUnits(t.TokenAmount), m.Symbol(), domain.FormatUnits(t.BaseAmount)), nil

	case OpSell:
		m, err := r.market(step.Request)
		if err != nil {
			return "", err
		}
		amount, err := parseStepAmount(step.Amount)
		if err != nil {
			return "", err
		}
		t, err := m.Sell(ctx, by, amount)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("sold %s %s for %s", domain.FormatUnits(t.TokenAmount), m.Symbol(), domain.FormatUnits(t.BaseAmount)), nil

	case OpReconfigure:
		admins := make([]domain.Account, len(step.Admins))
		for i, name := range step.Admins {
			admins[i] = ActorAccount(name)
		}
		if err := r.registry.Reconfigure(ctx, by, admins, step.Threshold); err != nil {
			return "", err
		}
		return fmt.Sprintf("admin set now %d admins, threshold %d", len(admins), step.Threshold), nil
	}
	return "", fmt.Errorf("%w: unknown op %q", ErrInvalidScenario, step.Op)
}

func (r *run) requestID(label string) (domain.RequestID, error) {
	id, ok := r.requests[label]
	if !ok {
		return "", fmt.Errorf("%w: request %q was never submitted", ErrInvalidScenario, label)
	}
	return id, nil
}

func (r *run) market(label string) (*market.Market, error) {
	addr, ok := r.markets[label]
	if !ok {
		return nil, fmt.Errorf("%w: request %q has no market", ErrInvalidScenario, label)
	}
	return r.directory.Get(addr)
}

func parseStepAmount(s string) (sdkmath.Int, error) {
	if s == "" {
		return sdkmath.ZeroInt(), nil
	}
	return domain.ParseUnits(s)
}
