package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"meltwater/config"
	"meltwater/crypto"
	"meltwater/native/auction"
)

var errExpectation = errors.New("scenario expectation failed")

// Scenario is an ordered list of engine calls read from YAML.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one scenario entry. Amounts are decimal whole units and durations
// use Go syntax.
type Step struct {
	Op          string `yaml:"op"`
	Advance     string `yaml:"advance"`
	Caller      string `yaml:"caller"`
	Beneficiary string `yaml:"beneficiary"`
	To          string `yaml:"to"`
	Amount      string `yaml:"amount"`
	MinOut      string `yaml:"min_out"`
	Ask         string `yaml:"ask"`
	Ratio       string `yaml:"ratio"`
	Rate        string `yaml:"rate"`
	Module      string `yaml:"module"`
	ID          uint64 `yaml:"id"`
	Term        string `yaml:"term"`
	Window      string `yaml:"window"`
	Deadline    string `yaml:"deadline"`
	ExpectError string `yaml:"expect_error"`
}

// LoadScenario decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	var scenario Scenario
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	for i, step := range scenario.Steps {
		if strings.TrimSpace(step.Op) == "" && strings.TrimSpace(step.Advance) == "" {
			return nil, fmt.Errorf("step %d: op required", i+1)
		}
	}
	return &scenario, nil
}

func runReplay(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(replayCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the settlement config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: replay <scenario.yaml>", errUsage)
	}
	scenario, err := LoadScenario(fs.Arg(0))
	if err != nil {
		return err
	}
	e, closer, err := loadEngine(ctx, *configPath, engineOptions{})
	if err != nil {
		return err
	}
	defer closer.Close()
	defer e.Close()
	return e.replay(ctx, scenario, out)
}

// replay runs every step and persists the resulting state even when a step
// fails, since each committed step is already in the store.
func (e *engine) replay(ctx context.Context, scenario *Scenario, out io.Writer) (err error) {
	defer func() {
		if perr := e.persist(); perr != nil && err == nil {
			err = perr
		}
	}()
	for i, step := range scenario.Steps {
		if step.Advance != "" {
			d, perr := time.ParseDuration(step.Advance)
			if perr != nil {
				return fmt.Errorf("step %d: advance: %w", i+1, perr)
			}
			e.clock.Advance(d)
		}
		if step.Op == "" || step.Op == "advance" {
			fmt.Fprintf(out, "%3d advance   now=%d\n", i+1, e.clock.Now())
			continue
		}
		result, stepErr := e.apply(ctx, step)
		switch {
		case step.ExpectError != "" && stepErr == nil:
			return fmt.Errorf("step %d %s: %w: expected error %q", i+1, step.Op, errExpectation, step.ExpectError)
		case step.ExpectError != "" && !strings.Contains(stepErr.Error(), step.ExpectError):
			return fmt.Errorf("step %d %s: %w: got %v", i+1, step.Op, errExpectation, stepErr)
		case step.ExpectError != "":
			fmt.Fprintf(out, "%3d %-18s rejected: %v\n", i+1, step.Op, stepErr)
		case stepErr != nil:
			return fmt.Errorf("step %d %s: %w", i+1, step.Op, stepErr)
		default:
			fmt.Fprintf(out, "%3d %-18s %s\n", i+1, step.Op, result)
		}
	}
	return nil
}

// apply dispatches one step to the controller and describes the result.
func (e *engine) apply(ctx context.Context, step Step) (string, error) {
	switch step.Op {
	case "fund_coin":
		caller, amount, err := e.callerAmount(step)
		if err != nil {
			return "", err
		}
		if err := e.vault.Fund(caller.Raw(), amount); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s coin=%s", caller, formatUnits(e.vault.BalanceOf(caller.Raw()))), nil
	case "reject", "accept":
		caller, err := e.caller(step)
		if err != nil {
			return "", err
		}
		if step.Op == "reject" {
			e.vault.Reject(caller.Raw())
		} else {
			e.vault.Accept(caller.Raw())
		}
		return caller.String(), nil
	case "transfer_ice":
		caller, amount, err := e.callerAmount(step)
		if err != nil {
			return "", err
		}
		to, err := config.ResolveAccount(step.To)
		if err != nil {
			return "", err
		}
		if err := e.ctrl.TransferICE(ctx, caller.Raw(), to.Raw(), amount); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s -> %s ice=%s", caller, to, formatUnits(amount)), nil
	case "swap_h2o_for_ice", "swap_ice_for_h2o":
		return e.applySwap(ctx, step)
	case "initiate_positive":
		caller, amount, err := e.callerAmount(step)
		if err != nil {
			return "", err
		}
		return describeOutcome(e.ctrl.InitiatePositiveAuction(ctx, caller.Raw(), amount))
	case "initiate_negative":
		caller, amount, err := e.callerAmount(step)
		if err != nil {
			return "", err
		}
		ask, err := config.ParseAmount(step.Ask)
		if err != nil {
			return "", err
		}
		return describeOutcome(e.ctrl.InitiateNegativeAuction(ctx, caller.Raw(), amount, ask))
	case "bid", "bid_positive", "bid_negative":
		caller, amount, err := e.callerAmount(step)
		if err != nil {
			return "", err
		}
		bid := e.ctrl.Bid
		if step.Op == "bid_positive" {
			bid = e.ctrl.BidPositive
		} else if step.Op == "bid_negative" {
			bid = e.ctrl.BidNegative
		}
		return describeOutcome(bid(ctx, caller.Raw(), amount))
	case "terminate":
		caller, err := e.caller(step)
		if err != nil {
			return "", err
		}
		return describeOutcome(e.ctrl.TerminateAuction(ctx, caller.Raw()))
	case "claim_rewards":
		caller, err := e.caller(step)
		if err != nil {
			return "", err
		}
		paid, err := e.ctrl.ClaimRewards(ctx, caller.Raw())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s paid=%s", caller, formatUnits(paid)), nil
	case "lock_position":
		return e.applyLock(ctx, step)
	case "claim_position", "redeem_position":
		caller, err := e.caller(step)
		if err != nil {
			return "", err
		}
		release := e.ctrl.ClaimPosition
		if step.Op == "redeem_position" {
			release = e.ctrl.RedeemPosition
		}
		result, err := release(ctx, caller.Raw(), step.ID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("position=%d reward=%s principal=%s redeemed=%t",
			step.ID, formatUnits(result.Reward), formatUnits(result.Principal), result.Redeemed), nil
	case "set_annual_rate":
		rate, err := config.ParseRate(step.Rate)
		if err != nil {
			return "", err
		}
		caller, err := e.adminCaller(step)
		if err != nil {
			return "", err
		}
		if err := e.ctrl.SetAnnualRate(ctx, caller.Raw(), rate); err != nil {
			return "", err
		}
		return "rate=" + rate.FloatString(6), nil
	case "set_anchor_window":
		window, err := time.ParseDuration(step.Window)
		if err != nil {
			return "", err
		}
		caller, err := e.adminCaller(step)
		if err != nil {
			return "", err
		}
		if err := e.ctrl.SetAnchorWindow(ctx, caller.Raw(), window); err != nil {
			return "", err
		}
		return "window=" + window.String(), nil
	case "rescale_pool":
		ratio, err := config.ParseAmount(step.Ratio)
		if err != nil {
			return "", err
		}
		caller, err := e.adminCaller(step)
		if err != nil {
			return "", err
		}
		reserves, err := e.ctrl.RescalePool(ctx, caller.Raw(), ratio)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("reserves=%s/%s", formatUnits(reserves.ReserveA), formatUnits(reserves.ReserveB)), nil
	case "pause", "unpause":
		caller, err := e.adminCaller(step)
		if err != nil {
			return "", err
		}
		toggle := e.ctrl.Pause
		if step.Op == "unpause" {
			toggle = e.ctrl.Unpause
		}
		if err := toggle(ctx, caller.Raw(), step.Module); err != nil {
			return "", err
		}
		return step.Module, nil
	default:
		return "", fmt.Errorf("%w: unknown op %q", errUsage, step.Op)
	}
}

func (e *engine) applySwap(ctx context.Context, step Step) (string, error) {
	caller, amount, err := e.callerAmount(step)
	if err != nil {
		return "", err
	}
	minOut, err := config.ParseAmount(step.MinOut)
	if err != nil {
		return "", err
	}
	deadline := e.clock.Now() + int64(time.Hour/time.Second)
	if step.Deadline != "" {
		d, err := time.ParseDuration(step.Deadline)
		if err != nil {
			return "", fmt.Errorf("deadline: %w", err)
		}
		deadline = e.clock.Now() + int64(d/time.Second)
	}
	swap := e.ctrl.SwapH2OForICE
	if step.Op == "swap_ice_for_h2o" {
		swap = e.ctrl.SwapICEForH2O
	}
	result, err := swap(ctx, caller.Raw(), amount, minOut, deadline)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("in=%s out=%s reserves=%s/%s", formatUnits(result.AmountIn), formatUnits(result.AmountOut),
		formatUnits(result.Reserves.ReserveA), formatUnits(result.Reserves.ReserveB)), nil
}

func (e *engine) applyLock(ctx context.Context, step Step) (string, error) {
	caller, amount, err := e.callerAmount(step)
	if err != nil {
		return "", err
	}
	beneficiary := caller
	if step.Beneficiary != "" {
		if beneficiary, err = config.ResolveAccount(step.Beneficiary); err != nil {
			return "", err
		}
	}
	term, err := time.ParseDuration(step.Term)
	if err != nil {
		return "", fmt.Errorf("term: %w", err)
	}
	position, err := e.ctrl.LockPosition(ctx, caller.Raw(), beneficiary.Raw(), amount, e.clock.Now()+int64(term/time.Second))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("position=%d principal=%s end=%d", position.ID, formatUnits(position.Principal), position.End), nil
}

func (e *engine) caller(step Step) (crypto.Address, error) {
	if step.Caller == "" {
		return crypto.Address{}, fmt.Errorf("%w: caller required", errUsage)
	}
	return config.ResolveAccount(step.Caller)
}

// adminCaller defaults to the configured owner.
func (e *engine) adminCaller(step Step) (crypto.Address, error) {
	if step.Caller == "" {
		return e.owner, nil
	}
	return config.ResolveAccount(step.Caller)
}

func (e *engine) callerAmount(step Step) (crypto.Address, *big.Int, error) {
	caller, err := e.caller(step)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	amount, err := config.ParseAmount(step.Amount)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	return caller, amount, nil
}

func describeOutcome(outcome *auction.Outcome, err error) (string, error) {
	if err != nil {
		return "", err
	}
	round := outcome.Round
	desc := fmt.Sprintf("%s escrow=%s leading=%s by %s", round.Kind, formatUnits(round.EscrowAmount),
		formatUnits(round.LeadingBid), accountString(round.LeadingBidder))
	if outcome.Settled {
		desc += " settled"
		if outcome.RefundsFailed > 0 {
			desc += fmt.Sprintf(" refunds_failed=%d", outcome.RefundsFailed)
		}
	}
	return desc, nil
}
