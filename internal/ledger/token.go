package ledger

import (
	"fmt"
	"sort"

	"github.com/roach88/dajeum/internal/ir"
)

// TokenGenesis is the deployment-time configuration of the TokenLedger.
// Amounts are minor units; Decimals only affects display.
type TokenGenesis struct {
	Symbol        string           `json:"symbol" yaml:"symbol"`
	Decimals      int32            `json:"decimals" yaml:"decimals"`
	InitialSupply int64            `json:"initial_supply" yaml:"initial_supply"`
	Treasury      Address          `json:"treasury" yaml:"treasury"`
	Admin         Address          `json:"admin" yaml:"admin"`
	Prices        map[string]int64 `json:"prices" yaml:"prices"`
}

// Validate checks the genesis values.
func (g TokenGenesis) Validate() error {
	if g.InitialSupply < 0 {
		return invalid("initial_supply", "must not be negative")
	}
	if g.Treasury == "" {
		return invalid("treasury", "must not be empty")
	}
	if g.Decimals < 0 || g.Decimals > MaxDecimals {
		return invalid("decimals", fmt.Sprintf("must be between 0 and %d", MaxDecimals))
	}
	for name, price := range g.Prices {
		if name == "" {
			return invalid("prices", "service name must not be empty")
		}
		if price < 0 {
			return invalid("prices", fmt.Sprintf("price of %q must not be negative", name))
		}
	}
	return nil
}

// TokenLedger owns balances, allowances and service prices. The sum of all
// balances equals InitialSupply for the lifetime of the ledger.
type TokenLedger struct {
	symbol     string
	decimals   int32
	supply     int64
	treasury   Address
	admin      Address
	balances   map[Address]int64
	allowances map[Address]map[Address]int64
	prices     map[string]int64
	sink       EventSink
}

// NewTokenLedger mints g.InitialSupply into the treasury and registers the
// initial service prices. An empty Admin defaults to the treasury.
func NewTokenLedger(g TokenGenesis, sink EventSink) (*TokenLedger, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	admin := g.Admin
	if admin == "" {
		admin = g.Treasury
	}
	t := &TokenLedger{
		symbol:     g.Symbol,
		decimals:   g.Decimals,
		supply:     g.InitialSupply,
		treasury:   g.Treasury,
		admin:      admin,
		balances:   map[Address]int64{g.Treasury: g.InitialSupply},
		allowances: make(map[Address]map[Address]int64),
		prices:     make(map[string]int64, len(g.Prices)),
		sink:       sinkOrDiscard(sink),
	}
	for name, price := range g.Prices {
		t.prices[name] = price
	}
	return t, nil
}

// BalanceOf returns the balance of a; unknown accounts hold zero.
func (t *TokenLedger) BalanceOf(a Address) int64 {
	return t.balances[a]
}

// TotalSupply returns the genesis supply.
func (t *TokenLedger) TotalSupply() int64 { return t.supply }

// Symbol returns the display symbol.
func (t *TokenLedger) Symbol() string { return t.symbol }

// Decimals returns the display precision.
func (t *TokenLedger) Decimals() int32 { return t.decimals }

// Admin returns the identity allowed to set prices.
func (t *TokenLedger) Admin() Address { return t.admin }

// Treasury returns the account receiving service payments.
func (t *TokenLedger) Treasury() Address { return t.treasury }

// Format renders amount with the ledger's decimals and symbol.
func (t *TokenLedger) Format(amount int64) string {
	if t.symbol == "" {
		return FormatAmount(amount, t.decimals)
	}
	return FormatAmount(amount, t.decimals) + " " + t.symbol
}

// transferPlan is a validated transfer. spender is set when a delegate
// moves funds on behalf of from.
type transferPlan struct {
	from    Address
	to      Address
	amount  int64
	spender Address
}

// Transfer moves amount from from to to. The caller must be from or a
// delegate whose allowance covers amount.
func (t *TokenLedger) Transfer(from, to Address, amount int64, caller Address) error {
	plan, err := t.validateTransfer(from, to, amount, caller)
	if err != nil {
		return err
	}
	t.applyTransfer(plan)
	t.sink.Emit(EventTransfer, ir.Object{
		"from":   ir.String(from),
		"to":     ir.String(to),
		"amount": ir.Int(amount),
	})
	return nil
}

func (t *TokenLedger) validateTransfer(from, to Address, amount int64, caller Address) (transferPlan, error) {
	if amount < 0 {
		return transferPlan{}, invalid("amount", "must not be negative")
	}
	if from == "" {
		return transferPlan{}, invalid("from", "must not be empty")
	}
	if to == "" {
		return transferPlan{}, invalid("to", "must not be empty")
	}

	plan := transferPlan{from: from, to: to, amount: amount}
	if caller != from {
		allowed := t.allowances[from][caller]
		if allowed < amount {
			return transferPlan{}, &AuthorizationError{
				Caller: caller,
				Action: "transfer from " + string(from),
				Reason: fmt.Sprintf("allowance %d does not cover %d", allowed, amount),
			}
		}
		plan.spender = caller
	}

	if available := t.balances[from]; available < amount {
		return transferPlan{}, &InsufficientBalanceError{Account: from, Required: amount, Available: available}
	}
	return plan, nil
}

func (t *TokenLedger) applyTransfer(p transferPlan) {
	if p.amount == 0 {
		return
	}
	t.balances[p.from] -= p.amount
	t.balances[p.to] += p.amount
	if p.spender != "" {
		t.allowances[p.from][p.spender] -= p.amount
	}
}

// Approve sets the amount spender may transfer out of caller's account.
// A new approval replaces the previous one.
func (t *TokenLedger) Approve(spender Address, amount int64, caller Address) error {
	if caller == "" {
		return invalid("owner", "must not be empty")
	}
	if spender == "" {
		return invalid("spender", "must not be empty")
	}
	if amount < 0 {
		return invalid("amount", "must not be negative")
	}

	granted := t.allowances[caller]
	if granted == nil {
		granted = make(map[Address]int64)
		t.allowances[caller] = granted
	}
	granted[spender] = amount

	t.sink.Emit(EventApproval, ir.Object{
		"owner":   ir.String(caller),
		"spender": ir.String(spender),
		"amount":  ir.Int(amount),
	})
	return nil
}

// Allowance returns the amount spender may still transfer out of owner.
func (t *TokenLedger) Allowance(owner, spender Address) int64 {
	return t.allowances[owner][spender]
}

// SetServicePrice overwrites the price of name. Admin only.
func (t *TokenLedger) SetServicePrice(name string, price int64, caller Address) error {
	if caller != t.admin {
		return &AuthorizationError{Caller: caller, Action: "set service price", Reason: "administrator only"}
	}
	if name == "" {
		return invalid("service_name", "must not be empty")
	}
	if price < 0 {
		return invalid("price", "must not be negative")
	}

	t.prices[name] = price
	t.sink.Emit(EventServicePriceSet, ir.Object{
		"service_name": ir.String(name),
		"price":        ir.Int(price),
	})
	return nil
}

// ServicePrice returns the price of name. A service that was never priced
// is reported as NotFoundError rather than a zero default.
func (t *TokenLedger) ServicePrice(name string) (int64, error) {
	price, ok := t.prices[name]
	if !ok {
		return 0, &NotFoundError{Kind: "service", Key: name}
	}
	return price, nil
}

// PayForService transfers the price of name from caller to the treasury
// and returns the price paid. Only ServicePaid is emitted.
func (t *TokenLedger) PayForService(name string, caller Address) (int64, error) {
	price, err := t.ServicePrice(name)
	if err != nil {
		return 0, err
	}
	plan, err := t.validateTransfer(caller, t.treasury, price, caller)
	if err != nil {
		return 0, err
	}

	t.applyTransfer(plan)
	t.sink.Emit(EventServicePaid, ir.Object{
		"payer":        ir.String(caller),
		"service_name": ir.String(name),
		"price":        ir.Int(price),
	})
	return price, nil
}

// Services returns the priced service names in sorted order.
func (t *TokenLedger) Services() []string {
	names := make([]string, 0, len(t.prices))
	for name := range t.prices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Accounts returns every account with a non-zero balance, sorted.
func (t *TokenLedger) Accounts() []Address {
	out := make([]Address, 0, len(t.balances))
	for a, b := range t.balances {
		if b != 0 {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SumBalances adds up every balance. Equal to TotalSupply at all times.
func (t *TokenLedger) SumBalances() int64 {
	var sum int64
	for _, b := range t.balances {
		sum += b
	}
	return sum
}
