package ledger

import (
	"github.com/roach88/dajeum/internal/ir"
)

// Default genesis values, matching the reference deployment.
const (
	DefaultSymbol        = "DJM"
	DefaultDecimals      = 6
	DefaultInitialSupply = 1_000_000 * 1_000_000 // 1,000,000 DJM in minor units
	DefaultNamingPrice   = 10 * 1_000_000        // 10 DJM
	DefaultDeployer      = Address("deployer")
	ServiceNaming        = "naming"
)

// Genesis is the complete deployment-time configuration. It is supplied once
// at construction and recorded alongside the log so replay can rebuild the
// identical initial state.
type Genesis struct {
	Identity    RegistryConfig `json:"identity" yaml:"identity"`
	Certificate IssuerConfig   `json:"certificate" yaml:"certificate"`
	Token       TokenGenesis   `json:"token" yaml:"token"`
}

// DefaultGenesis returns the genesis used when no configuration is given.
func DefaultGenesis() Genesis {
	return Genesis{
		Identity:    RegistryConfig{FirstID: 1, Genders: append([]string(nil), DefaultGenders...)},
		Certificate: IssuerConfig{FirstID: 1},
		Token: TokenGenesis{
			Symbol:        DefaultSymbol,
			Decimals:      DefaultDecimals,
			InitialSupply: DefaultInitialSupply,
			Treasury:      DefaultDeployer,
			Admin:         DefaultDeployer,
			Prices:        map[string]int64{ServiceNaming: DefaultNamingPrice},
		},
	}
}

// Object renders the genesis as an ir.Object. Its canonical JSON decodes
// back into an equal Genesis with encoding/json.
func (g Genesis) Object() ir.Object {
	issuers := make([]string, len(g.Certificate.Issuers))
	for i, a := range g.Certificate.Issuers {
		issuers[i] = string(a)
	}
	prices := make(ir.Object, len(g.Token.Prices))
	for name, p := range g.Token.Prices {
		prices[name] = ir.Int(p)
	}
	genders := g.Identity.Genders
	if genders == nil {
		genders = []string{}
	}
	return ir.Object{
		"identity": ir.Object{
			"first_id": ir.Int(g.Identity.FirstID),
			"genders":  ir.Strings(genders),
		},
		"certificate": ir.Object{
			"first_id": ir.Int(g.Certificate.FirstID),
			"issuers":  ir.Strings(issuers),
		},
		"token": ir.Object{
			"symbol":         ir.String(g.Token.Symbol),
			"decimals":       ir.Int(g.Token.Decimals),
			"initial_supply": ir.Int(g.Token.InitialSupply),
			"treasury":       ir.String(g.Token.Treasury),
			"admin":          ir.String(g.Token.Admin),
			"prices":         prices,
		},
	}
}

// Validate checks every section of the genesis.
func (g Genesis) Validate() error {
	if g.Identity.FirstID < 0 {
		return invalid("identity.first_id", "must not be negative")
	}
	if g.Certificate.FirstID < 0 {
		return invalid("certificate.first_id", "must not be negative")
	}
	for _, label := range g.Identity.Genders {
		if label == "" {
			return invalid("identity.genders", "labels must not be empty")
		}
	}
	return g.Token.Validate()
}

// Option configures a State.
type Option func(*stateOptions)

type stateOptions struct {
	sink   EventSink
	policy MintPolicy
}

// WithSink routes every emitted event to sink.
func WithSink(sink EventSink) Option {
	return func(o *stateOptions) { o.sink = sink }
}

// WithMintPolicy replaces the default OwnerOrIssuerPolicy.
func WithMintPolicy(p MintPolicy) Option {
	return func(o *stateOptions) { o.policy = p }
}

// State bundles the three ledgers built from one genesis and sharing one
// event sink.
type State struct {
	Names        *Registry
	Certificates *Issuer
	Tokens       *TokenLedger
}

// NewState builds the combined ledger state.
func NewState(g Genesis, opts ...Option) (*State, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	var o stateOptions
	for _, opt := range opts {
		opt(&o)
	}

	names := NewRegistry(g.Identity, o.sink)
	tokens, err := NewTokenLedger(g.Token, o.sink)
	if err != nil {
		return nil, err
	}
	return &State{
		Names:        names,
		Certificates: NewIssuer(g.Certificate, names, o.policy, o.sink),
		Tokens:       tokens,
	}, nil
}

// Snapshot is a deterministic summary of State. Two states built from the
// same genesis and the same operations have equal snapshots.
type Snapshot struct {
	Names             int               `json:"names"`
	NextNameID        int64             `json:"next_name_id"`
	Certificates      int               `json:"certificates"`
	NextCertificateID int64             `json:"next_certificate_id"`
	TotalSupply       int64             `json:"total_supply"`
	Balances          map[Address]int64 `json:"balances"`
	Prices            map[string]int64  `json:"prices"`
}

// Snapshot summarizes the current state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Names:             s.Names.Len(),
		NextNameID:        s.Names.NextID(),
		Certificates:      s.Certificates.Len(),
		NextCertificateID: s.Certificates.NextID(),
		TotalSupply:       s.Tokens.TotalSupply(),
		Balances:          make(map[Address]int64),
		Prices:            make(map[string]int64),
	}
	for _, a := range s.Tokens.Accounts() {
		snap.Balances[a] = s.Tokens.BalanceOf(a)
	}
	for _, name := range s.Tokens.Services() {
		snap.Prices[name], _ = s.Tokens.ServicePrice(name)
	}
	return snap
}

// Object renders the snapshot as an ir.Object.
func (s Snapshot) Object() ir.Object {
	balances := make(ir.Object, len(s.Balances))
	for a, b := range s.Balances {
		balances[string(a)] = ir.Int(b)
	}
	prices := make(ir.Object, len(s.Prices))
	for name, p := range s.Prices {
		prices[name] = ir.Int(p)
	}
	return ir.Object{
		"names":               ir.Int(s.Names),
		"next_name_id":        ir.Int(s.NextNameID),
		"certificates":        ir.Int(s.Certificates),
		"next_certificate_id": ir.Int(s.NextCertificateID),
		"total_supply":        ir.Int(s.TotalSupply),
		"balances":            balances,
		"prices":              prices,
	}
}
