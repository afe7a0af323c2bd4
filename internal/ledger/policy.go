package ledger

// MintPolicy decides whether caller may mint a certificate for the given
// name record. Implementations must be deterministic.
type MintPolicy interface {
	Authorize(caller Address, name NameRecord) error
}

// MintPolicyFunc adapts a function to MintPolicy.
type MintPolicyFunc func(caller Address, name NameRecord) error

// Authorize implements MintPolicy.
func (f MintPolicyFunc) Authorize(caller Address, name NameRecord) error {
	return f(caller, name)
}

// OwnerOrIssuerPolicy permits the owner of the name record or any
// designated issuer.
type OwnerOrIssuerPolicy struct {
	issuers map[Address]bool
}

// NewOwnerOrIssuerPolicy returns a policy granting the issuer role to the
// given addresses.
func NewOwnerOrIssuerPolicy(issuers ...Address) *OwnerOrIssuerPolicy {
	p := &OwnerOrIssuerPolicy{issuers: make(map[Address]bool, len(issuers))}
	for _, a := range issuers {
		if a != "" {
			p.issuers[a] = true
		}
	}
	return p
}

// Authorize implements MintPolicy.
func (p *OwnerOrIssuerPolicy) Authorize(caller Address, name NameRecord) error {
	if caller != "" && (caller == name.Owner || p.issuers[caller]) {
		return nil
	}
	return &AuthorizationError{
		Caller: caller,
		Action: "mint",
		Reason: "not the owner of the name record or a designated issuer",
	}
}

// AllowAll permits every caller. Useful in tests.
var AllowAll MintPolicy = MintPolicyFunc(func(Address, NameRecord) error { return nil })
