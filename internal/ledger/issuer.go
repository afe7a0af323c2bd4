package ledger

import (
	"strconv"

	"github.com/roach88/dajeum/internal/ir"
)

// NameLookup resolves name records by id. *Registry implements it.
type NameLookup interface {
	Get(id int64) (NameRecord, error)
}

// MintInput carries the caller-supplied fields of mintCertificate.
type MintInput struct {
	Owner    Address
	NameID   int64
	TokenURI string
	ImageURI string
}

// Certificate is a non-fungible record bound to exactly one name record.
type Certificate struct {
	ID       int64   `json:"id"`
	NameID   int64   `json:"name_id"`
	TokenURI string  `json:"token_uri"`
	ImageURI string  `json:"image_uri"`
	Owner    Address `json:"owner"`
}

// Object renders the certificate as an ir.Object.
func (c Certificate) Object() ir.Object {
	return ir.Object{
		"id":        ir.Int(c.ID),
		"name_id":   ir.Int(c.NameID),
		"token_uri": ir.String(c.TokenURI),
		"image_uri": ir.String(c.ImageURI),
		"owner":     ir.String(c.Owner),
	}
}

// IssuerConfig is the deployment-time configuration of the Issuer.
type IssuerConfig struct {
	FirstID int64     `json:"first_id" yaml:"first_id"`
	Issuers []Address `json:"issuers" yaml:"issuers"`
}

// Issuer owns the certificates. The only cross-ledger reference it holds is
// the read-only NameLookup.
type Issuer struct {
	firstID int64
	names   NameLookup
	policy  MintPolicy
	certs   []Certificate
	byName  map[int64][]int64
	sink    EventSink
}

// NewIssuer creates an empty Issuer. A nil policy defaults to
// OwnerOrIssuerPolicy over cfg.Issuers.
func NewIssuer(cfg IssuerConfig, names NameLookup, policy MintPolicy, sink EventSink) *Issuer {
	if cfg.FirstID < 1 {
		cfg.FirstID = 1
	}
	if policy == nil {
		policy = NewOwnerOrIssuerPolicy(cfg.Issuers...)
	}
	return &Issuer{
		firstID: cfg.FirstID,
		names:   names,
		policy:  policy,
		byName:  make(map[int64][]int64),
		sink:    sinkOrDiscard(sink),
	}
}

// Mint validates and issues a certificate for in.NameID.
func (s *Issuer) Mint(in MintInput, caller Address) (int64, error) {
	cert, err := s.validateMint(in, caller)
	if err != nil {
		return 0, err
	}

	cert.ID = s.NextID()
	s.certs = append(s.certs, cert)
	s.byName[cert.NameID] = append(s.byName[cert.NameID], cert.ID)

	s.sink.Emit(EventCertificateMinted, ir.Object{
		"certificate_id": ir.Int(cert.ID),
		"name_id":        ir.Int(cert.NameID),
	})
	return cert.ID, nil
}

func (s *Issuer) validateMint(in MintInput, caller Address) (Certificate, error) {
	rec, err := s.names.Get(in.NameID)
	if err != nil {
		return Certificate{}, err
	}
	if in.Owner == "" {
		return Certificate{}, invalid("owner", "must not be empty")
	}
	if err := s.policy.Authorize(caller, rec); err != nil {
		return Certificate{}, err
	}
	return Certificate{
		NameID:   in.NameID,
		TokenURI: in.TokenURI,
		ImageURI: in.ImageURI,
		Owner:    in.Owner,
	}, nil
}

// Get returns the certificate with the given id.
func (s *Issuer) Get(id int64) (Certificate, error) {
	idx := id - s.firstID
	if idx < 0 || idx >= int64(len(s.certs)) {
		return Certificate{}, &NotFoundError{Kind: "certificate", Key: strconv.FormatInt(id, 10)}
	}
	return s.certs[idx], nil
}

// ByName returns the certificates bound to nameID, ordered by id.
func (s *Issuer) ByName(nameID int64) []Certificate {
	ids := s.byName[nameID]
	out := make([]Certificate, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.certs[id-s.firstID])
	}
	return out
}

// NextID returns the id the next certificate will receive.
func (s *Issuer) NextID() int64 {
	return s.firstID + int64(len(s.certs))
}

// Len returns the number of certificates.
func (s *Issuer) Len() int {
	return len(s.certs)
}
