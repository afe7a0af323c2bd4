package ledger

import (
	"strconv"
	"strings"

	"github.com/roach88/dajeum/internal/ir"
)

// Address is an authenticated caller or account identity.
type Address string

// DefaultGenders are the labels offered by the registration form.
var DefaultGenders = []string{"여", "남"}

// NameInput carries the caller-supplied fields of one registration.
type NameInput struct {
	FullName   string
	BirthYear  int64
	BirthMonth int64
	BirthDay   int64
	Gender     string
}

// NameRecord is an immutable identity record.
type NameRecord struct {
	ID         int64   `json:"id"`
	FullName   string  `json:"full_name"`
	BirthYear  int64   `json:"birth_year"`
	BirthMonth int64   `json:"birth_month"`
	BirthDay   int64   `json:"birth_day"`
	Gender     string  `json:"gender"`
	Owner      Address `json:"owner"`
}

// Object renders the record as an ir.Object.
func (r NameRecord) Object() ir.Object {
	return ir.Object{
		"id":          ir.Int(r.ID),
		"full_name":   ir.String(r.FullName),
		"birth_year":  ir.Int(r.BirthYear),
		"birth_month": ir.Int(r.BirthMonth),
		"birth_day":   ir.Int(r.BirthDay),
		"gender":      ir.String(r.Gender),
		"owner":       ir.String(r.Owner),
	}
}

// BatchInput carries five parallel sequences, one entry per registration.
type BatchInput struct {
	Names   []string
	Years   []int64
	Months  []int64
	Days    []int64
	Genders []string
}

// Len returns the number of entries if all sequences agree, or -1.
func (b BatchInput) Len() int {
	n := len(b.Names)
	if len(b.Years) != n || len(b.Months) != n || len(b.Days) != n || len(b.Genders) != n {
		return -1
	}
	return n
}

// IDRange is an inclusive block of allocated ids. An empty range has
// End == Start-1.
type IDRange struct {
	Start int64 `json:"start_id"`
	End   int64 `json:"end_id"`
}

// Len returns the number of ids in the range.
func (r IDRange) Len() int64 { return r.End - r.Start + 1 }

// Empty reports whether the range holds no ids.
func (r IDRange) Empty() bool { return r.End < r.Start }

// RegistryConfig is the deployment-time configuration of the Registry.
type RegistryConfig struct {
	FirstID int64    `json:"first_id" yaml:"first_id"`
	Genders []string `json:"genders" yaml:"genders"`
}

// Registry owns the identity records. Records live in an arena indexed by
// id - firstID; ids are never reused.
type Registry struct {
	firstID int64
	genders []string
	known   map[string]bool
	records []NameRecord
	sink    EventSink
}

// NewRegistry creates an empty Registry. A FirstID below 1 defaults to 1
// and an empty gender list defaults to DefaultGenders.
func NewRegistry(cfg RegistryConfig, sink EventSink) *Registry {
	if cfg.FirstID < 1 {
		cfg.FirstID = 1
	}
	genders := cfg.Genders
	if len(genders) == 0 {
		genders = DefaultGenders
	}
	known := make(map[string]bool, len(genders))
	for _, g := range genders {
		known[g] = true
	}
	return &Registry{
		firstID: cfg.FirstID,
		genders: append([]string(nil), genders...),
		known:   known,
		sink:    sinkOrDiscard(sink),
	}
}

// Register validates one registration and, on success, records it under the
// next sequential id owned by caller.
func (r *Registry) Register(in NameInput, caller Address) (int64, error) {
	rec, err := validateName(in, r.known)
	if err != nil {
		return 0, err
	}

	rec.ID = r.NextID()
	rec.Owner = caller
	r.records = append(r.records, rec)

	r.sink.Emit(EventNameRegistered, ir.Object{
		"id":        ir.Int(rec.ID),
		"full_name": ir.String(rec.FullName),
	})
	return rec.ID, nil
}

// RegisterBatch registers every entry of the batch or none of them. The
// whole batch is validated before any id is allocated, so a failing entry
// consumes no id space.
func (r *Registry) RegisterBatch(in BatchInput, caller Address) (IDRange, error) {
	recs, err := validateBatch(in, r.known)
	if err != nil {
		return IDRange{}, err
	}

	start := r.NextID()
	span := IDRange{Start: start, End: start + int64(len(recs)) - 1}
	if span.Empty() {
		return span, nil
	}

	for i := range recs {
		recs[i].ID = start + int64(i)
		recs[i].Owner = caller
	}
	r.records = append(r.records, recs...)

	r.sink.Emit(EventNamesBatchRegistered, ir.Object{
		"start_id": ir.Int(span.Start),
		"end_id":   ir.Int(span.End),
	})
	return span, nil
}

// Get returns the record with the given id.
func (r *Registry) Get(id int64) (NameRecord, error) {
	idx := id - r.firstID
	if idx < 0 || idx >= int64(len(r.records)) {
		return NameRecord{}, &NotFoundError{Kind: "name", Key: strconv.FormatInt(id, 10)}
	}
	return r.records[idx], nil
}

// NextID returns the id the next registration will receive.
func (r *Registry) NextID() int64 {
	return r.firstID + int64(len(r.records))
}

// Len returns the number of records.
func (r *Registry) Len() int {
	return len(r.records)
}

// Genders returns the recognized gender labels in configured order.
func (r *Registry) Genders() []string {
	return append([]string(nil), r.genders...)
}

// validateName checks one registration. Calendar validity is deliberately
// not cross-checked: day 30 of month 2 is accepted.
func validateName(in NameInput, genders map[string]bool) (NameRecord, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return NameRecord{}, invalid("full_name", "must not be empty")
	}
	if in.BirthMonth < 1 || in.BirthMonth > 12 {
		return NameRecord{}, invalid("birth_month", "must be between 1 and 12, got "+strconv.FormatInt(in.BirthMonth, 10))
	}
	if in.BirthDay < 1 || in.BirthDay > 31 {
		return NameRecord{}, invalid("birth_day", "must be between 1 and 31, got "+strconv.FormatInt(in.BirthDay, 10))
	}
	if !genders[in.Gender] {
		return NameRecord{}, invalid("gender", "unrecognized label "+strconv.Quote(in.Gender))
	}
	return NameRecord{
		FullName:   in.FullName,
		BirthYear:  in.BirthYear,
		BirthMonth: in.BirthMonth,
		BirthDay:   in.BirthDay,
		Gender:     in.Gender,
	}, nil
}

func validateBatch(in BatchInput, genders map[string]bool) ([]NameRecord, error) {
	n := in.Len()
	if n < 0 {
		return nil, invalid("batch", "names, years, months, days and genders must have equal length")
	}
	recs := make([]NameRecord, n)
	for i := 0; i < n; i++ {
		rec, err := validateName(NameInput{
			FullName:   in.Names[i],
			BirthYear:  in.Years[i],
			BirthMonth: in.Months[i],
			BirthDay:   in.Days[i],
			Gender:     in.Genders[i],
		}, genders)
		if err != nil {
			ve := err.(*ValidationError)
			ve.Index = i
			return nil, ve
		}
		recs[i] = rec
	}
	return recs, nil
}
