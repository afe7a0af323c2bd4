package engine

import (
	"fmt"

	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
)

// execute decodes op.Args and calls the ledger. Every error it returns is a
// ledger.CodedError.
func execute(st *ledger.State, op ir.Operation) (ir.Object, error) {
	caller := ledger.Address(op.Caller)
	if caller == "" {
		return nil, &ledger.AuthorizationError{Action: string(op.Action), Reason: "caller identity required"}
	}
	a := args(op.Args)

	switch op.Action {
	case ir.ActionRegisterName:
		in := ledger.NameInput{
			FullName:   a.str("full_name"),
			BirthYear:  a.num("birth_year"),
			BirthMonth: a.num("birth_month"),
			BirthDay:   a.num("birth_day"),
			Gender:     a.str("gender"),
		}
		if a.err != nil {
			return nil, a.err
		}
		id, err := st.Names.Register(in, caller)
		if err != nil {
			return nil, err
		}
		return ir.Object{"id": ir.Int(id)}, nil

	case ir.ActionBatchRegisterNames:
		in := ledger.BatchInput{
			Names:   a.strs("names"),
			Years:   a.nums("years"),
			Months:  a.nums("months"),
			Days:    a.nums("days"),
			Genders: a.strs("genders"),
		}
		if a.err != nil {
			return nil, a.err
		}
		span, err := st.Names.RegisterBatch(in, caller)
		if err != nil {
			return nil, err
		}
		return ir.Object{"start_id": ir.Int(span.Start), "end_id": ir.Int(span.End)}, nil

	case ir.ActionMintCertificate:
		in := ledger.MintInput{
			Owner:    ledger.Address(a.str("owner")),
			NameID:   a.num("name_id"),
			TokenURI: a.str("token_uri"),
			ImageURI: a.str("image_uri"),
		}
		if a.err != nil {
			return nil, a.err
		}
		id, err := st.Certificates.Mint(in, caller)
		if err != nil {
			return nil, err
		}
		return ir.Object{"certificate_id": ir.Int(id)}, nil

	case ir.ActionTransfer:
		from := caller
		if a.has("from") {
			from = ledger.Address(a.str("from"))
		}
		to := ledger.Address(a.str("to"))
		amount := a.num("amount")
		if a.err != nil {
			return nil, a.err
		}
		if err := st.Tokens.Transfer(from, to, amount, caller); err != nil {
			return nil, err
		}
		return ir.Object{"amount": ir.Int(amount)}, nil

	case ir.ActionApprove:
		spender := ledger.Address(a.str("spender"))
		amount := a.num("amount")
		if a.err != nil {
			return nil, a.err
		}
		if err := st.Tokens.Approve(spender, amount, caller); err != nil {
			return nil, err
		}
		return ir.Object{"allowance": ir.Int(amount)}, nil

	case ir.ActionSetServicePrice:
		name := a.str("service_name")
		price := a.num("price")
		if a.err != nil {
			return nil, a.err
		}
		if err := st.Tokens.SetServicePrice(name, price, caller); err != nil {
			return nil, err
		}
		return ir.Object{"price": ir.Int(price)}, nil

	case ir.ActionPayForService:
		name := a.str("service_name")
		if a.err != nil {
			return nil, a.err
		}
		price, err := st.Tokens.PayForService(name, caller)
		if err != nil {
			return nil, err
		}
		return ir.Object{"price": ir.Int(price)}, nil

	default:
		return nil, &ledger.ValidationError{Field: "action", Index: -1, Reason: fmt.Sprintf("unknown action %q", op.Action)}
	}
}

// argReader decodes typed fields from an args object, keeping the first
// failure.
type argReader struct {
	obj ir.Object
	err error
}

func args(obj ir.Object) *argReader {
	return &argReader{obj: obj}
}

func (r *argReader) fail(key, reason string) {
	if r.err == nil {
		r.err = &ledger.ValidationError{Field: key, Index: -1, Reason: reason}
	}
}

func (r *argReader) has(key string) bool {
	_, ok := r.obj[key]
	return ok
}

func (r *argReader) lookup(key string) (ir.Value, bool) {
	v, ok := r.obj[key]
	if !ok {
		r.fail(key, "missing argument")
	}
	return v, ok
}

func (r *argReader) str(key string) string {
	v, ok := r.lookup(key)
	if !ok {
		return ""
	}
	s, ok := v.(ir.String)
	if !ok {
		r.fail(key, fmt.Sprintf("expected string, got %T", v))
	}
	return string(s)
}

func (r *argReader) num(key string) int64 {
	v, ok := r.lookup(key)
	if !ok {
		return 0
	}
	n, ok := v.(ir.Int)
	if !ok {
		r.fail(key, fmt.Sprintf("expected integer, got %T", v))
	}
	return int64(n)
}

func (r *argReader) array(key string) ir.Array {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	arr, ok := v.(ir.Array)
	if !ok {
		r.fail(key, fmt.Sprintf("expected array, got %T", v))
	}
	return arr
}

func (r *argReader) strs(key string) []string {
	arr := r.array(key)
	out := make([]string, len(arr))
	for i, v := range arr {
		s, ok := v.(ir.String)
		if !ok {
			r.fail(key, fmt.Sprintf("element %d: expected string, got %T", i, v))
		}
		out[i] = string(s)
	}
	return out
}

func (r *argReader) nums(key string) []int64 {
	arr := r.array(key)
	out := make([]int64, len(arr))
	for i, v := range arr {
		n, ok := v.(ir.Int)
		if !ok {
			r.fail(key, fmt.Sprintf("element %d: expected integer, got %T", i, v))
		}
		out[i] = int64(n)
	}
	return out
}
