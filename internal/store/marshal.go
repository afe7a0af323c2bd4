package store

import (
	"fmt"

	"github.com/roach88/dajeum/internal/ir"
)

// marshalObject converts an ir.Object to canonical JSON TEXT for storage.
// A nil object is stored as {}.
func marshalObject(obj ir.Object) (string, error) {
	if obj == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalObject parses canonical JSON TEXT back into an ir.Object.
// Integers are decoded via json.Number so values above 2^53 keep their
// precision.
func unmarshalObject(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	obj, err := ir.ParseObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	return obj, nil
}
