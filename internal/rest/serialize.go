package rest

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Payloader is the JSON-conversion capability a payload may expose.
// Serialize prefers the converted value over the value itself.
type Payloader interface {
	Payload() any
}

// Serialize produces the JSON body for a response payload. A value
// implementing Payloader is converted first; slices are walked so
// element conversions apply too. Decimal fields marshal as JSON
// strings through shopspring/decimal's own MarshalJSON, so precision
// is never lost to float rounding.
func Serialize(v any) ([]byte, error) {
	data, err := json.Marshal(convert(v))
	if err != nil {
		return nil, fmt.Errorf("serialize response: %w", err)
	}
	return data, nil
}

func convert(v any) any {
	if v == nil {
		return nil
	}
	if p, ok := v.(Payloader); ok {
		return p.Payload()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return v
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = convert(rv.Index(i).Interface())
	}
	return out
}
