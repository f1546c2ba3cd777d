package contract

import (
	"encoding/json"
	"fmt"

	"github.com/ternlund/datapact/internal/apperr"
)

// Kind enumerates the value kinds a partial update may carry. Anything
// that does not map onto one of these is rejected before it reaches a
// store.
type Kind int

const (
	KindText Kind = iota
	KindBool
	KindNumber
	KindTextList
)

// Value is a tagged patch value. Constructing one through DecodePatch is
// the only place runtime type inference happens; stores consume the tag,
// never the raw JSON.
type Value struct {
	Kind     Kind
	Text     string
	Bool     bool
	Number   float64
	TextList []string
}

// Interface returns the plain Go value for the tagged kind, suitable for
// attributevalue marshalling or JSON encoding.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number
	case KindTextList:
		return v.TextList
	default:
		return v.Text
	}
}

// Patch is a decoded partial update. The reserved "yaml" key is routed
// to the blob store as a whole-document replace; every other field is a
// field-level metadata update.
type Patch struct {
	YAML   *string
	Fields map[string]Value
}

// Empty reports whether the patch carries nothing to apply.
func (p Patch) Empty() bool {
	return p.YAML == nil && len(p.Fields) == 0
}

// DecodePatch converts a decoded JSON object into a Patch. Unsupported
// value kinds (nested objects, mixed lists, null) fail with
// ErrUpdateFailed so callers surface a 400 rather than a store error.
func DecodePatch(body map[string]any) (Patch, error) {
	var p Patch
	for k, raw := range body {
		if k == "yaml" {
			s, ok := raw.(string)
			if !ok {
				return Patch{}, fmt.Errorf("%w: field %q must be a string", apperr.ErrUpdateFailed, k)
			}
			p.YAML = &s
			continue
		}
		v, err := valueOf(raw)
		if err != nil {
			return Patch{}, fmt.Errorf("%w: field %q: %v", apperr.ErrUpdateFailed, k, err)
		}
		if p.Fields == nil {
			p.Fields = make(map[string]Value)
		}
		p.Fields[k] = v
	}
	return p, nil
}

func valueOf(raw any) (Value, error) {
	switch t := raw.(type) {
	case string:
		return Value{Kind: KindText, Text: t}, nil
	case bool:
		return Value{Kind: KindBool, Bool: t}, nil
	case float64:
		return Value{Kind: KindNumber, Number: t}, nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("bad number %q", t.String())
		}
		return Value{Kind: KindNumber, Number: n}, nil
	case []any:
		list := make([]string, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return Value{}, fmt.Errorf("list elements must be strings, got %T", item)
			}
			list[i] = s
		}
		return Value{Kind: KindTextList, TextList: list}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}
