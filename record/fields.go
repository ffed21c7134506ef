package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator"
	"golang.org/x/text/unicode/norm"

	"github.com/brunobiangulo/docgraph/graph"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fields wraps the loose field map of one record with typed getters that
// report MalformedRecordError on absence or type mismatch.
type fields struct {
	typ   string
	order graph.Order
	index int
	m     map[string]any
}

func (f fields) malformed(field, format string, args ...any) *MalformedRecordError {
	return &MalformedRecordError{
		Type:   f.typ,
		Order:  f.order.String(),
		Index:  f.index,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (f fields) has(key string) bool {
	v, ok := f.m[key]
	return ok && v != nil
}

func (f fields) str(key string, required bool) (string, error) {
	if !f.has(key) {
		if required {
			return "", f.malformed(key, "required field is missing")
		}
		return "", nil
	}
	switch v := f.m[key].(type) {
	case string:
		return clean(v), nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", f.malformed(key, "want text, got %T", v)
	}
}

func (f fields) number(key string, required bool) (float64, error) {
	if !f.has(key) {
		if required {
			return 0, f.malformed(key, "required field is missing")
		}
		return 0, nil
	}
	n, ok := toFloat(f.m[key])
	if !ok {
		return 0, f.malformed(key, "want number, got %s", describe(f.m[key]))
	}
	return n, nil
}

// integer returns def when the key is absent and not required.
func (f fields) integer(key string, required bool, def int) (int, error) {
	if !f.has(key) {
		if required {
			return 0, f.malformed(key, "required field is missing")
		}
		return def, nil
	}
	n, ok := toInt(f.m[key])
	if !ok {
		return 0, f.malformed(key, "want integer, got %s", describe(f.m[key]))
	}
	return n, nil
}

func (f fields) orderKey(key string) (*graph.Order, error) {
	if !f.has(key) {
		return nil, nil
	}
	o, err := toOrder(f.m[key])
	if err != nil {
		return nil, f.malformed(key, "%v", err)
	}
	return &o, nil
}

func (f fields) strs(key string) ([]string, error) {
	if !f.has(key) {
		return nil, nil
	}
	switch v := f.m[key].(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, f.malformed(key, "element %d: want text, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, f.malformed(key, "want list of text, got %T", v)
	}
}

// floats accepts a JSON array of numbers or a comma separated string.
func (f fields) floats(key string) ([]float64, error) {
	if !f.has(key) {
		return nil, f.malformed(key, "required field is missing")
	}
	var parts []any
	switch v := f.m[key].(type) {
	case []any:
		parts = v
	case []float64:
		return v, nil
	case string:
		for _, p := range strings.Split(v, ",") {
			parts = append(parts, strings.TrimSpace(p))
		}
	default:
		return nil, f.malformed(key, "want list of numbers, got %T", v)
	}
	out := make([]float64, 0, len(parts))
	for i, p := range parts {
		n, ok := toFloat(p)
		if !ok {
			return nil, f.malformed(key, "element %d: want number, got %s", i, describe(p))
		}
		out = append(out, n)
	}
	return out, nil
}

// check runs the validator tags of s and maps the first violation onto
// a MalformedRecordError.
func (f fields) check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return f.malformed(fe.Field(), "%s", constraintReason(fe.Tag(), fe.Param()))
	}
	return f.malformed("", "%v", err)
}

func constraintReason(tag, param string) string {
	switch tag {
	case "required":
		return "must not be empty"
	case "gt":
		return "must be greater than " + param
	case "min":
		return "must be at least " + param
	case "len":
		return "must have exactly " + param + " values"
	default:
		return "failed " + tag + " constraint"
	}
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func describe(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", x)
	}
}

func toFloat(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return i, true
		}
		return 0, false
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// toOrder decodes an order key given as an integer sequence number or
// as an object with page, y, seq and sub members.
func toOrder(v any) (graph.Order, error) {
	switch x := v.(type) {
	case graph.Order:
		return x, nil
	case *graph.Order:
		if x == nil {
			return graph.Order{}, errors.New("order is null")
		}
		return *x, nil
	case map[string]any:
		var o graph.Order
		for k, val := range x {
			switch k {
			case "page", "seq", "sub":
				n, ok := toInt(val)
				if !ok {
					return graph.Order{}, fmt.Errorf("order member %s: want integer, got %s", k, describe(val))
				}
				switch k {
				case "page":
					o.Page = n
				case "seq":
					o.Seq = n
				default:
					o.Sub = n
				}
			case "y":
				n, ok := toFloat(val)
				if !ok {
					return graph.Order{}, fmt.Errorf("order member y: want number, got %s", describe(val))
				}
				o.Y = n
			default:
				return graph.Order{}, fmt.Errorf("unknown order member %q", k)
			}
		}
		return o, nil
	default:
		n, ok := toInt(v)
		if !ok {
			return graph.Order{}, fmt.Errorf("want order key, got %s", describe(v))
		}
		return graph.Seq(n), nil
	}
}
