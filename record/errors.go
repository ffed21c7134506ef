package record

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is the sentinel behind MalformedRecordError.
var ErrMalformedRecord = errors.New("record: malformed record")

// MalformedRecordError reports an input record with an absent or
// mistyped field. Order is the record's order key, or empty when the
// record carried none.
type MalformedRecordError struct {
	Type   string
	Order  string
	Index  int
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	typ := e.Type
	if typ == "" {
		typ = "untyped"
	}
	at := e.Order
	if at == "" {
		at = fmt.Sprintf("#%d", e.Index)
	}
	if e.Field != "" {
		return fmt.Sprintf("record: malformed %s record at order %s: %s: %s", typ, at, e.Field, e.Reason)
	}
	return fmt.Sprintf("record: malformed %s record at order %s: %s", typ, at, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }
