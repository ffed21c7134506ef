package graph

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
)

// Order is the total document-position key of an extracted entity:
// page index, then vertical position, then extraction sequence. Sub
// orders entities that an extractor emitted from a single record, such
// as the items of one list block.
type Order struct {
	Page int     `json:"page"`
	Y    float64 `json:"y"`
	Seq  int     `json:"seq"`
	Sub  int     `json:"sub,omitempty"`
}

// RootOrder sorts before every order an extractor can produce.
var RootOrder = Order{Page: -1}

// Seq returns the order key holding only an extraction sequence number.
func Seq(n int) Order { return Order{Seq: n} }

// Compare returns -1, 0 or +1 depending on whether o sorts before, equal
// to or after p.
func (o Order) Compare(p Order) int {
	if c := cmp.Compare(o.Page, p.Page); c != 0 {
		return c
	}
	if c := cmp.Compare(o.Y, p.Y); c != 0 {
		return c
	}
	if c := cmp.Compare(o.Seq, p.Seq); c != 0 {
		return c
	}
	return cmp.Compare(o.Sub, p.Sub)
}

// Less reports whether o sorts strictly before p.
func (o Order) Less(p Order) bool { return o.Compare(p) < 0 }

// Key renders o as a canonical string, used in dedup keys.
func (o Order) Key() string {
	return fmt.Sprintf("%d:%s:%d:%d", o.Page, strconv.FormatFloat(o.Y, 'g', -1, 64), o.Seq, o.Sub)
}

func (o Order) String() string {
	if o.Page == 0 && o.Y == 0 && o.Sub == 0 {
		return strconv.Itoa(o.Seq)
	}
	return o.Key()
}

// UnmarshalJSON accepts either an object or a bare integer, which is
// taken as the extraction sequence.
func (o *Order) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("source_order: %w", err)
		}
		seq, err := n.Int64()
		if err != nil {
			return fmt.Errorf("source_order: %q is not an integer", n.String())
		}
		*o = Order{Seq: int(seq)}
		return nil
	}
	type plain Order
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("source_order: %w", err)
	}
	*o = Order(p)
	return nil
}
