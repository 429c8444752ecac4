package layout

import (
	"bytes"
	"errors"
)

// Props is an insertion-ordered, string-keyed bag of Values. There is no
// per-component schema; any key may hold any JSON-compatible value. A nil
// *Props behaves as an empty bag for reads.
type Props struct {
	keys   []string
	values map[string]Value
}

// NewProps returns an empty bag.
func NewProps() *Props {
	return &Props{values: make(map[string]Value)}
}

// PropsOf builds a bag from alternating key/value pairs, mostly for tests and
// literal construction.
func PropsOf(pairs ...any) *Props {
	p := NewProps()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case Value:
			p.Set(key, v)
		case string:
			p.Set(key, String(v))
		case bool:
			p.Set(key, Bool(v))
		case int:
			p.Set(key, Int(int64(v)))
		case float64:
			p.Set(key, Float(v))
		case *Props:
			p.Set(key, Object(v))
		case nil:
			p.Set(key, Null())
		}
	}
	return p
}

// Set stores v under key. A key that already exists keeps its position.
func (p *Props) Set(key string, v Value) {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
}

// Get returns the value stored under key.
func (p *Props) Get(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Delete removes key if present.
func (p *Props) Delete(key string) {
	if p == nil {
		return
	}
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (p *Props) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *Props) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Clone returns a deep copy. Cloning nil yields an empty bag.
func (p *Props) Clone() *Props {
	out := NewProps()
	if p == nil {
		return out
	}
	for _, k := range p.keys {
		out.Set(k, p.values[k].Clone())
	}
	return out
}

// Equal compares two bags including key order. nil equals an empty bag.
func (p *Props) Equal(o *Props) bool {
	if p.Len() != o.Len() {
		return false
	}
	for i, k := range p.Keys() {
		if o.keys[i] != k {
			return false
		}
		if !Equal(p.values[k], o.values[k]) {
			return false
		}
	}
	return true
}

func (p *Props) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	p.encode(&buf)
	return buf.Bytes(), nil
}

func (p *Props) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	obj, ok := v.Obj()
	if !ok {
		return errors.New("props must be a JSON object")
	}
	*p = *obj
	return nil
}

func (p *Props) encode(buf *bytes.Buffer) {
	buf.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, k)
		buf.WriteByte(':')
		p.values[k].encode(buf)
	}
	buf.WriteByte('}')
}
