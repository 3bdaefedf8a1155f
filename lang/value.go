package lang

//go:generate go tool stringer -linecomment -type Kind,BindingKind,State,ScopeKind -output kind_string.go

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies the variant of a [Value].
type Kind uint8

const (
	KindMissing  Kind = iota // missing
	KindScalar               // scalar
	KindList                 // list
	KindObject               // object
	KindStream               // stream
	KindCallable             // callable
)

// Value is the closed union of everything a pattern can be matched against.
//
// The concrete variants are [Missing], [Scalar], [*List], [*Object],
// [*Stream] and [*Callable]. Code outside this package inspects values with
// the capability queries [Sequence], [Get] and [Keys] rather than by type.
type Value interface {
	Kind() Kind
	value()
}

type missing struct{}

func (missing) Kind() Kind { return KindMissing }
func (missing) value()     {}

// Missing is the sentinel routed to a pattern slot for which no input
// existed. It is never equal to any user value.
//
//nolint:gochecknoglobals
var Missing Value = missing{}

// IsMissing reports whether v is the [Missing] sentinel.
func IsMissing(v Value) bool { return v == nil || v == Missing }

// Scalar holds one of nil (null), bool, int64, float64 or string.
type Scalar struct{ v any }

func (Scalar) Kind() Kind { return KindScalar }
func (Scalar) value()     {}

// Null is the null scalar.
//
//nolint:gochecknoglobals
var Null = Scalar{}

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{b} }

// Int returns an integer scalar.
func Int(i int64) Scalar { return Scalar{i} }

// Float returns a floating-point scalar.
func Float(f float64) Scalar { return Scalar{f} }

// String returns a string scalar.
func String(s string) Scalar { return Scalar{s} }

// Any returns the Go value held by s.
func (s Scalar) Any() any { return s.v }

// IsNull reports whether s is the null scalar.
func (s Scalar) IsNull() bool { return s.v == nil }

// List is an ordered, sequence-capable container.
//
// A frozen list rejects mutation. A list may carry an attached raw list,
// readable with Get(list, "raw"), as produced for tagged literals.
type List struct {
	items  []Value
	raw    *List
	frozen bool
}

// NewList returns a new list containing items.
func NewList(items ...Value) *List {
	return &List{items: slices.Clone(items)}
}

func (*List) Kind() Kind { return KindList }
func (*List) value()     {}

// Len returns the number of elements in l.
func (l *List) Len() int { return len(l.items) }

// At returns the element at index i, or Missing when i is out of range.
func (l *List) At(i int) Value {
	if i < 0 || i >= len(l.items) {
		return Missing
	}

	return l.items[i]
}

// All returns an iterator over the elements of l.
func (l *List) All() iter.Seq[Value] { return slices.Values(l.items) }

// Append adds elements to the end of l.
func (l *List) Append(v ...Value) error {
	if l.frozen {
		return ErrFrozen.With(slog.String("kind", KindList.String()))
	}

	l.items = append(l.items, v...)

	return nil
}

// Set replaces the element at index i, growing l with null elements if
// necessary.
func (l *List) Set(i int, v Value) error {
	if l.frozen {
		return ErrFrozen.With(slog.String("kind", KindList.String()))
	}

	if i < 0 {
		return ErrNotDestructurable.With(slog.Int("index", i))
	}

	for len(l.items) <= i {
		l.items = append(l.items, Null)
	}

	l.items[i] = v

	return nil
}

// Freeze makes l immutable and returns it.
func (l *List) Freeze() *List {
	l.frozen = true

	return l
}

// Frozen reports whether l rejects mutation.
func (l *List) Frozen() bool { return l.frozen }

// Raw returns the raw list attached to l, if any.
func (l *List) Raw() *List { return l.raw }

// Object is a keyed container with ordered keys.
type Object struct {
	vals   map[string]Value
	keys   []string
	frozen bool
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// ObjectOf returns an object with the given key/value pairs, in order.
// It panics if kv has odd length or a key is not a string.
func ObjectOf(kv ...any) *Object {
	if len(kv)%2 != 0 {
		panic("lang.ObjectOf: odd argument count")
	}

	o := NewObject()

	for i := 0; i < len(kv); i += 2 {
		_ = o.Set(kv[i].(string), FromNative(kv[i+1]))
	}

	return o
}

func (*Object) Kind() Kind { return KindObject }
func (*Object) value()     {}

// Len returns the number of own keys of o.
func (o *Object) Len() int { return len(o.keys) }

// Keys returns the own keys of o in insertion order.
func (o *Object) Keys() []string { return slices.Clone(o.keys) }

// Lookup returns the value stored at key.
func (o *Object) Lookup(key string) (Value, bool) {
	v, ok := o.vals[key]

	return v, ok
}

// Set stores v at key.
func (o *Object) Set(key string, v Value) error {
	if o.frozen {
		return ErrFrozen.With(
			slog.String("kind", KindObject.String()),
			slog.String("key", key),
		)
	}

	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}

	o.vals[key] = v

	return nil
}

// Freeze makes o immutable and returns it.
func (o *Object) Freeze() *Object {
	o.frozen = true

	return o
}

// Frozen reports whether o rejects mutation.
func (o *Object) Frozen() bool { return o.frozen }

// Stream is a lazy, possibly infinite sequence that can be consumed once.
// Consuming it a second time yields no elements.
type Stream struct {
	seq  iter.Seq[Value]
	used bool
}

// NewStream returns a stream producing the elements of seq.
func NewStream(seq iter.Seq[Value]) *Stream { return &Stream{seq: seq} }

func (*Stream) Kind() Kind { return KindStream }
func (*Stream) value()     {}

func (s *Stream) take() iter.Seq[Value] {
	if s.used || s.seq == nil {
		return func(func(Value) bool) {}
	}

	s.used = true

	return s.seq
}

// CallFunc implements the body of a [Callable]. The self argument is the
// callable's stable self handle.
type CallFunc func(ctx context.Context, self *Callable, args []Value) (Value, error)

// Callable is an invocable value.
type Callable struct {
	Fn   CallFunc
	Self *Callable
	Name string
	// Params labels the declared parameters for display. It is nil when the
	// parameters are unknown.
	Params []string
}

// NewCallable returns a callable whose self handle refers to itself.
func NewCallable(name string, fn CallFunc) *Callable {
	c := &Callable{Name: name, Fn: fn}
	c.Self = c

	return c
}

func (*Callable) Kind() Kind { return KindCallable }
func (*Callable) value()     {}

// Call invokes c with args.
func (c *Callable) Call(ctx context.Context, args ...Value) (Value, error) {
	if c == nil || c.Fn == nil {
		return nil, ErrNotCallable
	}

	self := c.Self
	if self == nil {
		self = c
	}

	return c.Fn(ctx, self, args)
}

// Sequence returns the element producer of v, if v is sequence-capable.
// Lists, streams and strings (by code point) are sequence-capable.
func Sequence(v Value) (iter.Seq[Value], bool) {
	switch v := v.(type) {
	case *List:
		return v.All(), true

	case *Stream:
		return v.take(), true

	case Scalar:
		s, ok := v.v.(string)
		if !ok {
			return nil, false
		}

		return func(yield func(Value) bool) {
			for _, r := range s {
				if !yield(String(string(r))) {
					return
				}
			}
		}, true
	}

	return nil, false
}

// Get reads property key of v. Absence yields [Missing], never an error.
func Get(v Value, key string) Value {
	switch v := v.(type) {
	case *Object:
		if x, ok := v.vals[key]; ok {
			return x
		}

	case *List:
		switch key {
		case "length":
			return Int(int64(len(v.items)))
		case "raw":
			if v.raw != nil {
				return v.raw
			}
		default:
			if i, ok := index(key); ok {
				return v.At(i)
			}
		}

	case Scalar:
		s, ok := v.v.(string)
		if !ok {
			break
		}

		if key == "length" {
			return Int(int64(len([]rune(s))))
		}

		if i, ok := index(key); ok {
			if r := []rune(s); i < len(r) {
				return String(string(r[i]))
			}
		}

	case *Callable:
		if key == "name" {
			return String(v.Name)
		}
	}

	return Missing
}

// Keys returns the own enumerable keys of v.
func Keys(v Value) []string {
	switch v := v.(type) {
	case *Object:
		return v.Keys()

	case *List:
		keys := make([]string, len(v.items))
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}

		return keys
	}

	return nil
}

func index(key string) (int, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || strconv.Itoa(i) != key {
		return 0, false
	}

	return i, true
}

// Truthy reports whether v is considered true in a condition.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Scalar:
		switch x := v.v.(type) {
		case nil:
			return false
		case bool:
			return x
		case int64:
			return x != 0
		case float64:
			return x != 0 && !math.IsNaN(x)
		case string:
			return x != ""
		}

	case nil, missing:
		return false
	}

	return true
}

// Stringify converts v to its string form as used by interpolation. A list
// nested in itself contributes an empty string where it recurs.
func Stringify(v Value) string { return stringify(v, make(visited)) }

func stringify(v Value, seen visited) string {
	switch v := v.(type) {
	case nil, missing:
		return "undefined"

	case Scalar:
		switch x := v.v.(type) {
		case nil:
			return "null"
		case bool:
			return strconv.FormatBool(x)
		case int64:
			return strconv.FormatInt(x, 10)
		case float64:
			return formatFloat(x)
		case string:
			return x
		}

	case *List:
		if !seen.enter(v) {
			return ""
		}
		defer seen.leave(v)

		part := make([]string, len(v.items))

		for i, x := range v.items {
			if s, ok := x.(Scalar); IsMissing(x) || ok && s.IsNull() {
				continue
			}

			part[i] = stringify(x, seen)
		}

		return strings.Join(part, ",")

	case *Object:
		return "[object Object]"

	case *Stream:
		return "[object Stream]"

	case *Callable:
		return "function " + v.Name + "() { [native code] }"
	}

	return fmt.Sprint(v)
}

// visited holds the containers on the current path of a recursive walk.
type visited map[Value]struct{}

// enter adds v to the path, reporting false if it is already on it.
func (s visited) enter(v Value) bool {
	if _, ok := s[v]; ok {
		return false
	}

	s[v] = struct{}{}

	return true
}

func (s visited) leave(v Value) { delete(s, v) }

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Native converts v to plain Go data: nil, bool, int64, float64, string,
// []any and map[string]any. Streams and callables are returned as is. A
// container nested in itself converts to nil where it recurs.
func Native(v Value) any { return native(v, make(visited)) }

func native(v Value, seen visited) any {
	switch v := v.(type) {
	case nil, missing:
		return nil

	case Scalar:
		return v.v

	case *List:
		if !seen.enter(v) {
			return nil
		}
		defer seen.leave(v)

		out := make([]any, len(v.items))
		for i, x := range v.items {
			out[i] = native(x, seen)
		}

		return out

	case *Object:
		if !seen.enter(v) {
			return nil
		}
		defer seen.leave(v)

		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = native(v.vals[k], seen)
		}

		return out
	}

	return v
}

// FromNative converts plain Go data to a [Value]. Maps become objects with
// sorted keys. Values of unsupported types become their fmt string form.
func FromNative(x any) Value {
	switch x := x.(type) {
	case nil:
		return Null
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return Int(int64(x))
		}

		return Float(float64(x))
	case uint64:
		if x <= math.MaxInt64 {
			return Int(int64(x))
		}

		return Float(float64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return String(x)
	case []any:
		items := make([]Value, len(x))
		for i, e := range x {
			items[i] = FromNative(e)
		}

		return &List{items: items}
	case map[string]any:
		o := NewObject()
		for _, k := range slices.Sorted(maps.Keys(x)) {
			_ = o.Set(k, FromNative(x[k]))
		}

		return o
	}

	rv := reflect.ValueOf(x)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = FromNative(rv.Index(i).Interface())
		}

		return &List{items: items}

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}

		m := make(map[string]any, rv.Len())
		for it := rv.MapRange(); it.Next(); {
			m[it.Key().String()] = it.Value().Interface()
		}

		return FromNative(m)

	case reflect.Pointer:
		if rv.IsNil() {
			return Null
		}

		return FromNative(rv.Elem().Interface())
	}

	return String(fmt.Sprint(x))
}

// Equal reports whether a and b are structurally equal. Callables and
// streams are equal only to themselves. Containers nested in themselves
// compare equal where the same pair of containers recurs.
func Equal(a, b Value) bool { return equal(a, b, make(map[[2]Value]struct{})) }

func equal(a, b Value, seen map[[2]Value]struct{}) bool {
	if IsMissing(a) || IsMissing(b) {
		return IsMissing(a) && IsMissing(b)
	}

	pair := [2]Value{a, b}

	switch a := a.(type) {
	case Scalar:
		b, ok := b.(Scalar)
		if !ok {
			return false
		}

		return scalarEqual(a.v, b.v)

	case *List:
		b, ok := b.(*List)
		if !ok || len(a.items) != len(b.items) {
			return false
		}

		if _, ok := seen[pair]; ok {
			return true
		}

		seen[pair] = struct{}{}
		defer delete(seen, pair)

		for i, x := range a.items {
			if !equal(x, b.items[i], seen) {
				return false
			}
		}

		return true

	case *Object:
		b, ok := b.(*Object)
		if !ok || len(a.keys) != len(b.keys) {
			return false
		}

		if _, ok := seen[pair]; ok {
			return true
		}

		seen[pair] = struct{}{}
		defer delete(seen, pair)

		for _, k := range a.keys {
			y, ok := b.vals[k]
			if !ok || !equal(a.vals[k], y, seen) {
				return false
			}
		}

		return true
	}

	return a == b
}

func scalarEqual(a, b any) bool {
	switch x := a.(type) {
	case int64:
		if y, ok := b.(float64); ok {
			return float64(x) == y
		}
	case float64:
		if y, ok := b.(int64); ok {
			return x == float64(y)
		}
	}

	return a == b
}

// Inspect returns a source-like representation of v, quoting strings. A
// container nested in itself is written as [Circular] where it recurs.
func Inspect(v Value) string { return inspect(v, make(visited)) }

func inspect(v Value, seen visited) string {
	switch v := v.(type) {
	case Scalar:
		if s, ok := v.v.(string); ok {
			return strconv.Quote(s)
		}

	case *List:
		if !seen.enter(v) {
			return "[Circular]"
		}
		defer seen.leave(v)

		part := make([]string, len(v.items))
		for i, x := range v.items {
			part[i] = inspect(x, seen)
		}

		return "[" + strings.Join(part, ", ") + "]"

	case *Object:
		if !seen.enter(v) {
			return "[Circular]"
		}
		defer seen.leave(v)

		part := make([]string, len(v.keys))
		for i, k := range v.keys {
			part[i] = k + ": " + inspect(v.vals[k], seen)
		}

		return "{" + strings.Join(part, ", ") + "}"

	case *Callable:
		return "[function " + v.Name + "]"
	}

	return Stringify(v)
}
