package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Key identifies a cached resource. It is a kind, such as "article", followed by any number of comparable
// parts. Two keys are equal when their kinds are equal and their parts are pairwise equal in both type and
// value, so the part 1 and the part "1" never match.
type Key struct {
	kind  string
	parts []any
}

// NewKey builds a key. It panics if a part is not comparable, since such a key could never be matched.
func NewKey(kind string, parts ...any) Key {
	for i, p := range parts {
		if p == nil || !reflect.TypeOf(p).Comparable() {
			panic(fmt.Sprintf("query: part %d of %s key has non comparable type %T", i, kind, p))
		}
	}
	return Key{kind: kind, parts: parts}
}

func (k Key) Kind() string {
	return k.kind
}

func (k Key) Parts() []any {
	return k.parts
}

// Append returns a key with more parts, leaving k untouched.
func (k Key) Append(parts ...any) Key {
	all := make([]any, 0, len(k.parts)+len(parts))
	all = append(all, k.parts...)
	all = append(all, parts...)
	return NewKey(k.kind, all...)
}

// HasPrefix reports whether prefix has the same kind as k and its parts are the leading parts of k. Every key
// is a prefix of itself, and a key made of only a kind is a prefix of every key of that kind.
func (k Key) HasPrefix(prefix Key) bool {
	if k.kind != prefix.kind || len(prefix.parts) > len(k.parts) {
		return false
	}
	for i, p := range prefix.parts {
		if k.parts[i] != p {
			return false
		}
	}
	return true
}

func (k Key) Equal(other Key) bool {
	return len(k.parts) == len(other.parts) && k.HasPrefix(other)
}

// String encodes the key so that distinct keys never share an encoding. Each part is written with its type.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(k.kind))
	for _, p := range k.parts {
		b.WriteByte('/')
		fmt.Fprintf(&b, "%T:%s", p, strconv.Quote(fmt.Sprint(p)))
	}
	return b.String()
}
