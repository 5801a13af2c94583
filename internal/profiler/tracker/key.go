package tracker

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// ElementKind identifies what kind of script element a record tracks.
type ElementKind string

// Element kinds emitted by the script engine integration. Other values are
// accepted as-is so new element kinds need no change here.
const (
	KindEvent    ElementKind = "event"
	KindFunction ElementKind = "function"
	KindCommand  ElementKind = "command"
	KindLoop     ElementKind = "loop"
)

// Key is the identity of a metric record.
// Keys are comparable and can be used directly as map keys.
type Key struct {
	File string      `json:"file"`
	Line int         `json:"line"`
	Kind ElementKind `json:"kind"`
}

// NewKey builds a key, normalising the kind to lower case.
func NewKey(file string, line int, kind ElementKind) Key {
	return Key{
		File: file,
		Line: line,
		Kind: ElementKind(strings.ToLower(string(kind))),
	}
}

// Compare orders keys by file, then line, then kind.
func (k Key) Compare(o Key) int {
	if c := strings.Compare(k.File, o.File); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Line, o.Line); c != 0 {
		return c
	}
	return strings.Compare(string(k.Kind), string(o.Kind))
}

// Location returns "file:line".
func (k Key) Location() string {
	return k.File + ":" + strconv.Itoa(k.Line)
}

// String returns "file:line:kind".
func (k Key) String() string {
	return k.Location() + ":" + string(k.Kind)
}

// hash spreads keys over shards. Components are hashed separately so no
// delimiter is involved.
func (k Key) hash() uint64 {
	h := xxh3.HashString(k.File)
	h ^= uint64(k.Line) * 0x9e3779b97f4a7c15
	h ^= xxh3.HashString(string(k.Kind)) << 1
	return h
}
