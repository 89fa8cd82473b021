// FILE: lixenwraith/sectcfg/ordinal.go
package sectcfg

import "reflect"

// Ordinal is a field type assigned from a named monotonic counter when the source
// does not supply a value. The counter name comes from the `ordinal` tag and
// defaults to the record name.
type Ordinal int

var ordinalType = reflect.TypeOf(Ordinal(0))

// IndexAllocator hands out sequential ordinals, one sequence per name.
// It is not safe for concurrent use; callers resolving from several goroutines
// must give each its own allocator or serialize access.
type IndexAllocator struct {
	counters map[string]int
}

// NewIndexAllocator returns an allocator with every sequence at zero.
func NewIndexAllocator() *IndexAllocator {
	return &IndexAllocator{counters: make(map[string]int)}
}

// Next returns the next ordinal for name, starting at 0. The zero
// IndexAllocator is ready to use.
func (a *IndexAllocator) Next(name string) Ordinal {
	if a.counters == nil {
		a.counters = make(map[string]int)
	}
	n := a.counters[name]
	a.counters[name] = n + 1
	return Ordinal(n)
}

// Peek returns the ordinal Next would hand out without consuming it.
func (a *IndexAllocator) Peek(name string) Ordinal {
	return Ordinal(a.counters[name])
}

// Reset restarts the named sequences, or all of them when no name is given.
func (a *IndexAllocator) Reset(names ...string) {
	if len(names) == 0 {
		a.counters = make(map[string]int)
		return
	}
	for _, name := range names {
		delete(a.counters, name)
	}
}
