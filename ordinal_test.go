// FILE: lixenwraith/sectcfg/ordinal_test.go
package sectcfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexAllocator(t *testing.T) {
	a := NewIndexAllocator()
	assert.Equal(t, Ordinal(0), a.Next("worker"))
	assert.Equal(t, Ordinal(1), a.Next("worker"))
	assert.Equal(t, Ordinal(0), a.Next("pool"), "sequences are independent")
	assert.Equal(t, Ordinal(2), a.Peek("worker"))
	assert.Equal(t, Ordinal(2), a.Peek("worker"), "peek does not consume")

	a.Reset("worker")
	assert.Equal(t, Ordinal(0), a.Peek("worker"))
	assert.Equal(t, Ordinal(1), a.Peek("pool"))

	a.Reset()
	assert.Equal(t, Ordinal(0), a.Peek("pool"))
}

func TestOrdinalFields(t *testing.T) {
	type job struct {
		Name  SectionName
		ID    Ordinal `ini:"id" ordinal:"jobs"`
		Other Ordinal `ini:"other" default:"7"`
	}
	tree := TreeOf(map[string]map[string]any{
		"job.a": {},
		"job.b": {"id": "40"},
		"job.c": {},
	})

	alloc := NewIndexAllocator()
	rec := mustDefine[job](t, WithSectionPattern(`job\..+`), AsList(1))
	res, err := New().Resolve(rec, WithRawTree(tree), WithIndexAllocator(alloc))
	require.NoError(t, err)
	jobs, _ := AsSlice[job](res)
	require.Len(t, jobs, 3)

	assert.Equal(t, Ordinal(0), jobs[0].ID)
	assert.Equal(t, Ordinal(40), jobs[1].ID, "source values are kept")
	assert.Equal(t, Ordinal(1), jobs[2].ID, "explicit values do not consume the counter")
	assert.Equal(t, Ordinal(7), jobs[0].Other, "defaults win over the counter")
	assert.Equal(t, Ordinal(2), alloc.Peek("jobs"))
	assert.Equal(t, Ordinal(0), alloc.Peek("job"))

	t.Run("ZeroValueAllocator", func(t *testing.T) {
		var zero IndexAllocator
		assert.Equal(t, Ordinal(0), zero.Peek("jobs"))
		zero.Reset("jobs")

		res, err := New().Resolve(rec, WithRawTree(tree), WithIndexAllocator(&zero))
		require.NoError(t, err)
		jobs, _ := AsSlice[job](res)
		require.Len(t, jobs, 3)
		assert.Equal(t, Ordinal(1), jobs[2].ID)
		assert.Equal(t, Ordinal(2), zero.Peek("jobs"))
	})
}
