package transient_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"

	"github.com/go-babylon/concurrent/transient"
)

func fnvHash(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func strEqual(a, b string) bool { return a == b }

func TestSetInsertAndContains(t *testing.T) {
	s := transient.NewSet[string](16, fnvHash, strEqual)
	assert.True(t, s.Insert("a"))
	assert.False(t, s.Insert("a"))
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("b"))
	assert.Equal(t, 1, s.Len())
}

func TestSetGrowsAcrossChainWithoutDuplicates(t *testing.T) {
	s := transient.NewSet[string](16, fnvHash, strEqual)
	for i := 0; i < 200; i++ {
		s.Insert(strconv.Itoa(i))
	}
	assert.Equal(t, 200, s.Len())
	for i := 0; i < 200; i++ {
		assert.True(t, s.Contains(strconv.Itoa(i)))
	}

	seen := map[string]int{}
	s.ForEach(func(v string) { seen[v]++ })
	assert.Len(t, seen, 200)
	for _, count := range seen {
		assert.Equal(t, 1, count, "no value should appear twice across the chain")
	}
}

func TestSetConcurrentInsert(t *testing.T) {
	s := transient.NewSet[string](16, fnvHash, strEqual)
	var g errgroup.Group
	for i := 0; i < 300; i++ {
		i := i
		g.Go(func() error {
			s.Insert(strconv.Itoa(i % 100))
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	assert.Equal(t, 100, s.Len())
}

func TestSetClearAndRehash(t *testing.T) {
	s := transient.NewSet[string](16, fnvHash, strEqual)
	for i := 0; i < 50; i++ {
		s.Insert(strconv.Itoa(i))
	}
	s.Rehash(256)
	assert.Equal(t, 50, s.Len())
	for i := 0; i < 50; i++ {
		assert.True(t, s.Contains(strconv.Itoa(i)))
	}

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains("0"))
}

func TestMapEmplaceAndGet(t *testing.T) {
	m := transient.NewMap[string, int](16, fnvHash, strEqual)
	v, inserted := m.Emplace("a", 1)
	assert.True(t, inserted)
	assert.Equal(t, 1, v)

	v, inserted = m.Emplace("a", 2)
	assert.False(t, inserted)
	assert.Equal(t, 1, v, "existing value should be returned, not overwritten")

	got, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestMapGrowsAcrossChain(t *testing.T) {
	m := transient.NewMap[string, int](16, fnvHash, strEqual)
	for i := 0; i < 200; i++ {
		m.Emplace(strconv.Itoa(i), i)
	}
	assert.Equal(t, 200, m.Len())
	for i := 0; i < 200; i++ {
		v, ok := m.Get(strconv.Itoa(i))
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestMapForEachVisitsEveryEntry(t *testing.T) {
	m := transient.NewMap[string, int](16, fnvHash, strEqual)
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		m.Emplace(k, v)
	}
	got := map[string]int{}
	m.ForEach(func(k string, v int) { got[k] = v })
	assert.Equal(t, want, got)
}

func TestMapRehashAndClear(t *testing.T) {
	m := transient.NewMap[string, int](16, fnvHash, strEqual)
	for i := 0; i < 50; i++ {
		m.Emplace(strconv.Itoa(i), i)
	}
	m.Rehash(256)
	assert.Equal(t, 50, m.Len())
	v, ok := m.Get("10")
	assert.True(t, ok)
	assert.Equal(t, 10, v)

	m.Clear()
	assert.Equal(t, 0, m.Len())
	_, ok = m.Get("10")
	assert.False(t, ok)
}

func TestMapConcurrentEmplace(t *testing.T) {
	m := transient.NewMap[string, int](16, fnvHash, strEqual)
	var g errgroup.Group
	for i := 0; i < 300; i++ {
		i := i
		g.Go(func() error {
			m.Emplace(strconv.Itoa(i%100), i%100)
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	assert.Equal(t, 100, m.Len())
}
