package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabkit/tabq/internal/keypath"
)

func paths(t *testing.T, raws ...string) []keypath.Path {
	t.Helper()
	out := make([]keypath.Path, len(raws))
	for i, raw := range raws {
		out[i] = keypath.MustParse(raw)
	}
	return out
}

func TestClassify_Strategies(t *testing.T) {
	testCases := []struct {
		name string
		sel  []string
		want Strategy
	}{
		{name: "plain key", sel: []string{"x"}, want: StrategyKey},
		{name: "whole key supersedes sub selection", sel: []string{"c", "c.h"}, want: StrategyKey},
		{name: "trailing index", sel: []string{"b[0]"}, want: StrategyIndex},
		{name: "index behind nested keys", sel: []string{"a.k1.r1[0]"}, want: StrategyIndex},
		{name: "consecutive indices", sel: []string{"m[1][3]"}, want: StrategyIndex},
		{name: "sub keys", sel: []string{"c.h", "c.p"}, want: StrategyBroadcast},
		{name: "key after index", sel: []string{"c[0].h"}, want: StrategyBroadcast},
		{name: "wildcard", sel: []string{"c[*].h"}, want: StrategyBroadcast},
		{name: "wildcard passthrough", sel: []string{"c[*]"}, want: StrategyBroadcast},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ps := paths(t, tc.sel...)
			key := ps[0][0].(keypath.Key)
			plan, err := Classify(key, ps)
			require.NoError(t, err)
			assert.Equal(t, tc.want, plan.Strategy)
		})
	}
}

func TestClassify_BroadcastFields(t *testing.T) {
	t.Run("implicit sub keys", func(t *testing.T) {
		plan, err := Classify("c", paths(t, "c.h", "c.p"))
		require.NoError(t, err)
		assert.Equal(t, "c", plan.ArrayPath.String())
		assert.False(t, plan.Explicit)
		assert.Nil(t, plan.ElemIndex)
		require.Len(t, plan.SubPaths, 2)
		assert.Equal(t, "h", plan.SubPaths[0].String())
		assert.Equal(t, "p", plan.SubPaths[1].String())
	})

	t.Run("index filter", func(t *testing.T) {
		plan, err := Classify("c", paths(t, "c[2].h"))
		require.NoError(t, err)
		assert.True(t, plan.Explicit)
		require.NotNil(t, plan.ElemIndex)
		assert.Equal(t, 2, *plan.ElemIndex)
		assert.Equal(t, "c", plan.ArrayPath.String())
	})

	t.Run("nested array path", func(t *testing.T) {
		plan, err := Classify("a", paths(t, "a.k1.r1[*].h"))
		require.NoError(t, err)
		assert.Equal(t, "a.k1.r1", plan.ArrayPath.String())
		assert.True(t, plan.Explicit)
		assert.Nil(t, plan.ElemIndex)
		require.Len(t, plan.SubPaths, 1)
		assert.Equal(t, "h", plan.SubPaths[0].String())
	})

	t.Run("wildcard passthrough has no sub paths", func(t *testing.T) {
		plan, err := Classify("b", paths(t, "b[*]"))
		require.NoError(t, err)
		assert.Empty(t, plan.SubPaths)
		assert.True(t, plan.Explicit)
	})
}

func TestClassify_Conflicts(t *testing.T) {
	testCases := []struct {
		name string
		sel  []string
	}{
		{name: "different element indices", sel: []string{"c[0].h", "c[1].p"}},
		{name: "different arrays", sel: []string{"a.r1[*].h", "a.r2[*].h"}},
		{name: "explicit and implicit mixed", sel: []string{"c[*].h", "c.p"}},
		{name: "nested wildcard", sel: []string{"c[*].r[*].h"}},
		{name: "passthrough mixed with sub keys", sel: []string{"c[*]", "c[*].h"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ps := paths(t, tc.sel...)
			key := ps[0][0].(keypath.Key)
			_, err := Classify(key, ps)
			require.Error(t, err)
			var conflict *ConflictError
			assert.ErrorAs(t, err, &conflict)
		})
	}
}

func TestGroup_PreservesOrder(t *testing.T) {
	plans, err := Group(paths(t, "y", "b[0]", "c.h", "c.p", "x"))
	require.NoError(t, err)

	require.Len(t, plans, 4)
	assert.Equal(t, keypath.Key("y"), plans[0].Key)
	assert.Equal(t, keypath.Key("b"), plans[1].Key)
	assert.Equal(t, keypath.Key("c"), plans[2].Key)
	assert.Equal(t, keypath.Key("x"), plans[3].Key)
	assert.Equal(t, StrategyBroadcast, plans[2].Strategy)
	require.Len(t, plans[2].SubPaths, 2)
}
