package typegraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/pkg/types"
)

// testSchema is a small graph with a value type, a self cycle and a chain.
//
//	Owner --ref--> Node --ref--> Node
//	Node  --inline--> Vec (value) --ref--> Leaf
//	Bag   --ref--> Leaf
func testSchema() []TypeDesc {
	return []TypeDesc{
		{Name: "Leaf", Mode: types.ModeManual, Fields: []FieldDesc{
			{Name: "v", Kind: FieldScalar, Size: 8},
		}},
		{Name: "Vec", Mode: types.ModeValue, Fields: []FieldDesc{
			{Name: "x", Kind: FieldScalar, Size: 4},
			{Name: "y", Kind: FieldScalar, Size: 4},
			{Name: "tag", Kind: FieldRef, Target: "Leaf"},
		}},
		{Name: "Node", Mode: types.ModeRC, Fields: []FieldDesc{
			{Name: "flag", Kind: FieldScalar, Size: 1},
			{Name: "next", Kind: FieldRef, Target: "Node"},
			{Name: "pos", Kind: FieldInline, Target: "Vec"},
		}},
		{Name: "Owner", Mode: types.ModeDeferRC, Fields: []FieldDesc{
			{Name: "head", Kind: FieldRef, Target: "Node"},
		}},
		{Name: "Bag", Mode: types.ModeManual, Fields: []FieldDesc{
			{Name: "item", Kind: FieldRef, Target: "Leaf"},
			{Name: "blob", Kind: FieldScalar, Size: 16},
		}},
	}
}

func TestBuild_Layout(t *testing.T) {
	g, err := Build(testSchema())
	require.NoError(t, err)
	require.Equal(t, 5, g.Len())

	vec, ok := g.Lookup("Vec")
	require.True(t, ok)
	require.Equal(t, 16, vec.Size)
	require.Equal(t, 8, vec.Align)

	node, ok := g.Lookup("Node")
	require.True(t, ok)
	require.Equal(t, types.TypeID(3), node.ID)
	// flag@0 (1 byte), next@8, pos@16 (16 bytes) -> 32
	require.Equal(t, 32, node.Size)
	require.Equal(t, []RefSlot{
		{Path: "next", Offset: 8, Target: node.ID},
		{Path: "pos.tag", Offset: 24, Target: 1},
	}, node.Refs)

	bag, _ := g.Lookup("Bag")
	require.Equal(t, 24, bag.Size)
}

func TestType_FieldPath(t *testing.T) {
	g := MustBuild(testSchema())
	node, _ := g.Lookup("Node")

	f, err := node.Field("pos.y")
	require.NoError(t, err)
	require.Equal(t, 20, f.Offset)
	require.Equal(t, 4, f.Size)
	require.Equal(t, FieldScalar, f.Kind)

	f, err = node.Field("next")
	require.NoError(t, err)
	require.Equal(t, FieldRef, f.Kind)
	require.Equal(t, "Node", f.Target.Name)

	_, err = node.Field("pos.z")
	require.ErrorIs(t, err, ErrInvalidField)

	_, err = node.Field("next.x")
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestGraph_Closure(t *testing.T) {
	g := MustBuild(testSchema())
	leaf, _ := g.Lookup("Leaf")
	node, _ := g.Lookup("Node")
	owner, _ := g.Lookup("Owner")
	bag, _ := g.Lookup("Bag")

	// Leaf is referenced by Node (through Vec) and Bag; Owner reaches it through Node.
	require.Equal(t, []types.TypeID{node.ID, owner.ID, bag.ID}, g.Closure(leaf.ID))
	require.Equal(t, []types.TypeID{node.ID, bag.ID}, g.DirectReferrers(leaf.ID))

	// Node references itself, so it is in its own closure.
	require.Equal(t, []types.TypeID{node.ID, owner.ID}, g.Closure(node.ID))
	require.True(t, g.InClosure(owner.ID, leaf.ID))
	require.False(t, g.InClosure(leaf.ID, node.ID))

	// Nothing references Owner.
	require.Empty(t, g.Closure(owner.ID))
	require.Nil(t, g.Closure(99))
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name  string
		descs []TypeDesc
		want  error
	}{
		{
			name: "duplicate",
			descs: []TypeDesc{
				{Name: "A", Mode: types.ModeManual},
				{Name: "A", Mode: types.ModeRC},
			},
			want: ErrDuplicateType,
		},
		{
			name: "unknown ref target",
			descs: []TypeDesc{
				{Name: "A", Mode: types.ModeManual, Fields: []FieldDesc{{Name: "b", Kind: FieldRef, Target: "B"}}},
			},
			want: ErrUnknownType,
		},
		{
			name: "ref to value type",
			descs: []TypeDesc{
				{Name: "V", Mode: types.ModeValue},
				{Name: "A", Mode: types.ModeManual, Fields: []FieldDesc{{Name: "v", Kind: FieldRef, Target: "V"}}},
			},
			want: ErrInvalidField,
		},
		{
			name: "inline pooled type",
			descs: []TypeDesc{
				{Name: "P", Mode: types.ModeRC},
				{Name: "A", Mode: types.ModeManual, Fields: []FieldDesc{{Name: "p", Kind: FieldInline, Target: "P"}}},
			},
			want: ErrInvalidField,
		},
		{
			name: "inline cycle",
			descs: []TypeDesc{
				{Name: "V", Mode: types.ModeValue, Fields: []FieldDesc{{Name: "w", Kind: FieldInline, Target: "W"}}},
				{Name: "W", Mode: types.ModeValue, Fields: []FieldDesc{{Name: "v", Kind: FieldInline, Target: "V"}}},
			},
			want: ErrInlineCycle,
		},
		{
			name: "bad scalar size",
			descs: []TypeDesc{
				{Name: "A", Mode: types.ModeManual, Fields: []FieldDesc{{Name: "x", Kind: FieldScalar, Size: 3}}},
			},
			want: ErrInvalidField,
		},
		{
			name: "duplicate field",
			descs: []TypeDesc{
				{Name: "A", Mode: types.ModeManual, Fields: []FieldDesc{
					{Name: "x", Kind: FieldScalar, Size: 8},
					{Name: "x", Kind: FieldScalar, Size: 8},
				}},
			},
			want: ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.descs)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseFieldKind(t *testing.T) {
	for _, k := range []FieldKind{FieldScalar, FieldRef, FieldInline} {
		got, err := ParseFieldKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	_, err := ParseFieldKind("pointer")
	require.ErrorIs(t, err, ErrInvalidField)
}
