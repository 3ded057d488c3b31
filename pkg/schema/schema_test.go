package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

func TestLoadFile(t *testing.T) {
	descs, err := LoadFile(filepath.Join("testdata", "graph.yaml"))
	require.NoError(t, err)
	require.Len(t, descs, 5)

	assert.Equal(t, "Leaf", descs[0].Name)
	assert.Equal(t, types.ModeManual, descs[0].Mode)
	assert.Equal(t, types.ModeRC, descs[1].Mode)
	assert.Equal(t, types.ModeDeferRC, descs[2].Mode)
	assert.Equal(t, types.ModeValue, descs[3].Mode)

	next := descs[1].Fields[1]
	assert.Equal(t, "next", next.Name)
	assert.Equal(t, typegraph.FieldRef, next.Kind)
	assert.Equal(t, "Node", next.Target)

	at := descs[4].Fields[2]
	assert.Equal(t, typegraph.FieldInline, at.Kind)
	assert.Equal(t, "Point", at.Target)
}

func TestLoadGraph(t *testing.T) {
	g, err := LoadGraph(filepath.Join("testdata", "graph.yaml"))
	require.NoError(t, err)
	require.Equal(t, 5, g.Len())

	bag, ok := g.Lookup("Bag")
	require.True(t, ok)
	require.Len(t, bag.Refs, 3)
	assert.Equal(t, "at.owner", bag.Refs[2].Path)

	owner, _ := g.Lookup("Owner")
	assert.Equal(t, owner.ID, bag.Refs[2].Target)
}

func TestParse_Versions(t *testing.T) {
	body := "types:\n  - {name: A, mode: manual}\n"
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"exact", "version: 1.0.0\n", false},
		{"minor bump", "version: 1.3.1\n", false},
		{"short form", "version: \"1.2\"\n", false},
		{"next major", "version: 2.0.0\n", true},
		{"pre-1.0", "version: 0.9.0\n", true},
		{"garbage", "version: banana\n", true},
		{"missing", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.version + body))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrVersion)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"no types", "version: 1.0.0\n"},
		{"bad mode", "version: 1.0.0\ntypes:\n  - {name: A, mode: shared}\n"},
		{"bad kind", "version: 1.0.0\ntypes:\n  - name: A\n    mode: rc\n    fields:\n      - {name: f, kind: pointer}\n"},
		{"unknown key", "version: 1.0.0\ntypes:\n  - {name: A, mode: rc, color: red}\n"},
		{"not yaml", "version: [1.0.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadGraph_LayoutErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	doc := "version: 1.0.0\ntypes:\n  - name: A\n    mode: rc\n    fields:\n      - {name: b, kind: ref, target: Missing}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := LoadGraph(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)

	_, err = LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarshal_RoundTrip(t *testing.T) {
	descs, err := LoadFile(filepath.Join("testdata", "graph.yaml"))
	require.NoError(t, err)

	out, err := Marshal(descs)
	require.NoError(t, err)
	assert.Contains(t, string(out), "version: 1.0.0")

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, descs, again)
}
