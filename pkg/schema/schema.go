// Package schema loads slabkit type declarations from YAML files.
//
// A schema file names its format version and lists the types in declaration
// order. TypeIDs are assigned in that order, starting at 1:
//
//	version: 1.0.0
//	types:
//	  - name: Leaf
//	    mode: manual
//	    fields:
//	      - {name: v, kind: scalar, size: 8}
//	  - name: Node
//	    mode: rc
//	    fields:
//	      - {name: next, kind: ref, target: Node}
//	      - {name: leaf, kind: ref, target: Leaf}
//
// The version must satisfy SupportedVersions. Unknown keys are rejected.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	semver "github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

// SupportedVersions is the semver constraint a schema version must satisfy.
const SupportedVersions = "^1.0"

// CurrentVersion is written by Marshal.
const CurrentVersion = "1.0.0"

var (
	// ErrVersion indicates a missing, malformed or unsupported schema version.
	ErrVersion = errors.New("schema: unsupported version")

	// ErrInvalid indicates a structurally invalid schema document.
	ErrInvalid = errors.New("schema: invalid document")
)

// File is the on-disk document.
type File struct {
	Version string     `yaml:"version"`
	Types   []TypeSpec `yaml:"types"`
}

// TypeSpec declares one type.
type TypeSpec struct {
	Name   string      `yaml:"name"`
	Mode   string      `yaml:"mode"`
	Fields []FieldSpec `yaml:"fields,omitempty"`
}

// FieldSpec declares one field. Size applies to scalars, Target to refs and inline values.
type FieldSpec struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Size   int    `yaml:"size,omitempty"`
	Target string `yaml:"target,omitempty"`
}

// Parse decodes a schema document into type descriptors.
func Parse(data []byte) ([]typegraph.TypeDesc, error) {
	return Load(bytes.NewReader(data))
}

// Load decodes a schema document from r.
func Load(r io.Reader) ([]typegraph.TypeDesc, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := checkVersion(f.Version); err != nil {
		return nil, err
	}
	return f.Descs()
}

// LoadFile reads and decodes the schema at path.
func LoadFile(path string) ([]typegraph.TypeDesc, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	descs, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return descs, nil
}

// LoadGraph reads the schema at path and lays it out.
func LoadGraph(path string) (*typegraph.Graph, error) {
	descs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := typegraph.Build(descs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func checkVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: no version", ErrVersion)
	}
	sv, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrVersion, v, err)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(sv) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrVersion, sv, SupportedVersions)
	}
	return nil
}

// Descs converts the document into type descriptors. It checks modes and
// field kinds; layout rules are left to typegraph.Build.
func (f File) Descs() ([]typegraph.TypeDesc, error) {
	if len(f.Types) == 0 {
		return nil, fmt.Errorf("%w: no types", ErrInvalid)
	}
	descs := make([]typegraph.TypeDesc, 0, len(f.Types))
	for i, ts := range f.Types {
		mode, err := types.ParseMode(ts.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: type %d (%s): %v", ErrInvalid, i+1, ts.Name, err)
		}
		d := typegraph.TypeDesc{Name: ts.Name, Mode: mode}
		for _, fs := range ts.Fields {
			kind, err := typegraph.ParseFieldKind(fs.Kind)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalid, ts.Name, fs.Name, err)
			}
			d.Fields = append(d.Fields, typegraph.FieldDesc{
				Name:   fs.Name,
				Kind:   kind,
				Size:   fs.Size,
				Target: fs.Target,
			})
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// FromDescs is the inverse of File.Descs.
func FromDescs(descs []typegraph.TypeDesc) File {
	f := File{Version: CurrentVersion, Types: make([]TypeSpec, 0, len(descs))}
	for _, d := range descs {
		ts := TypeSpec{Name: d.Name, Mode: d.Mode.String()}
		for _, fd := range d.Fields {
			ts.Fields = append(ts.Fields, FieldSpec{
				Name:   fd.Name,
				Kind:   fd.Kind.String(),
				Size:   fd.Size,
				Target: fd.Target,
			})
		}
		f.Types = append(f.Types, ts)
	}
	return f
}

// Marshal encodes descs as a schema document at CurrentVersion.
func Marshal(descs []typegraph.TypeDesc) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(FromDescs(descs)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
