package pool

import (
	"testing"

	"github.com/joshuapare/slabkit/pkg/types"
)

// BenchmarkPool_AllocRelease measures a single alloc/release round trip on a warm pool.
func BenchmarkPool_AllocRelease(b *testing.B) {
	p := newTestPool(b, "Node", Options{})

	b.ReportAllocs()
	for b.Loop() {
		ref, err := p.Alloc()
		if err != nil {
			b.Fatal(err)
		}
		if err := p.Release(ref); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPool_Churn keeps a working set live and recycles it, growing the pool once.
func BenchmarkPool_Churn(b *testing.B) {
	tests := []struct {
		name string
		size int
	}{
		{name: "Small", size: 64},
		{name: "Large", size: 4096},
	}
	for _, tt := range tests {
		b.Run(tt.name, func(b *testing.B) {
			p := newTestPool(b, "Leaf", Options{SlotsPerChunk: 256})
			refs := make([]types.Ref, tt.size)

			b.ReportAllocs()
			for b.Loop() {
				for i := range refs {
					ref, err := p.Alloc()
					if err != nil {
						b.Fatal(err)
					}
					refs[i] = ref
				}
				for _, ref := range refs {
					if err := p.Release(ref); err != nil {
						b.Fatal(err)
					}
				}
			}
		})
	}
}

// BenchmarkPool_AddCount measures the header read-modify-write used by rc updates.
func BenchmarkPool_AddCount(b *testing.B) {
	p := newTestPool(b, "Node", Options{})
	ref, err := p.Alloc()
	if err != nil {
		b.Fatal(err)
	}

	for b.Loop() {
		if _, err := p.AddCount(ref, 1); err != nil {
			b.Fatal(err)
		}
		if _, err := p.AddCount(ref, -1); err != nil {
			b.Fatal(err)
		}
	}
}
