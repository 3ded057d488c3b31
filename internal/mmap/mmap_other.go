//go:build !unix

package mmap

// mapAnon uses the Go heap where anonymous mappings are not available.
func mapAnon(n int) (*Region, error) {
	return &Region{Buf: make([]byte, n), release: func() error { return nil }}, nil
}
