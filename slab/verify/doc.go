// Package verify checks the structural invariants of object pools.
//
// # Overview
//
// The checks read a pool through its public inspection surface (Header,
// FreeChain, View) and never modify it. They are used by the registry after
// a sweep, by slabctl verify, and in tests after every mutation-heavy scenario.
//
// Validation categories:
//   - Headers: every slot carries the pool's type tag and mode; only slot 0 is the dummy
//   - Freelist: the chain is acyclic, links only free slots, and holds every free slot
//   - Occupancy: live + free equals capacity, and the header census agrees
//   - Counts: no live rc object sits at count zero
//   - Dummy: the dummy's reference fields point at the dummies of their targets
//
// # Quick Start
//
//	if err := verify.AllInvariants(p); err != nil {
//	    var verr *verify.ValidationError
//	    if errors.As(err, &verr) {
//	        fmt.Printf("%s at slot %d: %s\n", verr.Type, verr.Slot, verr.Message)
//	    }
//	}
//
// AllInvariants returns the first violation. Run the individual checks to
// look at one category.
//
// # Limitations
//
// Reference validity between objects (dangling refs, reachability) is not
// checked here; that is the registry's sweep.
package verify
