// Package engine owns the mutable cryptographic state of one local
// installation: identity and registration material, the PIN-derived
// master key, and the LRU cache of pairwise sessions. A single mutex
// serializes every operation so ratchet state never races.
package engine
