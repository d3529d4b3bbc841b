// Package membership answers who belongs to a group. The Postgres store
// is the production backing; the memory store serves tests and
// single-node setups.
package membership
