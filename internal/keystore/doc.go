// Package keystore implements the durable slot storage the engine keeps
// its sealed key material in: a bbolt-backed store for real installations
// and an in-memory store for tests.
package keystore
