// Package presence tracks which users hold live connections, and where,
// in a store shared by every delivery node. Entries expire on their own
// so a crashed node's connections disappear without cleanup.
package presence
