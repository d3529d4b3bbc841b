// Package fanout computes, per delivery request, how a group's message
// splits across servers: which members are reachable, which server holds
// each of them, and who needs offline delivery instead.
package fanout
