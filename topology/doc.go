/*
Package topology holds the broker topology value objects (queues, exchanges, bindings)
and the topic pattern matcher used to emulate exchange routing in memory.
*/
package topology
