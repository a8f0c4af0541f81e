/*
Package routing decides which subscribers a broker would deliver a message to.

Matching is a pure function of the subscriber topology, the routing key, the message
headers and the exchange the message was published to. The exchange must equal the
subscriber's exchange before any kind-specific rule is evaluated.
*/
package routing
