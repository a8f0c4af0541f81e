/*
Package broker is the client-side registry of subscribers and publishers declared against
broker destinations. It owns the handler execution pipeline (decoding, validation,
middleware, reply building) and delegates sending to a contract/broker.Producer, which is
either a live adapter or the in-memory testbroker.FakeProducer.
*/
package broker
