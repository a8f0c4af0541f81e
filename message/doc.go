/*
Package message defines the synthetic broker message built for every emulated publish
or request, along with body encoding, correlation id generation and conversion to and
from AMQP deliveries.
*/
package message
