/*
Package rabbitmq provides a RabbitMQ producer for the broker.
It maps publish commands to AMQP publishings, answers requests over direct reply-to,
declares exchanges, queues and bindings for registered subscribers, includes an
auto-reconnect publisher, and supports optional header propagation via a broker.HeaderPropagator.
*/
package rabbitmq
