// Package xproto implements the protocol core of a MySQL X Protocol client
// driver: the framed message codec, the connection lifecycle state machine
// (capabilities, optional TLS, SASL authentication), the request/reply
// dispatcher for streaming result sets, and the endpoint router/failover
// controller.
//
// The fluent query builder, schema manipulation verbs, statement id
// generation, URI parsing, and logging configuration live outside this
// package; xproto only exposes connect/submit/close and a typed reply
// stream for those layers to build on.
package xproto
