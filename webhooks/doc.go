// Package webhooks routes inbound webhook deliveries to the processor
// registered for their type and renders the two-field response envelope.
//
// Dispatcher.Handle is the only place where errors become responses; every
// layer below it returns errors unchanged.
package webhooks
