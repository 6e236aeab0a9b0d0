// Package httpapi exposes the webhook dispatcher and the read queries over
// HTTP using a chi router.
//
// Every POST is treated as a webhook delivery. The webhook type comes from
// the request path and the reply is always HTTP 200 with a
// {"status","message"} body.
package httpapi
