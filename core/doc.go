// Package core contains the issue sync domain records, store contracts, error
// envelopes and configuration. Webhook dispatch, provider payload handling and
// persistence adapters depend on this package; core must not depend on them.
package core
