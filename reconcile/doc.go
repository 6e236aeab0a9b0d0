// Package reconcile applies create, update and delete events to a keyed record
// store. One Reconciler serves every entity kind; a Kind supplies the key
// extractor and the two mapping modes.
package reconcile
