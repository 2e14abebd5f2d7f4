// Package notifier turns detected rank changes into chat messages.
//
// Delivery is synchronous, rate limited and retried with jittered backoff.
// A message that still cannot be delivered is logged and dropped: callers
// never see delivery errors.
//
// The service also keeps a small in-memory history of sent messages for the
// /ranks command and debugging.
package notifier
