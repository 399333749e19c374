// Package dispatch fans group-wide commands out to every member.
//
// Commands go to the master and all slaves concurrently, so group-wide
// latency is bounded by the slowest member, not the sum. Each member's
// send is isolated: a failure never cancels or rolls back siblings —
// physical devices cannot be un-commanded. Every member gets its own
// timeout and its own outcome in the aggregated result.
//
// The dispatcher holds no shared mutable state; each Dispatch call is
// self-contained and operates on the group snapshot passed in. A
// topology change mid-dispatch does not redirect commands already in
// flight.
package dispatch
