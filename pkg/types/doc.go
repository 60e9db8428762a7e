/*
Package types defines the core data structures shared across the idler.

This package contains the fundamental types that represent the daemon's
domain model: reward standings, owned catalog entries, and the state
enums of the two long-running loops (the idling scheduler and the
session supervisor). These types are used by every other package, so
this package imports nothing but the standard library.

# Core Types

Reward discovery:

  - RewardRecord: one app's reward standing from a single source
  - OwnedGame: one entry of the account's owned catalog

Lifecycle enums:

  - IdlerState: idle, discovering, active, refreshing, stopped
  - ConnState: disconnected, connecting, connected

Snapshots:

  - ActiveApp: point-in-time view of one active idling slot

# The Remaining Pointer

RewardRecord.Remaining is deliberately a *int rather than an int.
Reward sources frequently cannot determine a count: a badge page block
may carry no recognizable marker, or the numeric feed may omit an app
entirely. Those cases must stay distinguishable from a confirmed zero,
because a confirmed zero retires an app while an unknown count must
never do so.

	var unknown *int            // source could not tell
	zero := 0                   // source confirmed exhaustion
	three := 3                  // source confirmed pending drops

	types.RewardRecord{AppID: 440, Remaining: nil}    // keep idling
	types.RewardRecord{AppID: 440, Remaining: &zero}  // retire
	types.RewardRecord{AppID: 440, Remaining: &three} // keep idling

The HasDrops and Exhausted helpers encode this distinction; callers
should use them instead of dereferencing Remaining directly.

# State Machines

IdlerState transitions:

	idle -> discovering -> active <-> refreshing
	                |          |
	                +-> stopped <-+

ConnState transitions:

	disconnected -> connecting -> connected
	      ^                           |
	      +---------------------------+

Both enums are plain strings so they serialize cleanly into logs,
events, and API responses.

# Usage

	rec := types.RewardRecord{AppID: 570, Remaining: &three}
	if rec.HasDrops() {
		// admit to the active set
	}

	ids := types.SortAppIDs([]uint32{730, 440, 570})
	// ids == [440, 570, 730]

# See Also

  - pkg/ranker: merges and orders RewardRecords into candidates
  - pkg/idler: owns the IdlerState machine
  - pkg/supervisor: owns the ConnState machine
*/
package types
