package types

import (
	"sort"
	"time"
)

// RewardRecord is one app's reward standing as reported by a reward
// source. A nil Remaining means the source could not determine the
// count; it must never be collapsed to zero.
type RewardRecord struct {
	AppID     uint32
	Remaining *int
	Hours     *float64 // hours on record, badge document only
}

// HasDrops reports whether the record confirms at least one pending drop.
func (r RewardRecord) HasDrops() bool {
	return r.Remaining != nil && *r.Remaining > 0
}

// Exhausted reports whether the record confirms zero pending drops.
// An unknown count is not exhaustion.
func (r RewardRecord) Exhausted() bool {
	return r.Remaining != nil && *r.Remaining == 0
}

// OwnedGame is one entry of the account's owned catalog.
type OwnedGame struct {
	AppID           uint32
	PlaytimeMinutes int
}

// IdlerState describes the lifecycle of the idling scheduler.
type IdlerState string

const (
	IdlerStateIdle        IdlerState = "idle"
	IdlerStateDiscovering IdlerState = "discovering"
	IdlerStateActive      IdlerState = "active"
	IdlerStateRefreshing  IdlerState = "refreshing"
	IdlerStateStopped     IdlerState = "stopped"
)

// ConnState describes the session supervisor's connection lifecycle.
type ConnState string

const (
	ConnStateDisconnected ConnState = "disconnected"
	ConnStateConnecting   ConnState = "connecting"
	ConnStateConnected    ConnState = "connected"
)

// ActiveApp is a snapshot of one member of the active idling set.
type ActiveApp struct {
	AppID      uint32
	AddedAt    time.Time
	LastBounce time.Time // zero if the app was never play-bounced
	Bouncing   bool
}

// SortAppIDs sorts app ids ascending in place and returns the slice.
func SortAppIDs(ids []uint32) []uint32 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
