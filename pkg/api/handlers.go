package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ArtyProf/steam-card-idler/pkg/events"
	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

// defaultEventLimit bounds /v1/events responses when no limit is
// given.
const defaultEventLimit = 50

// StatusResponse is the /v1/status payload. Sections for components
// that are not running are omitted.
type StatusResponse struct {
	Idler   *IdlerStatus   `json:"idler,omitempty"`
	Session *SessionStatus `json:"session,omitempty"`
	Cache   *CacheSummary  `json:"cache,omitempty"`
}

// IdlerStatus summarizes the idling scheduler.
type IdlerStatus struct {
	State        string     `json:"state"`
	Active       []uint32   `json:"active"`
	Target       int        `json:"target"`
	EverRewarded int        `json:"ever_rewarded"`
	LastRefresh  *time.Time `json:"last_refresh,omitempty"`
	NextRefresh  *time.Time `json:"next_refresh,omitempty"`
}

// SessionStatus summarizes the session supervisor.
type SessionStatus struct {
	State     string `json:"state"`
	Account   string `json:"account,omitempty"`
	AccountID uint64 `json:"account_id,omitempty"`
}

// CacheSummary is the capability cache line in /v1/status.
type CacheSummary struct {
	Size int `json:"size"`
}

// ActiveResponse is the /v1/active payload.
type ActiveResponse struct {
	Apps []ActiveAppStatus `json:"apps"`
}

// ActiveAppStatus is one member of the active set.
type ActiveAppStatus struct {
	AppID      uint32     `json:"appid"`
	AddedAt    time.Time  `json:"added_at"`
	LastBounce *time.Time `json:"last_bounce,omitempty"`
	Bouncing   bool       `json:"bouncing"`
}

// EventsResponse is the /v1/events payload, newest first.
type EventsResponse struct {
	Events []*events.Event `json:"events"`
	Count  int             `json:"count"`
}

// CacheResponse is the /v1/cache payload.
type CacheResponse struct {
	Size    int             `json:"size"`
	Capable int             `json:"capable"`
	Entries map[uint32]bool `json:"entries"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{}

	if s.deps.Idler != nil {
		st := &IdlerStatus{
			State:        string(s.deps.Idler.State()),
			Active:       appIDs(s.deps.Idler.ActiveSet()),
			Target:       s.deps.Idler.Target(),
			EverRewarded: s.deps.Idler.EverRewardedCount(),
		}
		if t := s.deps.Idler.LastRefresh(); !t.IsZero() {
			st.LastRefresh = &t
		}
		if t := s.deps.Idler.NextRefresh(); !t.IsZero() {
			st.NextRefresh = &t
		}
		resp.Idler = st
	}

	if s.deps.Session != nil {
		st := &SessionStatus{State: string(s.deps.Session.State())}
		if s.deps.Account != nil {
			st.Account = s.deps.Account.AccountName()
			st.AccountID = s.deps.Account.AccountID()
		}
		resp.Session = st
	}

	if s.deps.Cache != nil {
		resp.Cache = &CacheSummary{Size: s.deps.Cache.Len()}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	if s.deps.Idler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}

	set := s.deps.Idler.ActiveSet()
	apps := make([]ActiveAppStatus, 0, len(set))
	for _, a := range set {
		entry := ActiveAppStatus{
			AppID:    a.AppID,
			AddedAt:  a.AddedAt,
			Bouncing: a.Bouncing,
		}
		if !a.LastBounce.IsZero() {
			lb := a.LastBounce
			entry.LastBounce = &lb
		}
		apps = append(apps, entry)
	}
	writeJSON(w, http.StatusOK, ActiveResponse{Apps: apps})
}

// handleRefresh kicks a refresh cycle without waiting for it. The
// scheduler's own guard refuses overlapping cycles, so the state
// check here only exists to answer with something better than 202
// when the outcome is already known.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.deps.Idler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}

	switch s.deps.Idler.State() {
	case types.IdlerStateRefreshing:
		writeError(w, http.StatusConflict, "refresh already in flight")
	case types.IdlerStateActive:
		// Failures are logged and counted by the scheduler itself.
		go func() { _ = s.deps.Idler.RefreshNow() }()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
	default:
		writeError(w, http.StatusConflict, "scheduler not active")
	}
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	if s.deps.Session == nil {
		writeError(w, http.StatusServiceUnavailable, "session not running")
		return
	}

	if s.deps.Session.State() == types.ConnStateConnecting {
		writeError(w, http.StatusConflict, "reconnect already in flight")
		return
	}
	go func() { _ = s.deps.Session.ReconnectNow() }()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reconnect started"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "event history not running")
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	recent := s.deps.History.Recent(limit)
	writeJSON(w, http.StatusOK, EventsResponse{Events: recent, Count: len(recent)})
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache not running")
		return
	}

	entries := s.deps.Cache.Snapshot()
	capable := 0
	for _, ok := range entries {
		if ok {
			capable++
		}
	}
	writeJSON(w, http.StatusOK, CacheResponse{
		Size:    len(entries),
		Capable: capable,
		Entries: entries,
	})
}

func appIDs(set []types.ActiveApp) []uint32 {
	ids := make([]uint32, 0, len(set))
	for _, a := range set {
		ids = append(ids, a.AppID)
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
