/*
Package log provides structured logging for the idler using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific loggers, configurable log levels, and
helper functions for common logging patterns. All logs include
timestamps and support filtering by severity level.

# Architecture

	┌──────────────────── LOGGING SYSTEM ────────────────────┐
	│                                                          │
	│  ┌────────────────────────────────────────────┐         │
	│  │            Global Logger                    │         │
	│  │  - Zerolog instance                         │         │
	│  │  - Initialized via log.Init()               │         │
	│  │  - Thread-safe for concurrent use           │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │           Configuration                     │         │
	│  │  - Level: debug/info/warn/error             │         │
	│  │  - Format: JSON or console (human)          │         │
	│  │  - Output: stdout, file, or custom writer   │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │         Component Loggers                   │         │
	│  │  - WithComponent("idler")                   │         │
	│  │  - WithAccount("mycollector")               │         │
	│  │  - WithAppID(570)                           │         │
	│  │  - WithCycle("9f3a01c2")                    │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │            Log Output                       │         │
	│  │                                             │         │
	│  │  JSON Format:                               │         │
	│  │  {                                          │         │
	│  │    "level": "info",                         │         │
	│  │    "component": "idler",                    │         │
	│  │    "time": "2026-08-21T10:30:00Z",          │         │
	│  │    "message": "active set applied"          │         │
	│  │  }                                          │         │
	│  │                                             │         │
	│  │  Console Format:                            │         │
	│  │  10:30AM INF active set applied component=idler │     │
	│  └────────────────────────────────────────────┘          │
	└──────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init() at daemon startup
  - Accessible from all packages
  - Thread-safe concurrent writes

Component Loggers:
  - Child loggers carrying a fixed field
  - WithComponent tags the owning subsystem (idler, supervisor, api)
  - WithAccount tags the Steam account name
  - WithAppID tags a single app's lifecycle events
  - WithCycle correlates all lines of one discovery or refresh pass

# Usage

Initialize at startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Component logger held by a subsystem:

	logger := log.WithComponent("supervisor")
	logger.Info().Int("code", 3).Msg("session dropped")

Correlating a refresh cycle:

	cycle := log.WithCycle(cycleID)
	cycle.Debug().Int("candidates", len(ids)).Msg("ranked candidates")
	cycle.Info().Int("added", added).Int("removed", removed).Msg("refresh complete")

Quick helpers for one-off lines:

	log.Info("daemon started")
	log.Errorf("cache persist failed", err)

# Levels

Debug is reserved for per-app and per-request detail (probe outcomes,
badge page parsing, declare payloads). Info covers lifecycle
transitions and cycle summaries. Warn marks degraded-but-continuing
conditions such as a reward source returning nothing. Error marks
failed operations that the daemon survives; Fatal exits.

# See Also

  - pkg/idler: cycle logging conventions
  - pkg/supervisor: connection lifecycle logging
*/
package log
