/*
Package steam defines the session protocol seam.

The daemon never speaks the Steam wire protocol itself. Everything it
needs from a session is narrowed to three interfaces: Authenticator
turns credentials into a refresh token, Connector turns a refresh
token into a live Conn, and Conn exposes the four operations the rest
of the daemon consumes. Concrete drivers live behind this seam; the
in-tree one is pkg/steam/loopback.

# Architecture

	┌─────────────────── SESSION SEAM ───────────────────┐
	│                                                      │
	│   supervisor                                         │
	│       │ Login(ctx, creds)                            │
	│       ▼                                              │
	│   Authenticator ──────► refresh token                │
	│       │                                              │
	│       │ Connect(ctx, token, opts)                    │
	│       ▼                                              │
	│   Connector ──────────► Conn                         │
	│                          │                           │
	│        ┌─────────────────┼──────────────────┐        │
	│        ▼                 ▼                  ▼        │
	│   Events()        DeclareActive()      Connected()   │
	│   LoggedOn        replace in-play      liveness      │
	│   Disconnected    app id set           poll          │
	│   FatalError                                         │
	│   WebSession                                         │
	└──────────────────────────────────────────────────────┘

# Event Contract

Events() delivers notifications in the order the driver observed
them. The complete set:

  - LoggedOnEvent: logon finished, both initial and driver relogin
  - DisconnectedEvent: session dropped, Code is the driver's reason
  - FatalErrorEvent: unrecoverable, the driver gives up
  - WebSessionEvent: browser-grade cookies became available

The channel is closed by Close and only by Close. Consumers can
therefore treat channel closure as "this handle is finished" and a
received event as "this handle is still the live one".

# Declare Semantics

DeclareActive replaces the whole in-play set on every call; there is
no incremental add or remove. The session accepts at most
MaxDeclaredApps ids per call and silently ignores the rest, so
callers truncate first. The call is fire-and-forget: a nil error
means the request was written, not that the network applied it. An
empty slice clears the in-play state.

# Auto Relogin

ConnectOptions.AutoRelogin asks the driver to re-establish a dropped
session on its own. A driver that honors it emits DisconnectedEvent
followed eventually by another LoggedOnEvent on the same Conn.
Supervision code still keeps its own fallback for drivers (or drops)
the native relogin cannot recover.

# Drivers

Drivers register under a name, in the manner of database/sql:

	steam.RegisterDriver("loopback", loopback.New(accountID))

	driver, err := steam.LookupDriver("loopback")

A Driver is anything that is both an Authenticator and a Connector.
The daemon resolves its --driver flag through the registry, so a real
protocol driver plugs in from outside this repository.

# Usage

	token, err := auth.Login(ctx, steam.Credentials{
		AccountName: "collector",
		Password:    pw,
	})
	if err != nil {
		return err
	}

	conn, err := connector.Connect(ctx, token, steam.ConnectOptions{AutoRelogin: true})
	if err != nil {
		return err
	}
	defer conn.Close()

	for ev := range conn.Events() {
		switch e := ev.(type) {
		case steam.LoggedOnEvent:
			_ = conn.DeclareActive([]uint32{440, 570})
		case steam.DisconnectedEvent:
			// schedule recovery
			_ = e.Code
		}
	}

# See Also

  - pkg/steam/loopback: in-process driver for tests and dry runs
  - pkg/supervisor: the daemon's consumer of this seam
*/
package steam
