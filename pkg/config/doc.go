/*
Package config loads and validates the daemon configuration.

Configuration is a YAML file layered over built-in defaults, with a
small set of environment overrides on top. Every knob has a default
that makes the daemon usable with nothing but an account name and
password, so a minimal config file is genuinely minimal.

# Layers

 1. Default() builds the baseline.
 2. The YAML file (if given) overrides whatever keys it sets.
 3. Environment variables override both, for the secrets and the few
    values that change between deployments:

	STEAM_ACCOUNT      account.name
	STEAM_PASSWORD     account.password
	STEAM_API_KEY      account.api_key
	IDLER_API_ADDR     api.addr
	IDLER_LOG_LEVEL    log.level
	IDLER_PARALLELISM  idle.parallelism

# Example

	account:
	  name: idlebot
	  api_key: "..."
	idle:
	  parallelism: 20
	  refresh_schedule: "@every 5m"
	  restart_after: 2h
	connection:
	  auto_relogin: true
	cache:
	  backend: file
	  path: /var/lib/idler/card-capability.json
	api:
	  addr: 127.0.0.1:8809

Durations accept Go syntax ("90s", "2h") or a bare integer number of
seconds. The refresh schedule is a cron expression and also accepts
the "@every <duration>" shorthand.

Validate runs on every Load. It rejects impossible values rather than
silently fixing them, with one exception: a display limit above the
session cap is clamped, because the cap is a hard protocol property
and asking for more is a harmless overstatement.

# See Also

  - pkg/idler: consumes the idle section
  - pkg/supervisor: consumes the connection section
*/
package config
