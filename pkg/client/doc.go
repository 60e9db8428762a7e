/*
Package client is a thin HTTP client for the daemon's admin API. The
CLI subcommands use it to answer "what is the daemon doing" without
linking any daemon internals.

# Usage

	c := client.NewClient("127.0.0.1:8809")
	status, err := c.Status()
	if err != nil {
		return err
	}
	fmt.Println(status.Idler.State)

Every call carries its own timeout. Errors distinguish an
unreachable daemon from one that refused the request, and surface
the daemon's own error message when it sent one.

# See Also

  - Package api for the endpoint shapes this client decodes.
*/
package client
