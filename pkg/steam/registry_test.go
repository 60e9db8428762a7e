package steam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDriver struct{ name string }

func (d *stubDriver) Login(context.Context, Credentials) (string, error) {
	return d.name, nil
}

func (d *stubDriver) Connect(context.Context, string, ConnectOptions) (Conn, error) {
	return nil, nil
}

func TestRegisterAndLookupDriver(t *testing.T) {
	d := &stubDriver{name: "reg-test"}
	RegisterDriver("reg-test", d)

	got, err := LookupDriver("reg-test")
	require.NoError(t, err)
	assert.Same(t, Driver(d), got)

	assert.Contains(t, Drivers(), "reg-test")
}

func TestLookupUnknownDriver(t *testing.T) {
	_, err := LookupDriver("no-such-driver")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown session driver")
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	RegisterDriver("dup-test", &stubDriver{})
	assert.Panics(t, func() {
		RegisterDriver("dup-test", &stubDriver{})
	})
}

func TestNilDriverPanics(t *testing.T) {
	assert.Panics(t, func() {
		RegisterDriver("nil-test", nil)
	})
}
