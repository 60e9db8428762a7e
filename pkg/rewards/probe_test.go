package rewards

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryProbe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{
			name:   "has trading cards",
			status: http.StatusOK,
			body:   `{"730":{"success":true,"data":{"categories":[{"id":2,"description":"Single-player"},{"id":29,"description":"Steam Trading Cards"}]}}}`,
			want:   true,
		},
		{
			name:   "no trading cards",
			status: http.StatusOK,
			body:   `{"730":{"success":true,"data":{"categories":[{"id":2,"description":"Single-player"}]}}}`,
			want:   false,
		},
		{
			name:   "no categories at all",
			status: http.StatusOK,
			body:   `{"730":{"success":true,"data":{}}}`,
			want:   false,
		},
		{
			name:   "delisted app",
			status: http.StatusOK,
			body:   `{"730":{"success":false}}`,
			want:   false,
		},
		{
			name:    "missing app key",
			status:  http.StatusOK,
			body:    `{"440":{"success":true}}`,
			wantErr: true,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `<html>throttled</html>`,
			wantErr: true,
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			body:    "bad gateway",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "730", r.URL.Query().Get("appids"))
				assert.Equal(t, "categories", r.URL.Query().Get("filters"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewCategoryProbe(ProbeConfig{BaseURL: srv.URL})
			got, err := p.Probe(context.Background(), 730)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryProbeCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"730":{"success":true}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewCategoryProbe(ProbeConfig{BaseURL: srv.URL})
	_, err := p.Probe(ctx, 730)
	require.Error(t, err)
}
