package app

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/connections-service/internal/config"
	"gitlab.com/dirk.krummacker/connections-service/internal/identity"
	"gitlab.com/dirk.krummacker/connections-service/internal/store"
)

func TestNewVerifier(t *testing.T) {
	v, err := NewVerifier(config.AuthConfig{Mode: config.AuthModeStatic, StaticUser: "alice"})
	require.NoError(t, err)
	assert.Equal(t, identity.StaticVerifier{UserID: "alice"}, v)

	v, err = NewVerifier(config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: "secret"})
	require.NoError(t, err)
	assert.IsType(t, &identity.JWTVerifier{}, v)

	_, err = NewVerifier(config.AuthConfig{Mode: config.AuthModeJWT})
	assert.Error(t, err)

	_, err = NewVerifier(config.AuthConfig{Mode: "magic"})
	assert.Error(t, err)
}

func freeAddress(t *testing.T) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())
	return address
}

// TestServeStopsOnCancel expects the server to answer requests and to stop when the context is
// cancelled.
func TestServeStopsOnCancel(t *testing.T) {
	address := freeAddress(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, zerolog.Nop(), address, handler, store.NewMemoryStore())
	}()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + address + "/")
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusNoContent
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
}

// TestRunFailsOnBadConfiguration expects startup errors before the server starts.
func TestRunFailsOnBadConfiguration(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{URI: "postgres://localhost/nexus"},
		Auth:     config.AuthConfig{Mode: config.AuthModeStatic, StaticUser: "u"},
		Port:     8080,
		LogLevel: "disabled",
	}
	err := Run(context.Background(), cfg)
	assert.ErrorIs(t, err, store.ErrUnsupportedScheme)
}
