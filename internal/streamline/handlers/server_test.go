package handlers

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/controller"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// stubRouter serves a single public route.
type stubRouter struct{}

func (stubRouter) Register(mux *runtime.ServeMux) error {
	return mux.HandlePath(http.MethodGet, "/api/ping", func(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
		writeJSON(w, http.StatusOK, map[string]string{"pong": "ok"})
	})
}

func (stubRouter) Wrap(next http.Handler) http.Handler { return next }

var insecureDial = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}

func TestServer_RegisterHTTPGateway(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(50071, 8091, logger)

	err := s.RegisterHTTPGateway(insecureDial, stubRouter{}, []string{"http://localhost:3000"})
	require.NoError(t, err, "RegisterHTTPGateway failed")
	t.Cleanup(func() { _ = s.conn.Close() })

	if s.httpServer.Handler == nil {
		t.Error("expected httpServer.Handler to be set")
	}
	if s.httpServer.Addr != s.httpEndpoint {
		t.Errorf("expected httpServer.Addr %q, got %q", s.httpEndpoint, s.httpServer.Addr)
	}
}

func TestServer_RegisterAPI(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(50072, 8092, logger)

	issuer := auth.NewIssuer("secret", time.Hour)
	api := NewAPI(&controller.Services{}, Options{
		Issuer:   issuer,
		Sessions: auth.NewSessionManager("secret", time.Hour, time.Minute, false),
	}, logger)
	require.NoError(t, s.RegisterHTTPGateway(insecureDial, api, nil))
	t.Cleanup(func() { _ = s.conn.Close() })
}

func TestServer_StartStop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(50073, 8093, logger, grpc.Creds(insecure.NewCredentials()))
	require.NoError(t, s.RegisterHTTPGateway(insecureDial, stubRouter{}, nil))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	// Give the server a moment to start.
	time.Sleep(200 * time.Millisecond)

	conn, err := grpc.NewClient(s.grpcEndpoint, insecureDial...)
	require.NoError(t, err, "failed to connect to gRPC server")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	_ = conn.Close()

	for _, path := range []string{"/healthz", "/api/ping"} {
		res, err := http.Get("http://localhost" + s.httpEndpoint + path)
		require.NoError(t, err, path)
		body, _ := io.ReadAll(res.Body)
		_ = res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode, "%s: %s", path, body)
	}

	s.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Server Start returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for server to stop")
	}

	// The gRPC port must be free again after shutdown.
	lis, err := net.Listen("tcp", s.grpcEndpoint)
	if err != nil {
		t.Errorf("expected to be able to listen on %q after shutdown, but got error: %v", s.grpcEndpoint, err)
	} else {
		lis.Close()
	}
}
