// Package testnats runs a throwaway NATS server for messaging tests.
package testnats

import (
	"context"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	image      = "nats:2.10-alpine"
	clientPort = "4222/tcp"
)

var (
	shared     *NATSContainer
	sharedErr  error
	sharedOnce sync.Once
)

type NATSContainer struct {
	Container testcontainers.Container
	URL       string
}

// SetupSharedNATS starts one server per test binary. Only one test should
// call Cleanup on it. Skipped under -short.
func SetupSharedNATS(t *testing.T) *NATSContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping NATS integration test in short mode")
	}

	sharedOnce.Do(func() {
		shared, sharedErr = start(context.Background())
	})
	require.NoError(t, sharedErr, "start nats container")
	return shared
}

func start(ctx context.Context) (*NATSContainer, error) {
	container, err := testcontainers.Run(ctx, image,
		testcontainers.WithExposedPorts(clientPort),
		testcontainers.WithWaitStrategy(wait.ForListeningPort(clientPort)),
	)
	if err != nil {
		return nil, err
	}

	url, err := container.PortEndpoint(ctx, clientPort, "nats")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &NATSContainer{Container: container, URL: url}, nil
}

func (nc *NATSContainer) Cleanup(t *testing.T) {
	t.Helper()
	if nc.Container == nil {
		return
	}
	if err := nc.Container.Terminate(context.Background()); err != nil {
		t.Logf("terminate nats container: %v", err)
	}
}

// Connect opens a plain client connection that is closed when t finishes.
func (nc *NATSContainer) Connect(t *testing.T) *nats.Conn {
	t.Helper()

	conn, err := nats.Connect(nc.URL)
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}
