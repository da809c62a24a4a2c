// Package mongotest starts a disposable MongoDB container for integration
// tests. Callers guard their tests with the integration build tag.
package mongotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/medmigrate/pkg/mongox"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
)

const image = "mongo:7"

// Start runs a MongoDB container for the lifetime of t and returns a connected
// client. The container is terminated during cleanup.
func Start(t *testing.T) *mongo.Client {
	t.Helper()

	client, err := mongox.Connect(context.Background(), StartURI(t), 30*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})

	return client
}

// StartURI runs a MongoDB container for the lifetime of t and returns its
// connection string.
func StartURI(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForLog("Waiting for connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	return fmt.Sprintf("mongodb://%s:%s", host, port.Port())
}
