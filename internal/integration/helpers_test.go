//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/couchcryptid/climate-records/internal/catalog"
	"github.com/couchcryptid/climate-records/internal/domain"
	"github.com/couchcryptid/climate-records/internal/record"
	"github.com/couchcryptid/climate-records/internal/subhourly"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const mockDir = "../../data/mock"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("climate-records-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// loadMockData returns the raw element value rows of the mock fixture.
func loadMockData(t *testing.T) []json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(mockDir, "raw_element_values.json"))
	require.NoError(t, err)

	var rows []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &rows))
	return rows
}

// mockResolver resolves records against the mock catalog.
func mockResolver(t *testing.T) *record.Resolver {
	t.Helper()
	cat, err := catalog.LoadFile(filepath.Join(mockDir, "catalog.yaml"))
	require.NoError(t, err)
	groups, err := subhourly.New()
	require.NoError(t, err)
	return record.NewResolver(cat, groups)
}

// firstValidRow returns the first mock row that carries a value.
func firstValidRow(t *testing.T, rows []json.RawMessage) (json.RawMessage, domain.RawRecord) {
	t.Helper()
	for _, row := range rows {
		var rr domain.RawRecord
		require.NoError(t, json.Unmarshal(row, &rr))
		if rr.Value != nil {
			return row, rr
		}
	}
	t.Fatal("mock data has no row with a value")
	return nil, domain.RawRecord{}
}
