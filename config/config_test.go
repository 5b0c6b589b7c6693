package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  sync_requested_topic_name: "order.sync.requested"
  status_changed_topic_name: "order.status.changed"
redis:
  host: "localhost"
  port: 6379
shipsync:
  http_addr: ":8080"
  kafka_consumer_group: "shipsync-api"
  current_view_ttl_seconds: 300
  provider_mode: "fake"
  worker_batch_size: 50
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "order.sync.requested", cfg.Kafka.SyncRequestedTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.ShipSync.HTTPAddr)
	require.Equal(t, "fake", cfg.ShipSync.ProviderMode)
	require.Equal(t, 50, cfg.ShipSync.WorkerBatchSize)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
