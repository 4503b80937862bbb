package producer

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	cfg := Config("cash-gateway-service")

	require.NoError(t, cfg.Validate())
	require.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	require.True(t, cfg.Producer.Idempotent)
	require.True(t, cfg.Producer.Return.Successes)
}
