package cache_impl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/two_services_system/cash_gateway/pkg/logger"
)

func TestProcessedEvents(t *testing.T) {
	c := NewExpirableProcessedEvents(2, time.Minute, logger.Discard())

	require.False(t, c.Contains("payment", "e1"))

	c.Add("payment", "e1")
	require.True(t, c.Contains("payment", "e1"))
	require.False(t, c.Contains("deadletter", "e1"))

	c.Add("payment", "e2")
	c.Add("payment", "e3")
	require.False(t, c.Contains("payment", "e1"), "oldest entry evicted")
	require.True(t, c.Contains("payment", "e3"))
}

func TestProcessedEventsExpire(t *testing.T) {
	c := NewExpirableProcessedEvents(10, 20*time.Millisecond, logger.Discard())

	c.Add("payment", "e1")
	require.Eventually(t, func() bool {
		return !c.Contains("payment", "e1")
	}, time.Second, 10*time.Millisecond)
}
