package snmptrigger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/switchback-net/switchback/internal/logger"
	"github.com/switchback-net/switchback/internal/werrors"
)

func TestTriggerRemoteWriteRequiresLocalIP(t *testing.T) {
	transport := New(161, time.Second, 0, logger.NewSimple())

	err := transport.TriggerRemoteWrite(context.Background(), "10.0.0.1", "public", "", "cfg-token")
	require.Error(t, err)
	assert.True(t, werrors.IsType(err, werrors.ErrorTypeTransport))
}

func TestSetTimesOutAgainstSilentTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out an SNMP timeout")
	}

	// TEST-NET-1 is guaranteed unrouteable; the set must come back
	// within the timeout budget instead of blocking.
	transport := New(161, 200*time.Millisecond, 0, logger.NewSimple())

	start := time.Now()
	err := transport.TriggerRemoteWrite(context.Background(), "192.0.2.1", "public", "192.0.2.10", "cfg-token")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, werrors.IsType(err, werrors.ErrorTypeTransport))
}
