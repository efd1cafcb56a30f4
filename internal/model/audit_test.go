package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeID(t *testing.T) {
	t.Parallel()

	record := AuditRecord{
		FileID:    "file-1",
		Actor:     "alice",
		Action:    "registered file",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		PrevHash:  ZeroHash,
	}

	first := record.ComputeID()
	require.Len(t, first, 64)
	require.Equal(t, first, record.ComputeID())

	changed := record
	changed.Action = "something else"
	require.NotEqual(t, first, changed.ComputeID())

	shifted := record
	shifted.Timestamp = record.Timestamp.Add(time.Nanosecond)
	require.NotEqual(t, first, shifted.ComputeID())
}
