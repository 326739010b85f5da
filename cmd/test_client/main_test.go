package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessingStats_CountsInclusionOnly(t *testing.T) {
	stats := &processingStats{total: 3}

	stats.update(nil)
	stats.update(nil)
	stats.update(errNotProcessed)

	require.Equal(t, int32(3), stats.done)
	require.Equal(t, int32(2), stats.included)
	require.Equal(t, int32(1), stats.notIncluded)
}
