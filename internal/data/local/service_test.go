package local_test

import (
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ethsigner/internal/data/local"
)

func TestServiceDisabled(t *testing.T) {
	s := local.NewService("", time2.DefaultClock)
	assert.False(t, s.Enabled())

	previous, err := s.Record(9, common.Address{})
	require.NoError(t, err)
	assert.Nil(t, previous)
}

func TestServiceRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	s := local.NewService(dir, time2.NewMockClock(now))

	state, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, state)

	addr := common.HexToAddress("0xfe3b557e8fb62b89f4916b721be55ceb828dbd73")

	previous, err := s.Record(9, addr)
	require.NoError(t, err)
	assert.Nil(t, previous)

	previous, err = s.Record(2018, addr)
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, int64(9), previous.ChainID)
	assert.Equal(t, addr.Hex(), previous.Address)
	assert.True(t, now.Equal(previous.StartedAt))

	state, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(2018), state.ChainID)
}
