package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/host/snapshot"
)

func TestMemReadWords(t *testing.T) {
	s := snapshot.New(4)
	addr := s.Alloc(16)
	s.WriteU64(addr, 0x7ff612340010)
	s.WriteU64(addr+8, 0x7ff612340020)
	p := host.ToPointer(s, addr)

	words, err := p.MemReadWords(2, 8)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x7ff612340010, 0x7ff612340020}, words)

	words, err = p.MemReadWords(2, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x12340010, 0x7ff6}, words)

	ptrs, err := p.MemReadPointers(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x12340010), ptrs[0].Address())

	_, err = host.ToPointer(s, 0x10).MemReadWords(1, 8)
	assert.ErrorIs(t, err, host.ErrMemoryUnavailable)
}
