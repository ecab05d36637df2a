package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyResidentReportsGap(t *testing.T) {
	t.Parallel()

	fn := FetcherFunc(func(context.Context, Request) (*Response, error) {
		t.Fatal("copyResident must not fetch")
		return nil, nil
	})
	s, err := New(fn, 30, WithBlockSize(10))
	require.NoError(t, err)
	s.blocks[0] = &block{start: 0, data: make([]byte, 10)}

	_, err = s.copyResident(5, 10)
	require.ErrorIs(t, err, ErrNotResident)
	assert.NotErrorIs(t, err, ErrShortResponse)

	got, err := s.copyResident(2, 8)
	require.NoError(t, err)
	assert.Len(t, got, 8)
}
