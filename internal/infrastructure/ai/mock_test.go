package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

func TestStaticRetriever_TruncatesToK(t *testing.T) {
	r := StaticRetriever{Passages: []string{"a", "b", "c"}}

	passages, err := r.Retrieve(context.Background(), "query", "mod-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, passages)

	passages, err = r.Retrieve(context.Background(), "query", "mod-1", 0)
	require.NoError(t, err)
	assert.Len(t, passages, 3)
}

func TestStaticRetriever_Outage(t *testing.T) {
	r := StaticRetriever{Err: errors.New("search index down")}

	_, err := r.Retrieve(context.Background(), "query", "mod-1", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrRetrievalUnavailable)
	assert.True(t, shared.IsUpstream(err))
}
