package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helperbot/internal/domain"
)

func TestIndexSearchOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	x := New()
	require.NoError(t, x.Reset(ctx, 2))
	require.NoError(t, x.Upsert(ctx,
		[]domain.Document{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}, {ID: "c", Text: "C"}},
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
	))

	res, err := x.Search(ctx, []float32{2, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "a", res[0].ID)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	assert.Equal(t, "c", res[1].ID)
}

func TestUpsertReplacesExistingID(t *testing.T) {
	ctx := context.Background()
	x := New()
	require.NoError(t, x.Reset(ctx, 1))
	require.NoError(t, x.Upsert(ctx, []domain.Document{{ID: "a", Text: "old"}}, [][]float32{{1}}))
	require.NoError(t, x.Upsert(ctx, []domain.Document{{ID: "a", Text: "new"}}, [][]float32{{1}}))

	res, err := x.Search(ctx, []float32{1}, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalResult{{ID: "a", Text: "new", Score: 1}}, res)
}

func TestUpsertValidates(t *testing.T) {
	ctx := context.Background()
	x := New()
	assert.Error(t, x.Reset(ctx, 0))
	require.NoError(t, x.Reset(ctx, 2))
	assert.Error(t, x.Upsert(ctx, []domain.Document{{ID: "a"}}, nil))
	assert.Error(t, x.Upsert(ctx, []domain.Document{{ID: "a"}}, [][]float32{{1}}))
}
