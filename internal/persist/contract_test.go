package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartBlob struct {
	Items []string `json:"items"`
}

// runRepositoryContract exercises the behaviour every Repository must share.
func runRepositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()
	key := Key(CartNamespace, t.Name())

	t.Run("Load missing key", func(t *testing.T) {
		_, err := repo.Load(ctx, key+"-missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Save then Load", func(t *testing.T) {
		require.NoError(t, SaveJSON(ctx, repo, key, cartBlob{Items: []string{"p1", "p2"}}))
		var got cartBlob
		require.NoError(t, LoadJSON(ctx, repo, key, &got))
		assert.Equal(t, []string{"p1", "p2"}, got.Items)
	})

	t.Run("Save replaces", func(t *testing.T) {
		require.NoError(t, SaveJSON(ctx, repo, key, cartBlob{Items: []string{"p3"}}))
		var got cartBlob
		require.NoError(t, LoadJSON(ctx, repo, key, &got))
		assert.Equal(t, []string{"p3"}, got.Items)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, key))
		_, err := repo.Load(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete missing key", func(t *testing.T) {
		assert.NoError(t, repo.Delete(ctx, key+"-never-saved"))
	})
}

func Test_MemoryRepository_Contract(t *testing.T) {
	runRepositoryContract(t, NewMemoryRepository())
}

func Test_FileRepository_Contract(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	runRepositoryContract(t, repo)
}

func Test_MemoryRepository_CopiesBlobs(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	blob := []byte(`{"a":1}`)
	require.NoError(t, repo.Save(context.Background(), "k", blob))

	// when
	blob[0] = 'X'
	loaded, err := repo.Load(context.Background(), "k")

	// then
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(loaded))
}

func Test_LoadJSON_CorruptBlob(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	require.NoError(t, repo.Save(context.Background(), "k", []byte(`{not json`)))

	// when
	var dst cartBlob
	err := LoadJSON(context.Background(), repo, "k", &dst)

	// then
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func Test_Key(t *testing.T) {
	assert.Equal(t, "sabowaryan-cart:abc", Key(CartNamespace, "abc"))
}
