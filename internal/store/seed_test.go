package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogYAML = `
books:
  - id: b1
    title: Harry Potter
    author: J.K. Rowling
    category: Giả tưởng
    price: 150000
    stock: 10
    rating: 4.9
  - id: b2
    title: Conan - Tập 1
    author: Gosho Aoyama
    category: Trinh thám
    price: 30000
    stock: 50
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	books, err := LoadCatalog(writeCatalog(t, testCatalogYAML))
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Harry Potter", books[0].Title)
	assert.Equal(t, 4.9, books[0].Rating)
	assert.Equal(t, 50, books[1].Stock)
}

func TestLoadCatalogRejectsInvalidEntries(t *testing.T) {
	_, err := LoadCatalog(writeCatalog(t, "books:\n  - title: No ID\n    price: 100\n"))
	assert.Error(t, err)

	_, err = LoadCatalog(writeCatalog(t, "books:\n  - id: b1\n    title: T\n    price: -5\n"))
	assert.Error(t, err)

	_, err = LoadCatalog(writeCatalog(t, "not: [valid"))
	assert.Error(t, err)
}

func TestSeedFromFile(t *testing.T) {
	s := newTestStore(t)

	count, err := Seed(s, writeCatalog(t, testCatalogYAML))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	books, err := s.AllBooks()
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestSeedFallsBackToDefaultCatalog(t *testing.T) {
	s := newTestStore(t)

	count, err := Seed(s, filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCatalog()), count)

	books, err := s.AllBooks()
	require.NoError(t, err)
	assert.NotEmpty(t, books)
}

func TestWatcherReloadsOnChange(t *testing.T) {
	s := newTestStore(t)
	path := writeCatalog(t, testCatalogYAML)

	_, err := Seed(s, path)
	require.NoError(t, err)

	reloaded := make(chan int, 1)
	w, err := NewWatcher(s, path, func(count int, err error) {
		require.NoError(t, err)
		reloaded <- count
	})
	require.NoError(t, err)
	defer w.Close()

	extra := testCatalogYAML + `
  - id: b3
    title: Nhà Giả Kim
    author: Paulo Coelho
    category: Tiểu thuyết
    price: 79000
    stock: 5
`
	require.NoError(t, os.WriteFile(path, []byte(extra), 0o644))

	select {
	case count := <-reloaded:
		assert.Equal(t, 3, count)
	case <-time.After(5 * time.Second):
		t.Fatal("catalog reload never fired")
	}

	books, err := s.AllBooks()
	require.NoError(t, err)
	assert.Len(t, books, 3)
}
