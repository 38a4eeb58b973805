package node

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rudransh-shrivastava/peer-flood/internal/db"
	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
	"github.com/rudransh-shrivastava/peer-flood/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchFrom runs a search on a that is expected to find something.
func searchFrom(t *testing.T, a *Node, keyword string) SearchOutcome {
	t.Helper()
	out, err := a.Search(keyword)
	require.NoError(t, err)
	outcome := waitOutcome(t, out)
	require.Equal(t, SearchFound, outcome.Status)
	return outcome
}

func TestDownload(t *testing.T) {
	gdb, err := db.Open(":memory:")
	require.NoError(t, err)
	history := store.NewHistoryStore(gdb)

	a := newTestNode(t, func(o *Options) { o.History = history })
	b := newTestNode(t)
	link(t, a, b)
	writeStorageFile(t, b, store.CatalogFileName, "notes.txt school homework\n")
	writeStorageFile(t, b, "notes.txt", "line one\nline two\n")

	searchFrom(t, a, "homework")

	var progress bytes.Buffer
	result, err := a.Download(context.Background(), 1, &progress)
	require.NoError(t, err)
	assert.Equal(t, int64(len("line one\nline two\n")), result.Bytes)
	assert.Equal(t, filepath.Join(a.opts.StorageDir, "notes.txt"), result.Path)
	assert.Equal(t, "line one\nline two\n", progress.String())
	assert.Equal(t, "line one\nline two\n", readStorageFile(t, a, "notes.txt"))
	assert.Equal(t, "notes.txt school homework\n", readStorageFile(t, a, store.CatalogFileName))

	downloads, err := history.Downloads(context.Background())
	require.NoError(t, err)
	require.Len(t, downloads, 1)
	assert.Equal(t, b.Addr(), downloads[0].Source)
	assert.Equal(t, "homework", downloads[0].Keyword)

	searches, err := history.Searches(context.Background())
	require.NoError(t, err)
	require.Len(t, searches, 1)
	assert.Equal(t, "found", searches[0].Status)

	_, err = a.Download(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrAlreadyHave)
}

func TestDownloadRejectsBadIndex(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	link(t, a, b)
	writeStorageFile(t, b, store.CatalogFileName, "notes.txt school\n")
	writeStorageFile(t, b, "notes.txt", "x\n")

	_, err := a.Download(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrNoSuchReply)

	searchFrom(t, a, "school")
	for _, idx := range []int{-3, 0, 2} {
		_, err := a.Download(context.Background(), idx, nil)
		assert.ErrorIs(t, err, ErrNoSuchReply, idx)
	}

	assert.Len(t, a.Replies(), 1)
	_, err = os.Stat(filepath.Join(a.opts.StorageDir, store.CatalogFileName))
	assert.True(t, os.IsNotExist(err), "catalog must not be touched")
}

func TestDownloadRejectsOwnedFile(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	link(t, a, b)
	writeStorageFile(t, b, store.CatalogFileName, "notes.txt school\n")
	writeStorageFile(t, b, "notes.txt", "remote\n")
	writeStorageFile(t, a, "notes.txt", "local\n")

	searchFrom(t, a, "school")

	_, err := a.Download(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrAlreadyHave)
	assert.Equal(t, "local\n", readStorageFile(t, a, "notes.txt"))
	assert.Len(t, a.Replies(), 1)
}

func TestDownloadMissingRemoteFile(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	link(t, a, b)
	writeStorageFile(t, b, store.CatalogFileName, "ghost.txt spooky\n")

	searchFrom(t, a, "spooky")

	_, err := a.Download(context.Background(), 1, nil)
	assert.ErrorIs(t, err, store.ErrIncompleteTransfer)
	_, statErr := os.Stat(filepath.Join(a.opts.StorageDir, "ghost.txt"))
	assert.True(t, os.IsNotExist(statErr), "partial file must be removed")
}

func TestCatalogKeywords(t *testing.T) {
	tests := []struct {
		name     string
		record   protocol.FileRecord
		searched string
		want     string
	}{
		{"keyword advertised", protocol.FileRecord{Name: "a.txt", Keywords: []string{"x", "y"}}, "Y", "x y"},
		{"searched by name", protocol.FileRecord{Name: "a.txt", Keywords: []string{"x"}}, "a.txt", "x"},
		{"bare record by name", protocol.FileRecord{Name: "a.txt"}, "a.txt", ""},
		{"keyword not advertised", protocol.FileRecord{Name: "a.txt", Keywords: []string{"x"}}, "z", "x z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalogKeywords(Reply{Record: tt.record}, tt.searched))
		})
	}
}
