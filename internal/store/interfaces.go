package store

import (
	"context"

	"github.com/rudransh-shrivastava/peer-flood/internal/db"
	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
)

// Catalog is the set of files this node is willing to serve.
type Catalog interface {
	Lookup(keyword string) (protocol.FileRecord, bool, error)
	Record(file, keyword string) error
}

// HistoryRepository records completed downloads and finished searches.
type HistoryRepository interface {
	RecordDownload(ctx context.Context, d Download) error
	RecordSearch(ctx context.Context, s SearchRecord) error
	Downloads(ctx context.Context) ([]db.Download, error)
	Searches(ctx context.Context) ([]db.Search, error)
}
