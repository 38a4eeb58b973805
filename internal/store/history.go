package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rudransh-shrivastava/peer-flood/internal/db"
	"gorm.io/gorm"
)

type Download struct {
	FileName string
	Keyword  string
	Source   string
	Bytes    int64
}

type SearchRecord struct {
	Keyword  string
	Status   string
	Attempts []int
	Replies  int
}

type HistoryStore struct {
	DB *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{DB: db}
}

func (hs *HistoryStore) RecordDownload(ctx context.Context, d Download) error {
	row := db.Download{
		FileName:     d.FileName,
		Keyword:      d.Keyword,
		Source:       d.Source,
		Bytes:        d.Bytes,
		DownloadedAt: time.Now().Unix(),
	}
	return hs.DB.WithContext(ctx).Create(&row).Error
}

func (hs *HistoryStore) RecordSearch(ctx context.Context, s SearchRecord) error {
	attempts := make([]string, 0, len(s.Attempts))
	for _, hop := range s.Attempts {
		attempts = append(attempts, strconv.Itoa(hop))
	}
	row := db.Search{
		Keyword:    s.Keyword,
		Status:     s.Status,
		Attempts:   strings.Join(attempts, ","),
		Replies:    s.Replies,
		FinishedAt: time.Now().Unix(),
	}
	return hs.DB.WithContext(ctx).Create(&row).Error
}

func (hs *HistoryStore) Downloads(ctx context.Context) ([]db.Download, error) {
	downloads := []db.Download{}
	err := hs.DB.WithContext(ctx).Order("id").Find(&downloads).Error
	return downloads, err
}

func (hs *HistoryStore) Searches(ctx context.Context) ([]db.Search, error) {
	searches := []db.Search{}
	err := hs.DB.WithContext(ctx).Order("id").Find(&searches).Error
	return searches, err
}
