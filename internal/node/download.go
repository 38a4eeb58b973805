package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rudransh-shrivastava/peer-flood/internal/store"
)

type DownloadResult struct {
	Reply Reply
	Path  string
	Bytes int64
}

// Download fetches the file named by the 1-based reply index from the
// node that sent the reply and adds it to the local catalog. Progress, if
// non-nil, receives a copy of every byte written.
func (n *Node) Download(ctx context.Context, index int, progress io.Writer) (DownloadResult, error) {
	if err := n.ready(); err != nil {
		return DownloadResult{}, err
	}

	reply, keyword, err := n.search.Reply(index)
	if err != nil {
		return DownloadResult{}, err
	}
	name := reply.Record.Name
	if err := store.ValidateFileName(name); err != nil {
		return DownloadResult{}, err
	}

	path := BuildStoragePath(n.opts.StorageDir, name)
	if fileExists(path) {
		return DownloadResult{}, fmt.Errorf("%w: %s", ErrAlreadyHave, name)
	}

	stream, err := n.transport.OpenFileStream(ctx, reply.Source, name)
	if err != nil {
		return DownloadResult{}, err
	}
	defer func() { _ = stream.Close() }()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		return DownloadResult{}, fmt.Errorf("%w: %s", ErrAlreadyHave, name)
	}
	if err != nil {
		return DownloadResult{}, err
	}

	var w io.Writer = f
	if progress != nil {
		w = io.MultiWriter(f, progress)
	}

	written, err := store.ReceiveFileContents(stream, w)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return DownloadResult{}, fmt.Errorf("downloading %s from %s: %w", name, reply.Source, err)
	}

	if err := n.catalog.Record(name, catalogKeywords(reply, keyword)); err != nil {
		return DownloadResult{}, fmt.Errorf("recording %s in catalog: %w", name, err)
	}
	n.recordDownload(ctx, name, keyword, reply.Source, written)

	n.logger.Infof("Downloaded %s from %s (%d bytes)", name, reply.Source, written)
	return DownloadResult{Reply: reply, Path: path, Bytes: written}, nil
}

// catalogKeywords lists the keywords the serving node advertised plus the
// keyword that found the file, so the copy is discoverable both ways.
func catalogKeywords(reply Reply, searched string) string {
	keywords := append([]string(nil), reply.Record.Keywords...)
	if strings.EqualFold(reply.Record.Name, searched) {
		return strings.Join(keywords, " ")
	}
	for _, k := range keywords {
		if strings.EqualFold(k, searched) {
			return strings.Join(keywords, " ")
		}
	}
	return strings.Join(append(keywords, searched), " ")
}

func (n *Node) recordDownload(ctx context.Context, name, keyword, source string, size int64) {
	if n.history == nil {
		return
	}
	err := n.history.RecordDownload(ctx, store.Download{
		FileName: name,
		Keyword:  keyword,
		Source:   source,
		Bytes:    size,
	})
	if err != nil {
		n.logger.Warnf("Failed to record download history: %v", err)
	}
}
