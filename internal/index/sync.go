package index

import (
	"errors"
	"log/slog"

	"github.com/starford/petpad/internal/checksum"
	"github.com/starford/petpad/internal/codec"
	"github.com/starford/petpad/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed documents are decoded and upserted
//   - documents removed from disk are deleted from the index
//
// A document that fails to decode is still indexed, with its parse error
// recorded and no snippets.
func Sync(db DocumentIndex, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDocument(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexDocument decodes data and upserts it under path.
func IndexDocument(db DocumentIndex, path string, data []byte) error {
	row := DocumentRow{
		Path:     path,
		Checksum: checksum.Sum(data),
	}
	snippets, err := codec.Decode(string(data))
	if err != nil {
		var de *codec.DecodeError
		if !errors.As(err, &de) {
			return err
		}
		row.ParseError = de.Error()
		snippets = nil
	}
	return db.UpsertDocument(row, snippets)
}
