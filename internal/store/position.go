package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-json-experiment/json"

	"github.com/pagekeep/pagekeep-server/internal/domain"
	domainerrors "github.com/pagekeep/pagekeep-server/internal/errors"
)

// positionPrefix namespaces position records. One record per content
// identity; the same identity always resolves to the same key.
const positionPrefix = "position:"

// ErrPositionNotFound is returned when no usable position record exists for
// a content identity. A corrupt or invalid record reports the same error:
// the caller treats both as "start from page zero".
var ErrPositionNotFound = domainerrors.ErrNotFound.WithMessage("page position not found")

// positionKey derives the storage key for a content identity.
func positionKey(contentID string) []byte {
	return []byte(positionPrefix + contentID)
}

// SavePosition creates or overwrites the position record for a content
// identity. The caller is responsible for the save-time invariant
// 0 <= page < total_pages.
func (s *Store) SavePosition(ctx context.Context, pos *domain.PagePosition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !pos.Valid() {
		return domainerrors.Validationf("invalid page position: page=%d total_pages=%d", pos.Page, pos.TotalPages)
	}

	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(positionKey(pos.ContentID), data)
	})
}

// GetPosition retrieves the position record for a content identity.
// Missing, corrupt, and shape-invalid records all return
// ErrPositionNotFound; the distinction is logged, never surfaced.
func (s *Store) GetPosition(ctx context.Context, contentID string) (*domain.PagePosition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pos domain.PagePosition
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(positionKey(contentID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPositionNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &pos); err != nil {
				if s.logger != nil {
					s.logger.Warn("discarding corrupt position record",
						"content_id", contentID,
						"error", err,
					)
				}
				return ErrPositionNotFound
			}
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	if !pos.Valid() {
		if s.logger != nil {
			s.logger.Warn("discarding invalid position record",
				"content_id", contentID,
				"page", pos.Page,
				"total_pages", pos.TotalPages,
			)
		}
		return nil, ErrPositionNotFound
	}

	return &pos, nil
}

// DeletePosition removes the position record for a content identity.
// The engine itself never deletes positions; this exists for
// administrative cleanup of abandoned content identities.
func (s *Store) DeletePosition(ctx context.Context, contentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete(positionKey(contentID))
}
