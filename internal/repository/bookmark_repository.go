package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gabriel/manhwa-hub/backend/internal/models"
)

type BookmarkRepository struct {
	db *sql.DB
}

func NewBookmarkRepository(db *sql.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// ListByUser returns bookmarks oldest first.
func (r *BookmarkRepository) ListByUser(ctx context.Context, userID string) ([]models.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT slug, title, cover, added_at
		FROM bookmarks
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	items := make([]models.Bookmark, 0)
	for rows.Next() {
		var item models.Bookmark
		if err := rows.Scan(&item.Slug, &item.Title, &item.Cover, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookmarks: %w", err)
	}

	return items, nil
}

// Toggle removes the bookmark when it exists and inserts it otherwise. It
// reports true when the bookmark was added.
func (r *BookmarkRepository) Toggle(ctx context.Context, userID string, bookmark models.Bookmark) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin bookmark tx: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE user_id = ? AND slug = ?`, userID, bookmark.Slug)
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("delete bookmark: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("delete bookmark rows: %w", err)
	}

	if removed == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookmarks (user_id, slug, title, cover)
			VALUES (?, ?, ?, ?)
		`, userID, bookmark.Slug, bookmark.Title, bookmark.Cover)
		if err != nil {
			tx.Rollback()
			return false, fmt.Errorf("insert bookmark: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit bookmark tx: %w", err)
	}

	return removed == 0, nil
}
