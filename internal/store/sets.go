package store

import (
	"context"
	"fmt"
	"superdb/internal/db"
	"superdb/internal/ygodb"

	"github.com/jmoiron/sqlx"
)

// InsertOrReplaceSetDetails stores the name and release date a locale gives
// a set along with the cards it contains.
func (s *Store) InsertOrReplaceSetDetails(ctx context.Context, link ygodb.SetLink, page ygodb.SetPage) error {
	if link.ID == "" || link.Locale == "" {
		return fmt.Errorf("insert set %q (%s): missing id or locale", link.Name, link.Locale)
	}
	err := db.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		langID, err := getOrCreate(ctx, tx, tableLang, link.Locale)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "INSERT OR IGNORE INTO cardset (id) VALUES (?)", link.ID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(
			ctx,
			`INSERT OR REPLACE INTO cardset_localization (
				cardset_id, lang_id, name, release_date
			) VALUES (?, ?, ?, ?)`,
			link.ID, langID, link.Name, nullString(page.ReleaseDate),
		)
		if err != nil {
			return err
		}
		for _, cardID := range page.CardIDs {
			_, err = tx.ExecContext(
				ctx,
				"INSERT OR IGNORE INTO cardset_card (cardset_id, card_id) VALUES (?, ?)",
				link.ID, cardID,
			)
			if err != nil {
				return fmt.Errorf("card %d: %w", cardID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert set %s (%s): %w", link.ID, link.Locale, err)
	}
	return nil
}

// SetExists reports whether a locale's details of a set were stored.
func (s *Store) SetExists(ctx context.Context, id, locale string) (bool, error) {
	var exists bool
	err := s.db.GetContext(
		ctx,
		&exists,
		`SELECT EXISTS (
			SELECT 1 FROM cardset_localization
			INNER JOIN lang ON lang.id = cardset_localization.lang_id
			WHERE cardset_localization.cardset_id = ? AND lang.abbr = ?
		)`,
		id, locale,
	)
	if err != nil {
		return false, fmt.Errorf("set exists %s (%s): %w", id, locale, err)
	}
	return exists, nil
}

// SetCards returns the ids of the cards stored for a set in ascending order.
func (s *Store) SetCards(ctx context.Context, id string) ([]int64, error) {
	ids := []int64{}
	err := s.db.SelectContext(
		ctx,
		&ids,
		"SELECT card_id FROM cardset_card WHERE cardset_id = ? ORDER BY card_id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("set cards %s: %w", id, err)
	}
	return ids, nil
}
