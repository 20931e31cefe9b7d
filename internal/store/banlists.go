package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"superdb/internal/db"
	"superdb/internal/ygodb"
	"time"

	"github.com/jmoiron/sqlx"
)

func validateBanlistKey(date, region string) error {
	if region == "" {
		return fmt.Errorf("banlist %s has no region", date)
	}
	_, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return fmt.Errorf("banlist date %q: %w", date, err)
	}
	return nil
}

// InsertBanlist stores a banlist with its limitations and returns its id.
// The until date of the banlist and of the one preceding it in the region
// are recomputed so the banlists of a region never overlap, whatever order
// they are inserted in.
func (s *Store) InsertBanlist(ctx context.Context, banlist ygodb.Banlist) (int64, error) {
	err := validateBanlistKey(banlist.Date, banlist.Region)
	if err != nil {
		return 0, err
	}

	var banlistID int64
	err = db.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		regionID, err := getOrCreate(ctx, tx, tableRegion, banlist.Region)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(
			ctx,
			"INSERT OR IGNORE INTO banlist (effective_date, region_id) VALUES (?, ?)",
			banlist.Date, regionID,
		)
		if err != nil {
			return err
		}
		err = tx.GetContext(
			ctx,
			&banlistID,
			"SELECT id FROM banlist WHERE effective_date = ? AND region_id = ?",
			banlist.Date, regionID,
		)
		if err != nil {
			return err
		}

		var previous int64
		err = tx.GetContext(
			ctx,
			&previous,
			`SELECT id FROM banlist
			WHERE region_id = ? AND effective_date < ?
			ORDER BY effective_date DESC LIMIT 1`,
			regionID, banlist.Date,
		)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("previous banlist: %w", err)
		default:
			_, err = tx.ExecContext(ctx, "UPDATE banlist SET until_date = ? WHERE id = ?", banlist.Date, previous)
			if err != nil {
				return fmt.Errorf("previous banlist: %w", err)
			}
		}

		var next sql.NullString
		err = tx.GetContext(
			ctx,
			&next,
			`SELECT effective_date FROM banlist
			WHERE region_id = ? AND effective_date > ?
			ORDER BY effective_date ASC LIMIT 1`,
			regionID, banlist.Date,
		)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("next banlist: %w", err)
		}
		_, err = tx.ExecContext(ctx, "UPDATE banlist SET until_date = ? WHERE id = ?", next, banlistID)
		if err != nil {
			return err
		}

		for _, limitation := range banlist.Limitations {
			err = saveLimitation(ctx, tx, banlistID, limitation.CardID, limitation.Severity)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert banlist %s (%s): %w", banlist.Date, banlist.Region, err)
	}
	return banlistID, nil
}

func saveLimitation(ctx context.Context, tx *sqlx.Tx, banlistID, cardID int64, severity ygodb.Severity) error {
	switch severity {
	case ygodb.Forbidden, ygodb.Limited, ygodb.SemiLimited:
	default:
		return fmt.Errorf("limitation of card %d: unknown severity %d", cardID, severity)
	}
	_, err := tx.ExecContext(
		ctx,
		"INSERT OR REPLACE INTO limitation (banlist_id, card_id, limitation) VALUES (?, ?, ?)",
		banlistID, cardID, int(severity),
	)
	if err != nil {
		return fmt.Errorf("limitation of card %d: %w", cardID, err)
	}
	return nil
}

// SaveLimitation sets the limitation of a single card on a stored banlist.
func (s *Store) SaveLimitation(ctx context.Context, banlistID, cardID int64, severity ygodb.Severity) error {
	return db.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return saveLimitation(ctx, tx, banlistID, cardID, severity)
	})
}

// BanlistID returns the id of a region's banlist effective from date, or
// ErrNotFound.
func (s *Store) BanlistID(ctx context.Context, date, region string) (int64, error) {
	var id int64
	err := s.db.GetContext(
		ctx,
		&id,
		`SELECT banlist.id FROM banlist
		INNER JOIN region ON region.id = banlist.region_id
		WHERE banlist.effective_date = ? AND region.region = ?`,
		date, region,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("banlist %s (%s): %w", date, region, err)
	}
	return id, nil
}

func (s *Store) BanlistExists(ctx context.Context, date, region string) (bool, error) {
	_, err := s.BanlistID(ctx, date, region)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UntilDate returns the date a banlist stops being effective, "" when it
// is the newest of its region.
func (s *Store) UntilDate(ctx context.Context, date, region string) (string, error) {
	var until sql.NullString
	err := s.db.GetContext(
		ctx,
		&until,
		`SELECT banlist.until_date FROM banlist
		INNER JOIN region ON region.id = banlist.region_id
		WHERE banlist.effective_date = ? AND region.region = ?`,
		date, region,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("banlist %s (%s): %w", date, region, err)
	}
	return until.String, nil
}

// Limitations returns the limitations of a banlist ordered by card id.
func (s *Store) Limitations(ctx context.Context, banlistID int64) ([]ygodb.Limitation, error) {
	rows := []struct {
		CardID   int64 `db:"card_id"`
		Severity int   `db:"limitation"`
	}{}
	err := s.db.SelectContext(
		ctx,
		&rows,
		"SELECT card_id, limitation FROM limitation WHERE banlist_id = ? ORDER BY card_id",
		banlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("limitations of banlist %d: %w", banlistID, err)
	}
	limitations := make([]ygodb.Limitation, len(rows))
	for i, row := range rows {
		limitations[i] = ygodb.Limitation{
			CardID:   row.CardID,
			Severity: ygodb.Severity(row.Severity),
		}
	}
	return limitations, nil
}
