package store

import (
	"context"
	"errors"
	"fmt"
	"superdb/internal/db"
	"superdb/internal/ygodb"

	"github.com/jmoiron/sqlx"
)

var ErrInvalidCard = errors.New("invalid card")

// ValidateCard rejects records that must never reach the database.
func (s *Store) ValidateCard(card ygodb.Card) error {
	if card.ID < s.firstCardID {
		return fmt.Errorf("%w: id %d is below the first card id %d", ErrInvalidCard, card.ID, s.firstCardID)
	}
	if card.Locale == "" {
		return fmt.Errorf("%w: card %d has no locale", ErrInvalidCard, card.ID)
	}
	if card.Name == "" {
		return fmt.Errorf("%w: card %d (%s) has no name", ErrInvalidCard, card.ID, card.Locale)
	}
	return nil
}

// InsertCard writes one locale of a card. The structural row and its types
// are only written by the first locale stored for the id, later locales add
// their localization and editions.
func (s *Store) InsertCard(ctx context.Context, card ygodb.Card) error {
	return s.InsertCards(ctx, []ygodb.Card{card})
}

// InsertCards writes the locales of one scrape in a single transaction, so
// an id is either stored with every locale or not at all.
func (s *Store) InsertCards(ctx context.Context, cards []ygodb.Card) error {
	for _, card := range cards {
		err := s.ValidateCard(card)
		if err != nil {
			return err
		}
	}
	return db.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, card := range cards {
			err := insertCard(ctx, tx, card)
			if err != nil {
				return fmt.Errorf("insert card %d (%s): %w", card.ID, card.Locale, err)
			}
		}
		return nil
	})
}

func insertCard(ctx context.Context, tx *sqlx.Tx, card ygodb.Card) error {
	langID, err := getOrCreate(ctx, tx, tableLang, card.Locale)
	if err != nil {
		return err
	}
	attributeID, err := getOrCreateOptional(ctx, tx, tableAttribute, card.Attribute)
	if err != nil {
		return err
	}
	monsterTypeID, err := getOrCreateOptional(ctx, tx, tableMonsterType, card.MonsterType)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO card (
			id, attribute_id, monster_type_id, level_rank_arrows, atk, def, pendulum_scale
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		card.ID,
		attributeID,
		monsterTypeID,
		nullInt(card.LevelRankArrows),
		nullInt(card.Atk),
		nullInt(card.Def),
		nullInt(card.PendulumScale),
	)
	if err != nil {
		return fmt.Errorf("card row: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("card row: %w", err)
	}
	if inserted > 0 {
		for _, name := range card.Types {
			typeID, err := getOrCreate(ctx, tx, tableType, name)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(
				ctx,
				"INSERT OR IGNORE INTO type_card (type_id, card_id) VALUES (?, ?)",
				typeID, card.ID,
			)
			if err != nil {
				return fmt.Errorf("type %q: %w", name, err)
			}
		}
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO localization (
			card_id, lang_id, name, card_text, pendulum_effect
		) VALUES (?, ?, ?, ?, ?)`,
		card.ID, langID, card.Name, card.CardText, card.PendulumEffect,
	)
	if err != nil {
		return fmt.Errorf("localization: %w", err)
	}

	for _, edition := range card.Editions {
		if edition.SetID == "" {
			continue
		}
		err = insertEdition(ctx, tx, card.ID, edition)
		if err != nil {
			return fmt.Errorf("edition %s %s: %w", edition.SetID, edition.CardNumber, err)
		}
	}
	return nil
}

func insertEdition(ctx context.Context, tx *sqlx.Tx, cardID int64, edition ygodb.Edition) error {
	_, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO cardset (id) VALUES (?)", edition.SetID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(
		ctx,
		"INSERT OR IGNORE INTO edition (card_id, cardset_id, card_number) VALUES (?, ?, ?)",
		cardID, edition.SetID, edition.CardNumber,
	)
	if err != nil {
		return err
	}
	var editionID int64
	err = tx.GetContext(
		ctx,
		&editionID,
		"SELECT id FROM edition WHERE card_id = ? AND cardset_id = ? AND card_number = ?",
		cardID, edition.SetID, edition.CardNumber,
	)
	if err != nil {
		return err
	}

	for i, name := range edition.RarityNames {
		longName := ""
		if i < len(edition.RarityLongNames) {
			longName = edition.RarityLongNames[i]
		}
		rarityID, err := getOrCreateRarity(ctx, tx, name, longName)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(
			ctx,
			"INSERT OR IGNORE INTO edition_rarity (edition_id, rarity_id) VALUES (?, ?)",
			editionID, rarityID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// LastProcessedCardID returns the highest stored card id, or one below the
// first card id when nothing has been stored yet.
func (s *Store) LastProcessedCardID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.GetContext(
		ctx,
		&id,
		"SELECT COALESCE(MAX(id), ?) FROM card",
		s.firstCardID-1,
	)
	if err != nil {
		return 0, fmt.Errorf("last processed card: %w", err)
	}
	return id, nil
}

// CardLocales returns the locales a card has been stored in, ordered by
// abbreviation.
func (s *Store) CardLocales(ctx context.Context, id int64) ([]string, error) {
	locales := []string{}
	err := s.db.SelectContext(
		ctx,
		&locales,
		`SELECT lang.abbr FROM localization
		INNER JOIN lang ON lang.id = localization.lang_id
		WHERE localization.card_id = ?
		ORDER BY lang.abbr`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("card locales %d: %w", id, err)
	}
	return locales, nil
}
