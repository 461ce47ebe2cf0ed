package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/gnana997/snipkit/pkg/prefs"
)

// LoadPreferences implements prefs.Store. Missing slots stay zero; a
// non-numeric category slot is treated as unset.
func (s *Store) LoadPreferences(ctx context.Context, userID int64) (prefs.Raw, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value FROM preference
		WHERE userid = ? AND name IN (?, ?, ?)`,
		userID, prefs.SlotCategory, prefs.SlotCategoryFlavors, prefs.SlotComponentVariants)
	if err != nil {
		return prefs.Raw{}, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	var raw prefs.Raw
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return prefs.Raw{}, fmt.Errorf("failed to scan preference: %w", err)
		}
		switch name {
		case prefs.SlotCategory:
			if id, err := strconv.ParseInt(value, 10, 64); err == nil {
				raw.Category = id
			} else {
				s.logger.Debug("ignoring non-numeric category preference", "user", userID, "value", value)
			}
		case prefs.SlotCategoryFlavors:
			raw.CategoryFlavors = value
		case prefs.SlotComponentVariants:
			raw.ComponentVariants = value
		}
	}
	if err := rows.Err(); err != nil {
		return prefs.Raw{}, fmt.Errorf("error iterating preferences: %w", err)
	}
	return raw, nil
}

// SavePreferences implements prefs.Store. All three slots are written in one
// transaction.
func (s *Store) SavePreferences(ctx context.Context, userID int64, raw prefs.Raw) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		slots := []struct{ name, value string }{
			{prefs.SlotCategory, strconv.FormatInt(raw.Category, 10)},
			{prefs.SlotCategoryFlavors, raw.CategoryFlavors},
			{prefs.SlotComponentVariants, raw.ComponentVariants},
		}
		for _, slot := range slots {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO preference (userid, name, value) VALUES (?, ?, ?)
				ON CONFLICT(userid, name) DO UPDATE SET
					value = excluded.value,
					timemodified = CURRENT_TIMESTAMP`,
				userID, slot.name, slot.value); err != nil {
				return fmt.Errorf("failed to save preference %s: %w", slot.name, err)
			}
		}
		return nil
	})
}
