package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gnana997/snipkit/pkg/catalog"
)

// --- categories ---

// ListCategories returns all categories by display order.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, displayname, displayorder, css
		FROM category
		ORDER BY displayorder, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.DisplayName, &c.DisplayOrder, &c.CSS); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return out, nil
}

// GetCategoryByName returns the named category or ErrNotFound.
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*Category, error) {
	var c Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, displayname, displayorder, css
		FROM category WHERE name = ?`, name).
		Scan(&c.ID, &c.Name, &c.DisplayName, &c.DisplayOrder, &c.CSS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &c, nil
}

// SaveCategory inserts or updates a category by name and returns its id.
func (s *Store) SaveCategory(ctx context.Context, c Category) (int64, error) {
	if c.Name == "" {
		return 0, fmt.Errorf("category name cannot be empty")
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO category (name, displayname, displayorder, css)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			displayname = excluded.displayname,
			displayorder = excluded.displayorder,
			css = excluded.css,
			timemodified = CURRENT_TIMESTAMP
		RETURNING id`,
		c.Name, c.DisplayName, c.DisplayOrder, c.CSS).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save category %q: %w", c.Name, err)
	}
	return id, nil
}

// UpdateCategoryCSS replaces a category's stylesheet.
func (s *Store) UpdateCategoryCSS(ctx context.Context, id int64, css string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE category SET css = ?, timemodified = CURRENT_TIMESTAMP WHERE id = ?`, css, id)
	if err != nil {
		return fmt.Errorf("failed to update category css: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("category %d", id))
}

// DeleteCategory removes a category together with its components.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM comp_flavor
			WHERE componentname IN (SELECT name FROM component WHERE compcat = ?)`, id); err != nil {
			return fmt.Errorf("failed to delete component flavors: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM component WHERE compcat = ?`, id); err != nil {
			return fmt.Errorf("failed to delete components: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM category WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return requireAffected(res, fmt.Sprintf("category %d", id))
	})
}

// --- components ---

// ListComponents returns all components by display order, with flavors from
// the comp_flavor relation.
func (s *Store) ListComponents(ctx context.Context) ([]Component, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, displayname, compcat, imageclass, code, text, variants,
			displayorder, css, js, iconurl, hideforstudents
		FROM component
		ORDER BY displayorder, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	var out []Component
	for rows.Next() {
		var (
			c        Component
			variants string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.DisplayName, &c.CategoryID, &c.ImageClass, &c.Code, &c.Text,
			&variants, &c.DisplayOrder, &c.CSS, &c.JS, &c.IconURL, &c.HideForStudents); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		c.Variants = splitList(variants)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating components: %w", err)
	}
	// Release the only connection before the next query.
	_ = rows.Close()

	links, err := s.ListComponentFlavors(ctx)
	if err != nil {
		return nil, err
	}
	byComponent := make(map[string][]string)
	for _, l := range links {
		byComponent[l.ComponentName] = append(byComponent[l.ComponentName], l.FlavorName)
	}
	for i := range out {
		out[i].Flavors = byComponent[out[i].Name]
	}
	return out, nil
}

// SaveComponent inserts or updates a component by name, syncs its flavor
// links, and returns its id. Existing links keep their icons.
func (s *Store) SaveComponent(ctx context.Context, c Component) (int64, error) {
	if c.Name == "" {
		return 0, fmt.Errorf("component name cannot be empty")
	}
	if err := catalog.ValidateComponentName(c.Name); err != nil {
		return 0, err
	}
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO component (name, displayname, compcat, imageclass, code, text, variants,
				displayorder, css, js, iconurl, hideforstudents)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				displayname = excluded.displayname,
				compcat = excluded.compcat,
				imageclass = excluded.imageclass,
				code = excluded.code,
				text = excluded.text,
				variants = excluded.variants,
				displayorder = excluded.displayorder,
				css = excluded.css,
				js = excluded.js,
				iconurl = excluded.iconurl,
				hideforstudents = excluded.hideforstudents,
				timemodified = CURRENT_TIMESTAMP
			RETURNING id`,
			c.Name, c.DisplayName, c.CategoryID, c.ImageClass, c.Code, c.Text, joinList(c.Variants),
			c.DisplayOrder, c.CSS, c.JS, c.IconURL, boolInt(c.HideForStudents)).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to save component %q: %w", c.Name, err)
		}
		return syncComponentFlavors(ctx, tx, c.Name, c.Flavors)
	})
	return id, err
}

func syncComponentFlavors(ctx context.Context, tx *sql.Tx, component string, flavors []string) error {
	keep := make(map[string]bool, len(flavors))
	for _, f := range flavors {
		keep[f] = true
	}

	rows, err := tx.QueryContext(ctx, `SELECT flavorname FROM comp_flavor WHERE componentname = ?`, component)
	if err != nil {
		return fmt.Errorf("failed to query component flavors: %w", err)
	}
	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan component flavor: %w", err)
		}
		if !keep[name] {
			stale = append(stale, name)
		}
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("error iterating component flavors: %w", err)
	}

	for _, name := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comp_flavor WHERE componentname = ? AND flavorname = ?`, component, name); err != nil {
			return fmt.Errorf("failed to unlink flavor %q: %w", name, err)
		}
	}
	for _, name := range flavors {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO comp_flavor (componentname, flavorname) VALUES (?, ?)`, component, name); err != nil {
			return fmt.Errorf("failed to link flavor %q: %w", name, err)
		}
	}
	return nil
}

// DeleteComponent removes a component and its flavor links.
func (s *Store) DeleteComponent(ctx context.Context, name string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comp_flavor WHERE componentname = ?`, name); err != nil {
			return fmt.Errorf("failed to delete component flavors: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM component WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("failed to delete component: %w", err)
		}
		return requireAffected(res, fmt.Sprintf("component %q", name))
	})
}

// --- flavors ---

// ListFlavors returns all flavors in insertion order.
func (s *Store) ListFlavors(ctx context.Context) ([]Flavor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, displayname, content, css, variants, hideforstudents
		FROM flavor
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flavors: %w", err)
	}
	defer rows.Close()

	var out []Flavor
	for rows.Next() {
		var (
			f        Flavor
			variants string
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.DisplayName, &f.Content, &f.CSS, &variants, &f.HideForStudents); err != nil {
			return nil, fmt.Errorf("failed to scan flavor: %w", err)
		}
		f.Variants = splitList(variants)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flavors: %w", err)
	}
	return out, nil
}

// SaveFlavor inserts or updates a flavor by name and returns its id.
func (s *Store) SaveFlavor(ctx context.Context, f Flavor) (int64, error) {
	if f.Name == "" {
		return 0, fmt.Errorf("flavor name cannot be empty")
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO flavor (name, displayname, content, css, variants, hideforstudents)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			displayname = excluded.displayname,
			content = excluded.content,
			css = excluded.css,
			variants = excluded.variants,
			hideforstudents = excluded.hideforstudents,
			timemodified = CURRENT_TIMESTAMP
		RETURNING id`,
		f.Name, f.DisplayName, f.Content, f.CSS, joinList(f.Variants), boolInt(f.HideForStudents)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save flavor %q: %w", f.Name, err)
	}
	return id, nil
}

// DeleteFlavor removes a flavor and its component links.
func (s *Store) DeleteFlavor(ctx context.Context, name string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comp_flavor WHERE flavorname = ?`, name); err != nil {
			return fmt.Errorf("failed to delete component flavors: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM flavor WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("failed to delete flavor: %w", err)
		}
		return requireAffected(res, fmt.Sprintf("flavor %q", name))
	})
}

// --- variants ---

// ListVariants returns all variants in insertion order.
func (s *Store) ListVariants(ctx context.Context) ([]Variant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, displayname, content, css, iconurl
		FROM variant
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.Name, &v.DisplayName, &v.Content, &v.CSS, &v.IconURL); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}
	return out, nil
}

// SaveVariant inserts or updates a variant by name and returns its id.
func (s *Store) SaveVariant(ctx context.Context, v Variant) (int64, error) {
	if v.Name == "" {
		return 0, fmt.Errorf("variant name cannot be empty")
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO variant (name, displayname, content, css, iconurl)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			displayname = excluded.displayname,
			content = excluded.content,
			css = excluded.css,
			iconurl = excluded.iconurl,
			timemodified = CURRENT_TIMESTAMP
		RETURNING id`,
		v.Name, v.DisplayName, v.Content, v.CSS, v.IconURL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save variant %q: %w", v.Name, err)
	}
	return id, nil
}

// DeleteVariant removes a variant. Components still naming it keep the name;
// the catalog drops dangling references on load.
func (s *Store) DeleteVariant(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM variant WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("variant %q", name))
}

// --- component flavors ---

// ListComponentFlavors returns every component/flavor link.
func (s *Store) ListComponentFlavors(ctx context.Context) ([]ComponentFlavor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, componentname, flavorname, iconurl
		FROM comp_flavor
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query component flavors: %w", err)
	}
	defer rows.Close()

	var out []ComponentFlavor
	for rows.Next() {
		var cf ComponentFlavor
		if err := rows.Scan(&cf.ID, &cf.ComponentName, &cf.FlavorName, &cf.IconURL); err != nil {
			return nil, fmt.Errorf("failed to scan component flavor: %w", err)
		}
		out = append(out, cf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating component flavors: %w", err)
	}
	return out, nil
}

// SaveComponentFlavor inserts or updates a link by its pair.
func (s *Store) SaveComponentFlavor(ctx context.Context, cf ComponentFlavor) (int64, error) {
	if cf.ComponentName == "" || cf.FlavorName == "" {
		return 0, fmt.Errorf("component flavor needs both names")
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comp_flavor (componentname, flavorname, iconurl)
		VALUES (?, ?, ?)
		ON CONFLICT(componentname, flavorname) DO UPDATE SET iconurl = excluded.iconurl
		RETURNING id`,
		cf.ComponentName, cf.FlavorName, cf.IconURL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save component flavor %s/%s: %w", cf.ComponentName, cf.FlavorName, err)
	}
	return id, nil
}

// Dataset reads every catalog table.
func (s *Store) Dataset(ctx context.Context) (*Dataset, error) {
	var (
		ds  Dataset
		err error
	)
	if ds.Categories, err = s.ListCategories(ctx); err != nil {
		return nil, err
	}
	if ds.Components, err = s.ListComponents(ctx); err != nil {
		return nil, err
	}
	if ds.Flavors, err = s.ListFlavors(ctx); err != nil {
		return nil, err
	}
	if ds.Variants, err = s.ListVariants(ctx); err != nil {
		return nil, err
	}
	if ds.ComponentFlavors, err = s.ListComponentFlavors(ctx); err != nil {
		return nil, err
	}
	return &ds, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
