package migration

import (
	"context"
	"database/sql"
	"fmt"
)

// ColumnPatch - аддитивная колонка, появившаяся после первой версии схемы.
type ColumnPatch struct {
	Table      string
	Column     string
	Definition string
}

type PatchResult struct {
	Patch   ColumnPatch
	Outcome Outcome
}

// ApplyColumn добавляет колонку, если ее еще нет. Существующая колонка дает
// OutcomeAlreadyApplied, а не ошибку "duplicate column".
func ApplyColumn(ctx context.Context, db *sql.DB, p ColumnPatch) (Outcome, error) {
	exists, err := hasColumn(ctx, db, p.Table, p.Column)
	if err != nil {
		return OutcomeFailed, err
	}
	if exists {
		return OutcomeAlreadyApplied, nil
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", p.Table, p.Column, p.Definition)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return OutcomeFailed, fmt.Errorf("add column %s.%s: %w", p.Table, p.Column, err)
	}

	return OutcomeApplied, nil
}

func ApplyColumns(ctx context.Context, db *sql.DB, patches []ColumnPatch) ([]PatchResult, error) {
	results := make([]PatchResult, 0, len(patches))
	for _, p := range patches {
		outcome, err := ApplyColumn(ctx, db, p)
		results = append(results, PatchResult{Patch: p, Outcome: outcome})
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			cid       int
			name      string
			typ       string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	if !found && !tableKnown(ctx, db, table) {
		return false, fmt.Errorf("table %s does not exist", table)
	}

	return found, nil
}

func tableKnown(ctx context.Context, db *sql.DB, table string) bool {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
	return err == nil
}
