package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const groupColumns = `id, case_id, base_name, document_type, page_count, confidence, created_at, updated_at`

// CreateGroup inserts a new group record.
func (s *Store) CreateGroup(ctx context.Context, group *Group) (*Group, error) {
	if group == nil {
		return nil, errors.New("group is nil")
	}
	if group.CaseID == "" {
		return nil, errors.New("group requires a case id")
	}
	now := timestamp(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (case_id, base_name, document_type, page_count, confidence, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		group.CaseID,
		group.BaseName,
		group.DocumentType,
		group.PageCount,
		group.Confidence,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetGroup(ctx, id)
}

// GetGroup fetches a group by identifier, returning nil when absent.
func (s *Store) GetGroup(ctx context.Context, id int64) (*Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = ?`, id)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// GroupsByType returns a case's groups of a document type, oldest first.
func (s *Store) GroupsByType(ctx context.Context, caseID, documentType string) ([]*Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE case_id = ? AND document_type = ? ORDER BY id`,
		caseID, documentType,
	)
	if err != nil {
		return nil, fmt.Errorf("groups by type: %w", err)
	}
	return collectGroups(rows)
}

// GroupsByCase returns all groups of a case, oldest first.
func (s *Store) GroupsByCase(ctx context.Context, caseID string) ([]*Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE case_id = ? ORDER BY id`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("groups by case: %w", err)
	}
	return collectGroups(rows)
}

// UpdateGroupCount sets a group's page count and confidence.
func (s *Store) UpdateGroupCount(ctx context.Context, groupID int64, pageCount int, confidence float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE groups SET page_count = ?, confidence = ?, updated_at = ? WHERE id = ?`,
		pageCount, confidence, timestamp(time.Now()), groupID,
	)
	if err != nil {
		return fmt.Errorf("update group count: %w", err)
	}
	return nil
}

// LinkContinuation attaches a continuation document to its parent's group
// inside a single serializable read-increment-write transaction. It reads the
// group's current page count, assigns the continuation the next number,
// increments the count, and propagates the new total to every member.
// Concurrent continuations targeting the same group therefore never receive
// the same page number. The assigned page number and new total are returned.
func (s *Store) LinkContinuation(ctx context.Context, docID, groupID int64) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, 0, fmt.Errorf("begin continuation tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT page_count FROM groups WHERE id = ?`, groupID).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, fmt.Errorf("group %d not found", groupID)
		}
		return 0, 0, fmt.Errorf("read group page count: %w", err)
	}

	// Re-linking an already attached continuation must not consume a number.
	var existingGroup sql.NullInt64
	var existingPage sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT group_id, page_number FROM documents WHERE id = ?`, docID).Scan(&existingGroup, &existingPage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, fmt.Errorf("document %d not found", docID)
		}
		return 0, 0, fmt.Errorf("read continuation document: %w", err)
	}
	if existingGroup.Int64 == groupID && existingPage.Int64 > 0 {
		if err := tx.Commit(); err != nil {
			return 0, 0, fmt.Errorf("commit continuation tx: %w", err)
		}
		return int(existingPage.Int64), count, nil
	}

	next := count + 1
	now := timestamp(time.Now())

	if _, err := tx.ExecContext(ctx,
		`UPDATE groups SET page_count = ?, updated_at = ? WHERE id = ?`,
		next, now, groupID,
	); err != nil {
		return 0, 0, fmt.Errorf("increment group count: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents
		 SET group_id = ?, page_number = ?, total_pages = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		groupID, next, next, StatusGrouped, now, docID,
	); err != nil {
		return 0, 0, fmt.Errorf("attach continuation: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET total_pages = ?, updated_at = ? WHERE group_id = ?`,
		next, now, groupID,
	); err != nil {
		return 0, 0, fmt.Errorf("propagate continuation total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit continuation tx: %w", err)
	}
	return next, next, nil
}

func collectGroups(rows *sql.Rows) ([]*Group, error) {
	defer rows.Close()
	var groups []*Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

func scanGroup(scanner interface{ Scan(dest ...any) error }) (*Group, error) {
	var (
		group      Group
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&group.ID,
		&group.CaseID,
		&group.BaseName,
		&group.DocumentType,
		&group.PageCount,
		&group.Confidence,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		group.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		group.UpdatedAt = updated
	}
	return &group, nil
}
