package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const documentColumns = `id, case_id, storage_key, display_name, status, form_type,
	form_confidence, owner_name, owner_confidence, page_hints_json, group_id,
	page_number, total_pages, group_confidence, created_at, updated_at`

// CreateDocument inserts a newly uploaded page. Upload order is implied by
// the assigned identifier.
func (s *Store) CreateDocument(ctx context.Context, doc *Document) (*Document, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	if doc.CaseID == "" {
		return nil, errors.New("document requires a case id")
	}
	if doc.StorageKey == "" {
		return nil, errors.New("document requires a storage key")
	}
	status := doc.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}

	hintsJSON, err := marshalHints(doc.Hints)
	if err != nil {
		return nil, err
	}
	now := timestamp(time.Now())

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (
			case_id, storage_key, display_name, status, form_type, form_confidence,
			owner_name, owner_confidence, page_hints_json, group_id, page_number,
			total_pages, group_confidence, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.CaseID,
		doc.StorageKey,
		doc.DisplayName,
		status,
		nullableString(doc.FormType),
		doc.FormConfidence,
		nullableString(doc.OwnerName),
		doc.OwnerConfidence,
		hintsJSON,
		nullableInt64(doc.GroupID),
		nullableInt(doc.PageNumber),
		nullableInt(doc.TotalPages),
		doc.GroupConfidence,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetDocument(ctx, id)
}

// GetDocument fetches a document by identifier, returning nil when absent.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// UpdateDocument persists changes to an existing document.
func (s *Store) UpdateDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	hintsJSON, err := marshalHints(doc.Hints)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE documents
		 SET storage_key = ?, display_name = ?, status = ?, form_type = ?,
		     form_confidence = ?, owner_name = ?, owner_confidence = ?,
		     page_hints_json = ?, group_id = ?, page_number = ?, total_pages = ?,
		     group_confidence = ?, updated_at = ?
		 WHERE id = ?`,
		doc.StorageKey,
		doc.DisplayName,
		doc.Status,
		nullableString(doc.FormType),
		doc.FormConfidence,
		nullableString(doc.OwnerName),
		doc.OwnerConfidence,
		hintsJSON,
		nullableInt64(doc.GroupID),
		nullableInt(doc.PageNumber),
		nullableInt(doc.TotalPages),
		doc.GroupConfidence,
		timestamp(doc.UpdatedAt),
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// TransitionStatus performs a conditional status update: the write applies
// only when the document is still in the expected status. It returns whether
// the transition happened.
func (s *Store) TransitionStatus(ctx context.Context, id int64, from, to Status) (bool, error) {
	if !to.Valid() {
		return false, fmt.Errorf("unknown status %q", to)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, timestamp(time.Now()), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// FetchUngrouped returns a case's classified documents that do not yet belong
// to a group, in upload order.
func (s *Store) FetchUngrouped(ctx context.Context, caseID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE case_id = ? AND status = ? AND group_id IS NULL
		 ORDER BY id`,
		caseID, StatusClassified,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch ungrouped: %w", err)
	}
	return collectDocuments(rows)
}

// CountUngrouped returns how many classified, ungrouped documents remain.
func (s *Store) CountUngrouped(ctx context.Context, caseID string) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM documents WHERE case_id = ? AND status = ? AND group_id IS NULL`,
		caseID, StatusClassified,
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count ungrouped: %w", err)
	}
	return count, nil
}

// DocumentsByGroup returns a group's members ordered by assigned page number.
func (s *Store) DocumentsByGroup(ctx context.Context, groupID int64) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE group_id = ? ORDER BY page_number, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("documents by group: %w", err)
	}
	return collectDocuments(rows)
}

// RecentCandidates returns the most recent classified documents of a case
// sharing the given form type, excluding one id, newest first. The incremental
// trigger uses this as its comparison window.
func (s *Store) RecentCandidates(ctx context.Context, caseID, formType string, excludeID int64, limit int) ([]*Document, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE case_id = ? AND form_type = ? AND id != ? AND status = ?
		 ORDER BY id DESC LIMIT ?`,
		caseID, formType, excludeID, StatusClassified, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent candidates: %w", err)
	}
	return collectDocuments(rows)
}

// AssignToGroup persists group membership and page numbering for a document.
// Repeating the same assignment is a no-op by construction.
func (s *Store) AssignToGroup(ctx context.Context, docID, groupID int64, pageNumber, totalPages int, displayName string, confidence float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET group_id = ?, page_number = ?, total_pages = ?, display_name = ?,
		     group_confidence = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		groupID, pageNumber, totalPages, displayName, confidence,
		StatusGrouped, timestamp(time.Now()), docID,
	)
	if err != nil {
		return fmt.Errorf("assign to group: %w", err)
	}
	return nil
}

// SetDisplayName updates only the display name, used to roll a name back when
// the stored artifact could not be renamed.
func (s *Store) SetDisplayName(ctx context.Context, docID int64, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET display_name = ?, updated_at = ? WHERE id = ?`,
		name, timestamp(time.Now()), docID,
	)
	if err != nil {
		return fmt.Errorf("set display name: %w", err)
	}
	return nil
}

// SetStorageKey records the new artifact key after a successful rename.
func (s *Store) SetStorageKey(ctx context.Context, docID int64, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET storage_key = ?, updated_at = ? WHERE id = ?`,
		key, timestamp(time.Now()), docID,
	)
	if err != nil {
		return fmt.Errorf("set storage key: %w", err)
	}
	return nil
}

func collectDocuments(rows *sql.Rows) ([]*Document, error) {
	defer rows.Close()
	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*Document, error) {
	var (
		id              int64
		caseID          string
		storageKey      string
		displayName     string
		statusStr       string
		formType        sql.NullString
		formConfidence  float64
		ownerName       sql.NullString
		ownerConfidence float64
		hintsJSON       sql.NullString
		groupID         sql.NullInt64
		pageNumber      sql.NullInt64
		totalPages      sql.NullInt64
		groupConfidence float64
		createdRaw      string
		updatedRaw      string
	)

	if err := scanner.Scan(
		&id,
		&caseID,
		&storageKey,
		&displayName,
		&statusStr,
		&formType,
		&formConfidence,
		&ownerName,
		&ownerConfidence,
		&hintsJSON,
		&groupID,
		&pageNumber,
		&totalPages,
		&groupConfidence,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	doc := &Document{
		ID:              id,
		CaseID:          caseID,
		StorageKey:      storageKey,
		DisplayName:     displayName,
		Status:          Status(statusStr),
		FormType:        formType.String,
		FormConfidence:  formConfidence,
		OwnerName:       ownerName.String,
		OwnerConfidence: ownerConfidence,
		GroupID:         groupID.Int64,
		PageNumber:      int(pageNumber.Int64),
		TotalPages:      int(totalPages.Int64),
		GroupConfidence: groupConfidence,
	}
	if hintsJSON.Valid && hintsJSON.String != "" {
		if err := json.Unmarshal([]byte(hintsJSON.String), &doc.Hints); err != nil {
			return nil, fmt.Errorf("decode page hints for document %d: %w", id, err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		doc.UpdatedAt = updated
	}
	return doc, nil
}

func marshalHints(hints PageHints) (any, error) {
	if hints.Continuation == nil && hints.PageNumber == 0 && hints.PartLabel == "" && !hints.Worksheet {
		return nil, nil
	}
	data, err := json.Marshal(hints)
	if err != nil {
		return nil, fmt.Errorf("marshal page hints: %w", err)
	}
	return string(data), nil
}
