package grouping

import (
	"context"
	"log/slog"
	"path"
	"time"

	"sheaf/internal/docstore"
	"sheaf/internal/logging"
	"sheaf/internal/naming"
	"sheaf/internal/sequence"
)

const renameBackoffBase = 200 * time.Millisecond

// materializeComponent persists one connected component as a durable group.
// Every write here is idempotent: re-running the same materialization reaches
// the same end state.
func (e *Engine) materializeComponent(ctx context.Context, caseID string, comp component, summary *Summary) error {
	if len(comp.docs) < 2 {
		return nil
	}
	log := e.logger.With(logging.String(logging.FieldCaseID, caseID))

	target, err := e.resolveTargetGroup(ctx, comp, log)
	if err != nil {
		return err
	}

	members := comp.docs
	newMembers := len(members)
	if target != nil {
		members, newMembers, err = e.mergedMembership(ctx, target, comp.docs)
		if err != nil {
			return err
		}
	}

	placements := sequence.Order(sequencingView(members))
	pages := make([]int, len(placements))
	for i, p := range placements {
		pages[i] = p.Page
	}
	if err := sequence.Validate(pages); err != nil {
		log.Warn("computed page sequence failed validation, proceeding with computed order",
			logging.Error(err))
	}

	total := len(placements)
	confidence := comp.confidence

	if target == nil {
		base := naming.StripPartSuffix(placements[0].Document.DisplayName)
		target, err = e.store.CreateGroup(ctx, &docstore.Group{
			CaseID:       caseID,
			BaseName:     base,
			DocumentType: placements[0].Document.FormType,
			PageCount:    total,
			Confidence:   confidence,
		})
		if err != nil {
			return err
		}
		summary.GroupsCreated++
		log.Info("created group",
			logging.Int64(logging.FieldGroupID, target.ID),
			logging.String("base_name", base),
			logging.Int("pages", total))
	} else {
		if target.Confidence > 0 {
			confidence = (target.Confidence + comp.confidence) / 2
		}
		if err := e.store.UpdateGroupCount(ctx, target.ID, total, confidence); err != nil {
			return err
		}
		if newMembers > 0 {
			summary.GroupsUpdated++
			log.Info("joined existing group",
				logging.Int64(logging.FieldGroupID, target.ID),
				logging.Int("new_members", newMembers),
				logging.Int("pages", total))
		}
	}

	for _, placement := range placements {
		doc := placement.Document
		newName := naming.PartName(doc.DisplayName, placement.Page, total)
		docConfidence := confidence
		if doc.GroupConfidence > 0 {
			docConfidence = doc.GroupConfidence
		}
		if err := e.store.AssignToGroup(ctx, doc.ID, target.ID, placement.Page, total, newName, docConfidence); err != nil {
			return err
		}
		log.Debug("assigned page",
			logging.Int64(logging.FieldDocumentID, doc.ID),
			logging.Int64(logging.FieldGroupID, target.ID),
			logging.Int("page", placement.Page),
			logging.String("signal", placement.Signal.String()))

		e.renameArtifact(ctx, doc, newName, log)
	}
	return nil
}

// resolveTargetGroup picks the merge target when component members already
// reference existing groups. More than one referenced group is resolved
// deterministically: largest page count wins, then lower id, so repeated
// passes cannot oscillate between targets.
func (e *Engine) resolveTargetGroup(ctx context.Context, comp component, log *slog.Logger) (*docstore.Group, error) {
	seen := make(map[int64]bool)
	var groups []*docstore.Group
	for _, doc := range comp.docs {
		if !doc.Grouped() || seen[doc.GroupID] {
			continue
		}
		seen[doc.GroupID] = true
		group, err := e.store.GetGroup(ctx, doc.GroupID)
		if err != nil {
			return nil, err
		}
		if group != nil {
			groups = append(groups, group)
		}
	}
	switch len(groups) {
	case 0:
		return nil, nil
	case 1:
		return groups[0], nil
	}

	target := groups[0]
	for _, group := range groups[1:] {
		if group.PageCount > target.PageCount ||
			(group.PageCount == target.PageCount && group.ID < target.ID) {
			target = group
		}
	}
	log.Warn("component spans multiple groups, merging into largest",
		logging.Int64(logging.FieldGroupID, target.ID),
		logging.Int("groups_referenced", len(groups)))
	return target, nil
}

// mergedMembership combines the target group's current members with the
// component's documents, deduplicated, existing members first. It returns the
// full membership and how many members are genuinely new.
func (e *Engine) mergedMembership(ctx context.Context, target *docstore.Group, docs []*docstore.Document) ([]*docstore.Document, int, error) {
	existing, err := e.store.DocumentsByGroup(ctx, target.ID)
	if err != nil {
		return nil, 0, err
	}
	members := make([]*docstore.Document, 0, len(existing)+len(docs))
	present := make(map[int64]bool, len(existing))
	for _, doc := range existing {
		members = append(members, doc)
		present[doc.ID] = true
	}
	newMembers := 0
	for _, doc := range docs {
		if present[doc.ID] {
			continue
		}
		present[doc.ID] = true
		members = append(members, doc)
		newMembers++
	}
	return members, newMembers, nil
}

// sequencingView clones members so established page numbers survive a
// re-sequencing: a member already holding a page number but no explicit hint
// is sequenced as if that number were printed on it.
func sequencingView(members []*docstore.Document) []*docstore.Document {
	view := make([]*docstore.Document, len(members))
	for i, doc := range members {
		if doc.PageNumber > 0 && doc.Hints.PageNumber == 0 {
			clone := *doc
			clone.Hints.PageNumber = doc.PageNumber
			view[i] = &clone
			continue
		}
		view[i] = doc
	}
	return view
}

// renameArtifact moves the stored object to match the new display name, with
// bounded retries. Failure is non-fatal: the document store remains
// authoritative, and the display name is rolled back to match what storage
// actually holds.
func (e *Engine) renameArtifact(ctx context.Context, doc *docstore.Document, newName string, log *slog.Logger) {
	oldKey := doc.StorageKey
	newKey := artifactKey(oldKey, newName)
	if newKey == oldKey {
		return
	}

	attempts := e.cfg.Grouping.RenameAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := e.files.Rename(ctx, oldKey, newKey)
		if err == nil {
			if setErr := e.store.SetStorageKey(ctx, doc.ID, result.NewKey); setErr != nil {
				log.Warn("rename succeeded but storage key update failed",
					logging.Int64(logging.FieldDocumentID, doc.ID),
					logging.Error(setErr))
			}
			return
		}
		lastErr = err
		if attempt < attempts {
			e.sleeper(renameBackoffBase << (attempt - 1))
		}
	}

	log.Warn("artifact rename failed, rolling back display name",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.Int("attempts", attempts),
		logging.Error(lastErr))
	if err := e.store.SetDisplayName(ctx, doc.ID, doc.DisplayName); err != nil {
		log.Warn("display name rollback failed",
			logging.Int64(logging.FieldDocumentID, doc.ID),
			logging.Error(err))
	}
}

// artifactKey swaps the object's file name for the new display name, keeping
// the key's directory and extension.
func artifactKey(oldKey, newName string) string {
	dir := path.Dir(oldKey)
	if ext := path.Ext(oldKey); ext != "" && path.Ext(newName) == "" {
		newName += ext
	}
	if dir == "." {
		return newName
	}
	return dir + "/" + newName
}
