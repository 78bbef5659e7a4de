package grouping

import (
	"context"

	"sheaf/internal/docstore"
	"sheaf/internal/logging"
	"sheaf/internal/naming"
)

// linkContinuations attaches every ungrouped document that explicitly names a
// parent document to the parent's group. The page number is assigned inside
// the store's serializable read-increment-write, so concurrent continuations
// targeting one group never collide.
func (e *Engine) linkContinuations(ctx context.Context, caseID string, summary *Summary) error {
	docs, err := e.store.FetchUngrouped(ctx, caseID)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if !doc.IsExplicitContinuation() {
			continue
		}
		if err := e.linkOne(ctx, doc, summary); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) linkOne(ctx context.Context, doc *docstore.Document, summary *Summary) error {
	log := e.logger.With(logging.Int64(logging.FieldDocumentID, doc.ID))

	parent, err := e.store.GetDocument(ctx, doc.Hints.Continuation.ParentDocumentID)
	if err != nil {
		return err
	}
	if parent == nil {
		log.Warn("continuation parent not found, leaving page unlinked",
			logging.Int64("parent_document_id", doc.Hints.Continuation.ParentDocumentID))
		return nil
	}
	if !parent.Grouped() {
		log.Info("continuation parent not grouped yet, deferring link",
			logging.Int64("parent_document_id", parent.ID))
		return nil
	}

	page, total, err := e.store.LinkContinuation(ctx, doc.ID, parent.GroupID)
	if err != nil {
		return err
	}
	summary.ContinuationsLinked++
	log.Info("linked continuation page",
		logging.Int64(logging.FieldGroupID, parent.GroupID),
		logging.Int("page", page),
		logging.Int("total", total))

	newName := naming.PartName(doc.DisplayName, page, total)
	if err := e.store.SetDisplayName(ctx, doc.ID, newName); err != nil {
		return err
	}
	e.renameArtifact(ctx, doc, newName, log)
	return nil
}
