package grouping

import (
	"context"

	"sheaf/internal/bucketing"
	"sheaf/internal/logging"
	"sheaf/internal/naming"
)

// augmentBucket pulls one representative page per existing group of matching
// form type into the bucket so new pages can join old groups instead of only
// each other. Named buckets only see groups with a matching owner; the
// unassigned bucket sees every group, because owner unknown means any could
// match.
func (e *Engine) augmentBucket(ctx context.Context, caseID string, bucket *bucketing.Bucket) error {
	groups, err := e.store.GroupsByType(ctx, caseID, bucket.FormType)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}

	present := make(map[int64]bool, len(bucket.Documents))
	memberGroups := make(map[int64]bool)
	for _, doc := range bucket.Documents {
		present[doc.ID] = true
		if doc.Grouped() {
			memberGroups[doc.GroupID] = true
		}
	}

	for _, group := range groups {
		if memberGroups[group.ID] {
			continue
		}
		members, err := e.store.DocumentsByGroup(ctx, group.ID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			continue
		}
		representative := members[0]
		if present[representative.ID] {
			continue
		}
		if !bucket.Unassigned() && naming.NormalizeOwner(representative.OwnerName) != bucket.Owner {
			continue
		}
		bucket.Documents = append(bucket.Documents, representative)
		e.logger.Debug("pulled group representative into bucket",
			logging.String(logging.FieldBucket, bucket.Key),
			logging.Int64(logging.FieldGroupID, group.ID),
			logging.Int64(logging.FieldDocumentID, representative.ID))
	}
	return nil
}
