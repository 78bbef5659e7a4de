package grouping

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sheaf/internal/artifacts"
	"sheaf/internal/bucketing"
	"sheaf/internal/docstore"
	"sheaf/internal/logging"
	"sheaf/internal/oracle"
	"sheaf/internal/unionfind"
)

// component is one connected set of pages found within a bucket, with the
// average oracle confidence that joined it.
type component struct {
	docs       []*docstore.Document
	confidence float64
}

// clusterBucket runs the cost-bounded comparison loop for one bucket and
// returns the connected components of size two or more.
//
// Cost controls, in order: the bucket cap bounds how many documents enter the
// loop (excess is reported, never silently dropped), connected pairs are
// never re-compared, and a wall-clock budget stops comparisons while keeping
// every component already found. Oracle failures degrade to "no match".
func (e *Engine) clusterBucket(ctx context.Context, bucket *bucketing.Bucket, summary *Summary) []component {
	log := e.logger.With(logging.String(logging.FieldBucket, bucket.Key))

	docs := bucket.Documents
	if limit := e.cfg.Grouping.BucketCap; len(docs) > limit {
		skipped := docs[limit:]
		docs = docs[:limit]
		summary.DocumentsSkipped += len(skipped)
		for _, doc := range skipped {
			log.Warn("bucket cap exceeded, document deferred to a later pass",
				logging.Int64(logging.FieldDocumentID, doc.ID),
				logging.Int("bucket_cap", limit))
		}
	}

	ids := make([]int64, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	set := unionfind.New(ids)

	images := e.prefetchPages(ctx, docs, log)
	confidences := make(map[int64]float64)

	deadline := time.Now().Add(e.bucketBudget)
	budgetExpired := false

	for i := 0; i < len(docs)-1; i++ {
		if time.Now().After(deadline) {
			budgetExpired = true
			break
		}
		primary, ok := images[docs[i].ID]
		if !ok {
			continue
		}

		var candidates []oracle.PageImage
		var meta []oracle.CandidateMeta
		for j := i + 1; j < len(docs); j++ {
			if set.Connected(docs[i].ID, docs[j].ID) {
				continue
			}
			candidate, ok := images[docs[j].ID]
			if !ok {
				continue
			}
			candidates = append(candidates, candidate)
			meta = append(meta, oracle.CandidateMeta{
				DocumentID:  docs[j].ID,
				FormType:    docs[j].FormType,
				OwnerName:   docs[j].OwnerName,
				DisplayName: docs[j].DisplayName,
				Grouped:     docs[j].Grouped(),
			})
		}
		if len(candidates) == 0 {
			continue
		}

		summary.OracleCalls++
		verdicts, err := e.oracle.Compare(ctx, primary, candidates, meta)
		if err != nil {
			summary.OracleFailures++
			log.Warn("oracle comparison failed, treating as no match",
				logging.Int64(logging.FieldDocumentID, docs[i].ID),
				logging.Error(err))
			continue
		}
		for _, verdict := range verdicts {
			if !verdict.MatchFound || verdict.Confidence < e.cfg.Grouping.GroupConfidenceThreshold {
				continue
			}
			if set.Union(docs[i].ID, verdict.DocumentID) {
				if verdict.Confidence > confidences[docs[i].ID] {
					confidences[docs[i].ID] = verdict.Confidence
				}
				if verdict.Confidence > confidences[verdict.DocumentID] {
					confidences[verdict.DocumentID] = verdict.Confidence
				}
			}
		}
	}

	if budgetExpired {
		log.Warn("bucket budget expired, materializing components found so far",
			logging.Duration("budget", e.bucketBudget))
	}

	return e.assembleComponents(docs, set, confidences)
}

// prefetchPages fans out artifact fetches so the serial compare loop never
// waits on storage. A page that cannot be fetched is left out of the loop.
func (e *Engine) prefetchPages(ctx context.Context, docs []*docstore.Document, log *slog.Logger) map[int64]oracle.PageImage {
	images := make(map[int64]oracle.PageImage, len(docs))
	var mu sync.Mutex

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.Grouping.FetchConcurrency)
	for _, doc := range docs {
		group.Go(func() error {
			data, err := e.files.Fetch(ctx, doc.StorageKey)
			if err != nil {
				log.Warn("page fetch failed, excluding from comparisons",
					logging.Int64(logging.FieldDocumentID, doc.ID),
					logging.Error(err))
				return nil
			}
			mu.Lock()
			images[doc.ID] = oracle.PageImage{
				DocumentID: doc.ID,
				MIMEType:   artifacts.MIMEType(doc.StorageKey),
				Data:       data,
			}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return images
}

// assembleComponents maps union-find roots back to documents in bucket
// arrival order.
func (e *Engine) assembleComponents(docs []*docstore.Document, set *unionfind.Set, confidences map[int64]float64) []component {
	byID := make(map[int64]*docstore.Document, len(docs))
	arrival := make(map[int64]int, len(docs))
	for i, doc := range docs {
		byID[doc.ID] = doc
		arrival[doc.ID] = i
	}

	grouped := set.Groups()
	roots := make([]int64, 0, len(grouped))
	for root := range grouped {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	components := make([]component, 0, len(roots))
	for _, root := range roots {
		members := grouped[root]
		comp := component{docs: make([]*docstore.Document, 0, len(members))}
		var sum float64
		var counted int
		for _, id := range members {
			comp.docs = append(comp.docs, byID[id])
			if c, ok := confidences[id]; ok && c > 0 {
				sum += c
				counted++
			}
		}
		sort.Slice(comp.docs, func(i, j int) bool {
			return arrival[comp.docs[i].ID] < arrival[comp.docs[j].ID]
		})
		if counted > 0 {
			comp.confidence = sum / float64(counted)
		} else {
			comp.confidence = e.cfg.Grouping.GroupConfidenceThreshold
		}
		components = append(components, comp)
	}
	return components
}
