package grouping

import (
	"context"
	"encoding/json"

	"sheaf/internal/bucketing"
	"sheaf/internal/caselock"
	"sheaf/internal/docstore"
	"sheaf/internal/logging"
	"sheaf/internal/services"
)

// RunCase executes the full multi-pass grouping flow for one case. Quality
// problems (oracle failures, budget expiry, rename failures, the pass
// ceiling) are absorbed into the summary; only infrastructure failures
// (store, lock) return an error.
func (e *Engine) RunCase(ctx context.Context, caseID string) (*Summary, error) {
	if caseID == "" {
		return nil, services.Wrap(services.ErrValidation, "grouping", "run", "case id is required", nil)
	}
	ctx = services.WithCaseID(ctx, caseID)

	lock, err := caselock.Acquire(e.cfg.Paths.LockDir, caseID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			e.logger.Warn("release case lock", logging.String(logging.FieldCaseID, caseID), logging.Error(releaseErr))
		}
	}()

	run, err := e.store.ActiveRun(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		run, err = e.store.StartRun(ctx, caseID)
		if err != nil {
			return nil, err
		}
	} else {
		e.logger.Info("resuming interrupted run",
			logging.String(logging.FieldCaseID, caseID),
			logging.String("run_id", run.RunID),
			logging.String(logging.FieldStep, string(run.Step)))
	}

	summary := &Summary{CaseID: caseID, RunID: run.RunID}
	log := e.logger.With(logging.String(logging.FieldCaseID, caseID), logging.String("run_id", run.RunID))

	for pass := 1; ; pass++ {
		if pass > e.cfg.Grouping.PassCeiling {
			summary.CeilingReached = true
			log.Warn("pass ceiling reached, ending run with partial progress",
				logging.Int("ceiling", e.cfg.Grouping.PassCeiling))
			break
		}
		summary.Passes = pass
		passLog := log.With(logging.Int(logging.FieldPass, pass))

		createdBefore, updatedBefore := summary.GroupsCreated, summary.GroupsUpdated

		if err := e.checkpoint(ctx, run.RunID, docstore.StepFetch, pass); err != nil {
			return summary, err
		}
		docs, err := e.store.FetchUngrouped(ctx, caseID)
		if err != nil {
			return summary, err
		}
		if pass == 1 {
			summary.DocumentsProcessed = len(docs)
		}
		if len(docs) == 0 {
			passLog.Info("no ungrouped documents, run complete")
			break
		}

		if err := e.checkpoint(ctx, run.RunID, docstore.StepBucket, pass); err != nil {
			return summary, err
		}
		buckets := bucketing.Partition(docs, e.cfg.Grouping.OwnerConfidenceThreshold)

		if err := e.checkpoint(ctx, run.RunID, docstore.StepAugment, pass); err != nil {
			return summary, err
		}
		for _, bucket := range buckets {
			if err := e.augmentBucket(ctx, caseID, bucket); err != nil {
				return summary, err
			}
		}

		if err := e.checkpoint(ctx, run.RunID, docstore.StepCluster, pass); err != nil {
			return summary, err
		}
		for _, bucket := range buckets {
			if len(bucket.Documents) < 2 {
				continue
			}
			components := e.clusterBucket(ctx, bucket, summary)
			if len(components) == 0 {
				continue
			}
			if err := e.checkpoint(ctx, run.RunID, docstore.StepMaterialize, pass); err != nil {
				return summary, err
			}
			for _, component := range components {
				if err := e.materializeComponent(ctx, caseID, component, summary); err != nil {
					return summary, err
				}
			}
		}

		if err := e.checkpoint(ctx, run.RunID, docstore.StepDecide, pass); err != nil {
			return summary, err
		}
		progressed := summary.GroupsCreated > createdBefore || summary.GroupsUpdated > updatedBefore
		remaining, err := e.store.CountUngrouped(ctx, caseID)
		if err != nil {
			return summary, err
		}
		if !progressed || remaining < 2 {
			passLog.Info("run converged",
				logging.Bool("progressed", progressed),
				logging.Int("remaining_ungrouped", remaining))
			break
		}
	}

	if err := e.checkpoint(ctx, run.RunID, docstore.StepLink, summary.Passes); err != nil {
		return summary, err
	}
	if err := e.linkContinuations(ctx, caseID, summary); err != nil {
		return summary, err
	}

	if err := e.completeRun(ctx, run.RunID, summary); err != nil {
		return summary, err
	}
	log.Info("grouping run complete",
		logging.Int("passes", summary.Passes),
		logging.Int("groups_created", summary.GroupsCreated),
		logging.Int("groups_updated", summary.GroupsUpdated),
		logging.Int("continuations_linked", summary.ContinuationsLinked),
		logging.Int("oracle_calls", summary.OracleCalls),
		logging.Int("oracle_failures", summary.OracleFailures))
	return summary, nil
}

// RunDocument is the incremental trigger: compare one new arrival against a
// recent window of same-form candidates, then link it if it is an explicit
// continuation.
func (e *Engine) RunDocument(ctx context.Context, docID int64) (*Summary, error) {
	doc, err := e.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, services.Wrap(services.ErrNotFound, "grouping", "run-document", "document not found", nil)
	}
	if doc.Grouped() {
		return &Summary{CaseID: doc.CaseID, DocumentsProcessed: 1}, nil
	}
	if doc.Status != docstore.StatusClassified {
		return nil, services.Wrap(services.ErrValidation, "grouping", "run-document", "document is not classified yet", nil)
	}
	ctx = services.WithCaseID(services.WithDocumentID(ctx, docID), doc.CaseID)

	lock, err := caselock.Acquire(e.cfg.Paths.LockDir, doc.CaseID)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	summary := &Summary{CaseID: doc.CaseID, DocumentsProcessed: 1}

	candidates, err := e.store.RecentCandidates(ctx, doc.CaseID, doc.FormType, doc.ID, e.cfg.Grouping.CandidateWindow)
	if err != nil {
		return summary, err
	}

	threshold := e.cfg.Grouping.OwnerConfidenceThreshold
	key := bucketing.KeyFor(doc, threshold)
	owner := bucketing.OwnerSegment(doc, threshold)
	if owner == bucketing.UnassignedOwner {
		owner = ""
	}
	bucket := &bucketing.Bucket{Key: key, FormType: doc.FormType, Owner: owner}
	bucket.Documents = append(bucket.Documents, doc)
	for _, candidate := range candidates {
		if bucketing.KeyFor(candidate, threshold) == key {
			bucket.Documents = append(bucket.Documents, candidate)
		}
	}
	if err := e.augmentBucket(ctx, doc.CaseID, bucket); err != nil {
		return summary, err
	}

	if len(bucket.Documents) >= 2 {
		for _, component := range e.clusterBucket(ctx, bucket, summary) {
			if err := e.materializeComponent(ctx, doc.CaseID, component, summary); err != nil {
				return summary, err
			}
		}
	}

	if doc.IsExplicitContinuation() {
		if err := e.linkOne(ctx, doc, summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (e *Engine) checkpoint(ctx context.Context, runID string, step docstore.RunStep, pass int) error {
	if pass < 1 {
		pass = 1
	}
	return e.store.CheckpointRun(ctx, runID, step, pass)
}

func (e *Engine) completeRun(ctx context.Context, runID string, summary *Summary) error {
	encoded, err := json.Marshal(summary)
	if err != nil {
		return services.Wrap(services.ErrValidation, "grouping", "complete-run", "encode summary", err)
	}
	return e.store.CompleteRun(ctx, runID, string(encoded))
}
