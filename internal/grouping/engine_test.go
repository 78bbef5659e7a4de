package grouping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"sheaf/internal/artifacts"
	"sheaf/internal/config"
	"sheaf/internal/docstore"
	"sheaf/internal/logging"
	"sheaf/internal/naming"
	"sheaf/internal/oracle"
	"sheaf/internal/testsupport"
)

type scriptedOracle struct {
	calls int
	err   error
	match func(primaryID, candidateID int64) (bool, float64)
}

func (o *scriptedOracle) Compare(_ context.Context, primary oracle.PageImage, _ []oracle.PageImage, meta []oracle.CandidateMeta) ([]oracle.Verdict, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	verdicts := make([]oracle.Verdict, len(meta))
	for i, m := range meta {
		matched, confidence := o.match(primary.DocumentID, m.DocumentID)
		verdicts[i] = oracle.Verdict{DocumentID: m.DocumentID, MatchFound: matched, Confidence: confidence}
	}
	return verdicts, nil
}

func (o *scriptedOracle) Close() error { return nil }

func matchAll(int64, int64) (bool, float64) { return true, 0.95 }

func matchNone(int64, int64) (bool, float64) { return false, 0.2 }

type testEnv struct {
	engine *Engine
	store  *docstore.Store
	files  *artifacts.Memory
	cfg    *config.Config
}

func newTestEnv(t *testing.T, matcher oracle.Service, cfgOpts []testsupport.ConfigOption, engineOpts ...Option) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, cfgOpts...)
	store := testsupport.MustOpenStore(t, cfg)
	files := artifacts.NewMemory()
	opts := append([]Option{WithSleeper(func(time.Duration) {})}, engineOpts...)
	engine := NewEngine(cfg, store, matcher, files, logging.NewNop(), opts...)
	return &testEnv{engine: engine, store: store, files: files, cfg: cfg}
}

func (env *testEnv) seedPage(t *testing.T, caseID, formType, name string, opts ...testsupport.DocumentOption) *docstore.Document {
	t.Helper()
	key := "cases/" + caseID + "/" + name
	opts = append(opts, testsupport.WithStorageKey(key), testsupport.WithDisplayName(name))
	doc := testsupport.SeedDocument(t, env.store, caseID, formType, opts...)
	env.files.Put(key, []byte("img:"+name))
	return doc
}

func (env *testEnv) seedGroup(t *testing.T, caseID, formType, owner, prefix string, pages int) *docstore.Group {
	t.Helper()
	ctx := context.Background()
	group, err := env.store.CreateGroup(ctx, &docstore.Group{
		CaseID:       caseID,
		BaseName:     prefix,
		DocumentType: formType,
		PageCount:    pages,
		Confidence:   0.9,
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	for i := 1; i <= pages; i++ {
		name := fmt.Sprintf("%s_Part%dof%d.pdf", prefix, i, pages)
		doc := env.seedPage(t, caseID, formType, name, testsupport.WithOwner(owner, 0.95))
		if err := env.store.AssignToGroup(ctx, doc.ID, group.ID, i, pages, name, 0.9); err != nil {
			t.Fatalf("assign to group: %v", err)
		}
	}
	return group
}

func TestRunCaseNeverMergesAcrossOwners(t *testing.T) {
	env := newTestEnv(t, &scriptedOracle{match: matchAll}, nil)
	env.seedPage(t, "c1", "W-2", "john-a.pdf", testsupport.WithOwner("John Smith", 0.95))
	env.seedPage(t, "c1", "W-2", "john-b.pdf", testsupport.WithOwner("John Smith", 0.95))
	env.seedPage(t, "c1", "W-2", "jane-a.pdf", testsupport.WithOwner("Jane Smith", 0.95))
	env.seedPage(t, "c1", "W-2", "jane-b.pdf", testsupport.WithOwner("Jane Smith", 0.95))

	summary, err := env.engine.RunCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.GroupsCreated != 2 {
		t.Fatalf("expected 2 groups, got %d", summary.GroupsCreated)
	}

	groups, err := env.store.GroupsByCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("groups by case: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 persisted groups, got %d", len(groups))
	}
	for _, group := range groups {
		members, err := env.store.DocumentsByGroup(context.Background(), group.ID)
		if err != nil {
			t.Fatalf("documents by group: %v", err)
		}
		if len(members) != 2 {
			t.Fatalf("group %d has %d members", group.ID, len(members))
		}
		owner := naming.NormalizeOwner(members[0].OwnerName)
		for _, member := range members {
			if naming.NormalizeOwner(member.OwnerName) != owner {
				t.Fatalf("group %d mixes owners even with an always-match oracle", group.ID)
			}
		}
		if group.PageCount != 2 {
			t.Fatalf("group %d page count %d, want 2", group.ID, group.PageCount)
		}
	}
}

func TestRunCaseOrdersExplicitPages(t *testing.T) {
	env := newTestEnv(t, &scriptedOracle{match: matchAll}, nil)
	p3 := env.seedPage(t, "c1", "1040", "p3.pdf",
		testsupport.WithOwner("John Smith", 0.95),
		testsupport.WithHints(docstore.PageHints{PageNumber: 3}))
	p1 := env.seedPage(t, "c1", "1040", "p1.pdf",
		testsupport.WithOwner("John Smith", 0.95),
		testsupport.WithHints(docstore.PageHints{PageNumber: 1}))
	p2 := env.seedPage(t, "c1", "1040", "p2.pdf",
		testsupport.WithOwner("John Smith", 0.95),
		testsupport.WithHints(docstore.PageHints{PageNumber: 2}))

	summary, err := env.engine.RunCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.GroupsCreated != 1 {
		t.Fatalf("expected 1 group, got %d", summary.GroupsCreated)
	}

	want := map[int64]int{p1.ID: 1, p2.ID: 2, p3.ID: 3}
	for id, page := range want {
		doc, err := env.store.GetDocument(context.Background(), id)
		if err != nil {
			t.Fatalf("get document: %v", err)
		}
		if doc.PageNumber != page || doc.TotalPages != 3 {
			t.Fatalf("document %d has page %d of %d, want %d of 3", id, doc.PageNumber, doc.TotalPages, page)
		}
		wantSuffix := fmt.Sprintf("_Part%dof3.pdf", page)
		if !strings.HasSuffix(doc.DisplayName, wantSuffix) {
			t.Fatalf("document %d display name %q missing %q", id, doc.DisplayName, wantSuffix)
		}
		if !strings.HasSuffix(doc.StorageKey, wantSuffix) {
			t.Fatalf("document %d storage key %q not renamed", id, doc.StorageKey)
		}
	}
}

func TestRunCaseConvergesWithoutProgress(t *testing.T) {
	matcher := &scriptedOracle{match: matchNone}
	env := newTestEnv(t, matcher, nil)
	for i := 0; i < 3; i++ {
		env.seedPage(t, "c1", "W-2", fmt.Sprintf("doc-%d.pdf", i), testsupport.WithOwner("John Smith", 0.95))
	}

	summary, err := env.engine.RunCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Passes != 1 {
		t.Fatalf("run without progress should stop after one pass, used %d", summary.Passes)
	}
	if summary.GroupsCreated != 0 || summary.CeilingReached {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if matcher.calls == 0 {
		t.Fatal("oracle was never consulted")
	}
}

func TestRunCaseOracleFailureDegradesToNoMatch(t *testing.T) {
	matcher := &scriptedOracle{err: errors.New("model unavailable")}
	env := newTestEnv(t, matcher, nil)
	env.seedPage(t, "c1", "W-2", "a.pdf", testsupport.WithOwner("John Smith", 0.95))
	env.seedPage(t, "c1", "W-2", "b.pdf", testsupport.WithOwner("John Smith", 0.95))

	summary, err := env.engine.RunCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("flaky oracle must not fail the run: %v", err)
	}
	if summary.GroupsCreated != 0 {
		t.Fatalf("failed comparisons must not create groups: %+v", summary)
	}
	if summary.OracleFailures == 0 {
		t.Fatal("oracle failures not reported")
	}
}

func TestRunCaseBudgetExpiryKeepsRunAlive(t *testing.T) {
	matcher := &scriptedOracle{match: matchAll}
	env := newTestEnv(t, matcher, nil, WithBucketBudget(-time.Second))
	env.seedPage(t, "c1", "W-2", "a.pdf", testsupport.WithOwner("John Smith", 0.95))
	env.seedPage(t, "c1", "W-2", "b.pdf", testsupport.WithOwner("John Smith", 0.95))

	summary, err := env.engine.RunCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("budget expiry must not fail the run: %v", err)
	}
	if matcher.calls != 0 {
		t.Fatalf("expired budget should stop comparisons, made %d calls", matcher.calls)
	}
	if summary.GroupsCreated != 0 {
		t.Fatalf("unexpected groups: %+v", summary)
	}
}

func TestRunCaseBucketCapDefersExcessToNextPass(t *testing.T) {
	env := newTestEnv(t, &scriptedOracle{match: matchAll}, []testsupport.ConfigOption{testsupport.WithBucketCap(2)})
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		env.seedPage(t, "c1", "W-2", name, testsupport.WithOwner("John Smith", 0.95))
	}

	summary, err := env.engine.RunCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.DocumentsSkipped == 0 {
		t.Fatal("capped documents must be reported as skipped")
	}
	if summary.Passes != 2 {
		t.Fatalf("expected deferred documents handled on pass 2, used %d passes", summary.Passes)
	}

	remaining, err := env.store.CountUngrouped(context.Background(), "c1")
	if err != nil {
		t.Fatalf("count ungrouped: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("%d documents left ungrouped after deferred pass", remaining)
	}
}

func TestRunCaseNewPageJoinsExistingGroup(t *testing.T) {
	env := newTestEnv(t, &scriptedOracle{match: matchAll}, nil)
	group := env.seedGroup(t, "c1", "W-2", "John Smith", "w2", 2)
	stray := env.seedPage(t, "c1", "W-2", "stray.pdf", testsupport.WithOwner("John Smith", 0.95))

	summary, err := env.engine.RunCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.GroupsCreated != 0 || summary.GroupsUpdated != 1 {
		t.Fatalf("expected join without create: %+v", summary)
	}

	joined, err := env.store.GetDocument(context.Background(), stray.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if joined.GroupID != group.ID {
		t.Fatalf("stray page joined group %d, want %d", joined.GroupID, group.ID)
	}
	updated, err := env.store.GetGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if updated.PageCount != 3 {
		t.Fatalf("page count %d, want 3", updated.PageCount)
	}
}

func TestRunCaseRenameFailureRollsBackDisplayName(t *testing.T) {
	env := newTestEnv(t, &scriptedOracle{match: matchAll}, nil)
	env.files.FailRenames = 100
	a := env.seedPage(t, "c1", "W-2", "a.pdf", testsupport.WithOwner("John Smith", 0.95))
	env.seedPage(t, "c1", "W-2", "b.pdf", testsupport.WithOwner("John Smith", 0.95))

	if _, err := env.engine.RunCase(context.Background(), "c1"); err != nil {
		t.Fatalf("rename failure must not fail the run: %v", err)
	}

	doc, err := env.store.GetDocument(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if !doc.Grouped() {
		t.Fatal("group membership should survive rename failure")
	}
	if doc.DisplayName != "a.pdf" {
		t.Fatalf("display name %q not rolled back to match storage", doc.DisplayName)
	}
}

func TestRunCaseLinksExplicitContinuation(t *testing.T) {
	env := newTestEnv(t, &scriptedOracle{match: matchAll}, nil)
	parent := env.seedPage(t, "c1", "Schedule B", "schb-1.pdf", testsupport.WithOwner("John Smith", 0.95))
	env.seedPage(t, "c1", "Schedule B", "schb-2.pdf", testsupport.WithOwner("John Smith", 0.95))
	continuation := env.seedPage(t, "c1", "Continuation Statement", "schb-cont.pdf",
		testsupport.WithOwner("John Smith", 0.95),
		testsupport.WithHints(docstore.PageHints{
			Continuation: &docstore.ContinuationHint{
				Kind:             "statement",
				ParentForm:       "Schedule B",
				ParentDocumentID: parent.ID,
			},
		}))

	summary, err := env.engine.RunCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.ContinuationsLinked != 1 {
		t.Fatalf("expected 1 linked continuation: %+v", summary)
	}

	linked, err := env.store.GetDocument(context.Background(), continuation.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	reparented, err := env.store.GetDocument(context.Background(), parent.ID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if linked.GroupID != reparented.GroupID {
		t.Fatal("continuation not attached to parent's group")
	}
	if linked.PageNumber != 3 || linked.TotalPages != 3 {
		t.Fatalf("continuation page %d of %d, want 3 of 3", linked.PageNumber, linked.TotalPages)
	}
	if reparented.TotalPages != 3 {
		t.Fatalf("new total not propagated to parent: %d", reparented.TotalPages)
	}
}

func TestRunCaseMergesConflictIntoLargestGroup(t *testing.T) {
	env := newTestEnv(t, &scriptedOracle{match: matchAll}, nil)
	large := env.seedGroup(t, "c1", "W-2", "John Smith", "w2-large", 3)
	env.seedGroup(t, "c1", "W-2", "John Smith", "w2-small", 2)
	env.seedPage(t, "c1", "W-2", "stray.pdf", testsupport.WithOwner("John Smith", 0.95))

	summary, err := env.engine.RunCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.GroupsUpdated == 0 {
		t.Fatalf("expected an updated group: %+v", summary)
	}

	target, err := env.store.GetGroup(context.Background(), large.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if target.PageCount <= 3 {
		t.Fatalf("conflict should merge into the largest group, page count %d", target.PageCount)
	}
}

func TestRunDocumentJoinsRecentCandidate(t *testing.T) {
	env := newTestEnv(t, &scriptedOracle{match: matchAll}, nil)
	earlier := env.seedPage(t, "c1", "W-2", "earlier.pdf", testsupport.WithOwner("John Smith", 0.95))
	arrival := env.seedPage(t, "c1", "W-2", "arrival.pdf", testsupport.WithOwner("John Smith", 0.95))

	summary, err := env.engine.RunDocument(context.Background(), arrival.ID)
	if err != nil {
		t.Fatalf("incremental run failed: %v", err)
	}
	if summary.GroupsCreated != 1 {
		t.Fatalf("expected 1 group: %+v", summary)
	}

	first, err := env.store.GetDocument(context.Background(), earlier.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	second, err := env.store.GetDocument(context.Background(), arrival.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if !first.Grouped() || first.GroupID != second.GroupID {
		t.Fatal("arrival did not join the recent candidate")
	}
}

func TestRunDocumentNeverMergesAcrossOwners(t *testing.T) {
	env := newTestEnv(t, &scriptedOracle{match: matchAll}, nil)
	group := env.seedGroup(t, "c1", "W-2", "Jane Smith", "jane-w2", 2)
	arrival := env.seedPage(t, "c1", "W-2", "john.pdf", testsupport.WithOwner("John Smith", 0.95))

	summary, err := env.engine.RunDocument(context.Background(), arrival.ID)
	if err != nil {
		t.Fatalf("incremental run failed: %v", err)
	}
	if summary.GroupsUpdated != 0 {
		t.Fatalf("expected no group update: %+v", summary)
	}

	doc, err := env.store.GetDocument(context.Background(), arrival.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.GroupID == group.ID {
		t.Fatal("named-owner arrival merged into a different owner's group")
	}
}

func TestRunDocumentAlreadyGroupedIsNoOp(t *testing.T) {
	matcher := &scriptedOracle{match: matchAll}
	env := newTestEnv(t, matcher, nil)
	group := env.seedGroup(t, "c1", "W-2", "John Smith", "w2", 2)
	members, err := env.store.DocumentsByGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("documents by group: %v", err)
	}

	summary, err := env.engine.RunDocument(context.Background(), members[0].ID)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if matcher.calls != 0 {
		t.Fatal("grouped document should not trigger comparisons")
	}
	if summary.GroupsCreated != 0 || summary.GroupsUpdated != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunCaseRecordsRunCheckpoints(t *testing.T) {
	env := newTestEnv(t, &scriptedOracle{match: matchAll}, nil)
	env.seedPage(t, "c1", "W-2", "a.pdf", testsupport.WithOwner("John Smith", 0.95))
	env.seedPage(t, "c1", "W-2", "b.pdf", testsupport.WithOwner("John Smith", 0.95))

	summary, err := env.engine.RunCase(context.Background(), "c1")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("summary missing run id")
	}

	active, err := env.store.ActiveRun(context.Background(), "c1")
	if err != nil {
		t.Fatalf("active run: %v", err)
	}
	if active != nil {
		t.Fatal("completed run still reported active")
	}
	runs, err := env.store.RecentRuns(context.Background(), "c1", 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one recorded run: %v %d", err, len(runs))
	}
	if runs[0].SummaryJSON == "" {
		t.Fatal("completed run has no summary")
	}
}
