package excerpt

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/internal/testutil"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

// -- Mock Repository --

type mockArchiveRepo struct {
	mu       sync.Mutex
	items    map[string]*ArchivedBundle
	gets     int
	failNext error
}

func newMockArchiveRepo() *mockArchiveRepo {
	return &mockArchiveRepo{items: make(map[string]*ArchivedBundle)}
}

func (m *mockArchiveRepo) Create(_ context.Context, a *ArchivedBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().Add(time.Duration(len(m.items)) * time.Millisecond)
	m.items[a.Identifier] = a
	return nil
}

func (m *mockArchiveRepo) GetByIdentifier(_ context.Context, identifier string) (*ArchivedBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	a, ok := m.items[identifier]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockArchiveRepo) sorted(keep func(*ArchivedBundle) bool) []*ArchivedBundle {
	var out []*ArchivedBundle
	for _, a := range m.items {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func page(items []*ArchivedBundle, limit, offset int) []*ArchivedBundle {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (m *mockArchiveRepo) List(_ context.Context, limit, offset int) ([]*ArchivedBundle, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(func(*ArchivedBundle) bool { return true })
	return page(all, limit, offset), len(all), nil
}

func (m *mockArchiveRepo) ListBySource(_ context.Context, source string, limit, offset int) ([]*ArchivedBundle, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(func(a *ArchivedBundle) bool { return a.SourceIdentifier != nil && *a.SourceIdentifier == source })
	return page(all, limit, offset), len(all), nil
}

type recordingMetrics struct {
	strategies []string
	failures   int
}

func (r *recordingMetrics) ObserveTransformation(strategy string, err error, _ time.Duration) {
	r.strategies = append(r.strategies, strategy)
	if err != nil {
		r.failures++
	}
}

func newTestService(archive ArchiveRepository) *Service {
	return NewService(newTestEngine(nil), archive)
}

func TestService_ExcerptArchives(t *testing.T) {
	repo := newMockArchiveRepo()
	svc := newTestService(repo)
	metrics := &recordingMetrics{}
	svc.SetMetrics(metrics)

	res, err := svc.Excerpt(context.Background(), testutil.LaboratoryBundle(fhirmodels.TierNominal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != "laboratory-nominal-to-non-nominal" {
		t.Errorf("unexpected strategy %q", res.Strategy)
	}

	a, err := svc.Get(context.Background(), res.Bundle.Identifier.Value)
	if err != nil {
		t.Fatalf("expected archived bundle, got %v", err)
	}
	if a.Operation != OperationExcerpt || a.Profile != fhirmodels.ProfileBundleLaboratoryNonNominal {
		t.Errorf("unexpected archive record %+v", a)
	}
	if a.SourceIdentifier == nil || *a.SourceIdentifier != testutil.SourceIdentifier {
		t.Errorf("expected source identifier %q", testutil.SourceIdentifier)
	}
	decoded, err := a.Bundle()
	if err != nil {
		t.Fatalf("decode archived body: %v", err)
	}
	if len(decoded.Entry) != len(res.Bundle.Entry) {
		t.Errorf("archived bundle has %d entries, want %d", len(decoded.Entry), len(res.Bundle.Entry))
	}
	if len(metrics.strategies) != 1 || metrics.failures != 0 {
		t.Errorf("expected one successful observation, got %+v", metrics)
	}
}

func TestService_FailureNotArchived(t *testing.T) {
	repo := newMockArchiveRepo()
	svc := newTestService(repo)
	metrics := &recordingMetrics{}
	svc.SetMetrics(metrics)

	_, err := svc.Copy(context.Background(), testutil.LaboratoryBundle(fhirmodels.TierAnonymous))
	if !errors.Is(err, ErrNoStrategy) {
		t.Fatalf("expected ErrNoStrategy, got %v", err)
	}
	if len(repo.items) != 0 {
		t.Error("expected nothing archived")
	}
	if metrics.failures != 1 || metrics.strategies[0] != "" {
		t.Errorf("expected one failure without strategy, got %+v", metrics)
	}
}

func TestService_ArchiveFailureKeepsResult(t *testing.T) {
	repo := newMockArchiveRepo()
	repo.failNext = errors.New("connection refused")
	svc := newTestService(repo)
	var logs bytes.Buffer
	svc.SetLogger(zerolog.New(&logs))

	res, err := svc.Copy(context.Background(), testutil.MinimalDiseaseBundle(fhirmodels.TierNominal))
	if err != nil {
		t.Fatalf("expected the copy to succeed, got %v", err)
	}
	if res.Bundle == nil {
		t.Fatal("expected a bundle")
	}
	if !strings.Contains(logs.String(), "connection refused") {
		t.Errorf("expected the archive failure to be logged, got %q", logs.String())
	}
}

func TestService_ArchiveDisabled(t *testing.T) {
	svc := newTestService(nil)
	if svc.ArchiveEnabled() {
		t.Error("expected archive to be disabled")
	}
	if _, err := svc.Excerpt(context.Background(), testutil.DiseaseBundle(fhirmodels.TierNominal)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(context.Background(), "x"); !errors.Is(err, ErrArchiveDisabled) {
		t.Errorf("expected ErrArchiveDisabled, got %v", err)
	}
	if _, _, err := svc.List(context.Background(), "", 10, 0); !errors.Is(err, ErrArchiveDisabled) {
		t.Errorf("expected ErrArchiveDisabled, got %v", err)
	}
}

func TestService_ListBySource(t *testing.T) {
	repo := newMockArchiveRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Excerpt(ctx, testutil.DiseaseBundle(fhirmodels.TierNominal)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Copy(ctx, testutil.DiseaseBundle(fhirmodels.TierNominal)); err != nil {
		t.Fatal(err)
	}
	other := testutil.LaboratoryBundle(fhirmodels.TierNominal)
	other.Identifier.Value = "other-source"
	if _, err := svc.Excerpt(ctx, other); err != nil {
		t.Fatal(err)
	}

	items, total, err := svc.List(ctx, testutil.SourceIdentifier, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 bundles for the source, got %d/%d", len(items), total)
	}
	if _, total, _ := svc.List(ctx, "", 1, 0); total != 3 {
		t.Errorf("expected 3 archived bundles, got %d", total)
	}
}

func TestCachedArchive(t *testing.T) {
	repo := newMockArchiveRepo()
	cached, err := NewCachedArchive(repo, 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := cached.Create(ctx, &ArchivedBundle{Identifier: id}); err != nil {
			t.Fatal(err)
		}
	}
	if cached.Len() != 2 {
		t.Errorf("expected the cache bounded at 2, got %d", cached.Len())
	}

	if _, err := cached.GetByIdentifier(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	if repo.gets != 0 {
		t.Errorf("expected a cache hit, repository was read %d times", repo.gets)
	}
	if _, err := cached.GetByIdentifier(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.GetByIdentifier(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if repo.gets != 1 {
		t.Errorf("expected one read-through for the evicted bundle, got %d", repo.gets)
	}
	if _, err := cached.GetByIdentifier(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNewArchivedBundle_RequiresBundle(t *testing.T) {
	if _, err := NewArchivedBundle(OperationCopy, &fhir.Bundle{}, &Result{}); err == nil {
		t.Error("expected an error for an empty result")
	}
}
