package chi

import (
	"context"

	"github.com/driftline/contentdex/internal/domain/query"
	"github.com/driftline/contentdex/internal/intercept"
	"github.com/driftline/contentdex/internal/repository/indexmeta"
	"github.com/driftline/contentdex/internal/syncer"
)

type mockSearch struct {
	interceptFn func(ctx context.Context, args *query.Args, ictx intercept.Context) *intercept.Result

	lastArgs *query.Args
	lastCtx  intercept.Context
}

func (m *mockSearch) MaybeIntercept(ctx context.Context, args *query.Args, ictx intercept.Context) *intercept.Result {
	m.lastArgs = args
	m.lastCtx = ictx
	if m.interceptFn != nil {
		return m.interceptFn(ctx, args, ictx)
	}
	return &intercept.Result{Outcome: intercept.OutcomeSkipped}
}

type mockSync struct {
	savedFn       func(ctx context.Context, ev syncer.Event) error
	metaChangedFn func(ctx context.Context, ev syncer.Event, key string) error
	deletedFn     func(ctx context.Context, ev syncer.Event) error
	flushFn       func(ctx context.Context) (*syncer.FlushReport, error)
	queueLenFn    func() int

	createdTenants []int64
	deletedTenants []int64
	tenantErr      error
}

func (m *mockSync) OnEntitySaved(ctx context.Context, ev syncer.Event) error {
	if m.savedFn != nil {
		return m.savedFn(ctx, ev)
	}
	return nil
}

func (m *mockSync) OnEntityMetaChanged(ctx context.Context, ev syncer.Event, key string) error {
	if m.metaChangedFn != nil {
		return m.metaChangedFn(ctx, ev, key)
	}
	return nil
}

func (m *mockSync) OnEntityDeleted(ctx context.Context, ev syncer.Event) error {
	if m.deletedFn != nil {
		return m.deletedFn(ctx, ev)
	}
	return nil
}

func (m *mockSync) Flush(ctx context.Context) (*syncer.FlushReport, error) {
	if m.flushFn != nil {
		return m.flushFn(ctx)
	}
	return &syncer.FlushReport{}, nil
}

func (m *mockSync) QueueLen() int {
	if m.queueLenFn != nil {
		return m.queueLenFn()
	}
	return 0
}

func (m *mockSync) OnTenantCreated(_ context.Context, tenantID int64) error {
	m.createdTenants = append(m.createdTenants, tenantID)
	return m.tenantErr
}

func (m *mockSync) OnTenantDeleted(_ context.Context, tenantID int64) error {
	m.deletedTenants = append(m.deletedTenants, tenantID)
	return m.tenantErr
}

type mockReindex struct {
	startFn  func(ctx context.Context, method string, tenants []int64) error
	stepFn   func(ctx context.Context) (bool, error)
	statusFn func(ctx context.Context) (*indexmeta.Meta, error)
}

func (m *mockReindex) Start(ctx context.Context, method string, tenants []int64) error {
	if m.startFn != nil {
		return m.startFn(ctx, method, tenants)
	}
	return nil
}

func (m *mockReindex) Step(ctx context.Context) (bool, error) {
	if m.stepFn != nil {
		return m.stepFn(ctx)
	}
	return true, nil
}

func (m *mockReindex) Status(ctx context.Context) (*indexmeta.Meta, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	return &indexmeta.Meta{}, nil
}

type mockFlags struct {
	pauseFn  func(ctx context.Context) error
	resumeFn func(ctx context.Context) error
	cancelFn func(ctx context.Context) error
	flagsFn  func(ctx context.Context) (bool, bool, error)
}

func (m *mockFlags) RequestPause(ctx context.Context) error {
	if m.pauseFn != nil {
		return m.pauseFn(ctx)
	}
	return nil
}

func (m *mockFlags) ClearPause(ctx context.Context) error {
	if m.resumeFn != nil {
		return m.resumeFn(ctx)
	}
	return nil
}

func (m *mockFlags) RequestCancel(ctx context.Context) error {
	if m.cancelFn != nil {
		return m.cancelFn(ctx)
	}
	return nil
}

func (m *mockFlags) Flags(ctx context.Context) (bool, bool, error) {
	if m.flagsFn != nil {
		return m.flagsFn(ctx)
	}
	return false, false, nil
}

type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// testServer bundles a Server with its mocks for assertions.
type testServer struct {
	*Server
	search  *mockSearch
	sync    *mockSync
	reindex *mockReindex
	flags   *mockFlags
	engine  *mockPinger
	store   *mockPinger
}

func newTestServer() *testServer {
	ts := &testServer{
		search:  &mockSearch{},
		sync:    &mockSync{},
		reindex: &mockReindex{},
		flags:   &mockFlags{},
		engine:  &mockPinger{},
		store:   &mockPinger{},
	}
	ts.Server = NewServer(ts.search, ts.sync, ts.reindex, ts.flags, ts.engine, ts.store, nil)
	return ts
}
