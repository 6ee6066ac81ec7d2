package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/csvinput"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/reconcile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCloud struct {
	mu         gosync.Mutex
	users      map[string]*directory.CloudUser
	managers   map[string]*directory.CloudUser
	managerErr error
	pushErr    error
	pushed     map[string]string
}

func (f *fakeCloud) GetUser(_ context.Context, upn string) (*directory.CloudUser, error) {
	if u, ok := f.users[upn]; ok {
		return u, nil
	}
	return nil, &directory.NotFoundError{Source: directory.SourceCloud, PrincipalName: upn}
}

func (f *fakeCloud) GetManager(_ context.Context, id string) (*directory.CloudUser, error) {
	if f.managerErr != nil {
		return nil, f.managerErr
	}
	return f.managers[id], nil
}

func (f *fakeCloud) SetImmutableID(_ context.Context, id, immutableID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	if f.pushed == nil {
		f.pushed = map[string]string{}
	}
	f.pushed[id] = immutableID
	return nil
}

type fakeLocal struct {
	mu       gosync.Mutex
	users    map[string]*directory.LocalUser
	applyErr map[string]error
	applied  map[string]reconcile.WriteSet
	lookups  []string
}

func (f *fakeLocal) GetUser(_ context.Context, upn string) (*directory.LocalUser, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, upn)
	f.mu.Unlock()
	if u, ok := f.users[upn]; ok {
		return u, nil
	}
	return nil, &directory.NotFoundError{Source: directory.SourceLocal, PrincipalName: upn}
}

func (f *fakeLocal) Apply(_ context.Context, user *directory.LocalUser, writes reconcile.WriteSet) error {
	if err := f.applyErr[user.PrincipalName]; err != nil {
		return &directory.WriteError{PrincipalName: user.PrincipalName, DN: user.DN, Err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applied == nil {
		f.applied = map[string]reconcile.WriteSet{}
	}
	f.applied[user.PrincipalName] = writes
	return nil
}

type fakeSnapshots struct {
	mu    gosync.Mutex
	calls map[string]bool
	err   error
}

func (f *fakeSnapshots) Write(upn string, _, manager *directory.CloudUser) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]bool{}
	}
	f.calls[upn] = manager != nil
	return []string{upn + ".user.json"}, f.err
}

func local(upn string, guid byte) *directory.LocalUser {
	return &directory.LocalUser{
		PrincipalName: upn,
		DN:            "CN=" + upn + ",OU=Staff,DC=corp,DC=com",
		ObjectGUID:    [16]byte{guid},
		Attributes:    map[string]string{},
	}
}

func fixture() (*fakeCloud, *fakeLocal) {
	cloud := &fakeCloud{
		users: map[string]*directory.CloudUser{
			"a@x.com":      {ObjectID: "id-a", PrincipalName: "a@x.com", JobTitle: "Engineer"},
			"b@x.com":      {ObjectID: "id-b", PrincipalName: "b@x.com", Department: "Sales"},
			"boss@x.com":   {ObjectID: "id-boss", PrincipalName: "boss@x.com"},
			"orphan@x.com": {ObjectID: "id-orphan", PrincipalName: "orphan@x.com"},
		},
		managers: map[string]*directory.CloudUser{
			"id-a": {ObjectID: "id-boss", PrincipalName: "boss@x.com"},
			"id-b": {ObjectID: "id-ghost", PrincipalName: "ghost@x.com"},
		},
	}
	loc := &fakeLocal{users: map[string]*directory.LocalUser{
		"a@x.com":    local("a@x.com", 1),
		"b@x.com":    local("b@x.com", 2),
		"boss@x.com": local("boss@x.com", 3),
	}}
	return cloud, loc
}

func newRunner(cloud *fakeCloud, loc *fakeLocal, snaps SnapshotWriter, opts Options) *Runner {
	return NewRunner(cloud, loc, reconcile.New(reconcile.Options{}), snaps, opts)
}

func TestRunSkipsBlankPrincipal(t *testing.T) {
	cloud, loc := fixture()
	r := newRunner(cloud, loc, nil, Options{Workers: 2})

	results := r.Run(context.Background(), []csvinput.Row{
		{Line: 2, PrincipalName: "a@x.com", Country: "Netherlands"},
		{Line: 3, PrincipalName: "", Country: "GB"},
	})

	require.Len(t, results, 2)
	assert.Equal(t, StatusProcessed, results[0].Status)
	assert.Equal(t, StatusSkipped, results[1].Status)

	tally := Summarize(results)
	assert.Equal(t, Tally{Total: 2, Processed: 1, Skipped: 1}, tally)

	ws := loc.applied["a@x.com"]
	title, _ := ws.Value(reconcile.AttrTitle)
	country, _ := ws.Value(reconcile.AttrCountry)
	mgr, _ := ws.Value(reconcile.AttrManager)
	assert.Equal(t, "Engineer", title)
	assert.Equal(t, "NL", country)
	assert.Equal(t, "CN=boss@x.com,OU=Staff,DC=corp,DC=com", mgr)
	assert.Equal(t, directory.ImmutableID([16]byte{1}), results[0].ImmutableID)
}

func TestProcessRowCloudNotFound(t *testing.T) {
	cloud, loc := fixture()
	r := newRunner(cloud, loc, nil, Options{})

	res := r.ProcessRow(context.Background(), csvinput.Row{PrincipalName: "nobody@x.com"})
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Empty(t, loc.lookups, "local directory must not be queried")
}

func TestProcessRowLocalNotFound(t *testing.T) {
	cloud, loc := fixture()
	r := newRunner(cloud, loc, nil, Options{})

	res := r.ProcessRow(context.Background(), csvinput.Row{PrincipalName: "orphan@x.com"})
	assert.Equal(t, StatusNotFound, res.Status)
	var nf *directory.NotFoundError
	require.ErrorAs(t, res.Err, &nf)
	assert.Equal(t, directory.SourceLocal, nf.Source)
}

func TestProcessRowManagerUnresolved(t *testing.T) {
	cloud, loc := fixture()
	r := newRunner(cloud, loc, nil, Options{})

	res := r.ProcessRow(context.Background(), csvinput.Row{PrincipalName: "b@x.com", Country: "United Kingdom"})
	assert.Equal(t, StatusProcessed, res.Status)

	_, hasManager := res.Writes[reconcile.AttrManager]
	assert.False(t, hasManager)
	dept, _ := res.Writes.Value(reconcile.AttrDepartment)
	assert.Equal(t, "Sales", dept)

	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], directory.ErrNotFound)
	assert.Contains(t, loc.lookups, "ghost@x.com")
}

func TestProcessRowManagerLookupError(t *testing.T) {
	cloud, loc := fixture()
	cloud.managerErr = errors.New("throttled")
	r := newRunner(cloud, loc, nil, Options{})

	res := r.ProcessRow(context.Background(), csvinput.Row{PrincipalName: "a@x.com"})
	assert.Equal(t, StatusProcessed, res.Status)
	_, hasManager := res.Writes[reconcile.AttrManager]
	assert.False(t, hasManager)
	require.Len(t, res.Warnings, 1)
	assert.ErrorContains(t, res.Warnings[0], "throttled")
}

func TestRunIsolatesWriteFailures(t *testing.T) {
	cloud, loc := fixture()
	loc.applyErr = map[string]error{"a@x.com": errors.New("insufficient access")}
	r := newRunner(cloud, loc, nil, Options{Workers: 4})

	results := r.Run(context.Background(), []csvinput.Row{
		{Line: 2, PrincipalName: "a@x.com"},
		{Line: 3, PrincipalName: "b@x.com"},
	})

	assert.Equal(t, StatusFailed, results[0].Status)
	var we *directory.WriteError
	assert.ErrorAs(t, results[0].Err, &we)
	assert.Equal(t, StatusProcessed, results[1].Status)
	assert.Equal(t, Tally{Total: 2, Processed: 1, Failed: 1, Warnings: 1}, Summarize(results))
}

func TestRunKeepsCSVOrder(t *testing.T) {
	cloud := &fakeCloud{users: map[string]*directory.CloudUser{}, managers: map[string]*directory.CloudUser{}}
	loc := &fakeLocal{users: map[string]*directory.LocalUser{}}
	var rows []csvinput.Row
	for i := 0; i < 40; i++ {
		upn := fmt.Sprintf("user%02d@x.com", i)
		cloud.users[upn] = &directory.CloudUser{ObjectID: upn, PrincipalName: upn, City: "Leiden"}
		loc.users[upn] = local(upn, byte(i))
		rows = append(rows, csvinput.Row{Line: i + 2, PrincipalName: upn})
	}

	results := newRunner(cloud, loc, nil, Options{Workers: 8}).Run(context.Background(), rows)
	for i, res := range results {
		assert.Equal(t, rows[i].PrincipalName, res.PrincipalName)
		assert.Equal(t, StatusProcessed, res.Status)
	}
	assert.Len(t, loc.applied, 40)
}

func TestRunCancelled(t *testing.T) {
	cloud, loc := fixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newRunner(cloud, loc, nil, Options{}).Run(ctx, []csvinput.Row{{Line: 2, PrincipalName: "a@x.com"}})
	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestPushImmutableIDIsOptIn(t *testing.T) {
	cloud, loc := fixture()
	res := newRunner(cloud, loc, nil, Options{}).ProcessRow(context.Background(), csvinput.Row{PrincipalName: "a@x.com"})
	assert.False(t, res.CrossReferenced)
	assert.Empty(t, cloud.pushed)

	res = newRunner(cloud, loc, nil, Options{PushImmutableID: true}).ProcessRow(context.Background(), csvinput.Row{PrincipalName: "a@x.com"})
	assert.True(t, res.CrossReferenced)
	assert.Equal(t, directory.ImmutableID([16]byte{1}), cloud.pushed["id-a"])
}

func TestPushImmutableIDNeverReplacesExistingLink(t *testing.T) {
	cloud, loc := fixture()
	cloud.users["a@x.com"].OnPremisesImmutableID = "c29tZXRoaW5nIGVsc2U="

	res := newRunner(cloud, loc, nil, Options{PushImmutableID: true}).ProcessRow(context.Background(), csvinput.Row{PrincipalName: "a@x.com"})
	assert.Equal(t, StatusProcessed, res.Status)
	assert.False(t, res.CrossReferenced)
	assert.Empty(t, cloud.pushed)

	var xref *directory.CrossReferenceError
	require.Len(t, res.Warnings, 1)
	assert.ErrorAs(t, res.Warnings[0], &xref)
}

func TestPushImmutableIDFailureIsNotFatal(t *testing.T) {
	cloud, loc := fixture()
	cloud.pushErr = errors.New("conflict")

	res := newRunner(cloud, loc, nil, Options{PushImmutableID: true}).ProcessRow(context.Background(), csvinput.Row{PrincipalName: "a@x.com"})
	assert.Equal(t, StatusProcessed, res.Status)
	require.Len(t, res.Warnings, 1)
	var xref *directory.CrossReferenceError
	assert.ErrorAs(t, res.Warnings[0], &xref)
}

func TestPushImmutableIDDryRun(t *testing.T) {
	cloud, loc := fixture()
	res := newRunner(cloud, loc, nil, Options{PushImmutableID: true, DryRun: true}).ProcessRow(context.Background(), csvinput.Row{PrincipalName: "a@x.com"})
	assert.Equal(t, StatusProcessed, res.Status)
	assert.Empty(t, cloud.pushed)
}

func TestSnapshotsExported(t *testing.T) {
	cloud, loc := fixture()
	snaps := &fakeSnapshots{err: errors.New("disk full")}

	res := newRunner(cloud, loc, snaps, Options{}).ProcessRow(context.Background(), csvinput.Row{PrincipalName: "a@x.com"})
	assert.Equal(t, StatusProcessed, res.Status)
	assert.True(t, snaps.calls["a@x.com"], "manager snapshot expected")
	require.Len(t, res.Warnings, 1)
	assert.ErrorContains(t, res.Warnings[0], "disk full")
}

func TestCallTimeoutApplied(t *testing.T) {
	var deadline time.Time
	var ok bool
	_, _ = withTimeout(context.Background(), time.Minute, func(ctx context.Context) (struct{}, error) {
		deadline, ok = ctx.Deadline()
		return struct{}{}, nil
	})
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	_, _ = withTimeout(context.Background(), 0, func(ctx context.Context) (struct{}, error) {
		_, ok = ctx.Deadline()
		return struct{}{}, nil
	})
	assert.False(t, ok)
}
