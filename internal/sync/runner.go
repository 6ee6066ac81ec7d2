package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/csvinput"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/reconcile"
	"github.com/matthewdavidson09/cloud-attribute-sync/tools"
)

// CloudDirectory is the cloud side of the sync.
type CloudDirectory interface {
	GetUser(ctx context.Context, upn string) (*directory.CloudUser, error)
	// GetManager returns nil, nil when the user has no manager.
	GetManager(ctx context.Context, objectID string) (*directory.CloudUser, error)
	SetImmutableID(ctx context.Context, objectID, immutableID string) error
}

// LocalDirectory is the on-premises side of the sync.
type LocalDirectory interface {
	GetUser(ctx context.Context, upn string) (*directory.LocalUser, error)
	// Apply writes the whole set in one operation.
	Apply(ctx context.Context, user *directory.LocalUser, writes reconcile.WriteSet) error
}

// SnapshotWriter persists the cloud records read for a row.
type SnapshotWriter interface {
	Write(upn string, user, manager *directory.CloudUser) ([]string, error)
}

type Options struct {
	Workers         int
	CallTimeout     time.Duration
	PushImmutableID bool
	DryRun          bool
}

type Runner struct {
	cloud      CloudDirectory
	local      LocalDirectory
	reconciler *reconcile.Reconciler
	snapshots  SnapshotWriter
	opts       Options
}

// NewRunner builds a Runner. snapshots may be nil to skip exports.
func NewRunner(cloud CloudDirectory, local LocalDirectory, reconciler *reconcile.Reconciler, snapshots SnapshotWriter, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		cloud:      cloud,
		local:      local,
		reconciler: reconciler,
		snapshots:  snapshots,
		opts:       opts,
	}
}

// Run processes every row. Rows are independent; a failure in one never
// affects another. Results keep CSV order even though rows run in
// parallel. Rows not started before ctx is cancelled are reported as
// failed.
func (r *Runner) Run(ctx context.Context, rows []csvinput.Row) []RowResult {
	results := make([]RowResult, len(rows))
	started := make([]bool, len(rows))

	tools.RunWithWorkers(ctx, rows, r.opts.Workers, func(ctx context.Context, i int, row csvinput.Row) {
		started[i] = true
		results[i] = r.ProcessRow(ctx, row)
	})

	for i, row := range rows {
		if !started[i] {
			results[i] = RowResult{
				Line:          row.Line,
				PrincipalName: row.PrincipalName,
				Status:        StatusFailed,
				Err:           fmt.Errorf("not processed: %w", context.Cause(ctx)),
			}
		}
	}
	return results
}

// ProcessRow looks up, reconciles and writes a single row.
func (r *Runner) ProcessRow(ctx context.Context, row csvinput.Row) (res RowResult) {
	start := time.Now()
	res = RowResult{Line: row.Line, PrincipalName: row.PrincipalName}
	log := tools.Log.WithFields(logrus.Fields{"line": row.Line, "upn": row.PrincipalName})

	defer func() {
		res.Duration = time.Since(start)
		logResult(log, res)
	}()

	if row.PrincipalName == "" {
		res.Status = StatusSkipped
		res.Err = errors.New("blank UserPrincipalName")
		return res
	}

	cloudUser, err := withTimeout(ctx, r.opts.CallTimeout, func(ctx context.Context) (*directory.CloudUser, error) {
		return r.cloud.GetUser(ctx, row.PrincipalName)
	})
	if err != nil {
		return fail(res, err)
	}

	in := reconcile.Input{Cloud: cloudUser, CountryText: row.Country}

	in.CloudManager, err = withTimeout(ctx, r.opts.CallTimeout, func(ctx context.Context) (*directory.CloudUser, error) {
		return r.cloud.GetManager(ctx, cloudUser.ObjectID)
	})
	if err != nil {
		in.ManagerUnknown = true
		res.Warnings = append(res.Warnings, fmt.Errorf("manager lookup: %w", err))
	}

	if r.snapshots != nil {
		paths, err := r.snapshots.Write(row.PrincipalName, cloudUser, in.CloudManager)
		res.Snapshots = paths
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Errorf("snapshot export: %w", err))
		}
	}

	in.Local, err = withTimeout(ctx, r.opts.CallTimeout, func(ctx context.Context) (*directory.LocalUser, error) {
		return r.local.GetUser(ctx, row.PrincipalName)
	})
	if err != nil {
		return fail(res, err)
	}

	if in.CloudManager != nil {
		in.LocalManager, err = withTimeout(ctx, r.opts.CallTimeout, func(ctx context.Context) (*directory.LocalUser, error) {
			return r.local.GetUser(ctx, in.CloudManager.PrincipalName)
		})
		if err != nil && !errors.Is(err, directory.ErrNotFound) {
			in.ManagerUnknown = true
			res.Warnings = append(res.Warnings, fmt.Errorf("manager %s: %w", in.CloudManager.PrincipalName, err))
		}
	}

	computed, err := r.reconciler.Compute(in)
	if err != nil {
		return fail(res, err)
	}
	res.Writes = computed.Writes
	res.ImmutableID = computed.ImmutableID
	res.Warnings = append(res.Warnings, computed.Diagnostics...)

	_, err = withTimeout(ctx, r.opts.CallTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.local.Apply(ctx, in.Local, computed.Writes)
	})
	if err != nil {
		return fail(res, err)
	}

	if r.opts.PushImmutableID {
		pushed, err := r.pushImmutableID(ctx, cloudUser, computed.ImmutableID)
		res.CrossReferenced = pushed
		if err != nil {
			res.Warnings = append(res.Warnings, err)
		}
	}

	res.Status = StatusProcessed
	return res
}

// pushImmutableID links the cloud account to the local one. An existing,
// different link is never replaced.
func (r *Runner) pushImmutableID(ctx context.Context, cloudUser *directory.CloudUser, immutableID string) (bool, error) {
	switch cloudUser.OnPremisesImmutableID {
	case immutableID:
		return false, nil
	case "":
	default:
		return false, &directory.CrossReferenceError{
			PrincipalName: cloudUser.PrincipalName,
			Err:           fmt.Errorf("cloud account already linked to immutable id %s", cloudUser.OnPremisesImmutableID),
		}
	}

	if r.opts.DryRun {
		tools.Log.Infof("[DRY RUN] Would set immutable id %s on %s", immutableID, cloudUser.PrincipalName)
		return false, nil
	}

	_, err := withTimeout(ctx, r.opts.CallTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.cloud.SetImmutableID(ctx, cloudUser.ObjectID, immutableID)
	})
	if err != nil {
		return false, &directory.CrossReferenceError{PrincipalName: cloudUser.PrincipalName, Err: err}
	}
	return true, nil
}

func withTimeout[T any](ctx context.Context, d time.Duration, call func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return call(ctx)
}

func fail(res RowResult, err error) RowResult {
	res.Err = err
	if errors.Is(err, directory.ErrNotFound) {
		res.Status = StatusNotFound
	} else {
		res.Status = StatusFailed
	}
	return res
}

func logResult(log *logrus.Entry, res RowResult) {
	log = log.WithField("duration", res.Duration)
	for _, w := range res.Warnings {
		log.WithError(w).Warn("Row warning")
	}

	switch res.Status {
	case StatusProcessed:
		log.WithFields(logrus.Fields{
			"writes":       res.Writes.Attributes(),
			"immutable_id": res.ImmutableID,
		}).Info("User synced")
	case StatusSkipped:
		log.WithError(res.Err).Warn("Row skipped")
	case StatusNotFound:
		log.WithError(res.Err).Warn("User not found, skipping row")
	default:
		log.WithError(res.Err).Error("Row failed")
	}
}
