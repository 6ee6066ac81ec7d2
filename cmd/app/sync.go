package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/active_directory"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/csvinput"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/export"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/graph"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/ldapclient"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/reconcile"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/sync"
	"github.com/matthewdavidson09/cloud-attribute-sync/tools"
)

var syncFlags struct {
	csvPath         string
	workers         int
	timeout         time.Duration
	dryRun          bool
	pushImmutableID bool
	exportSnapshots bool
	overwrite       string
	countryFallback string
	managerAbsent   string
	countryTable    string
	delimiter       string
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync attributes for every principal listed in a CSV file",
	Long: `Reads a CSV with at least the columns UserPrincipalName and Country. For
each row the Entra ID account and its manager are read, the matching AD
account is looked up by userPrincipalName, and the changed attributes are
written in a single modify. Rows are independent: a failing row is logged
and the run moves on.

Setting the cloud immutable id (--push-immutable-id) hard-links the cloud
account to the AD account. It is off by default and never replaces an
existing link.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.StringVar(&syncFlags.csvPath, "csv", "", "input CSV file (required)")
	f.IntVar(&syncFlags.workers, "workers", 0, "rows processed in parallel (default SYNC_WORKERS)")
	f.DurationVar(&syncFlags.timeout, "timeout", 0, "deadline per directory call (default SYNC_CALL_TIMEOUT)")
	f.BoolVar(&syncFlags.dryRun, "dry-run", false, "log intended writes without changing either directory")
	f.BoolVar(&syncFlags.pushImmutableID, "push-immutable-id", false, "set onPremisesImmutableId on cloud accounts that have none")
	f.BoolVar(&syncFlags.exportSnapshots, "export-snapshots", false, "save user and manager records next to the CSV")
	f.StringVar(&syncFlags.overwrite, "overwrite-policy", "", "non-destructive or force-overwrite")
	f.StringVar(&syncFlags.countryFallback, "country-fallback", "", "passthrough or skip for unknown countries")
	f.StringVar(&syncFlags.managerAbsent, "manager-absent", "", "keep or clear the AD manager when Entra has none")
	f.StringVar(&syncFlags.countryTable, "country-table", "", "YAML file of extra country name to code mappings")
	f.StringVar(&syncFlags.delimiter, "delimiter", "", "CSV field delimiter")
	_ = syncCmd.MarkFlagRequired("csv")
}

// applySyncFlags layers explicitly set flags over the environment config.
func applySyncFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	s := &cfg.Sync

	if f.Changed("workers") {
		if syncFlags.workers < 1 {
			return fmt.Errorf("--workers must be at least 1")
		}
		s.Workers = syncFlags.workers
	}
	if f.Changed("timeout") {
		s.CallTimeout = syncFlags.timeout
	}
	if f.Changed("dry-run") {
		s.DryRun = syncFlags.dryRun
	}
	if f.Changed("push-immutable-id") {
		s.PushImmutableID = syncFlags.pushImmutableID
	}
	if f.Changed("export-snapshots") {
		s.ExportSnapshots = syncFlags.exportSnapshots
	}
	if f.Changed("country-table") {
		s.CountryTablePath = syncFlags.countryTable
	}
	if f.Changed("delimiter") {
		d := []rune(syncFlags.delimiter)
		if len(d) != 1 {
			return fmt.Errorf("--delimiter must be a single character")
		}
		s.Delimiter = d[0]
	}

	var err error
	if f.Changed("overwrite-policy") {
		if s.Overwrite, err = reconcile.ParseOverwritePolicy(syncFlags.overwrite); err != nil {
			return err
		}
	}
	if f.Changed("country-fallback") {
		if s.CountryFallback, err = reconcile.ParseCountryFallback(syncFlags.countryFallback); err != nil {
			return err
		}
	}
	if f.Changed("manager-absent") {
		if s.ManagerAbsent, err = reconcile.ParseManagerAbsentPolicy(syncFlags.managerAbsent); err != nil {
			return err
		}
	}
	return nil
}

func newCountryTable() (*reconcile.CountryTable, error) {
	if cfg.Sync.CountryTablePath == "" {
		return reconcile.DefaultCountryTable(), nil
	}
	return reconcile.LoadCountryTable(cfg.Sync.CountryTablePath)
}

func newReconciler() (*reconcile.Reconciler, error) {
	countries, err := newCountryTable()
	if err != nil {
		return nil, err
	}
	return reconcile.New(reconcile.Options{
		Overwrite:       cfg.Sync.Overwrite,
		CountryFallback: cfg.Sync.CountryFallback,
		ManagerAbsent:   cfg.Sync.ManagerAbsent,
		Countries:       countries,
	}), nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := applySyncFlags(cmd); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Unreadable input or missing columns abort before any directory call.
	input, err := csvinput.ReadFile(syncFlags.csvPath, cfg.Sync.Delimiter)
	if err != nil {
		return err
	}
	for _, w := range input.Warnings {
		tools.Log.WithField("line", w.Line).Warn(w.Message)
	}

	reconciler, err := newReconciler()
	if err != nil {
		return err
	}

	adClient, err := ldapclient.Connect(cfg.LDAP)
	if err != nil {
		return fmt.Errorf("failed to connect to LDAP: %w", err)
	}
	defer adClient.Close()

	cloud, err := graph.NewClient(ctx, cfg.Graph)
	if err != nil {
		return fmt.Errorf("failed to create Graph client: %w", err)
	}

	var snapshots sync.SnapshotWriter
	if cfg.Sync.ExportSnapshots {
		snapshots = export.NewWriter(filepath.Dir(input.Path))
	}

	tools.Log.WithFields(map[string]interface{}{
		"rows":              len(input.Rows),
		"workers":           cfg.Sync.Workers,
		"dry_run":           cfg.Sync.DryRun,
		"overwrite_policy":  cfg.Sync.Overwrite,
		"country_fallback":  cfg.Sync.CountryFallback,
		"manager_absent":    cfg.Sync.ManagerAbsent,
		"push_immutable_id": cfg.Sync.PushImmutableID,
	}).Info("Starting attribute sync")

	runner := sync.NewRunner(
		cloud,
		&active_directory.Directory{Client: adClient, DryRun: cfg.Sync.DryRun},
		reconciler,
		snapshots,
		sync.Options{
			Workers:         cfg.Sync.Workers,
			CallTimeout:     cfg.Sync.CallTimeout,
			PushImmutableID: cfg.Sync.PushImmutableID,
			DryRun:          cfg.Sync.DryRun,
		},
	)

	start := time.Now()
	results := runner.Run(ctx, input.Rows)
	t := sync.Summarize(results)
	tools.LogRunSummary(input.Path, t.Total, t.Processed, t.Skipped, t.NotFound, t.Failed, t.Warnings)
	tools.Log.Infof("Finished in %s", time.Since(start))

	if t.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed", t.Failed, t.Total)
	}
	return nil
}
