package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nordgren/eventscout/internal/calendar"
	"github.com/nordgren/eventscout/internal/dedup"
	"github.com/nordgren/eventscout/internal/event"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig  string
	flagDataDir string
	flagFormat  string
	flagVerbose bool
	flagDryRun  bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventscout",
		Short: "Crawl public event listings and sync them to a store",
		Long: `eventscout crawls configured event listing pages with hardened browser
sessions, validates and deduplicates what it finds, and syncs new events
to an external store exactly once.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (overrides config)")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl all configured sources and store candidate events",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(flagFormat)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			var out *CrawlOutput
			err = a.withLock(func() error {
				out, err = a.crawl(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}
			return WriteOutput(os.Stdout, out, format)
		},
	}
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync previously crawled candidates to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(flagFormat)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			var out *SyncOutput
			err = a.withLock(func() error {
				candidates, err := a.storage.LoadCandidates()
				if err != nil {
					return err
				}
				out, err = a.sync(cmd.Context(), candidates)
				return err
			})
			if err != nil {
				return err
			}
			return WriteOutput(os.Stdout, out, format)
		},
	}
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Sync against an in-memory store")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl all sources and sync the results in one go",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(flagFormat)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			out := &RunOutput{}
			err = a.withLock(func() error {
				crawlOut, err := a.crawl(cmd.Context())
				if err != nil {
					return err
				}
				out.Crawl = crawlOut

				syncOut, err := a.sync(cmd.Context(), crawlOut.Candidates)
				if err != nil {
					return err
				}
				out.Sync = syncOut
				return nil
			})
			if err != nil {
				return err
			}

			// The candidate list is working data for the sync step, not
			// part of the combined report.
			out.Crawl.Candidates = nil
			return WriteOutput(os.Stdout, out, format)
		},
	}
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Sync against an in-memory store")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tracker and data directory state",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(flagFormat)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			tracker, err := dedup.Load(a.storage.TrackerPath())
			if err != nil {
				return err
			}
			candidates, err := a.storage.LoadCandidates()
			if err != nil {
				return err
			}

			_, statErr := os.Stat(a.storage.LockPath())
			var lastSync *time.Time
			if fi, err := os.Stat(a.storage.TrackerPath()); err == nil {
				t := fi.ModTime()
				lastSync = &t
			}
			out := &StatusOutput{
				DataDir:          a.cfg.DataDir,
				TrackedEvents:    tracker.Len(),
				SyncedEvents:     tracker.SyncedCount(),
				StoredCandidates: len(candidates),
				CrawlLockHeld:    statErr == nil,
				LastSync:         lastSync,
				TrackerPath:      a.storage.TrackerPath(),
				CandidatesPath:   a.storage.CandidatesPath(),
			}
			return WriteOutput(os.Stdout, out, format)
		},
	}
}

func newExportCmd() *cobra.Command {
	var flagOutput string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored candidates as an iCalendar feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			candidates, err := a.storage.LoadCandidates()
			if err != nil {
				return err
			}
			valid, _ := event.NewValidator().ValidateAll(candidates)

			events := make([]*calendar.Event, 0, len(valid))
			for _, ev := range valid {
				events = append(events, &calendar.Event{
					UID:      ev.ContentHash,
					Title:    ev.Title,
					Date:     ev.Date,
					Time:     ev.Time,
					Location: ev.Location,
					Link:     ev.Link,
					Category: ev.Category,
				})
			}
			ics := calendar.GenerateICS(events, time.Now())

			if flagOutput == "" || flagOutput == "-" {
				_, err := fmt.Fprint(os.Stdout, ics)
				return err
			}
			return os.WriteFile(flagOutput, []byte(ics), 0o644)
		},
	}
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "-", "Output file (- for stdout)")
	return cmd
}

// crawl visits every configured source and persists the candidates file.
func (a *app) crawl(ctx context.Context) (*CrawlOutput, error) {
	sources, err := a.sources()
	if err != nil {
		return nil, err
	}
	c, err := a.buildCrawler()
	if err != nil {
		return nil, err
	}

	candidates, results := c.Crawl(ctx, sources)
	sortCandidates(candidates)

	if err := a.storage.SaveCandidates(candidates); err != nil {
		return nil, fmt.Errorf("saving candidates: %w", err)
	}

	out := &CrawlOutput{
		CrawledAt:      time.Now().UTC(),
		CandidateCount: len(candidates),
		Candidates:     candidates,
	}
	for _, r := range results {
		s := SourceStatus{Name: r.Source, Candidates: r.Candidates}
		if r.Err != nil {
			s.Error = r.Err.Error()
		}
		out.Sources = append(out.Sources, s)
	}
	return out, nil
}

// sync pushes candidates through the validate/dedup/persist pipeline.
func (a *app) sync(ctx context.Context, candidates []*event.Candidate) (*SyncOutput, error) {
	st, err := a.buildStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	m, err := a.buildSyncer(st)
	if err != nil {
		return nil, err
	}

	result, err := m.Sync(ctx, candidates)
	if err != nil {
		return nil, err
	}
	return &SyncOutput{SyncedAt: time.Now().UTC(), Result: result}, nil
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
