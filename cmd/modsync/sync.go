package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/mpsync/core/apply"
	"github.com/mpsync/core/config"
	"github.com/mpsync/core/httpfetch"
	"github.com/mpsync/core/modsynclog"
	"github.com/mpsync/core/syncevent"
	"github.com/mpsync/core/syncstatus"
)

func runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "path to manifest.json")
	target := fs.String("target", "", "target directory")
	configPath := fs.String("config", "", "path to a TOML config file")
	concurrency := fs.Int("concurrency", 0, "download concurrency, 0 = config default (NumCPU if unset)")
	retries := fs.Int("retries", 0, "download retry attempts, 0 = config default")
	disableHash := fs.Bool("disable-hash-check", false, "disable hash verification")
	disableSize := fs.Bool("disable-size-check", false, "disable size-fallback verification")
	noTUI := fs.Bool("no-tui", false, "print plain progress lines instead of the interactive bar")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *manifestPath == "" || *target == "" {
		return fmt.Errorf("sync: -manifest and -target are required")
	}
	if *verbose {
		modsynclog.SetLogger(&modsynclog.DefaultLogger{Verbose: true})
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("sync: load config: %w", err)
	}
	cfg = cfg.Apply(config.Overrides{
		DownloadConcurrency: *concurrency,
		RetryAttempts:       *retries,
	})

	m, err := loadManifest(*manifestPath)
	if err != nil {
		return err
	}
	excluded, err := loadExcludedSet(*target)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	runLog := modsynclog.WithRun(runID)
	runLog.Infof("%s -> %s", *manifestPath, *target)

	client := httpfetch.NewClient(cfg.HTTPTimeout)
	opts := apply.Options{
		Excluded:                 excluded,
		OverrideDisableHashCheck: *disableHash,
		OverrideDisableSizeCheck: *disableSize,
		Concurrency:              cfg.Concurrency.Downloads,
		RetryAttempts:            cfg.RetryAttempts,
		ScanConcurrency:          cfg.Concurrency.Hash,
	}

	useTUI := !*noTUI && term.IsTerminal(int(os.Stdout.Fd()))

	events := make(chan syncevent.Event, 64)
	sink := syncevent.Func(func(e syncevent.Event) {
		select {
		case events <- e:
		default:
			// The consumer is behind; drop rather than block the applier.
		}
	})

	type syncOutcome struct {
		result *syncstatus.BatchResult
		err    error
	}
	done := make(chan syncOutcome, 1)
	go func() {
		result, err := apply.Apply(context.Background(), m, *target, client, opts, sink, nil)
		close(events)
		done <- syncOutcome{result, err}
	}()

	if useTUI {
		runSyncTUI(events)
	} else {
		for e := range events {
			logPlainEvent(e)
		}
	}

	outcome := <-done
	if outcome.err != nil {
		return outcome.err
	}
	if outcome.result != nil {
		runLog.Infof("%s", outcome.result.String())
		if combined := outcome.result.CombinedErr(); combined != nil {
			runLog.Errorf("%v", combined)
			return fmt.Errorf("sync: %d of %d entries failed", len(outcome.result.Failed), outcome.result.Attempted)
		}
	}
	return nil
}

func logPlainEvent(e syncevent.Event) {
	switch e.Kind {
	case syncevent.KindDownloadProgress:
		d := e.Download
		fmt.Printf("\rdownloading %s: %s/%s", d.File, humanize.Bytes(d.Downloaded), humanize.Bytes(d.Total))
		if d.Downloaded >= d.Total {
			fmt.Println()
		}
	case syncevent.KindDownloadSuccess:
		fmt.Printf("ok   %s\n", e.SuccessName)
	case syncevent.KindDownloadError:
		fmt.Printf("FAIL %s\n", e.ErrorMessage)
	case syncevent.KindOverallProgress:
		fmt.Printf("overall: %.0f%%\n", e.Overall)
	}
}

// syncModel renders apply progress as an interactive terminal bar while the
// applier runs in the background goroutine that owns events.
type syncModel struct {
	events  <-chan syncevent.Event
	bar     progress.Model
	current string
	failed  []string
	overall float64
	closed  bool
}

func runSyncTUI(events <-chan syncevent.Event) {
	m := syncModel{
		events: events,
		bar:    progress.New(progress.WithDefaultGradient()),
	}
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		// Fall back to draining silently; the applier's own return value
		// still reports success or failure.
		for range events {
		}
	}
}

type eventMsg syncevent.Event
type channelClosedMsg struct{}

func waitForEvent(events <-chan syncevent.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg(e)
	}
}

func (m syncModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case channelClosedMsg:
		m.closed = true
		return m, tea.Quit
	case eventMsg:
		e := syncevent.Event(msg)
		switch e.Kind {
		case syncevent.KindDownloadProgress:
			m.current = e.Download.File
			m.overall = e.Download.Progress
		case syncevent.KindOverallProgress:
			m.overall = e.Overall
		case syncevent.KindDownloadError:
			m.failed = append(m.failed, e.ErrorMessage)
		}
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m syncModel) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("modsync")
	status := m.current
	if status == "" {
		status = "preparing..."
	}
	view := fmt.Sprintf("%s\n%s\n%s\n", title, status, m.bar.ViewAs(m.overall/100))
	if len(m.failed) > 0 {
		view += fmt.Sprintf("%d failure(s)\n", len(m.failed))
	}
	return view
}
