// Package simulate implements the simulate command which runs the analyze and simulate chain for a bill file
// and prints the events.
package simulate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/billeffect/internal/ai"
	"github.com/myrjola/billeffect/internal/envstruct"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/ingest"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/pdfextract"
	"github.com/myrjola/billeffect/internal/playback"
	"github.com/myrjola/billeffect/internal/simulation"
	"github.com/myrjola/billeffect/internal/store"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "sim",
	Title: "Simulation",
}

type config struct {
	AnalysisMode      string        `env:"BILLEFFECT_ANALYSIS_MODE" envDefault:"auto"`
	SimulationTimeout time.Duration `env:"BILLEFFECT_SIMULATION_TIMEOUT" envDefault:"2m"`
	GrokAPIKey        string        `env:"GROK_API_KEY" envDefault:""`
	GrokBaseURL       string        `env:"GROK_BASE_URL" envDefault:""`
	GrokModel         string        `env:"GROK_MODEL" envDefault:""`
	ReductoAPIKey     string        `env:"REDUCTO_API_KEY" envDefault:""`
	ReductoBaseURL    string        `env:"REDUCTO_BASE_URL" envDefault:""`
}

type options struct {
	mode    string
	latency bool
	play    bool
	speed   int
	tick    time.Duration
}

// Command creates the simulate command. logger is resolved when the command runs so that persistent flags
// have been parsed.
func Command(logger func() *slog.Logger, lookupEnv func(string) (string, bool)) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:     "simulate [file]",
		GroupID: Group.ID,
		Short:   "Simulate a bill",
		Long: `Reads a bill from a text, markdown or PDF file, analyzes it and prints the simulated events per state.
Use - to read the bill text from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, args[0], opts, logger(), lookupEnv)
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", "", "analysis mode: auto, remote or offline (default from BILLEFFECT_ANALYSIS_MODE)")
	cmd.Flags().BoolVar(&opts.latency, "latency", false, "simulate network latency in offline mode")
	cmd.Flags().BoolVar(&opts.play, "play", false, "play the timeline back and print the events as they happen")
	cmd.Flags().IntVar(&opts.speed, "speed", int(playback.Speed5x), "playback speed: 1, 2 or 5")
	cmd.Flags().DurationVar(&opts.tick, "tick", 20*time.Millisecond, "duration of one simulated day at 1x")
	return cmd
}

func run(
	ctx context.Context,
	cmd *cobra.Command,
	path string,
	opts options,
	logger *slog.Logger,
	lookupEnv func(string) (string, bool),
) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if opts.mode != "" {
		cfg.AnalysisMode = opts.mode
	}
	speed, err := playback.ParseSpeed(opts.speed)
	if err != nil {
		return err
	}
	if err = playback.ValidateBaseInterval(opts.tick); err != nil {
		return errors.Wrap(err, "validate tick flag")
	}

	analyst, err := ai.New(ai.Config{
		Mode:              cfg.AnalysisMode,
		APIKey:            cfg.GrokAPIKey,
		BaseURL:           cfg.GrokBaseURL,
		Model:             cfg.GrokModel,
		Temperature:       ai.DefaultTemperature,
		RequestsPerSecond: 0,
		OfflineLatency:    opts.latency,
	}, logger)
	if err != nil {
		return errors.Wrap(err, "create analyst")
	}

	var extractor ingest.PDFExtractor
	if cfg.ReductoAPIKey != "" {
		var client *pdfextract.Client
		if client, err = pdfextract.New(pdfextract.Config{
			APIKey:            cfg.ReductoAPIKey,
			BaseURL:           cfg.ReductoBaseURL,
			RequestsPerSecond: 0,
			HTTPClient:        nil,
		}, logger); err != nil {
			return errors.Wrap(err, "create pdf extractor")
		}
		extractor = client
	}

	bill, err := readBill(ctx, cmd.InOrStdin(), path, ingest.NewIngester(logger, extractor))
	if err != nil {
		return err
	}

	st := store.New(playback.WithBaseInterval(opts.tick))
	defer st.Close()
	st.SetBill(bill)

	svc := simulation.NewService(analyst, nil, logger, cfg.SimulationTimeout)
	defer svc.Close()
	if err = svc.Run(ctx, "cli-"+uuid.NewString(), st); err != nil {
		return errors.Wrap(err, "simulate", slog.String("title", bill.Title))
	}

	out := cmd.OutOrStdout()
	bill, _ = st.Bill()
	printBill(out, bill, analyst.Mode())
	if opts.play {
		return play(ctx, out, st, speed)
	}
	printEvents(out, st.Events())
	return nil
}

func readBill(ctx context.Context, stdin io.Reader, path string, in *ingest.Ingester) (models.Bill, error) {
	var (
		bill models.Bill
		err  error
	)
	if path == "-" {
		var data []byte
		if data, err = io.ReadAll(stdin); err != nil {
			return bill, errors.Wrap(err, "read stdin")
		}
		bill, err = in.FromText(string(data), models.BillSourcePaste)
	} else {
		var f *os.File
		if f, err = os.Open(path); err != nil {
			return bill, errors.Wrap(err, "open bill")
		}
		defer func() {
			_ = f.Close()
		}()
		bill, err = in.FromFile(ctx, filepath.Base(path), f)
	}
	if err != nil {
		return bill, errors.Wrap(err, "read bill", slog.String("path", path))
	}
	return bill, nil
}

func printBill(w io.Writer, bill models.Bill, mode string) {
	_, _ = fmt.Fprintf(w, "%s (%s analysis)\n\n", bill.Title, mode)
	for _, p := range bill.KeyPoints {
		_, _ = fmt.Fprintf(w, "  [%s] %s: %s\n", p.Category.Label(), p.Title, p.Summary)
	}
	_, _ = fmt.Fprintln(w)
}

func printEvents(w io.Writer, events []models.SimulationEvent) {
	events = slices.Clone(events)
	slices.SortStableFunc(events, func(a, b models.SimulationEvent) int {
		return a.Date.Compare(b.Date)
	})
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "State", "Impact", "Event"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	for _, e := range events {
		table.Append([]string{models.FormatDate(e.Date), e.State, string(e.Impact), e.Title})
	}
	table.SetFooter([]string{"", "", "Total", fmt.Sprint(len(events))})
	table.Render()

	counts := lo.CountValuesBy(events, func(e models.SimulationEvent) models.Impact { return e.Impact })
	_, _ = fmt.Fprintf(w, "\n%d positive, %d negative, %d neutral\n",
		counts[models.ImpactPositive], counts[models.ImpactNegative], counts[models.ImpactNeutral])
}

// play runs the timeline from start to end and prints every event on the day it becomes visible.
func play(ctx context.Context, w io.Writer, st *store.Store, speed playback.Speed) error {
	updates, unsubscribe := st.Subscribe()
	defer unsubscribe()
	if err := st.SetSpeed(speed); err != nil {
		return errors.Wrap(err, "set speed")
	}

	printed := make(map[string]bool)
	flush := func() {
		visible := lo.Reject(st.VisibleEvents(), func(e models.SimulationEvent, _ int) bool {
			return printed[e.ID]
		})
		slices.SortStableFunc(visible, func(a, b models.SimulationEvent) int {
			return a.Date.Compare(b.Date)
		})
		for _, e := range visible {
			printed[e.ID] = true
			_, _ = fmt.Fprintf(w, "%s  %-20s %-8s %s\n", models.FormatDate(e.Date), e.State, e.Impact, e.Title)
		}
	}

	st.Play()
	flush()
	for {
		select {
		case <-ctx.Done():
			st.Pause()
			return errors.Wrap(ctx.Err(), "play")
		case snapshot, ok := <-updates:
			if !ok {
				return nil
			}
			flush()
			if !snapshot.Playback.IsPlaying && !snapshot.Playback.CurrentDate.Before(snapshot.Playback.EndDate) {
				_, _ = fmt.Fprintf(w, "\nReached %s with %d events.\n",
					models.FormatDate(snapshot.Playback.EndDate), len(printed))
				return nil
			}
		}
	}
}
