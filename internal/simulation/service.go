// Package simulation runs the analyze and simulate chain for a workspace and feeds the results into its store.
package simulation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/billeffect/internal/ai"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/logging"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/store"
)

// DefaultTimeout bounds one analyze and simulate chain.
const DefaultTimeout = 2 * time.Minute

const fallbackMessage = "simulation failed"

var (
	ErrNoBill             = errors.NewSentinel("no bill loaded")
	ErrAnalysisInProgress = errors.NewSentinel("analysis already in progress")
	ErrBillReplaced       = errors.NewSentinel("bill replaced during simulation")
)

// RunRecorder persists the run log.
type RunRecorder interface {
	Record(ctx context.Context, run models.SimulationRun) error
}

// Service runs simulations.
type Service struct {
	analyst ai.Analyst
	runs    RunRecorder
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	// done is cancelled by Close and stops the background simulations.
	done   context.Context
	cancel context.CancelFunc
}

// NewService creates a Service. runs may be nil to skip the run log.
func NewService(analyst ai.Analyst, runs RunRecorder, logger *slog.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	done, cancel := context.WithCancel(context.Background())
	return &Service{ //nolint:exhaustruct // wg zero value is ready to use.
		analyst: analyst,
		runs:    runs,
		logger:  logger,
		timeout: timeout,
		done:    done,
		cancel:  cancel,
	}
}

// Mode names the analyst in use.
func (s *Service) Mode() string {
	return s.analyst.Mode()
}

// Start begins a simulation of the loaded bill in the background. The simulation outlives ctx, only its values
// are kept, and runs until it finishes, times out or the service is closed. Progress and errors are reported
// through the store.
func (s *Service) Start(ctx context.Context, workspaceID string, st *store.Store) error {
	bill, err := s.begin(st)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.done, cancel)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.logger.LogAttrs(ctx, slog.LevelError, "simulation panicked", slog.Any("panic", r))
				st.EndAnalysis(fallbackMessage)
			}
		}()
		_ = s.execute(ctx, workspaceID, st, bill)
	}()
	return nil
}

// Run simulates the loaded bill and returns once the events are in the store.
func (s *Service) Run(ctx context.Context, workspaceID string, st *store.Store) error {
	bill, err := s.begin(st)
	if err != nil {
		return err
	}
	return s.execute(ctx, workspaceID, st, bill)
}

// Wait blocks until all background simulations have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels the background simulations and waits for them to finish.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) begin(st *store.Store) (models.Bill, error) {
	bill, ok := st.Bill()
	if !ok {
		return bill, errors.Wrap(ErrNoBill, "start simulation")
	}
	if !st.BeginAnalysis() {
		return bill, errors.Wrap(ErrAnalysisInProgress, "start simulation")
	}
	return bill, nil
}

// execute replaces the events of st with a fresh simulation of bill over the default window. Callers have
// called BeginAnalysis, execute always ends it.
func (s *Service) execute(ctx context.Context, workspaceID string, st *store.Store, bill models.Bill) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx = logging.WithAttrs(ctx,
		slog.String("workspace_id", workspaceID),
		slog.String("bill_id", bill.ID),
		slog.String("mode", s.analyst.Mode()))

	run := models.SimulationRun{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		BillTitle:   bill.Title,
		Mode:        s.analyst.Mode(),
		EventCount:  0,
		Error:       "",
		StartedAt:   time.Now(),
		FinishedAt:  time.Time{},
	}

	count, err := s.simulate(ctx, st, bill)
	run.EventCount = count
	run.FinishedAt = time.Now()

	errMsg := ""
	if err != nil {
		errMsg = models.UserMessage(err, fallbackMessage)
		run.Error = err.Error()
		s.logger.LogAttrs(ctx, slog.LevelError, "simulation failed", errors.SlogError(err))
	} else {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "simulation finished",
			slog.Int("events", count), slog.Duration("duration", run.FinishedAt.Sub(run.StartedAt)))
	}
	st.EndAnalysis(errMsg)

	if s.runs != nil {
		if recordErr := s.runs.Record(context.WithoutCancel(ctx), run); recordErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to record simulation run", errors.SlogError(recordErr))
		}
	}
	return err
}

func (s *Service) simulate(ctx context.Context, st *store.Store, bill models.Bill) (int, error) {
	st.ClearEvents()
	st.ResetPlayback()
	state := st.Playback()
	window := models.DateRange{Start: state.StartDate, End: state.EndDate}

	analysis, err := s.analyst.Analyze(ctx, bill.Content)
	if err != nil {
		return 0, errors.Wrap(err, "analyze")
	}
	st.AttachKeyPoints(bill.ID, analysis.KeyPoints())

	events, err := s.analyst.Simulate(ctx, analysis, window)
	if err != nil {
		return 0, errors.Wrap(err, "simulate")
	}
	if !st.AddEventsForBill(bill.ID, events) {
		return 0, errors.Wrap(ErrBillReplaced, "add events")
	}
	return len(events), nil
}
