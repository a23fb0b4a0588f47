package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"SignalDesk/internal/exporter"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/notifier"
	"SignalDesk/internal/recorder"
)

// ErrRunInProgress is returned when a run is requested while another is still going.
var ErrRunInProgress = errors.New("a run is already in progress")

// historyDepth is how many journal entries /history shows.
const historyDepth = 10

// Runner produces a report for a watch list.
type Runner interface {
	Run(ctx context.Context, symbols []string) (*model.Report, error)
}

// Scheduler runs the batch on a cron schedule or on demand and delivers the result.
type Scheduler struct {
	Cron      *cron.Cron
	Runner    Runner
	Symbols   []string
	Sinks     []exporter.Sink
	Notifiers []notifier.Notifier
	Recorder  recorder.Recorder
	Metrics   *metrics.Metrics
	Ctx       context.Context

	running sync.Mutex
	mu      sync.Mutex
	last    *model.RunSummary
}

// NewScheduler creates a new Scheduler. Sinks run before notifiers.
func NewScheduler(ctx context.Context, runner Runner, symbols []string, sinks []exporter.Sink,
	notifiers []notifier.Notifier, rec recorder.Recorder, m *metrics.Metrics) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Runner:    runner,
		Symbols:   symbols,
		Sinks:     sinks,
		Notifiers: notifiers,
		Recorder:  rec,
		Metrics:   m,
		Ctx:       ctx,
	}
}

// Register adds the daily run.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) dailyTask() {
	if _, err := s.RunNow(s.Ctx); err != nil {
		log.Error().Err(err).Msg("daily run failed")
	}
}

// RunNow runs the batch once, then exports, notifies and journals the result.
// Delivery failures are recorded but do not fail the run.
func (s *Scheduler) RunNow(ctx context.Context) (*model.Report, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	log.Info().Int("symbols", len(s.Symbols)).Msg("running batch")
	rep, err := s.Runner.Run(ctx, s.Symbols)
	if err != nil {
		return nil, fmt.Errorf("batch run: %w", err)
	}

	var deliveryErrs []string
	for _, sink := range s.Sinks {
		if err := sink.Export(ctx, rep); err != nil {
			deliveryErrs = append(deliveryErrs, s.deliveryFailed(rep.RunID, sink.Name(), err))
		}
	}
	for _, n := range s.Notifiers {
		if err := n.Notify(ctx, rep); err != nil {
			deliveryErrs = append(deliveryErrs, s.deliveryFailed(rep.RunID, n.Name(), err))
		}
	}

	summary := rep.Summarize(deliveryErrs)
	if err := s.Recorder.RecordRun(ctx, summary, recorder.Outcomes(rep)); err != nil {
		log.Error().Err(err).Str("run_id", rep.RunID).Msg("record run")
	}
	s.mu.Lock()
	s.last = &summary
	s.mu.Unlock()

	log.Info().Str("run_id", rep.RunID).Int("rows", summary.Rows).Int("failed", summary.Failed).
		Int("delivery_errors", len(deliveryErrs)).Msg("run finished")
	return rep, nil
}

func (s *Scheduler) deliveryFailed(runID, sink string, err error) string {
	log.Error().Err(err).Str("run_id", runID).Str("sink", sink).Msg("delivery failed")
	s.Metrics.DeliveryFailed(sink)
	return fmt.Sprintf("%s: %v", sink, err)
}

// LastRun returns the summary of the latest run, falling back to the journal after a restart.
func (s *Scheduler) LastRun(ctx context.Context) (*model.RunSummary, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil {
		return last, nil
	}
	return s.Recorder.LastRun(ctx)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// "/report@MyBot" in group chats
	name, _, _ := strings.Cut(fields[0], "@")

	switch name {
	case "/report":
		if _, err := s.RunNow(ctx); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				return "⏳ A run is already in progress."
			}
			return fmt.Sprintf("❌ Run failed: %v", err)
		}
		// the report itself goes out through the notifiers
		return ""
	case "/status":
		last, err := s.LastRun(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Status unavailable: %v", err)
		}
		return notifier.FormatRunStatus(last)
	case "/history":
		if len(fields) < 2 {
			return "Usage: /history SYMBOL"
		}
		symbol := strings.ToUpper(fields[1])
		hist, err := s.Recorder.SymbolHistory(ctx, symbol, historyDepth)
		if err != nil {
			return fmt.Sprintf("❌ History unavailable: %v", err)
		}
		return notifier.FormatSymbolHistory(symbol, hist)
	default:
		return helpText
	}
}

const helpText = "Available commands:\n• /report - run the analysis now\n• /status - last run summary\n• /history SYMBOL - recent outcomes of a symbol"
