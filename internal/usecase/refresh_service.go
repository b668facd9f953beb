package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc"

	"github.com/jmorneau/rinkstats/internal/domain/ingestrun"
	"github.com/jmorneau/rinkstats/internal/domain/season"
	"github.com/jmorneau/rinkstats/internal/platform/id"
	"github.com/jmorneau/rinkstats/internal/platform/logging"
)

// Refresh categories. The feed categories are season-scoped; seasons and the
// two archive categories run as single tasks because their sources are
// league-wide. Derive is the post-ingestion stage, season-scoped.
const (
	CategorySeasons        = "seasons"
	CategoryTeams          = "teams"
	CategoryRosters        = "rosters"
	CategorySchedule       = "schedule"
	CategorySkaterStats    = "skater_stats"
	CategoryGoalieStats    = "goalie_stats"
	CategoryStandings      = "standings"
	CategoryArchivePlayers = "archive_players"
	CategoryArchiveEvents  = "archive_events"
	CategoryDerive         = "derive"
)

// ingestCategoryOrder is the apply order. Schedule lands before the stat
// categories so player stubs and provisional teams resolve against games.
// Archive events run in a second wave after every entity category has
// drained, so event rows resolve against the game and player keys this run
// just wrote.
var ingestCategoryOrder = []string{
	CategorySeasons,
	CategoryTeams,
	CategoryRosters,
	CategorySchedule,
	CategorySkaterStats,
	CategoryGoalieStats,
	CategoryStandings,
	CategoryArchivePlayers,
	CategoryArchiveEvents,
}

type RefreshInput struct {
	// Seasons narrows season-scoped categories; empty means every season the
	// store knows after the seasons category has run.
	Seasons    []int64
	Categories []string
	SkipDerive bool
	MaxWorkers int
}

type RefreshResult struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	TaskCount    int    `json:"task_count"`
	SuccessCount int    `json:"success_count"`
	FailedCount  int    `json:"failed_count"`
	SkippedCount int    `json:"skipped_count"`
	WorkerCount  int    `json:"worker_count"`
	AnomalyCount int    `json:"anomaly_count"`

	Tasks []ingestrun.TaskResult `json:"tasks"`
	// FailedCategories lists categories where every task failed. The CLI
	// exits non-zero only on those.
	FailedCategories []string `json:"failed_categories,omitempty"`
}

type refreshTask struct {
	category string
	seasonID *int64
}

type refreshOutcome struct {
	row       ingestrun.TaskResult
	anomalies []ingestrun.Anomaly
}

// RefreshService drives one pipeline run: fetch and apply per (category,
// season) through a bounded worker pool, then recompute derived metrics per
// season. Every run leaves a persisted trail of task rows and anomalies.
type RefreshService struct {
	feedSync    *FeedSyncService
	archiveSync *ArchiveSyncService
	derivation  *DerivationService
	seasonRepo  season.Repository
	runRepo     ingestrun.Repository
	idGen       id.Generator
	logger      *logging.Logger
}

func NewRefreshService(
	feedSync *FeedSyncService,
	archiveSync *ArchiveSyncService,
	derivation *DerivationService,
	seasonRepo season.Repository,
	runRepo ingestrun.Repository,
	idGen id.Generator,
	logger *logging.Logger,
) *RefreshService {
	if logger == nil {
		logger = logging.Default()
	}

	return &RefreshService{
		feedSync:    feedSync,
		archiveSync: archiveSync,
		derivation:  derivation,
		seasonRepo:  seasonRepo,
		runRepo:     runRepo,
		idGen:       idGen,
		logger:      logger,
	}
}

func (s *RefreshService) guard(ctx context.Context) error {
	if s.feedSync == nil || s.archiveSync == nil || s.derivation == nil ||
		s.seasonRepo == nil || s.runRepo == nil || s.idGen == nil {
		s.logger.WarnContext(ctx, "skip refresh: pipeline is not fully configured",
			"feed_sync_nil", s.feedSync == nil,
			"archive_sync_nil", s.archiveSync == nil,
			"derivation_nil", s.derivation == nil,
		)
		return fmt.Errorf("%w: refresh pipeline is not fully configured", ErrDependencyUnavailable)
	}

	return nil
}

// Refresh runs the requested ingestion categories and, unless skipped, the
// per-season derivation stage. Task failures degrade the run instead of
// aborting it; only run bookkeeping failures return an error.
func (s *RefreshService) Refresh(ctx context.Context, input RefreshInput) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.Refresh")
	defer span.End()

	if err := s.guard(ctx); err != nil {
		return RefreshResult{}, err
	}

	categories, derive, err := normalizeRefreshCategories(input.Categories)
	if err != nil {
		return RefreshResult{}, err
	}
	if input.SkipDerive {
		derive = false
	}

	runID, err := s.idGen.NewID()
	if err != nil {
		return RefreshResult{}, fmt.Errorf("new run id: %w", err)
	}
	run := ingestrun.Run{
		ID:        runID,
		StartedAt: time.Now().UTC(),
		Status:    ingestrun.StatusRunning,
	}
	if err := s.runRepo.CreateRun(ctx, run); err != nil {
		return RefreshResult{}, fmt.Errorf("create run id=%s: %w", runID, err)
	}

	s.logger.InfoContext(ctx, "refresh run started",
		"run_id", runID,
		"categories", strings.Join(categories, ","),
		"derive", derive,
	)

	rows := make([]ingestrun.TaskResult, 0)
	anomalies := make([]ingestrun.Anomaly, 0)
	var succeeded, failed, skipped atomic.Int32
	collect := func(outcome refreshOutcome) {
		switch outcome.row.Status {
		case ingestrun.TaskOK:
			succeeded.Add(1)
		case ingestrun.TaskSkipped:
			skipped.Add(1)
		default:
			failed.Add(1)
		}
		rows = append(rows, outcome.row)
		anomalies = append(anomalies, outcome.anomalies...)
	}

	// Seasons run first and alone: the rest of the grid is built from the
	// season list they refresh.
	if containsCategory(categories, CategorySeasons) {
		collect(s.executeTask(ctx, runID, refreshTask{category: CategorySeasons}, nil))
	}

	targets, err := s.resolveTargetSeasons(ctx, input.Seasons)
	if err != nil {
		return s.finishRun(ctx, run, rows, anomalies, 1, ingestrun.StatusFailed),
			fmt.Errorf("resolve target seasons: %w", err)
	}

	tasks := buildRefreshTasks(categories, targets)
	workerCount := normalizeRefreshWorkers(input.MaxWorkers, len(tasks))

	if len(tasks) > 0 {
		pool, err := ants.NewPool(workerCount)
		if err != nil {
			return s.finishRun(ctx, run, rows, anomalies, workerCount, ingestrun.StatusFailed),
				fmt.Errorf("create worker pool: %w", err)
		}
		defer pool.Release()

		// Locks are keyed by the table a category writes, not by the category
		// itself: rosters, both stat categories, and the archive biography
		// file all upsert players, so their apply stages must never overlap.
		locks := make(map[string]*sync.Mutex, len(categories))
		for _, category := range categories {
			key := categoryWriteKey(category)
			if _, ok := locks[key]; !ok {
				locks[key] = &sync.Mutex{}
			}
		}

		runWave := func(wave []refreshTask) error {
			if len(wave) == 0 {
				return nil
			}

			results := make(chan refreshOutcome, len(wave))
			var workers sync.WaitGroup
			for _, task := range wave {
				task := task
				workers.Add(1)
				if err := pool.Submit(func() {
					defer workers.Done()

					lock := locks[categoryWriteKey(task.category)]
					lock.Lock()
					defer lock.Unlock()

					results <- s.executeTask(ctx, runID, task, targets)
				}); err != nil {
					workers.Done()
					return fmt.Errorf("submit task to worker pool: %w", err)
				}
			}

			workers.Wait()
			close(results)
			for outcome := range results {
				collect(outcome)
			}
			return nil
		}

		// Archive events reference game and player keys, so their wave only
		// starts once every entity task has drained.
		entityTasks, eventTasks := splitEventWave(tasks)
		if err := runWave(entityTasks); err != nil {
			return s.finishRun(ctx, run, rows, anomalies, workerCount, ingestrun.StatusFailed), err
		}
		if err := runWave(eventTasks); err != nil {
			return s.finishRun(ctx, run, rows, anomalies, workerCount, ingestrun.StatusFailed), err
		}
	}

	if derive {
		var (
			mu sync.Mutex
			wg conc.WaitGroup
		)
		for _, seasonID := range targets {
			seasonID := seasonID
			wg.Go(func() {
				outcome := s.executeDerive(ctx, runID, seasonID)
				mu.Lock()
				defer mu.Unlock()
				collect(outcome)
			})
		}
		wg.Wait()
	}

	sortTaskRows(rows)

	status := runStatus(int(succeeded.Load()), int(failed.Load()), int(skipped.Load()), len(anomalies))
	result := s.finishRun(ctx, run, rows, anomalies, workerCount, status)

	s.logger.InfoContext(ctx, "refresh run finished",
		"run_id", runID,
		"status", result.Status,
		"tasks", result.TaskCount,
		"failed", result.FailedCount,
		"anomalies", result.AnomalyCount,
	)

	return result, nil
}

// executeTask runs one (category, season) unit and stamps run bookkeeping
// onto whatever anomalies it produced.
func (s *RefreshService) executeTask(ctx context.Context, runID string, task refreshTask, seasons []int64) refreshOutcome {
	start := time.Now()
	records, anomalies, err := s.runCategory(ctx, task, seasons)

	row := ingestrun.TaskResult{
		RunID:      runID,
		Category:   task.category,
		SeasonID:   task.seasonID,
		Records:    records,
		DurationMS: time.Since(start).Milliseconds(),
	}
	switch {
	case err != nil:
		row.Status = ingestrun.TaskFailed
		row.Message = err.Error()
		if errors.Is(err, ErrSourceUnavailable) {
			anomalies = append(anomalies, ingestrun.Anomaly{
				Kind:      ingestrun.AnomalySourceUnavailable,
				EntityKey: taskEntityKey(task),
				Reason:    err.Error(),
			})
		}
	case records == 0:
		row.Status = ingestrun.TaskSkipped
		row.Message = "source returned no records for this scope"
	default:
		row.Status = ingestrun.TaskOK
	}

	stampAnomalies(anomalies, runID, task.category, task.seasonID)
	return refreshOutcome{row: row, anomalies: anomalies}
}

func (s *RefreshService) runCategory(ctx context.Context, task refreshTask, seasons []int64) (int, []ingestrun.Anomaly, error) {
	switch task.category {
	case CategorySeasons:
		count, err := s.feedSync.SyncSeasons(ctx)
		return count, nil, err
	case CategoryTeams:
		count, err := s.feedSync.SyncTeams(ctx, *task.seasonID)
		return count, nil, err
	case CategoryRosters:
		count, err := s.feedSync.SyncRosters(ctx, *task.seasonID)
		return count, nil, err
	case CategorySchedule:
		count, err := s.feedSync.SyncSchedule(ctx, *task.seasonID)
		return count, nil, err
	case CategorySkaterStats:
		count, err := s.feedSync.SyncSkaterStats(ctx, *task.seasonID)
		return count, nil, err
	case CategoryGoalieStats:
		count, err := s.feedSync.SyncGoalieStats(ctx, *task.seasonID)
		return count, nil, err
	case CategoryStandings:
		count, err := s.feedSync.SyncStandings(ctx, *task.seasonID)
		return count, nil, err
	case CategoryArchivePlayers:
		return s.archiveSync.SyncPlayers(ctx)
	case CategoryArchiveEvents:
		return s.archiveSync.SyncEvents(ctx, seasons)
	default:
		return 0, nil, fmt.Errorf("%w: unsupported category %q", ErrInvalidInput, task.category)
	}
}

func (s *RefreshService) executeDerive(ctx context.Context, runID string, seasonID int64) refreshOutcome {
	start := time.Now()
	summary, err := s.derivation.DeriveSeason(ctx, seasonID)

	sid := seasonID
	row := ingestrun.TaskResult{
		RunID:      runID,
		Category:   CategoryDerive,
		SeasonID:   &sid,
		Records:    summary.Records(),
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		row.Status = ingestrun.TaskFailed
		row.Message = err.Error()
	} else {
		row.Status = ingestrun.TaskOK
	}

	anomalies := summary.Anomalies
	stampAnomalies(anomalies, runID, CategoryDerive, &sid)
	return refreshOutcome{row: row, anomalies: anomalies}
}

// finishRun persists the trail and closes the run row. Persistence failures
// are logged, not returned; the computed result is still useful to the
// caller.
func (s *RefreshService) finishRun(
	ctx context.Context,
	run ingestrun.Run,
	rows []ingestrun.TaskResult,
	anomalies []ingestrun.Anomaly,
	workerCount int,
	status string,
) RefreshResult {
	if err := s.runRepo.InsertTaskResults(ctx, rows); err != nil {
		s.logger.ErrorContext(ctx, "persist task results failed", "run_id", run.ID, "error", err)
	}
	if err := s.runRepo.InsertAnomalies(ctx, anomalies); err != nil {
		s.logger.ErrorContext(ctx, "persist anomalies failed", "run_id", run.ID, "error", err)
	}

	finishedAt := time.Now().UTC()
	run.FinishedAt = &finishedAt
	run.Status = status
	if err := s.runRepo.FinishRun(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "finish run failed", "run_id", run.ID, "error", err)
	}

	result := RefreshResult{
		RunID:            run.ID,
		Status:           status,
		TaskCount:        len(rows),
		WorkerCount:      workerCount,
		AnomalyCount:     len(anomalies),
		Tasks:            rows,
		FailedCategories: failedCategories(rows),
	}
	for _, row := range rows {
		switch row.Status {
		case ingestrun.TaskOK:
			result.SuccessCount++
		case ingestrun.TaskSkipped:
			result.SkippedCount++
		default:
			result.FailedCount++
		}
	}

	return result
}

func (s *RefreshService) resolveTargetSeasons(ctx context.Context, requested []int64) ([]int64, error) {
	if len(requested) > 0 {
		seen := make(map[int64]struct{}, len(requested))
		out := make([]int64, 0, len(requested))
		for _, seasonID := range requested {
			if seasonID <= 0 {
				return nil, fmt.Errorf("%w: season ids must be greater than zero", ErrInvalidInput)
			}
			if _, ok := seen[seasonID]; ok {
				continue
			}
			seen[seasonID] = struct{}{}
			out = append(out, seasonID)
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out, nil
	}

	seasons, err := s.seasonRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	out := make([]int64, 0, len(seasons))
	for _, item := range seasons {
		out = append(out, item.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func buildRefreshTasks(categories []string, seasons []int64) []refreshTask {
	tasks := make([]refreshTask, 0, len(categories)*len(seasons))
	for _, category := range categories {
		switch category {
		case CategorySeasons:
			// Already run ahead of the grid.
		case CategoryArchivePlayers, CategoryArchiveEvents:
			tasks = append(tasks, refreshTask{category: category})
		default:
			for _, seasonID := range seasons {
				sid := seasonID
				tasks = append(tasks, refreshTask{category: category, seasonID: &sid})
			}
		}
	}
	return tasks
}

// categoryWriteKey names the table a category's apply stage upserts into.
// Categories sharing a key share one apply lock, keeping every table
// single-writer. Rosters, the stat stub path, and the archive biography
// reconciliation all write players: a stat line for a player the roster sync
// has not landed yet creates a minimal row through the same upsert, and two
// of those writers interleaving would let the sparse row land last.
func categoryWriteKey(category string) string {
	switch category {
	case CategoryRosters, CategorySkaterStats, CategoryGoalieStats, CategoryArchivePlayers:
		return "players"
	default:
		return category
	}
}

// splitEventWave separates archive event tasks from the entity categories
// they depend on.
func splitEventWave(tasks []refreshTask) (entities, events []refreshTask) {
	for _, task := range tasks {
		if task.category == CategoryArchiveEvents {
			events = append(events, task)
			continue
		}
		entities = append(entities, task)
	}
	return entities, events
}

// normalizeRefreshCategories dedupes and validates the requested categories,
// returning them in canonical apply order plus whether the derive stage was
// requested. Empty input selects everything.
func normalizeRefreshCategories(raw []string) ([]string, bool, error) {
	if len(raw) == 0 {
		return append([]string(nil), ingestCategoryOrder...), true, nil
	}

	requested := make(map[string]struct{}, len(raw))
	derive := false
	for _, item := range raw {
		category, ok := toRefreshCategory(item)
		if !ok {
			return nil, false, fmt.Errorf("%w: unsupported category %q", ErrInvalidInput, item)
		}
		if category == CategoryDerive {
			derive = true
			continue
		}
		requested[category] = struct{}{}
	}

	out := make([]string, 0, len(requested))
	for _, category := range ingestCategoryOrder {
		if _, ok := requested[category]; ok {
			out = append(out, category)
		}
	}
	if len(out) == 0 && !derive {
		return nil, false, fmt.Errorf("%w: categories are required", ErrInvalidInput)
	}
	return out, derive, nil
}

func toRefreshCategory(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "seasons", "season":
		return CategorySeasons, true
	case "teams", "team":
		return CategoryTeams, true
	case "rosters", "roster":
		return CategoryRosters, true
	case "schedule", "games", "game":
		return CategorySchedule, true
	case "skater_stats", "skaters", "skater":
		return CategorySkaterStats, true
	case "goalie_stats", "goalies", "goalie":
		return CategoryGoalieStats, true
	case "standings", "standing":
		return CategoryStandings, true
	case "archive_players":
		return CategoryArchivePlayers, true
	case "archive_events", "events":
		return CategoryArchiveEvents, true
	case "derive", "derived":
		return CategoryDerive, true
	default:
		return "", false
	}
}

func containsCategory(categories []string, target string) bool {
	for _, category := range categories {
		if category == target {
			return true
		}
	}
	return false
}

// normalizeRefreshWorkers caps the pool so external sources never see more
// than four concurrent fetches.
func normalizeRefreshWorkers(value, taskCount int) int {
	if value <= 0 {
		value = runtime.NumCPU()
	}
	if value > 4 {
		value = 4
	}
	if taskCount > 0 && value > taskCount {
		value = taskCount
	}
	if value < 1 {
		value = 1
	}
	return value
}

func runStatus(succeeded, failed, skipped, anomalies int) string {
	switch {
	case failed > 0 && succeeded == 0 && skipped == 0:
		return ingestrun.StatusFailed
	case failed > 0 || anomalies > 0:
		return ingestrun.StatusDegraded
	default:
		return ingestrun.StatusSucceeded
	}
}

func failedCategories(rows []ingestrun.TaskResult) []string {
	total := make(map[string]int)
	failed := make(map[string]int)
	for _, row := range rows {
		total[row.Category]++
		if row.Status == ingestrun.TaskFailed {
			failed[row.Category]++
		}
	}

	out := make([]string, 0)
	for category, count := range total {
		if count > 0 && failed[category] == count {
			out = append(out, category)
		}
	}
	sort.Strings(out)
	return out
}

func stampAnomalies(anomalies []ingestrun.Anomaly, runID, category string, seasonID *int64) {
	for i := range anomalies {
		anomalies[i].RunID = runID
		if anomalies[i].Category == "" {
			anomalies[i].Category = category
		}
		if anomalies[i].SeasonID == nil {
			anomalies[i].SeasonID = seasonID
		}
	}
}

func taskEntityKey(task refreshTask) string {
	if task.seasonID != nil {
		return fmt.Sprintf("%s:season:%d", task.category, *task.seasonID)
	}
	return task.category
}

var categoryRank = func() map[string]int {
	ranks := make(map[string]int, len(ingestCategoryOrder)+1)
	for i, category := range ingestCategoryOrder {
		ranks[category] = i
	}
	ranks[CategoryDerive] = len(ingestCategoryOrder)
	return ranks
}()

func sortTaskRows(rows []ingestrun.TaskResult) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return categoryRank[rows[i].Category] < categoryRank[rows[j].Category]
		}
		left, right := int64(0), int64(0)
		if rows[i].SeasonID != nil {
			left = *rows[i].SeasonID
		}
		if rows[j].SeasonID != nil {
			right = *rows[j].SeasonID
		}
		return left < right
	})
}
