package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mealmapp/internal/clipper"
	"mealmapp/internal/config"
	"mealmapp/internal/database"
	"mealmapp/internal/ghost"
	"mealmapp/internal/llm"
	"mealmapp/internal/metrics"
	"mealmapp/internal/planner"
	"mealmapp/internal/recipe"
	"mealmapp/internal/shopping"

	"go.uber.org/zap"
)

var (
	// ErrEstimatorDisabled is returned when no LLM is configured.
	ErrEstimatorDisabled = errors.New("estimator is not configured")
	// ErrGhostDisabled is returned when no Ghost blog is configured.
	ErrGhostDisabled = errors.New("ghost blog is not configured")
	// ErrInvalidRecipe is returned for recipes without a name.
	ErrInvalidRecipe = errors.New("recipe name is required")
)

// Outcomes recorded for each menu generation.
const (
	OutcomeSuccess    = "success"
	OutcomePartial    = "partial"
	OutcomeError      = "error"
	OutcomeInProgress = "in_progress"
)

// App holds the application's dependencies.
type App struct {
	cfg *config.Config
	log *zap.Logger

	recipeRepo   *recipe.Repository
	prefsRepo    *planner.PreferencesRepository
	menuRepo     *planner.MenuRepository
	shoppingRepo *shopping.Repository
	metricsStore *metrics.Store
	collector    *metrics.Collector

	mealPlanner   *planner.Planner
	estimator     *recipe.Estimator
	recipeClipper *clipper.Clipper
	ghostClient   ghost.Client

	now             func() time.Time
	estimateBackoff time.Duration
}

// NewApp creates and initializes a new App instance. textGen may be nil, in
// which case estimation and LLM-assisted clipping are disabled.
func NewApp(cfg *config.Config, db *database.DB, textGen llm.TextGenerator, collector *metrics.Collector, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}

	var estimator *recipe.Estimator
	var completer clipper.Completer
	if textGen != nil {
		estimator = recipe.NewEstimator(textGen, "")
		completer = estimator
	}

	var ghostClient ghost.Client
	if cfg.GhostEnabled() {
		ghostClient = ghost.NewClient(cfg)
	}

	gen := planner.NewGenerator(planner.NewRandomSource(cfg.PlannerSeed), log.Named("generator"))

	return &App{
		cfg:             cfg,
		log:             log,
		recipeRepo:      recipe.NewRepository(db.SQL, log.Named("recipes")),
		prefsRepo:       planner.NewPreferencesRepository(db.SQL, cfg.DefaultServingsPerMeal),
		menuRepo:        planner.NewMenuRepository(db.SQL),
		shoppingRepo:    shopping.NewRepository(db.SQL),
		metricsStore:    metrics.NewStore(db.SQL),
		collector:       collector,
		mealPlanner:     planner.NewPlanner(gen, log.Named("planner")),
		estimator:       estimator,
		recipeClipper:   clipper.NewClipper(textGen, completer, log.Named("clipper")),
		ghostClient:     ghostClient,
		now:             time.Now,
		estimateBackoff: 4 * time.Second, // Gemini free tier allows 15 RPM
	}
}

// GenerateWeeklyMenu plans next week's menu for userID, stores it together
// with its shopping list and returns the stored menu.
func (a *App) GenerateWeeklyMenu(ctx context.Context, userID string, notifier planner.Notifier) (*planner.Menu, error) {
	req, err := a.buildRequest(ctx, userID)
	if err != nil {
		return nil, err
	}

	weekStart := planner.NextMonday(a.now())
	var menu *planner.Menu
	set := func(ctx context.Context, res *planner.Result) error {
		id, err := a.menuRepo.Save(ctx, userID, weekStart, res.Grid)
		if err != nil {
			return err
		}
		menu = &planner.Menu{ID: id, UserID: userID, WeekStart: weekStart, Grid: res.Grid, CreatedAt: a.now().UTC()}

		list := &shopping.ShoppingList{UserID: userID, MenuID: id, Items: shopping.Build(res.Grid)}
		if _, err := a.shoppingRepo.Save(ctx, list); err != nil {
			a.log.Warn("failed to save shopping list", zap.String("user_id", userID), zap.Int64("menu_id", id), zap.Error(err))
		}
		return nil
	}

	start := time.Now()
	res, err := a.mealPlanner.Run(ctx, userID, req, set, notifier)
	a.recordGeneration(ctx, userID, res, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return menu, nil
}

func (a *App) buildRequest(ctx context.Context, userID string) (planner.Request, error) {
	prefs, err := a.prefsRepo.GetPreferences(ctx, userID)
	if err != nil {
		return planner.Request{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	profile, err := a.prefsRepo.GetProfile(ctx, userID)
	if err != nil {
		return planner.Request{}, fmt.Errorf("failed to load profile: %w", err)
	}
	own, err := a.recipeRepo.ListByUser(ctx, userID)
	if err != nil {
		return planner.Request{}, fmt.Errorf("failed to load recipes: %w", err)
	}

	var linkedIDs []string
	for _, u := range prefs.SharedParticipants() {
		if u.ID != "" && u.ID != userID {
			linkedIDs = append(linkedIDs, u.ID)
		}
	}
	if len(linkedIDs) > 0 {
		linked, err := a.recipeRepo.ListByUsers(ctx, linkedIDs)
		if err != nil {
			return planner.Request{}, fmt.Errorf("failed to load linked recipes: %w", err)
		}
		prefs.CommonMenuSettings.LinkedUserRecipes = linked
	}

	return planner.Request{UserID: userID, Recipes: own, Preferences: prefs, Profile: profile}, nil
}

func (a *App) recordGeneration(ctx context.Context, userID string, res *planner.Result, runErr error, elapsed time.Duration) {
	m := metrics.GenerationMetric{UserID: userID, Outcome: OutcomeSuccess, LatencyMS: elapsed.Milliseconds()}
	switch {
	case errors.Is(runErr, planner.ErrGenerationInProgress):
		m.Outcome = OutcomeInProgress
	case runErr != nil:
		m.Outcome = OutcomeError
	case res.Partial():
		m.Outcome = OutcomePartial
	}
	if res != nil {
		m.FilledSlots = res.Filled
		m.TotalSlots = res.Total
		m.StageCounts = res.StageCounts[:]
		m.FallbackPicks = res.FallbackPicks
		m.BudgetSpent = res.BudgetSpent
		m.Shared = res.Shared
	}

	a.collector.ObserveGeneration(m)
	// Recorded with a fresh context so cancelled runs still show up.
	if err := a.metricsStore.RecordGeneration(context.WithoutCancel(ctx), m); err != nil {
		a.log.Warn("failed to record generation metric", zap.Error(err))
	}
}

// LatestMenu returns the most recent menu of userID.
func (a *App) LatestMenu(ctx context.Context, userID string) (*planner.Menu, error) {
	return a.menuRepo.Latest(ctx, userID)
}

// MenuExistsForNextWeek reports whether userID already has a menu for the
// week GenerateWeeklyMenu would plan, and that week's Monday.
func (a *App) MenuExistsForNextWeek(ctx context.Context, userID string) (bool, time.Time, error) {
	weekStart := planner.NextMonday(a.now())
	exists, err := a.menuRepo.ExistsForWeek(ctx, userID, weekStart)
	return exists, weekStart, err
}

// LatestShoppingList returns the shopping list of the most recent menu.
func (a *App) LatestShoppingList(ctx context.Context, userID string) (*shopping.ShoppingList, error) {
	return a.shoppingRepo.LatestByUser(ctx, userID)
}

// Preferences returns the stored preferences of userID.
func (a *App) Preferences(ctx context.Context, userID string) (planner.Preferences, error) {
	return a.prefsRepo.GetPreferences(ctx, userID)
}

// SavePreferences stores the preferences of userID.
func (a *App) SavePreferences(ctx context.Context, userID string, prefs planner.Preferences) error {
	return a.prefsRepo.SavePreferences(ctx, userID, prefs)
}

// Recipes lists the recipes owned by userID.
func (a *App) Recipes(ctx context.Context, userID string) ([]recipe.Recipe, error) {
	return a.recipeRepo.ListByUser(ctx, userID)
}

// AddRecipe stores a recipe for userID, assigning a local id when missing.
func (a *App) AddRecipe(ctx context.Context, userID string, rec recipe.Recipe) (*recipe.Recipe, error) {
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		return nil, ErrInvalidRecipe
	}
	if rec.ID == "" {
		rec.ID = recipe.NewLocalID()
	}
	rec.SourceUserID = userID
	rec.UpdatedAt = a.now().UTC().Format(time.RFC3339)

	if err := a.recipeRepo.Save(ctx, userID, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ClipRecipe imports the recipe found at url into userID's catalog.
func (a *App) ClipRecipe(ctx context.Context, userID, url string) (*recipe.Recipe, error) {
	res, err := a.recipeClipper.ClipURL(ctx, userID, url)
	if res != nil {
		for _, meta := range res.Metas {
			a.recordLLM(ctx, metrics.MapUsage(meta.AgentName, meta.Usage, meta.Latency), nil)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := a.recipeRepo.Save(ctx, userID, res.Recipe); err != nil {
		return nil, err
	}
	a.log.Info("recipe clipped", zap.String("user_id", userID), zap.String("recipe_id", res.Recipe.ID), zap.String("url", url))
	return &res.Recipe, nil
}

// EstimateMissing fills in calories and prices of userID's recipes that lack
// them. It returns the number of recipes updated.
func (a *App) EstimateMissing(ctx context.Context, userID string) (int, error) {
	if a.estimator == nil {
		return 0, ErrEstimatorDisabled
	}

	recipes, err := a.recipeRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	updated := 0
	first := true
	for _, rec := range recipes {
		if !rec.NeedsEstimate() {
			continue
		}
		if !first && a.estimateBackoff > 0 {
			select {
			case <-ctx.Done():
				return updated, ctx.Err()
			case <-time.After(a.estimateBackoff):
			}
		}
		first = false

		completed, meta, err := a.estimator.Complete(ctx, rec)
		a.recordLLM(ctx, metrics.MapUsage(meta.AgentName, meta.Usage, meta.Latency), err)
		if err != nil {
			a.log.Warn("failed to estimate recipe", zap.String("recipe_id", rec.ID), zap.Error(err))
			continue
		}

		completed.UpdatedAt = a.now().UTC().Format(time.RFC3339)
		if err := a.recipeRepo.Save(ctx, userID, completed); err != nil {
			return updated, err
		}
		updated++
		a.log.Info("recipe estimated", zap.String("recipe_id", rec.ID), zap.Float64("calories", completed.Calories))
	}
	return updated, nil
}

func (a *App) recordLLM(ctx context.Context, m metrics.ExecutionMetric, callErr error) {
	a.collector.ObserveLLM(m.AgentName, m, callErr)
	if m.PromptTokens == 0 && m.CompletionTokens == 0 {
		return
	}
	if err := a.metricsStore.Record(ctx, m); err != nil {
		a.log.Warn("failed to record LLM metric", zap.String("agent", m.AgentName), zap.Error(err))
	}
}

// Usage returns LLM and generation totals for the last days.
func (a *App) Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return a.metricsStore.GetDailyUsage(ctx, days)
}

// Health reports process and database health.
func (a *App) Health() metrics.SysHealth {
	return metrics.GetSysHealth(a.cfg.DatabasePath)
}

// CleanupMetrics deletes metrics older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	return a.metricsStore.Cleanup(ctx, days)
}
