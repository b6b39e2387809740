package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mealmapp/internal/recipe"

	"go.uber.org/zap"
)

var (
	// ErrNoRecipes is returned when neither the user nor linked users have recipes.
	ErrNoRecipes = errors.New("no recipes available")
	// ErrNoEnabledMeals is returned when preferences enable no meal slot.
	ErrNoEnabledMeals = errors.New("no enabled meals in preferences")
)

// Novelty stages, from strictest to most permissive.
const (
	StageFresh = iota
	StageNotToday
	StageAny
	stageCount
)

// Request carries everything a generation run reads.
type Request struct {
	UserID      string
	Recipes     []recipe.Recipe
	Preferences Preferences
	Profile     *Profile
}

// Result is the outcome of a generation run.
type Result struct {
	Grid          WeeklyMenu
	Filled        int
	Total         int
	StageCounts   [stageCount]int
	FallbackPicks int
	BudgetSpent   float64
	Shared        bool
	Duration      time.Duration
}

// Partial reports whether some slots stayed empty.
func (r *Result) Partial() bool {
	return r.Filled < r.Total
}

// Generator builds weekly menus.
type Generator struct {
	rng RandomSource
	log *zap.Logger
}

// NewGenerator creates a new Generator drawing randomness from rng.
func NewGenerator(rng RandomSource, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	if rng == nil {
		rng = NewRandomSource(0)
	}
	return &Generator{rng: &lockedSource{src: rng}, log: log}
}

// Generate fills a fresh 7-day grid. It returns ErrNoRecipes when the pool is
// empty, which takes precedence over ErrNoEnabledMeals, and the context error
// when ctx is cancelled mid-run.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	base := buildPool(req)
	if len(base) == 0 {
		return nil, ErrNoRecipes
	}

	meals := req.Preferences.EnabledMeals()
	if len(meals) == 0 {
		return nil, ErrNoEnabledMeals
	}

	r := newRun(g.rng, req, meals, base)
	for day := 0; day < DaysPerWeek; day++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("menu generation cancelled: %w", err)
		}
		r.fillDay(day)
	}

	res := r.result()
	res.Duration = time.Since(start)
	g.log.Info("weekly menu generated",
		zap.String("user_id", req.UserID),
		zap.Int("filled", res.Filled),
		zap.Int("total", res.Total),
		zap.Ints("stage_counts", res.StageCounts[:]),
		zap.Int("fallback_picks", res.FallbackPicks),
		zap.Float64("budget_spent", res.BudgetSpent),
		zap.Bool("shared", res.Shared),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// buildPool merges own and linked recipes, first occurrence of an id wins.
// Recipes without an owner are attributed to the requesting user.
func buildPool(req Request) []*recipe.Recipe {
	seen := make(map[string]bool)
	var pool []*recipe.Recipe
	add := func(list []recipe.Recipe) {
		for _, rec := range list {
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			if rec.SourceUserID == "" {
				rec.SourceUserID = req.UserID
			}
			pool = append(pool, &rec)
		}
	}
	add(req.Recipes)
	if req.Preferences.CommonMenuSettings.Enabled {
		add(req.Preferences.CommonMenuSettings.LinkedUserRecipes)
	}
	return pool
}

// run is one generation in progress.
type run struct {
	rng       RandomSource
	prefs     Preferences
	meals     []MealSlot
	planned   int
	base      []*recipe.Recipe
	rolling   []*recipe.Recipe
	schedule  []string
	catalog   map[string]int
	state     *schedulerState
	grid      WeeklyMenu
	total     int
	filled    int
	stages    [stageCount]int
	fallbacks int
	scorer    scorer
}

func newRun(rng RandomSource, req Request, meals []MealSlot, pool []*recipe.Recipe) *run {
	total := DaysPerWeek * len(meals)
	base := Shuffle(rng, pool)

	catalogSets := make(map[string]map[string]bool)
	for _, rec := range base {
		if catalogSets[rec.SourceUserID] == nil {
			catalogSets[rec.SourceUserID] = make(map[string]bool)
		}
		catalogSets[rec.SourceUserID][rec.BaseID()] = true
	}
	catalog := make(map[string]int, len(catalogSets))
	for owner, ids := range catalogSets {
		catalog[owner] = len(ids)
	}

	prefs := req.Preferences
	participants := prefs.SharedParticipants()
	ratios := make(map[string]float64, len(participants))
	var ratioSum float64
	for _, p := range participants {
		ratios[p.ID] = ratioOf(p)
		ratioSum += ratioOf(p)
	}

	planned := prefs.PlannedServings(req.Profile)
	state := newSchedulerState()
	r := &run{
		rng:      rng,
		prefs:    prefs,
		meals:    meals,
		planned:  planned,
		base:     base,
		rolling:  Shuffle(rng, base),
		schedule: BuildSchedule(rng, participants, total),
		catalog:  catalog,
		state:    state,
		grid:     newWeeklyMenu(len(meals)),
		total:    total,
		scorer: scorer{
			rng:            rng,
			state:          state,
			dailyTarget:    prefs.DailyCalorieTarget(),
			targetPerSlot:  prefs.DailyCalorieTarget() / float64(len(meals)),
			planned:        planned,
			weeklyBudget:   prefs.WeeklyBudget,
			tagPreferences: prefs.TagPreferences,
			ratios:         ratios,
			ratioSum:       ratioSum,
			linkedCount:    len(participants),
		},
	}
	if prefs.WeeklyBudget > 0 {
		r.scorer.avgPerSlot = prefs.WeeklyBudget / float64(total)
	}
	return r
}

func (r *run) fillDay(day int) {
	r.state.startDay()
	for i, meal := range r.meals {
		slotIndex := day*len(r.meals) + i
		target := ""
		if slotIndex < len(r.schedule) {
			target = r.schedule[slotIndex]
		}
		r.fillSlot(day, i, meal, target)
	}
}

func (r *run) fillSlot(day, index int, meal MealSlot, target string) {
	r.replenish()

	typed := ofType(meal.MealTypes)
	sources := []candidateSource{}
	if target != "" {
		sources = append(sources, from(r.rolling, both(typed, ownedBy(target))))
	}
	sources = append(sources,
		from(r.rolling, typed),
		from(r.base, typed),
		from(r.base, all),
	)
	eligible, _ := firstNonEmpty(sources...)

	cands, stage := firstNonEmpty(
		from(eligible, func(rec *recipe.Recipe) bool {
			return r.exhausted(rec) || (!r.state.isUsedToday(rec) && r.state.timesUsed(rec) < usageCap)
		}),
		from(eligible, func(rec *recipe.Recipe) bool {
			return r.exhausted(rec) || !r.state.isUsedToday(rec)
		}),
		from(eligible, all),
	)

	cands = narrow(cands, func(rec *recipe.Recipe) bool { return !r.state.usedByOwner(rec) })

	if r.prefs.WeeklyBudget > 0 {
		remaining := r.prefs.WeeklyBudget - r.state.weeklySpend
		cands = narrow(cands, func(rec *recipe.Recipe) bool {
			cost, ok := rec.MealCost(r.planned)
			return ok && cost <= remaining
		})
	}

	r.scorer.firstSlot = index == 0
	winner := r.scorer.best(cands)
	if winner == nil {
		fallback, _ := firstNonEmpty(from(r.base, typed), from(r.base, all))
		if len(fallback) == 0 {
			return
		}
		winner = fallback[r.rng.IntN(len(fallback))]
		r.fallbacks++
		stage = StageAny
	} else {
		r.stages[stage]++
	}
	r.commit(day, index, meal, winner, stage)
}

// replenish refills the rolling pool once it runs dry.
func (r *run) replenish() {
	if len(r.rolling) > 0 {
		return
	}
	fresh := keep(r.base, func(rec *recipe.Recipe) bool {
		return r.state.timesUsed(rec) < usageCap && !r.state.isUsedToday(rec)
	})
	if len(fresh) == 0 {
		fresh = r.base
	}
	r.rolling = Shuffle(r.rng, fresh)
}

// exhausted reports whether the owner of rec has already used every distinct
// recipe they contributed.
func (r *run) exhausted(rec *recipe.Recipe) bool {
	return r.state.distinctUsedBy(rec.SourceUserID) >= r.catalog[rec.SourceUserID]
}

func (r *run) commit(day, index int, meal MealSlot, rec *recipe.Recipe, stage int) {
	cost, priced := rec.MealCost(r.planned)
	usage := r.state.record(rec, rec.ScaledCalories(r.planned), cost, priced)

	r.grid.Days[day].Slots[index] = Slot{Recipe: &PlannedRecipe{
		Recipe:          *rec,
		MealNumber:      meal.MealNumber,
		PlannedServings: r.planned,
	}}
	r.filled++

	r.rolling = removeInstance(r.rolling, rec)
	if usage > 1 && (usage <= usageCap || stage > StageFresh) {
		r.rolling = append(r.rolling, rec)
	}
}

func (r *run) result() *Result {
	return &Result{
		Grid:          r.grid,
		Filled:        r.filled,
		Total:         r.total,
		StageCounts:   r.stages,
		FallbackPicks: r.fallbacks,
		BudgetSpent:   r.state.weeklySpend,
		Shared:        len(r.schedule) > 0,
	}
}
