package api

import (
	"context"
	"errors"
	"net/http"

	"mealmapp/internal/app"
	"mealmapp/internal/clipper"
	"mealmapp/internal/planner"
	"mealmapp/internal/recipe"
	"mealmapp/internal/shopping"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type generateResponse struct {
	Menu    *planner.Menu `json:"menu"`
	Status  string        `json:"status"`
	Message string        `json:"message"`
}

type clipRequest struct {
	URL string `json:"url" binding:"required,url"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "system": s.svc.Health()})
}

func (s *Server) generateMenu(c *gin.Context) {
	var notice planner.Notice
	notifier := planner.NotifierFunc(func(_ context.Context, n planner.Notice) { notice = n })

	menu, err := s.svc.GenerateWeeklyMenu(c.Request.Context(), currentUser(c), notifier)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, generateResponse{Menu: menu, Status: string(notice.Kind), Message: notice.Message})
}

func (s *Server) latestMenu(c *gin.Context) {
	menu, err := s.svc.LatestMenu(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

func (s *Server) latestShoppingList(c *gin.Context) {
	list, err := s.svc.LatestShoppingList(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getPreferences(c *gin.Context) {
	prefs, err := s.svc.Preferences(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *Server) putPreferences(c *gin.Context) {
	var prefs planner.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if prefs.MaxCalories < 0 || prefs.WeeklyBudget < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_calories and weekly_budget must not be negative"})
		return
	}
	if err := s.svc.SavePreferences(c.Request.Context(), currentUser(c), prefs); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *Server) listRecipes(c *gin.Context) {
	recipes, err := s.svc.Recipes(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (s *Server) createRecipe(c *gin.Context) {
	var rec recipe.Recipe
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	saved, err := s.svc.AddRecipe(c.Request.Context(), currentUser(c), rec)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (s *Server) clipRecipe(c *gin.Context) {
	var req clipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid url is required"})
		return
	}
	saved, err := s.svc.ClipRecipe(c.Request.Context(), currentUser(c), req.URL)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// fail maps domain errors to status codes.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, planner.ErrGenerationInProgress):
		status = http.StatusConflict
	case errors.Is(err, planner.ErrNoRecipes), errors.Is(err, planner.ErrNoEnabledMeals),
		errors.Is(err, clipper.ErrNoRecipeData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, planner.ErrMenuNotFound), errors.Is(err, shopping.ErrNotFound),
		errors.Is(err, recipe.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrInvalidRecipe):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
