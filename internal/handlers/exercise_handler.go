package handlers

import (
	"net/http"

	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// ExerciseHandler serves practice prompts
type ExerciseHandler struct {
	exerciseRepository repositories.ExerciseRepository
}

// NewExerciseHandler creates a new ExerciseHandler
func NewExerciseHandler(exerciseRepo repositories.ExerciseRepository) *ExerciseHandler {
	return &ExerciseHandler{exerciseRepository: exerciseRepo}
}

// RegisterExerciseRoutes registers practice routes
func (h *ExerciseHandler) RegisterExerciseRoutes(g *echo.Group) {
	g.GET("/exercises", h.ListExercises)
	g.GET("/exercises/random", h.RandomExercise)
}

func (h *ExerciseHandler) ListExercises(c echo.Context) error {
	exercises, err := h.exerciseRepository.GetExercises()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, http.StatusOK, exercises)
}

// RandomExercise picks one prompt; 404 when none exist
func (h *ExerciseHandler) RandomExercise(c echo.Context) error {
	exercise, err := h.exerciseRepository.GetRandomExercise()
	if err != nil {
		return storeError(err)
	}
	return respond(c, http.StatusOK, exercise)
}
