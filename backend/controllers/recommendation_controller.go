package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"project/backend/config"
	"project/backend/llm"
	"project/backend/models"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const recommendationCount = 2

type RecommendationController struct {
	DB  *gorm.DB
	Cfg *config.Config
	LLM llm.Client
}

func NewRecommendationController(db *gorm.DB, cfg *config.Config, client llm.Client) *RecommendationController {
	return &RecommendationController{DB: db, Cfg: cfg, LLM: client}
}

// courseProjection bounds the prompt size: only id, name and description of
// each catalog entry reach the model.
type courseProjection struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RecommendCourses ranks the catalog against the user's profile and returns
// exactly two course ids. Any malformed or out-of-catalog model output is a
// validation failure; there is no heuristic fallback.
func (rc *RecommendationController) RecommendCourses(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return utils.BadRequest(c, "Missing email")
	}

	var user models.User
	if err := rc.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.AppErrorResponse(c, utils.NotFoundError("User not found"))
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var catalog []courseProjection
	if err := rc.DB.Model(&models.Course{}).
		Select("id", "name", "description").
		Find(&catalog).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if len(catalog) < recommendationCount {
		return utils.AppErrorResponse(c, utils.ValidationFailure(
			fmt.Sprintf("catalog has %d courses, need at least %d", len(catalog), recommendationCount), ""))
	}

	catalogJSON, err := json.Marshal(catalog)
	if err != nil {
		return utils.InternalServerError(c, "Could not build catalog")
	}

	interests := renderInterests(user.Interests)
	prompt := fmt.Sprintf(recommendationPromptTemplate, user.Profession, interests, string(catalogJSON))

	reply, err := rc.LLM.Complete(c.UserContext(), rc.Cfg.LLMChatModel, []llm.Message{
		{Role: llm.RoleSystem, Content: recommendationSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return utils.AppErrorResponse(c, utils.GenerationFailure("recommendation failed", err))
	}

	ids, appErr := parseRecommendedIDs(reply, catalog)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	return c.JSON(fiber.Map{"recommendations": ids})
}

// parseRecommendedIDs extracts the first bracketed array from the reply and
// checks cardinality, distinctness and catalog membership. Returns the raw
// reply with every failure.
func parseRecommendedIDs(reply string, catalog []courseProjection) ([]uint, *utils.AppError) {
	raw := utils.ExtractJSONArray(reply)
	if raw == "" {
		return nil, utils.ValidationFailure("model reply contains no JSON array", reply)
	}

	var parsed []json.Number
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, utils.ValidationFailure("model reply is not an id array", reply)
	}
	if len(parsed) != recommendationCount {
		return nil, utils.ValidationFailure(
			fmt.Sprintf("expected exactly %d recommendations, got %d", recommendationCount, len(parsed)), reply)
	}

	known := make(map[uint]bool, len(catalog))
	for _, course := range catalog {
		known[course.ID] = true
	}

	seen := make(map[uint]bool, recommendationCount)
	ids := make([]uint, 0, recommendationCount)
	for _, number := range parsed {
		n, err := number.Int64()
		if err != nil || n <= 0 {
			return nil, utils.ValidationFailure("recommendation is not a course id", reply)
		}
		id := uint(n)
		if !known[id] {
			return nil, utils.ValidationFailure(
				fmt.Sprintf("recommended course %d is not in the catalog", id), reply)
		}
		if seen[id] {
			return nil, utils.ValidationFailure("recommendations contain a duplicate id", reply)
		}
		seen[id] = true
		ids = append(ids, id)
	}

	return ids, nil
}

func renderInterests(interestsJSON string) string {
	var interests []string
	if err := json.Unmarshal([]byte(interestsJSON), &interests); err != nil || len(interests) == 0 {
		return "none listed"
	}
	return strings.Join(interests, ", ")
}
