package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"mastery-service/internal/middleware"
	"mastery-service/internal/models"
	"mastery-service/internal/services"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type AdaptiveHandler struct {
	adaptiveService *services.AdaptiveService
	masteryService  *services.MasteryService
}

func NewAdaptiveHandler(adaptiveService *services.AdaptiveService, masteryService *services.MasteryService) *AdaptiveHandler {
	return &AdaptiveHandler{
		adaptiveService: adaptiveService,
		masteryService:  masteryService,
	}
}

func (h *AdaptiveHandler) RegisterRoutes(app *fiber.App) {
	// All adaptive learning routes are protected and require permissions
	protectedGroup := app.Group("/protected/adaptive")

	// Interaction recording - write permission
	protectedGroup.Post("/interactions", h.RecordInteraction, middleware.PermissionRequired(middleware.WriteAdaptivePermission))

	// Recommendation queries - read permission
	protectedGroup.Get("/student/:studentID/next-module", h.GetNextModule, middleware.PermissionRequired(middleware.ReadAdaptivePermission))
	protectedGroup.Get("/student/:studentID/review-queue", h.GetReviewQueue, middleware.PermissionRequired(middleware.ReadAdaptivePermission))
	protectedGroup.Get("/student/:studentID/diagnostic", h.GetDiagnosticAssessment, middleware.PermissionRequired(middleware.ReadAdaptivePermission))
	protectedGroup.Get("/student/:studentID/module/:moduleID/access", h.CanAccessModule, middleware.PermissionRequired(middleware.ReadAdaptivePermission))
	protectedGroup.Get("/student/:studentID/remedial", h.GetRemedialContent, middleware.PermissionRequired(middleware.ReadAdaptivePermission))
	protectedGroup.Get("/student/:studentID/attention", h.GetSkillsNeedingAttention, middleware.PermissionRequired(middleware.ReadAdaptivePermission))
	protectedGroup.Get("/student/:studentID/mastered", h.GetMasteredSkills, middleware.PermissionRequired(middleware.ReadAdaptivePermission))

	// Analytics queries - read permission
	protectedGroup.Get("/student/:studentID/statistics", h.GetLearningStatistics, middleware.PermissionRequired(middleware.ReadAdaptivePermission))
	protectedGroup.Get("/student/:studentID/velocity", h.GetVelocityTrends, middleware.PermissionRequired(middleware.ReadAdaptivePermission))
	protectedGroup.Get("/student/:studentID/interactions", h.GetRecentInteractions, middleware.PermissionRequired(middleware.ReadAdaptivePermission))
}

func (h *AdaptiveHandler) RecordInteraction(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var body struct {
		StudentID        string  `json:"studentId"`
		SubjectID        string  `json:"subjectId"`
		ModuleID         string  `json:"moduleId"`
		SkillKey         string  `json:"skillKey"`
		SkillName        string  `json:"skillName"`
		Outcome          string  `json:"outcome"`
		Difficulty       string  `json:"difficulty"`
		Score            float64 `json:"score"`
		TimeTakenSeconds int     `json:"timeTakenSeconds"`
		HintsUsed        int     `json:"hintsUsed"`
		QuestionType     string  `json:"questionType"`
		ConfidenceLevel  int     `json:"confidenceLevel"`
		Notes            string  `json:"notes"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	studentID, err := bson.ObjectIDFromHex(body.StudentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID format",
		})
	}

	req := &services.RecordInteractionRequest{
		OwnerID:          ownerID,
		StudentID:        studentID,
		SkillKey:         body.SkillKey,
		SkillName:        body.SkillName,
		Outcome:          models.Outcome(body.Outcome),
		Difficulty:       models.DifficultyLevel(body.Difficulty),
		Score:            body.Score,
		TimeTakenSeconds: body.TimeTakenSeconds,
		HintsUsed:        body.HintsUsed,
		QuestionType:     body.QuestionType,
		ConfidenceLevel:  body.ConfidenceLevel,
		Notes:            body.Notes,
	}
	if body.SubjectID != "" {
		subjectID, err := bson.ObjectIDFromHex(body.SubjectID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid subject ID format",
			})
		}
		req.SubjectID = subjectID
	}
	if body.ModuleID != "" {
		moduleID, err := bson.ObjectIDFromHex(body.ModuleID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid module ID format",
			})
		}
		req.ModuleID = moduleID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record, err := h.adaptiveService.RecordInteraction(ctx, req)
	if err != nil {
		log.Printf("Failed to record interaction: %v", err)

		if strings.Contains(err.Error(), "invalid") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if strings.Contains(err.Error(), "version conflict") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Concurrent update, please retry",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record interaction",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Interaction recorded successfully",
		"data": fiber.Map{
			"mastery": h.masteryService.ToSummary(record, time.Now()),
		},
	})
}

func (h *AdaptiveHandler) GetNextModule(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	subjectID, err := optionalSubjectID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid subject ID format",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	recommendation, err := h.adaptiveService.GetNextModule(ctx, ownerID, studentID, subjectID)
	if err != nil {
		log.Printf("Failed to get next module: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get next module",
		})
	}

	if recommendation == nil {
		return c.JSON(fiber.Map{
			"message": "No mastery data yet, start with a diagnostic assessment",
			"data": fiber.Map{
				"recommendation": nil,
			},
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"recommendation": recommendation,
		},
	})
}

func (h *AdaptiveHandler) GetReviewQueue(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	subjectID, err := optionalSubjectID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid subject ID format",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queue, err := h.adaptiveService.GetReviewQueue(ctx, ownerID, studentID, subjectID)
	if err != nil {
		log.Printf("Failed to get review queue: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get review queue",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"reviewQueue": queue,
			"count":       len(queue),
		},
	})
}

func (h *AdaptiveHandler) GetDiagnosticAssessment(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	subjectID, err := optionalSubjectID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid subject ID format",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	skills, err := h.adaptiveService.GetDiagnosticAssessment(ctx, ownerID, studentID, subjectID)
	if err != nil {
		log.Printf("Failed to get diagnostic assessment: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get diagnostic assessment",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"diagnosticSkills": skills,
			"count":            len(skills),
		},
	})
}

func (h *AdaptiveHandler) CanAccessModule(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	moduleID, err := bson.ObjectIDFromHex(c.Params("moduleID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid module ID format",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	canAccess, blocks, err := h.adaptiveService.CanAccessModule(ctx, ownerID, studentID, moduleID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Module not found",
			})
		}
		log.Printf("Failed to check module access: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check module access",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"canAccess":      canAccess,
			"blockingSkills": blocks,
		},
	})
}

func (h *AdaptiveHandler) GetRemedialContent(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	recommendations, err := h.adaptiveService.GetRemedialContent(ctx, ownerID, studentID)
	if err != nil {
		log.Printf("Failed to get remedial content: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get remedial content",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"remedialSkills": recommendations,
			"count":          len(recommendations),
		},
	})
}

func (h *AdaptiveHandler) GetSkillsNeedingAttention(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summaries, err := h.adaptiveService.GetSkillsNeedingAttention(ctx, ownerID, studentID)
	if err != nil {
		log.Printf("Failed to get skills needing attention: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get skills needing attention",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"skills": summaries,
			"count":  len(summaries),
		},
	})
}

func (h *AdaptiveHandler) GetMasteredSkills(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summaries, err := h.adaptiveService.GetMasteredSkills(ctx, ownerID, studentID)
	if err != nil {
		log.Printf("Failed to get mastered skills: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get mastered skills",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"skills": summaries,
			"count":  len(summaries),
		},
	})
}

func (h *AdaptiveHandler) GetLearningStatistics(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := h.adaptiveService.GetLearningStatistics(ctx, ownerID, studentID)
	if err != nil {
		log.Printf("Failed to get learning statistics: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get learning statistics",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"statistics": stats,
		},
	})
}

func (h *AdaptiveHandler) GetVelocityTrends(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	trends, err := h.adaptiveService.GetVelocityTrends(ctx, ownerID, studentID)
	if err != nil {
		log.Printf("Failed to get velocity trends: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get velocity trends",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"velocityTrends": trends,
		},
	})
}

func (h *AdaptiveHandler) GetRecentInteractions(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	interactions, err := h.adaptiveService.GetRecentInteractions(ctx, ownerID, studentID, int64(limit))
	if err != nil {
		log.Printf("Failed to get recent interactions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get recent interactions",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"interactions": interactions,
			"count":        len(interactions),
		},
	})
}

func (h *AdaptiveHandler) scope(c fiber.Ctx) (bson.ObjectID, bson.ObjectID, error) {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return bson.ObjectID{}, bson.ObjectID{}, err
	}
	studentID, err := bson.ObjectIDFromHex(c.Params("studentID"))
	if err != nil {
		return bson.ObjectID{}, bson.ObjectID{}, err
	}
	return ownerID, studentID, nil
}

func optionalSubjectID(c fiber.Ctx) (*bson.ObjectID, error) {
	raw := c.Query("subjectId")
	if raw == "" {
		return nil, nil
	}
	parsed, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
