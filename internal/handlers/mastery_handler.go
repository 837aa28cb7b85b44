package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"mastery-service/internal/middleware"
	"mastery-service/internal/services"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type MasteryHandler struct {
	masteryService *services.MasteryService
}

func NewMasteryHandler(masteryService *services.MasteryService) *MasteryHandler {
	return &MasteryHandler{
		masteryService: masteryService,
	}
}

func (h *MasteryHandler) RegisterRoutes(app *fiber.App) {
	// All mastery routes are protected and require permissions
	protectedGroup := app.Group("/protected/mastery")

	protectedGroup.Get("/student/:studentID", h.GetStudentMastery, middleware.PermissionRequired(middleware.ReadMasteryPermission))
	protectedGroup.Get("/student/:studentID/skill/:skillKey", h.GetSkillMastery, middleware.PermissionRequired(middleware.ReadMasteryPermission))

	// Manual overrides - require elevated permissions
	protectedGroup.Post("/student/:studentID/skill/:skillKey/adjust", h.AdjustMastery, middleware.RequireAnyPermission(middleware.AdminPermission, middleware.ManagerPermission, middleware.AdjustMasteryPermission))
	protectedGroup.Post("/student/:studentID/skill/:skillKey/reset", h.ResetSkillMastery, middleware.RequireAnyPermission(middleware.AdminPermission, middleware.ManagerPermission, middleware.ResetMasteryPermission))

	// Maintenance operations - admin only
	protectedGroup.Post("/decay/sweep", h.RunDecaySweep, middleware.PermissionRequired(middleware.AdminPermission))
}

func (h *MasteryHandler) GetStudentMastery(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	studentID, err := bson.ObjectIDFromHex(c.Params("studentID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID format",
		})
	}

	if !canReadStudent(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Cannot read another student's mastery data",
		})
	}

	var subjectID *bson.ObjectID
	if raw := c.Query("subjectId"); raw != "" {
		parsed, err := bson.ObjectIDFromHex(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid subject ID format",
			})
		}
		subjectID = &parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summaries, err := h.masteryService.GetStudentMastery(ctx, ownerID, studentID, subjectID)
	if err != nil {
		log.Printf("Failed to get student mastery: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get student mastery",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"skills": summaries,
			"count":  len(summaries),
		},
	})
}

func (h *MasteryHandler) GetSkillMastery(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	studentID, err := bson.ObjectIDFromHex(c.Params("studentID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID format",
		})
	}

	if !canReadStudent(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Cannot read another student's mastery data",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record, err := h.masteryService.GetSkillMastery(ctx, ownerID, studentID, c.Params("skillKey"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Mastery record not found",
			})
		}
		log.Printf("Failed to get skill mastery: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get skill mastery",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"mastery": h.masteryService.ToSummary(record, time.Now()),
		},
	})
}

func (h *MasteryHandler) AdjustMastery(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	studentID, err := bson.ObjectIDFromHex(c.Params("studentID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID format",
		})
	}

	var body struct {
		MasteryLevel float64 `json:"masteryLevel"`
		Reason       string  `json:"reason"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record, err := h.masteryService.AdjustMastery(ctx, ownerID, studentID, c.Params("skillKey"), body.MasteryLevel, body.Reason)
	if err != nil {
		log.Printf("Failed to adjust mastery: %v", err)

		if strings.Contains(err.Error(), "invalid") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Mastery record not found",
			})
		}
		if strings.Contains(err.Error(), "version conflict") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Concurrent update, please retry",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to adjust mastery",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Mastery adjusted successfully",
		"data": fiber.Map{
			"mastery": h.masteryService.ToSummary(record, time.Now()),
		},
	})
}

func (h *MasteryHandler) ResetSkillMastery(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	studentID, err := bson.ObjectIDFromHex(c.Params("studentID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID format",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record, err := h.masteryService.ResetSkillMastery(ctx, ownerID, studentID, c.Params("skillKey"))
	if err != nil {
		log.Printf("Failed to reset mastery: %v", err)

		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Mastery record not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reset mastery",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Mastery reset successfully",
		"data": fiber.Map{
			"mastery": h.masteryService.ToSummary(record, time.Now()),
		},
	})
}

// canReadStudent gates cross-student reads on the gateway identity headers
func canReadStudent(c fiber.Ctx) bool {
	return middleware.CanReadStudent(
		middleware.CurrentUserID(c),
		c.Get(middleware.HeaderPermissions),
		c.Params("studentID"),
	)
}

func (h *MasteryHandler) RunDecaySweep(c fiber.Ctx) error {
	inactiveDays, err := strconv.Atoi(c.Query("inactiveDays", "7"))
	if err != nil || inactiveDays <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "inactiveDays must be positive",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	decayed, err := h.masteryService.ApplyDecayToInactiveSkills(ctx, inactiveDays)
	if err != nil {
		log.Printf("Failed to run decay sweep: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to run decay sweep",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Decay sweep completed",
		"data": fiber.Map{
			"decayedRecords": decayed,
		},
	})
}
