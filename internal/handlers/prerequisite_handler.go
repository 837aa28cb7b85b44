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

type PrerequisiteHandler struct {
	prereqService *services.PrerequisiteService
}

func NewPrerequisiteHandler(prereqService *services.PrerequisiteService) *PrerequisiteHandler {
	return &PrerequisiteHandler{
		prereqService: prereqService,
	}
}

func (h *PrerequisiteHandler) RegisterRoutes(app *fiber.App) {
	// All prerequisite routes are protected and require permissions
	protectedGroup := app.Group("/protected/prerequisites")

	// Edge management - write permission
	protectedGroup.Post("/", h.CreatePrerequisite, middleware.PermissionRequired(middleware.WritePrerequisitePermission))
	protectedGroup.Delete("/skill/:skillKey/prerequisite/:prereqKey", h.RemovePrerequisite, middleware.PermissionRequired(middleware.WritePrerequisitePermission))

	// Graph queries - read permission
	protectedGroup.Get("/skill/:skillKey", h.GetPrerequisites, middleware.PermissionRequired(middleware.ReadPrerequisitePermission))
	protectedGroup.Get("/skill/:skillKey/chain", h.GetPrerequisiteChain, middleware.PermissionRequired(middleware.ReadPrerequisitePermission))
	protectedGroup.Get("/skill/:skillKey/dependents", h.GetDependents, middleware.PermissionRequired(middleware.ReadPrerequisitePermission))
	protectedGroup.Get("/subject/:subjectID/learning-order", h.GetRecommendedLearningOrder, middleware.PermissionRequired(middleware.ReadPrerequisitePermission))
	protectedGroup.Get("/subject/:subjectID/bottlenecks", h.FindPrerequisiteBottlenecks, middleware.PermissionRequired(middleware.ReadPrerequisitePermission))

	// Student gating checks - read permission
	protectedGroup.Get("/student/:studentID/skill/:skillKey/check", h.CheckPrerequisites, middleware.PermissionRequired(middleware.ReadPrerequisitePermission))
	protectedGroup.Get("/student/:studentID/skill/:skillKey/blocking", h.GetBlockingSkills, middleware.PermissionRequired(middleware.ReadPrerequisitePermission))
	protectedGroup.Get("/student/:studentID/skill/:skillKey/completion", h.GetPrerequisiteCompletion, middleware.PermissionRequired(middleware.ReadPrerequisitePermission))
}

func (h *PrerequisiteHandler) CreatePrerequisite(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var edge models.SkillPrerequisite
	if err := c.Bind().Body(&edge); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	edge.OwnerID = ownerID

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := h.prereqService.CreatePrerequisite(ctx, &edge)
	if err != nil {
		log.Printf("Failed to create prerequisite: %v", err)

		if strings.Contains(err.Error(), "cycle detected") {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if strings.Contains(err.Error(), "invalid") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if strings.Contains(err.Error(), "already exists") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Prerequisite edge already exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create prerequisite",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Prerequisite created successfully",
		"data": fiber.Map{
			"prerequisite": created,
		},
	})
}

func (h *PrerequisiteHandler) RemovePrerequisite(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var subjectID bson.ObjectID
	if raw := c.Query("subjectId"); raw != "" {
		subjectID, err = bson.ObjectIDFromHex(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid subject ID format",
			})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = h.prereqService.RemovePrerequisite(ctx, ownerID, subjectID, c.Params("skillKey"), c.Params("prereqKey"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Prerequisite edge not found",
			})
		}
		log.Printf("Failed to remove prerequisite: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove prerequisite",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Prerequisite removed successfully",
	})
}

func (h *PrerequisiteHandler) GetPrerequisites(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	edges, err := h.prereqService.GetPrerequisites(ctx, ownerID, c.Params("skillKey"))
	if err != nil {
		log.Printf("Failed to get prerequisites: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get prerequisites",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"prerequisites": edges,
			"count":         len(edges),
		},
	})
}

func (h *PrerequisiteHandler) GetDependents(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	edges, err := h.prereqService.GetDependents(ctx, ownerID, c.Params("skillKey"))
	if err != nil {
		log.Printf("Failed to get dependents: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get dependents",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"dependents": edges,
			"count":      len(edges),
		},
	})
}

func (h *PrerequisiteHandler) GetPrerequisiteChain(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	chain, err := h.prereqService.GetPrerequisiteChain(ctx, ownerID, c.Params("skillKey"))
	if err != nil {
		log.Printf("Failed to get prerequisite chain: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get prerequisite chain",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"chain": chain,
			"count": len(chain),
		},
	})
}

func (h *PrerequisiteHandler) GetRecommendedLearningOrder(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	subjectID, err := bson.ObjectIDFromHex(c.Params("subjectID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid subject ID format",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := h.prereqService.GetRecommendedLearningOrder(ctx, ownerID, subjectID)
	if err != nil {
		log.Printf("Failed to get learning order: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get learning order",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"learningOrder": order,
			"count":         len(order),
		},
	})
}

func (h *PrerequisiteHandler) FindPrerequisiteBottlenecks(c fiber.Ctx) error {
	ownerID, err := middleware.OwnerID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	subjectID, err := bson.ObjectIDFromHex(c.Params("subjectID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid subject ID format",
		})
	}

	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, err := h.prereqService.FindPrerequisiteBottlenecks(ctx, ownerID, subjectID, limit)
	if err != nil {
		log.Printf("Failed to find bottlenecks: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to find bottlenecks",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"report": report,
		},
	})
}

func (h *PrerequisiteHandler) CheckPrerequisites(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	met, blocks, err := h.prereqService.CheckPrerequisites(ctx, ownerID, studentID, c.Params("skillKey"))
	if err != nil {
		log.Printf("Failed to check prerequisites: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check prerequisites",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"prerequisitesMet": met,
			"unmetSkills":      blocks,
		},
	})
}

func (h *PrerequisiteHandler) GetBlockingSkills(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	blocks, err := h.prereqService.GetBlockingSkills(ctx, ownerID, studentID, c.Params("skillKey"))
	if err != nil {
		log.Printf("Failed to get blocking skills: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get blocking skills",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"blockingSkills": blocks,
			"count":          len(blocks),
		},
	})
}

func (h *PrerequisiteHandler) GetPrerequisiteCompletion(c fiber.Ctx) error {
	ownerID, studentID, err := h.scope(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	completion, err := h.prereqService.CalculatePrerequisiteCompletion(ctx, ownerID, studentID, c.Params("skillKey"))
	if err != nil {
		log.Printf("Failed to calculate prerequisite completion: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to calculate prerequisite completion",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"completionPercentage": completion,
		},
	})
}

func (h *PrerequisiteHandler) scope(c fiber.Ctx) (bson.ObjectID, bson.ObjectID, error) {
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
