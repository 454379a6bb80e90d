package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tenderhub/tender-backend/models"
	"github.com/tenderhub/tender-backend/services"
)

type TenderHandler struct {
	Service *services.TenderService
}

func NewTenderHandler(service *services.TenderService) *TenderHandler {
	return &TenderHandler{Service: service}
}

func (h *TenderHandler) GetTenders(c *fiber.Ctx) error {
	category := c.Query("category", "all")

	var scraped *bool
	switch c.Query("scraped") {
	case "true":
		v := true
		scraped = &v
	case "false":
		v := false
		scraped = &v
	}

	tenders, err := h.Service.GetTenders(c.Context(), category, scraped)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if tenders == nil {
		tenders = []models.Tender{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(tenders),
		"tenders": tenders,
	})
}

func (h *TenderHandler) GetTenderByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid tender id",
		})
	}

	tender, err := h.Service.GetTenderByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if tender == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Tender not found",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"tender":  tender,
	})
}

// CreateTender adds a manually entered tender. Scraped tenders only ever
// come in through the import pipeline, so is_scraped is forced off here.
func (h *TenderHandler) CreateTender(c *fiber.Ctx) error {
	var tender models.Tender
	if err := c.BodyParser(&tender); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if tender.Title == "" || tender.ReferenceNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "title and reference_number are required",
		})
	}

	tender.IsScraped = false
	if tender.Category == "" {
		tender.Category = models.CategoryOther
	}
	if tender.Location == "" {
		tender.Location = "India"
	}

	if err := h.Service.Create(c.Context(), &tender); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, services.ErrDuplicateReference) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"tender":  tender,
	})
}

func (h *TenderHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.Service.GetStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}
