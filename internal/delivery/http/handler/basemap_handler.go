package handler

import (
	"github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/pkg/utils"
	"github.com/fieldmap-service/internal/pkg/validator"
	"github.com/fieldmap-service/internal/usecase"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BasemapHandler - задачи сборки офлайн подложки
type BasemapHandler struct {
	jobUC  *usecase.BasemapJobUseCase
	logger *zap.Logger
}

func NewBasemapHandler(jobUC *usecase.BasemapJobUseCase, logger *zap.Logger) *BasemapHandler {
	return &BasemapHandler{
		jobUC:  jobUC,
		logger: logger,
	}
}

// Create godoc
// @Summary Поставить сборку подложки в очередь
// @Description Задача выполняется воркером; статус доступен по GET /api/v1/basemaps/{id}.
// @Tags Basemaps
// @Accept json
// @Produce json
// @Param request body dto.BasemapRequest true "Параметры подложки"
// @Success 202 {object} utils.SuccessResponse{data=dto.JobResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/basemaps [post]
func (h *BasemapHandler) Create(c *fiber.Ctx) error {
	var req dto.BasemapRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.Wrap(errors.ErrInvalidRequest, err, "invalid request body"))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	job, err := h.jobUC.Enqueue(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	c.Status(fiber.StatusAccepted)
	return utils.SendSuccess(c, job, nil)
}

// Get godoc
// @Summary Статус задачи сборки подложки
// @Tags Basemaps
// @Produce json
// @Param id path string true "ID задачи"
// @Success 200 {object} utils.SuccessResponse{data=dto.JobResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/basemaps/{id} [get]
func (h *BasemapHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.SendError(c, errors.Wrap(errors.ErrInvalidRequest, err, "invalid job id"))
	}

	job, err := h.jobUC.Get(c.Context(), id)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, job, nil)
}
