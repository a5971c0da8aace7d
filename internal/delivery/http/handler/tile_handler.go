package handler

import (
	"github.com/fieldmap-service/internal/pkg/utils"
	"github.com/fieldmap-service/internal/pkg/validator"
	"github.com/fieldmap-service/internal/usecase"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TileHandler - расчет плана загрузки тайлов
type TileHandler struct {
	basemapUC *usecase.BasemapUseCase
	logger    *zap.Logger
}

func NewTileHandler(basemapUC *usecase.BasemapUseCase, logger *zap.Logger) *TileHandler {
	return &TileHandler{
		basemapUC: basemapUC,
		logger:    logger,
	}
}

// Plan godoc
// @Summary План тайлов для AOI
// @Description Считает тайлы, покрывающие AOI, на каждом уровне без загрузки.
// @Tags Tiles
// @Produce json
// @Param aoi query string true "bbox minLon,minLat,maxLon,maxLat или GeoJSON"
// @Param zooms query string true "Уровни: 12, 10-14 или 10,12,14"
// @Success 200 {object} utils.SuccessResponse{data=dto.TilePlanResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/tiles/plan [get]
func (h *TileHandler) Plan(c *fiber.Ctx) error {
	var req dto.TilePlanRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	plan, err := h.basemapUC.Plan(req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, plan, &utils.Meta{
		Total: plan.Total,
	})
}
