package handler

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/pkg/utils"
	"github.com/fieldmap-service/internal/pkg/validator"
	"github.com/fieldmap-service/internal/usecase"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	outputOSM     = "osm"
	outputGeoJSON = "geojson"
)

// ConvertHandler - конвертация выгрузки сабмитов в OSM XML или GeoJSON
type ConvertHandler struct {
	convertUC *usecase.ConvertUseCase
	logger    *zap.Logger
}

func NewConvertHandler(convertUC *usecase.ConvertUseCase, logger *zap.Logger) *ConvertHandler {
	return &ConvertHandler{
		convertUC: convertUC,
		logger:    logger,
	}
}

// Convert godoc
// @Summary Конвертация сабмитов
// @Description Принимает выгрузку сабмитов (тело запроса или multipart поле file) и возвращает OSM XML или GeoJSON.
// @Description Счетчики записей отдаются в заголовках X-Records, X-Features, X-Skipped.
// @Tags Convert
// @Accept plain
// @Produce xml
// @Param format query string true "Формат выгрузки" Enums(csv, json, xml)
// @Param output query string false "Формат результата" Enums(osm, geojson) default(osm)
// @Success 200 {string} string
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/convert [post]
func (h *ConvertHandler) Convert(c *fiber.Ctx) error {
	req := dto.ConvertRequest{
		Format: strings.ToLower(c.Query("format")),
		Output: strings.ToLower(c.Query("output", outputOSM)),
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	body, err := h.payload(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	features, result, err := h.convertUC.Features(c.Context(), req.Format, body)
	if err != nil {
		return utils.SendError(c, err)
	}

	var buf bytes.Buffer
	if req.Output == outputGeoJSON {
		err = h.convertUC.WriteGeoJSON(&buf, features)
		c.Set(fiber.HeaderContentType, "application/geo+json")
	} else {
		err = h.convertUC.WriteOSM(&buf, features)
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	}
	if err != nil {
		h.logger.Error("Failed to write conversion output", zap.Error(err))
		return utils.SendError(c, err)
	}

	c.Set("X-Records", strconv.Itoa(result.Records))
	c.Set("X-Features", strconv.Itoa(result.Features))
	c.Set("X-Skipped", strconv.Itoa(result.Skipped))
	return c.Send(buf.Bytes())
}

// payload - файл из multipart поля file или тело запроса целиком
func (h *ConvertHandler) payload(c *fiber.Ctx) (io.Reader, error) {
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, errors.Wrap(errors.ErrInput, err, "multipart field \"file\" is required")
		}
		file, err := fh.Open()
		if err != nil {
			return nil, errors.Wrap(errors.ErrInput, err, "failed to open uploaded file")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInput, err, "failed to read uploaded file")
		}
		return bytes.NewReader(data), nil
	}

	body := c.Body()
	if len(body) == 0 {
		return nil, errors.Newf(errors.ErrInput, "request body is empty")
	}
	return bytes.NewReader(body), nil
}
