package central

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fieldmap-service/internal/config"
	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"go.uber.org/zap"
)

const defaultTimeout = 60 * time.Second

type client struct {
	httpClient *http.Client
	baseURL    string
	user       string
	password   string
	logger     *zap.Logger
}

// NewCentralClient создает клиент сервера сбора анкет (REST API v1, basic auth)
func NewCentralClient(cfg *config.CentralConfig, logger *zap.Logger) repository.SurveyRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		user:     cfg.User,
		password: cfg.Password,
		logger:   logger,
	}
}

// ListForms возвращает формы проекта
func (c *client) ListForms(ctx context.Context, projectID int) ([]domain.Form, error) {
	endpoint := fmt.Sprintf("%s/v1/projects/%d/forms", c.baseURL, projectID)

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var forms []domain.Form
	if err := json.NewDecoder(resp.Body).Decode(&forms); err != nil {
		c.logger.Error("Failed to decode forms", zap.Error(err))
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("Forms listed",
		zap.Int("project_id", projectID),
		zap.Int("count", len(forms)))

	return forms, nil
}

// FetchSubmissions выгружает сабмиты: json через OData, csv через экспорт
func (c *client) FetchSubmissions(ctx context.Context, projectID int, formID, format string) (*domain.SubmissionPayload, error) {
	var endpoint string
	switch format {
	case domain.FormatJSON:
		endpoint = fmt.Sprintf("%s/v1/projects/%d/forms/%s.svc/Submissions",
			c.baseURL, projectID, url.PathEscape(formID))
	case domain.FormatCSV:
		endpoint = fmt.Sprintf("%s/v1/projects/%d/forms/%s/submissions.csv",
			c.baseURL, projectID, url.PathEscape(formID))
	default:
		return nil, apperrors.Newf(apperrors.ErrInput, "unsupported submission format %q", format)
	}

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err, "failed to read submissions")
	}

	c.logger.Info("Submissions fetched",
		zap.Int("project_id", projectID),
		zap.String("form_id", formID),
		zap.String("format", format),
		zap.Int("bytes", len(data)))

	return &domain.SubmissionPayload{Format: format, Data: data}, nil
}

// UploadMedia загружает вложение в черновик формы
func (c *client) UploadMedia(ctx context.Context, projectID int, formID, name string, r io.Reader) error {
	endpoint := fmt.Sprintf("%s/v1/projects/%d/forms/%s/draft/attachments/%s",
		c.baseURL, projectID, url.PathEscape(formID), url.PathEscape(name))

	resp, err := c.do(ctx, http.MethodPost, endpoint, r, "application/octet-stream")
	if err != nil {
		return err
	}
	resp.Body.Close()

	c.logger.Info("Media uploaded",
		zap.String("form_id", formID),
		zap.String("name", name))
	return nil
}

func (c *client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.user, c.password)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to execute request", zap.String("url", endpoint), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err, "request to %s failed", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		c.logger.Error("Survey server returned error",
			zap.String("url", endpoint),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(msg)))
		if resp.StatusCode == http.StatusNotFound {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "%s not found", endpoint)
		}
		return nil, apperrors.Newf(apperrors.ErrNetwork, "survey server error: status %d", resp.StatusCode)
	}

	return resp, nil
}
