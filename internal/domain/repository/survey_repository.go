package repository

import (
	"context"
	"io"

	"github.com/fieldmap-service/internal/domain"
)

// SurveyRepository - клиент сервера сбора анкет
type SurveyRepository interface {
	// ListForms возвращает формы проекта
	ListForms(ctx context.Context, projectID int) ([]domain.Form, error)

	// FetchSubmissions выгружает сабмиты формы в формате json или csv
	FetchSubmissions(ctx context.Context, projectID int, formID, format string) (*domain.SubmissionPayload, error)

	// UploadMedia загружает файл, прикреплённый к форме
	UploadMedia(ctx context.Context, projectID int, formID, name string, r io.Reader) error
}

// TileRepository - источник растровых тайлов
type TileRepository interface {
	// FetchTile скачивает тайл по готовому URL
	FetchTile(ctx context.Context, url string) ([]byte, error)
}
