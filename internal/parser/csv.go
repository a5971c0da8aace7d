package parser

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"go.uber.org/zap"
)

// CSVParser разбирает табличную выгрузку с заголовком
type CSVParser struct {
	base
	Comma rune
}

func (p *CSVParser) Parse(ctx context.Context, r io.Reader) ([]domain.Record, error) {
	reader := csv.NewReader(r)
	if p.Comma != 0 {
		reader.Comma = p.Comma
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrParse, err, "failed to read csv header")
	}
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	var records []domain.Record
	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.skip(index, err)
			continue
		}

		var c collector
		for i, key := range header {
			if i >= len(row) || key == "" {
				continue
			}
			c.add(key, row[i])
		}

		rec := p.finalize(ctx, c.record())
		if len(rec) == 0 {
			p.logger.Debug("Empty csv row", zap.Int("index", index))
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

func trimBOM(s string) string {
	if len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF {
		return s[3:]
	}
	return s
}
