package parser

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
)

// geopoint: "lat lon altitude accuracy"
var geopointRe = regexp.MustCompile(`^-?[0-9.]+ -?[0-9.]+ -?[0-9.]+ [0-9.]+$`)

// XMLParser разбирает XML инстансы форм; каждый корневой элемент - один сабмит
type XMLParser struct {
	base
}

type xmlNode struct {
	name     string
	text     strings.Builder
	children int
}

func (p *XMLParser) Parse(ctx context.Context, r io.Reader) ([]domain.Record, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false

	var (
		records []domain.Record
		stack   []*xmlNode
		c       collector
		index   int
	)

	for {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(stack) > 0 {
				p.skip(index, err)
				return records, nil
			}
			return records, apperrors.Wrap(apperrors.ErrParse, err, "invalid xml submission")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				stack[len(stack)-1].children++
			} else {
				c = collector{}
			}
			stack = append(stack, &xmlNode{name: t.Name.Local})
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if len(stack) == 0 {
				rec := p.finalize(ctx, c.record())
				if len(rec) > 0 {
					records = append(records, rec)
				}
				index++
				continue
			}
			if node.children > 0 {
				continue
			}
			p.addLeaf(&c, xmlPath(stack, node.name), strings.TrimSpace(node.text.String()))
		}
	}

	return records, nil
}

// addLeaf раскладывает geopoint в lat/lon, остальное кладёт как есть
func (p *XMLParser) addLeaf(c *collector, path, value string) {
	if geopointRe.MatchString(value) {
		fields := strings.Fields(value)
		if strings.EqualFold(Basename(path), "warmup") {
			c.warmupLat, c.warmupLon = fields[0], fields[1]
			return
		}
		c.add("lat", fields[0])
		c.add("lon", fields[1])
		return
	}
	c.add(path, value)
}

// xmlPath склеивает путь без корневого элемента
func xmlPath(stack []*xmlNode, name string) string {
	parts := make([]string, 0, len(stack))
	for _, n := range stack[1:] {
		parts = append(parts, n.name)
	}
	parts = append(parts, name)
	return strings.Join(parts, ":")
}
