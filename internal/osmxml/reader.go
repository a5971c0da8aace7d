package osmxml

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"
)

// LoadFile читает OSM XML файл: сначала узлы, затем линии
func LoadFile(ctx context.Context, path string) ([]*domain.Feature, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInput, err, "failed to open %s", path)
	}
	defer file.Close()

	return Load(ctx, file)
}

// Load читает OSM XML из потока; relation пропускаются
func Load(ctx context.Context, r io.Reader) ([]*domain.Feature, error) {
	scanner := osmxml.New(ctx, r)
	defer scanner.Close()

	var nodes, ways []*domain.Feature
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			nodes = append(nodes, fromNode(o))
		case *osm.Way:
			ways = append(ways, fromWay(o))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrParse, err, "invalid osm xml")
	}

	return append(nodes, ways...), nil
}

func fromNode(n *osm.Node) *domain.Feature {
	f := domain.NewNode()
	f.SetID(int64(n.ID))
	f.Attrs.Version = n.Version
	f.Attrs.Timestamp = n.Timestamp
	f.Attrs.Lat = strconv.FormatFloat(n.Lat, 'f', -1, 64)
	f.Attrs.Lon = strconv.FormatFloat(n.Lon, 'f', -1, 64)
	f.Attrs.User = n.User
	if n.UserID != 0 {
		f.Attrs.UID = strconv.FormatInt(int64(n.UserID), 10)
	}
	f.Tags = fromTags(n.Tags)
	return f
}

func fromWay(w *osm.Way) *domain.Feature {
	f := domain.NewWay()
	f.SetID(int64(w.ID))
	f.Attrs.Version = w.Version
	f.Attrs.Timestamp = w.Timestamp
	f.Attrs.User = w.User
	if w.UserID != 0 {
		f.Attrs.UID = strconv.FormatInt(int64(w.UserID), 10)
	}
	f.Refs = make([]int64, 0, len(w.Nodes))
	for _, nd := range w.Nodes {
		f.Refs = append(f.Refs, int64(nd.ID))
	}
	f.Tags = fromTags(w.Tags)
	return f
}

func fromTags(tags osm.Tags) domain.Tags {
	out := make(domain.Tags, 0, len(tags))
	for _, t := range tags {
		out.Set(t.Key, t.Value)
	}
	return out
}
