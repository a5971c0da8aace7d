package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/xform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMapping(t *testing.T) *xform.Mapping {
	t.Helper()
	m, err := xform.Parse([]byte(`
ignore:
  - start
  - instanceID
`))
	require.NoError(t, err)
	return m
}

func newParser(t *testing.T, format string, schema *domain.FormSchema) Parser {
	t.Helper()
	p, err := New(format, Options{Mapping: testMapping(t), Schema: schema}, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestBasename(t *testing.T) {
	tests := map[string]string{
		"name":                  "name",
		"group-sub-name":        "name",
		"meta:instanceID":       "instanceID",
		"grp-inner:field":       "field",
		"a:b-c":                 "c",
		"location-Latitude":     "Latitude",
		"":                      "",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, Basename(in), in)
	}
}

func TestNew_UnsupportedFormat(t *testing.T) {
	_, err := New("yaml", Options{}, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInput, apperrors.CodeOf(err))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, domain.FormatCSV, DetectFormat("a/b.CSV"))
	assert.Equal(t, domain.FormatJSON, DetectFormat("x.geojson"))
	assert.Equal(t, domain.FormatXML, DetectFormat("x.xml"))
	assert.Equal(t, "", DetectFormat("x.txt"))
}

func TestCSVParser(t *testing.T) {
	input := "start,grp-amenity,grp-name,location-Latitude,location-Longitude,warmup-Latitude,warmup-Longitude,note\n" +
		"2024-01-01,cafe,Joe's,40.0,-105.0,,,\n" +
		"2024-01-01,bar,,,,41.5,-104.5,\n" +
		"short,row\n" +
		"2024-01-02,pub,Red Lion,42.0,-103.0,1,2,x\n"

	records, err := newParser(t, domain.FormatCSV, nil).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, []string{"amenity", "name", "lat", "lon"}, first.Keys())
	assert.Equal(t, "Joe's", first.Value("name"))
	assert.Equal(t, "40.0", first.Value("lat"))

	warm := records[1]
	assert.Equal(t, "41.5", warm.Value("lat"))
	assert.Equal(t, "-104.5", warm.Value("lon"))
	assert.False(t, warm.Has("name"))

	third := records[2]
	assert.Equal(t, "42.0", third.Value("lat"))
	assert.Equal(t, "x", third.Value("note"))
}

func TestJSONParser_SurveyServerShape(t *testing.T) {
	input := `{"value":[
		{"__id":"uuid:1","__system":{"submitterName":"a"},"start":"t",
		 "group":{"amenity":"cafe","name":"Joe's"},
		 "location":{"type":"Point","coordinates":[-105.0,40.0,1600.5],"properties":{"accuracy":4.2}},
		 "meta":{"instanceID":"uuid:1"},
		 "features":["firepit","parking"],
		 "empty":null},
		"not an object",
		{"amenity":"bar","coordinates":[-104.5,41.25]}
	]}`

	records, err := newParser(t, domain.FormatJSON, nil).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "cafe", first.Value("amenity"))
	assert.Equal(t, "Joe's", first.Value("name"))
	assert.Equal(t, "-105.0", first.Value("lon"))
	assert.Equal(t, "40.0", first.Value("lat"))
	assert.Equal(t, "firepit parking", first.Value("features"))
	assert.False(t, first.Has("instanceID"))
	assert.False(t, first.Has("start"))
	assert.False(t, first.Has("empty"))
	assert.False(t, first.Has("submitterName"))
	assert.Equal(t, []string{"amenity", "name", "lon", "lat", "features"}, first.Keys())

	second := records[1]
	assert.Equal(t, "41.25", second.Value("lat"))
	assert.Equal(t, "-104.5", second.Value("lon"))
}

func TestJSONParser_GeoJSONAndBareList(t *testing.T) {
	geo := `{"type":"FeatureCollection","features":[
		{"type":"Feature","id":12,"properties":{"highway":"path"},
		 "geometry":{"type":"LineString","coordinates":[[-105.0,40.0],[-105.1,40.1]]}},
		{"type":"Feature","properties":{"amenity":"toilets"},
		 "geometry":{"type":"Point","coordinates":[1.5,2.5]}}
	]}`
	records, err := newParser(t, domain.FormatJSON, nil).Parse(context.Background(), strings.NewReader(geo))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "12", records[0].Value("id"))
	assert.Equal(t, "40.0 -105.0;40.1 -105.1", records[0].Value("track"))
	assert.Equal(t, "2.5", records[1].Value("lat"))
	assert.Equal(t, "1.5", records[1].Value("lon"))

	list := `[{"name":"a"},{"name":"b"}]`
	records, err = newParser(t, domain.FormatJSON, nil).Parse(context.Background(), strings.NewReader(list))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1].Value("name"))
}

func TestJSONParser_Invalid(t *testing.T) {
	_, err := newParser(t, domain.FormatJSON, nil).Parse(context.Background(), strings.NewReader(`{"value":[`))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeParse, apperrors.CodeOf(err))
}

func TestXMLParser(t *testing.T) {
	input := `<?xml version="1.0"?>
<data id="camping" version="3">
  <start>2024-01-01</start>
  <warmup>10.0 20.0 0 5</warmup>
  <survey>
    <point>40.0 -105.0 1600.0 4.5</point>
    <amenity>cafe</amenity>
    <name>Joe&apos;s</name>
    <empty/>
  </survey>
  <meta><instanceID>uuid:1</instanceID></meta>
</data>`

	records, err := newParser(t, domain.FormatXML, nil).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, []string{"lat", "lon", "amenity", "name"}, rec.Keys())
	assert.Equal(t, "40.0", rec.Value("lat"))
	assert.Equal(t, "-105.0", rec.Value("lon"))
	assert.Equal(t, "Joe's", rec.Value("name"))
	assert.False(t, rec.Has("id"))
}

func TestXMLParser_WarmupFallback(t *testing.T) {
	input := `<data><warmup>10.0 20.0 0 5</warmup><point></point><name>x</name></data>`

	records, err := newParser(t, domain.FormatXML, nil).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "10.0", records[0].Value("lat"))
	assert.Equal(t, "20.0", records[0].Value("lon"))
}

func TestStickyFields(t *testing.T) {
	schema := domain.NewFormSchema()
	schema.Sticky["surveyor"] = struct{}{}

	input := "surveyor,name\nAlice,one\n,two\nBob,three\n,four\n"
	records, err := newParser(t, domain.FormatCSV, schema).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "Alice", records[0].Value("surveyor"))
	assert.Equal(t, "Alice", records[1].Value("surveyor"))
	assert.Equal(t, "Bob", records[2].Value("surveyor"))
	assert.Equal(t, "Bob", records[3].Value("surveyor"))
}

func TestStickyFields_SharedStoreAcrossParsers(t *testing.T) {
	schema := domain.NewFormSchema()
	schema.Sticky["surveyor"] = struct{}{}
	store := NewMemoryStickyStore()
	opts := Options{Mapping: testMapping(t), Schema: schema, Sticky: store}

	csvParser, err := New(domain.FormatCSV, opts, zap.NewNop())
	require.NoError(t, err)
	_, err = csvParser.Parse(context.Background(), strings.NewReader("surveyor\nCarol\n"))
	require.NoError(t, err)

	jsonParser, err := New(domain.FormatJSON, opts, zap.NewNop())
	require.NoError(t, err)
	records, err := jsonParser.Parse(context.Background(), strings.NewReader(`[{"surveyor":"","name":"x"}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Carol", records[0].Value("surveyor"))
}
