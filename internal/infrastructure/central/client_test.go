package central

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldmap-service/internal/config"
	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *config.CentralConfig) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin@example.org" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &config.CentralConfig{URL: server.URL + "/", User: "admin@example.org", Password: "secret"}
}

func TestClient_ListForms(t *testing.T) {
	_, cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/3/forms", r.URL.Path)
		json.NewEncoder(w).Encode([]domain.Form{
			{ProjectID: 3, XMLFormID: "buildings", Name: "Buildings", State: "open"},
		})
	})

	client := NewCentralClient(cfg, zap.NewNop())
	forms, err := client.ListForms(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, "buildings", forms[0].XMLFormID)
}

func TestClient_FetchSubmissions(t *testing.T) {
	_, cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/projects/1/forms/cafes.svc/Submissions":
			w.Write([]byte(`{"value":[{"amenity":"cafe"}]}`))
		case "/v1/projects/1/forms/cafes/submissions.csv":
			w.Write([]byte("amenity\ncafe\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client := NewCentralClient(cfg, zap.NewNop())

	payload, err := client.FetchSubmissions(context.Background(), 1, "cafes", domain.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, domain.FormatJSON, payload.Format)
	assert.JSONEq(t, `{"value":[{"amenity":"cafe"}]}`, string(payload.Data))

	payload, err = client.FetchSubmissions(context.Background(), 1, "cafes", domain.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "amenity\ncafe\n", string(payload.Data))

	_, err = client.FetchSubmissions(context.Background(), 1, "missing", domain.FormatCSV)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = client.FetchSubmissions(context.Background(), 1, "cafes", "xlsx")
	assert.ErrorIs(t, err, apperrors.ErrInput)
}

func TestClient_UploadMedia(t *testing.T) {
	var got []byte
	_, cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/projects/1/forms/cafes/draft/attachments/area.geojson", r.URL.Path)
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})
	client := NewCentralClient(cfg, zap.NewNop())

	err := client.UploadMedia(context.Background(), 1, "cafes", "area.geojson", bytes.NewBufferString(`{"type":"FeatureCollection"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"type":"FeatureCollection"}`, string(got))
}

func TestClient_BadCredentials(t *testing.T) {
	_, cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	cfg.Password = "wrong"

	client := NewCentralClient(cfg, zap.NewNop())
	_, err := client.ListForms(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}
