package pdns

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateZone(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey string
	var gotZone Zone

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotZone))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(gotZone)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "localhost")

	created, err := c.CreateZone(t.Context(), Zone{Name: "example.org.", Kind: KindMaster})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/servers/localhost/zones", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "example.org.", gotZone.Name)
	assert.Equal(t, KindMaster, created.Kind)
}

func TestClient_GetZone_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(APIError{Error: "Could not find domain 'example.org.'"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "localhost")

	_, err := c.GetZone(t.Context(), "example.org.")
	assert.ErrorIs(t, err, ErrZoneNotFound)
}

func TestClient_RemoteError_ParsedMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(APIError{Error: "Domain 'example.org.' already exists"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "localhost")

	_, err := c.CreateZone(t.Context(), Zone{Name: "example.org."})
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusUnprocessableEntity, remoteErr.StatusCode)
	assert.Equal(t, "Domain 'example.org.' already exists", remoteErr.Message)
}

func TestClient_RemoteError_RawBodyFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream gone")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "localhost")

	err := c.DeleteZone(t.Context(), "example.org.")
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "upstream gone", remoteErr.Message)
}

func TestClient_ReplaceRRset(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	var gotPatch zonePatch

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPatch))

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "localhost")

	rrset := RRset{
		Name:    "www.example.org.",
		Type:    "A",
		TTL:     300,
		Records: []Record{{Content: "10.0.0.1"}},
	}
	require.NoError(t, c.ReplaceRRset(t.Context(), "example.org.", rrset))

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/api/v1/servers/localhost/zones/example.org.", gotPath)
	require.Len(t, gotPatch.RRsets, 1)
	assert.Equal(t, ChangeTypeReplace, gotPatch.RRsets[0].ChangeType)
	assert.Equal(t, "10.0.0.1", gotPatch.RRsets[0].Records[0].Content)
}

func TestClient_DeleteRRset(t *testing.T) {
	t.Parallel()

	var gotPatch zonePatch

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPatch))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "localhost")

	require.NoError(t, c.DeleteRRset(t.Context(), "example.org.", "A", "www.example.org."))

	require.Len(t, gotPatch.RRsets, 1)
	assert.Equal(t, ChangeTypeDelete, gotPatch.RRsets[0].ChangeType)
	assert.Equal(t, "www.example.org.", gotPatch.RRsets[0].Name)
	assert.Equal(t, "A", gotPatch.RRsets[0].Type)
	assert.Empty(t, gotPatch.RRsets[0].Records)
}

func TestClient_DefaultServerID(t *testing.T) {
	t.Parallel()

	c := NewClient("http://127.0.0.1:8081", "secret", "")
	assert.Equal(t, "localhost", c.ServerID)
}
