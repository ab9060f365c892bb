package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTool_PostsArgs(t *testing.T) {
	var seen map[string]interface{}
	var seenAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		_, _ = w.Write([]byte("  Rain expected in Goa.\n"))
	}))
	defer server.Close()

	t.Setenv("WEATHER_TOKEN", "Bearer abc")
	tool, err := NewHTTPTool(WeatherToolName, HTTPBackend{
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "env:WEATHER_TOKEN"},
	})
	require.NoError(t, err)

	got := tool.Execute(context.Background(), map[string]interface{}{"city": "Goa"})
	assert.Equal(t, "Rain expected in Goa.", got)
	assert.Equal(t, "Goa", seen["city"])
	assert.Equal(t, "Bearer abc", seenAuth)
}

func TestHTTPTool_ReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	tool, err := NewHTTPTool("get_hotels", HTTPBackend{URL: server.URL})
	require.NoError(t, err)
	got := tool.Execute(context.Background(), nil)
	assert.Equal(t, "Tool 'get_hotels' failed: HTTP 502: upstream down", got)
}

func TestHTTPTool_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tool, err := NewHTTPTool("get_hotels", HTTPBackend{URL: url})
	require.NoError(t, err)
	assert.Equal(t, "Tool 'get_hotels' failed: backend unreachable", tool.Execute(context.Background(), nil))
}

func TestNewHTTPTool_RequiresURL(t *testing.T) {
	_, err := NewHTTPTool("x", HTTPBackend{})
	assert.Error(t, err)
}

func TestNewRouter_BackendOverridesMock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("live weather"))
	}))
	defer server.Close()

	specs := travelSpecs()
	specs[1].Backend = &HTTPBackend{URL: server.URL}

	r, err := NewRouter(specs)
	require.NoError(t, err)
	assert.Equal(t, "live weather", r.Call(context.Background(), WeatherToolName, map[string]interface{}{"city": "Pune"}))
	assert.Contains(t, r.Call(context.Background(), HotelsToolName, nil), "Top budget stays in Unknown under ₹2500")
}

func TestNewRouter_InvalidBackend(t *testing.T) {
	specs := travelSpecs()
	specs[0].Backend = &HTTPBackend{}
	_, err := NewRouter(specs)
	assert.Error(t, err)
}

func TestResolveSecretRef(t *testing.T) {
	t.Setenv("WB_SECRET", "s3cret")
	assert.Equal(t, "s3cret", ResolveSecretRef("env:WB_SECRET"))
	assert.Equal(t, "plain", ResolveSecretRef(" plain "))
	assert.Equal(t, "", ResolveSecretRef("env:"))
}
