package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_ListTeamMembers(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"u1","firstName":"Ada","lastName":"Silva","email":"ada@corp.test","status":"active"}]`))
	}))
	defer server.Close()

	c := NewClient(Config{
		Endpoint: server.URL,
		APIKey:   "dir-key",
		Timeout:  time.Second,
	}, zap.NewNop())

	members := c.ListTeamMembers(context.Background())

	assert.Equal(t, "Bearer dir-key", gotAuth)
	require.Len(t, members, 1)
	assert.Equal(t, "ada@corp.test", members[0].Email)
	assert.Equal(t, "Ada Silva <ada@corp.test>", members[0].String())
}

func TestClient_ListTeamMembers_DegradesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL, Timeout: time.Second}, zap.NewNop())

	assert.Nil(t, c.ListTeamMembers(context.Background()))
}

func TestClient_ListTeamMembers_NoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL, Timeout: time.Second}, zap.NewNop())
	c.ListTeamMembers(context.Background())

	assert.Empty(t, gotAuth)
}
