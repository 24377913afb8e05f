package server

import (
	"encoding/json"
	"fmt"
	"testing"

	"socialhub/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDoc_FeedWindowDefaultMatchesService(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc struct {
		Paths map[string]map[string]struct {
			Parameters []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"parameters"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	feed, ok := doc.Paths["/feed"]["get"]
	require.True(t, ok)

	descriptions := map[string]string{}
	for _, p := range feed.Parameters {
		descriptions[p.Name] = p.Description
	}
	want := fmt.Sprintf("default end minus %d hours", int(service.DefaultFeedWindow.Hours()))
	assert.Contains(t, descriptions["start"], want)
	assert.Contains(t, descriptions["end"], "default now")
}
