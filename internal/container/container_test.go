// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package container

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulkctl/bulkctl/internal/api"
	"github.com/bulkctl/bulkctl/internal/config"
	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/mock"
)

func testConfig() *config.Config {
	return &config.Config{
		APIKey: "test-key",
		APIURL: "http://127.0.0.1:1",
		Bulk: config.BulkConfig{
			Concurrency:        4,
			PageSize:           50,
			ResolveConcurrency: 2,
			ConnectTimeout:     time.Second,
			PollInterval:       time.Second,
			CapabilityTTL:      time.Minute,
		},
		Listing: config.ListingConfig{PageSize: 10, CacheTTL: time.Minute},
	}
}

func TestNewContainer(t *testing.T) {
	c := NewContainer(testConfig(), WithLogOutput(&bytes.Buffer{}))
	defer c.Close()

	require.NotNil(t, c.Coordinator())
	require.NotNil(t, c.Jobs())
	require.NotNil(t, c.APIClient())
	assert.Equal(t, 10, c.ListingService().PageSize())
	assert.False(t, c.Coordinator().IsRunning())
	assert.Equal(t, "test-key", c.Config().APIKey)
}

func TestNewContainer_APIOptions(t *testing.T) {
	srv := mock.NewServer(mock.GenerateItems(4, 1))
	defer srv.Close()

	var calls int
	httpClient := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return http.DefaultTransport.RoundTrip(req)
	})}

	cfg := testConfig()
	cfg.APIURL = srv.URL
	c := NewContainer(cfg, WithLogOutput(&bytes.Buffer{}), WithAPIOptions(api.WithHTTPClient(httpClient)))
	defer c.Close()

	page, err := c.ListingService().Page(context.Background(), domain.Filter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 1, calls)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer

	NewLogger(&buf, false).Debug("hidden")
	NewLogger(&buf, false).Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	NewLogger(&buf, true).Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}
