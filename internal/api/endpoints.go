package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/bulkctl/bulkctl/internal/domain"
)

// API endpoints constants
const (
	// EndpointItems is the base endpoint for the item listing
	EndpointItems = "/api/v1/items"

	// EndpointItemTemplate addresses a single item
	EndpointItemTemplate = "/api/v1/items/%s"

	// EndpointItemActionTemplate applies a named action to a single item
	EndpointItemActionTemplate = "/api/v1/items/%s/%s"

	// EndpointBulkJobs starts a server-side bulk job
	EndpointBulkJobs = "/api/v1/items/bulk"

	// EndpointBulkJobTemplate is the job status endpoint
	EndpointBulkJobTemplate = "/api/v1/items/bulk/%s"

	// EndpointBulkJobEventsTemplate is the job's event stream
	EndpointBulkJobEventsTemplate = "/api/v1/items/bulk/%s/events"

	// EndpointBulkJobCancelTemplate cancels a job
	EndpointBulkJobCancelTemplate = "/api/v1/items/bulk/%s/cancel"
)

// ItemsListURL builds the listing URL for a filter and page
func ItemsListURL(filter domain.Filter, page, pageSize int) string {
	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Source != "" {
		q.Set("source", string(filter.Source))
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	return EndpointItems + "?" + q.Encode()
}

// ItemURL builds the URL for one item
func ItemURL(id string) string {
	return fmt.Sprintf(EndpointItemTemplate, url.PathEscape(id))
}

// ItemActionURL builds the URL for applying action to one item
func ItemActionURL(id string, action domain.Action) string {
	return fmt.Sprintf(EndpointItemActionTemplate, url.PathEscape(id), url.PathEscape(string(action)))
}

func BulkJobURL(jobID string) string {
	return fmt.Sprintf(EndpointBulkJobTemplate, url.PathEscape(jobID))
}

func BulkJobEventsURL(jobID string) string {
	return fmt.Sprintf(EndpointBulkJobEventsTemplate, url.PathEscape(jobID))
}

func BulkJobCancelURL(jobID string) string {
	return fmt.Sprintf(EndpointBulkJobCancelTemplate, url.PathEscape(jobID))
}
