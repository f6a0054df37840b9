package dto

import (
	"fmt"

	"github.com/bulkctl/bulkctl/internal/domain"
)

// FilterRequest is the wire form of a listing filter
type FilterRequest struct {
	Search string `json:"search,omitempty"`
	Status string `json:"status,omitempty"`
	Source string `json:"source,omitempty"`
}

// BulkScope is either explicit ids or a filter the server resolves itself
type BulkScope struct {
	IDs      []string       `json:"ids,omitempty"`
	Filter   *FilterRequest `json:"filter,omitempty"`
	Excluded []string       `json:"excluded,omitempty"`
}

// StartBulkJobRequest asks the server to run one action over a scope
type StartBulkJobRequest struct {
	Action string    `json:"action"`
	Scope  BulkScope `json:"scope"`
}

func NewStartBulkJobRequest(action domain.Action, scope domain.Scope) StartBulkJobRequest {
	req := StartBulkJobRequest{
		Action: string(action),
		Scope: BulkScope{
			IDs:      scope.IDs,
			Excluded: scope.Excluded,
		},
	}
	if scope.Filter != nil {
		req.Scope.Filter = &FilterRequest{
			Search: scope.Filter.Search,
			Status: string(scope.Filter.Status),
			Source: string(scope.Filter.Source),
		}
	}
	return req
}

// StartBulkJobResponse is returned when the server accepts a job
type StartBulkJobResponse struct {
	JobID ItemID `json:"jobId"`
	Total int    `json:"total"`
}

func (r StartBulkJobResponse) ToDomain() *domain.JobHandle {
	return &domain.JobHandle{JobID: r.JobID.String(), Total: r.Total}
}

// BulkJobResponse is the job status record, also the payload of progress events
type BulkJobResponse struct {
	JobID  ItemID `json:"jobId"`
	Total  int    `json:"total"`
	Done   int    `json:"done"`
	Fail   int    `json:"fail"`
	Status string `json:"status"`
}

// ToDomain fails on a status the client does not recognise, since it cannot tell
// whether such a job has settled.
func (r BulkJobResponse) ToDomain() (*domain.BulkJob, error) {
	status, ok := domain.ParseJobStatus(r.Status)
	if !ok {
		return nil, fmt.Errorf("unknown job status %q", r.Status)
	}
	return &domain.BulkJob{
		JobID:  r.JobID.String(),
		Total:  r.Total,
		Done:   r.Done,
		Fail:   r.Fail,
		Status: status,
	}, nil
}
