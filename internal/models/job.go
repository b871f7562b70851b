package models

import "time"

// DateLayout is the day-granularity format of job start and end dates.
const DateLayout = "2006-01-02"

type JobStatus string

const (
	JobStatusOpen     JobStatus = "open"
	JobStatusAccepted JobStatus = "accepted"
	JobStatusClosed   JobStatus = "closed"
)

type RequestStatus string

const (
	RequestStatusRequested RequestStatus = "requested"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusRejected  RequestStatus = "rejected"
)

// JobRequest is one freelancer's entry in a job's requests map.
type JobRequest struct {
	Status         RequestStatus `json:"status"`
	FreelancerName string        `json:"freelancerName"`
	RequestedAt    time.Time     `json:"requestedAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Job is stored at jobs/{id} and is the source of truth for the
// employer/freelancer relationship it implies.
type Job struct {
	ID           string                `json:"id"`
	EmployerID   string                `json:"employerId"`
	EmployerName string                `json:"employerName,omitempty"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Payment      float64               `json:"payment"`
	StartDate    string                `json:"startDate"`
	EndDate      string                `json:"endDate"`
	Status       JobStatus             `json:"status"`
	FreelancerID string                `json:"freelancerId,omitempty"`
	Requests     map[string]JobRequest `json:"requests,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
	ClosedAt     *time.Time            `json:"closedAt,omitempty"`
}

// HoldsAcceptance reports whether the job carries an accepted freelancer.
// A job closed by its deadline keeps the acceptance it had.
func (j *Job) HoldsAcceptance() bool {
	if j.FreelancerID == "" || j.Status == JobStatusOpen {
		return false
	}
	r, ok := j.Requests[j.FreelancerID]
	return ok && r.Status == RequestStatusAccepted
}

// CreateJobRequest defines the request body for posting a job
type CreateJobRequest struct {
	Title       string  `json:"title" validate:"required,max=120"`
	Description string  `json:"description" validate:"required,max=5000"`
	Payment     float64 `json:"payment" validate:"gt=0"`
	StartDate   string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// UpdateJobRequest defines the patch applied by EditJob. Empty fields are left unchanged.
type UpdateJobRequest struct {
	Title       string  `json:"title,omitempty" validate:"omitempty,max=120"`
	Description string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Payment     float64 `json:"payment,omitempty" validate:"omitempty,gt=0"`
	StartDate   string  `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string  `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateJobRequestStatus defines the request body for accepting or declining a request
type UpdateJobRequestStatus struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}
