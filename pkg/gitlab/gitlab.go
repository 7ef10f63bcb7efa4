// Package gitlab is the source-control connector: a thin REST v4 client for
// retrieving projects and merge requests with personal-access-token auth.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/flownode/pkg/logger"
	"github.com/kart-io/flownode/pkg/observability"
	"github.com/kart-io/flownode/pkg/params"
)

const apiPrefix = "/api/v4"

var (
	// numericIDPattern matches a bare project ID.
	numericIDPattern = regexp.MustCompile(`^\d+$`)
	// namespacePathPattern matches a namespace/project path, with arbitrary
	// group nesting.
	namespacePathPattern = regexp.MustCompile(`^[\w.-]+(/[\w.-]+)+$`)
)

// ValidateProjectID checks that id is a numeric project ID or a
// namespace/project path.
func ValidateProjectID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("project id is empty")
	}
	if !numericIDPattern.MatchString(id) && !namespacePathPattern.MatchString(id) {
		return fmt.Errorf("invalid project id %q, expected a numeric id or a namespace/project path", id)
	}
	return nil
}

// encodeProjectID renders a project identifier for use in a URL path. Path
// separators in namespace paths are percent-encoded so the whole identifier
// occupies one path segment.
func encodeProjectID(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}

// Project is the subset of the GitLab project resource the connector exposes.
type Project struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Path              string    `json:"path"`
	PathWithNamespace string    `json:"path_with_namespace"`
	Description       string    `json:"description"`
	DefaultBranch     string    `json:"default_branch"`
	WebURL            string    `json:"web_url"`
	Visibility        string    `json:"visibility"`
	StarCount         int       `json:"star_count"`
	ForksCount        int       `json:"forks_count"`
	OpenIssuesCount   int       `json:"open_issues_count"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
}

// MergeRequest is the subset of the GitLab merge request resource the
// connector exposes.
type MergeRequest struct {
	ID           int        `json:"id"`
	IID          int        `json:"iid"`
	ProjectID    int        `json:"project_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	State        string     `json:"state"`
	SourceBranch string     `json:"source_branch"`
	TargetBranch string     `json:"target_branch"`
	Author       User       `json:"author"`
	WebURL       string     `json:"web_url"`
	MergeStatus  string     `json:"merge_status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	MergedAt     *time.Time `json:"merged_at"`
	ClosedAt     *time.Time `json:"closed_at"`
}

// User identifies the author of a merge request.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// ListMergeRequestsOptions filters and pages a merge request listing.
type ListMergeRequestsOptions struct {
	// State filters by merge request state: opened, closed, locked, merged,
	// or all. Empty means the API default.
	State string
	// PerPage and Page control API pagination; zero values are omitted.
	PerPage int
	Page    int
}

// APIError is a non-2xx response from the GitLab API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gitlab api error (status %d): %s", e.StatusCode, e.Message)
}

// Client calls the GitLab REST API of one instance on behalf of one token.
type Client struct {
	http      *http.Client
	baseURL   string
	token     string
	logger    *logger.BufferedLogger
	telemetry *observability.TelemetryProvider
}

// NewClient builds a client from a credential. A nil logger buffers nothing.
func NewClient(cred *params.GitLabCredential, log *logger.BufferedLogger) *Client {
	if log == nil {
		log = logger.NewBuffered("gitlab", logger.Options{Level: logger.Silent})
	}
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(cred.Domain, "/") + apiPrefix,
		token:   cred.AccessToken,
		logger:  log,
	}
}

// WithTelemetry attaches a telemetry provider that counts API calls.
func (c *Client) WithTelemetry(tp *observability.TelemetryProvider) *Client {
	c.telemetry = tp
	return c
}

// GetProject retrieves one project by numeric ID or namespace path.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	if err := ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	var project Project
	path := "/projects/" + encodeProjectID(projectID)
	if err := c.get(ctx, "get_project", path, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListMergeRequests retrieves merge requests of a project, filtered and paged
// per opts.
func (c *Client) ListMergeRequests(ctx context.Context, projectID string, opts ListMergeRequestsOptions) ([]MergeRequest, error) {
	if err := ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	query := url.Values{}
	if opts.State != "" {
		query.Set("state", opts.State)
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	var mrs []MergeRequest
	path := "/projects/" + encodeProjectID(projectID) + "/merge_requests"
	if err := c.get(ctx, "list_merge_requests", path, query, &mrs); err != nil {
		return nil, err
	}
	return mrs, nil
}

// GetMergeRequest retrieves one merge request by its project-scoped IID.
func (c *Client) GetMergeRequest(ctx context.Context, projectID string, iid int) (*MergeRequest, error) {
	if err := ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	if iid <= 0 {
		return nil, fmt.Errorf("invalid merge request iid %d", iid)
	}
	var mr MergeRequest
	path := fmt.Sprintf("/projects/%s/merge_requests/%d", encodeProjectID(projectID), iid)
	if err := c.get(ctx, "get_merge_request", path, nil, &mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
// The operation name labels the API-call counter.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.HTTPRequest(http.MethodGet, endpoint, 0)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gitlab request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	c.logger.HTTPResponse(resp.StatusCode, time.Since(start), len(body))
	if c.telemetry != nil {
		c.telemetry.RecordSourceControlCall(ctx, operation, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiErrorMessage pulls the message or error field out of a GitLab error
// body, falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var envelope struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != nil {
			return fmt.Sprintf("%v", envelope.Message)
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
