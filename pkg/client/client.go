package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/models"
)

const apiKeyHeader = "X-Api-Key"

// APIError a non 2xx answer of the api
type APIError struct {
	StatusCode int
	Message    string
	Job        *models.JobResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound the api answered 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client typed http client of the automl api
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithApiKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient the client must not set a Timeout, streams are long lived
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", endpoint)
	}
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values,
	in interface{}) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, config.HTTPTIMEOUT)
	defer cancel()
	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func decodeError(code int, body []byte) error {
	apiErr := &APIError{StatusCode: code}
	resp := new(models.ErrorResponse)
	if err := json.Unmarshal(body, resp); err == nil && resp.Message != "" {
		apiErr.Message = resp.Message
		apiErr.Job = resp.Job
	} else {
		apiErr.Message = http.StatusText(code)
	}
	return apiErr
}

func jobPath(id string) string {
	return "/jobs/" + url.PathEscape(id)
}

func (c *Client) Upload(ctx context.Context, filename string) (*models.UploadResponse, error) {
	resp := new(models.UploadResponse)
	err := c.do(ctx, http.MethodPost, "/upload", nil, &models.UploadRequest{Filename: filename}, resp)
	return resp, err
}

func (c *Client) ConfirmDataset(ctx context.Context, datasetID string) (*models.DatasetResponse, error) {
	resp := new(models.DatasetResponse)
	err := c.do(ctx, http.MethodPost, "/datasets/"+url.PathEscape(datasetID)+"/confirm", nil, nil, resp)
	return resp, err
}

func (c *Client) Train(ctx context.Context, request *models.TrainRequest) (*models.TrainResponse, error) {
	resp := new(models.TrainResponse)
	err := c.do(ctx, http.MethodPost, "/train", nil, request, resp)
	return resp, err
}

// GetJob consistent bypasses the server snapshot cache
func (c *Client) GetJob(ctx context.Context, id string, consistent bool) (*models.JobResponse, error) {
	var query url.Values
	if consistent {
		query = url.Values{"consistent": []string{"true"}}
	}
	resp := new(models.JobResponse)
	if err := c.do(ctx, http.MethodGet, jobPath(id), query, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

type ListOptions struct {
	Limit     int
	NextToken string
	Tag       string
}

func (c *Client) ListJobs(ctx context.Context, opts ListOptions) (*models.JobListResponse, error) {
	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.NextToken != "" {
		query.Set("nextToken", opts.NextToken)
	}
	if opts.Tag != "" {
		query.Set("tag", opts.Tag)
	}
	resp := new(models.JobListResponse)
	err := c.do(ctx, http.MethodGet, "/jobs", query, nil, resp)
	return resp, err
}

func (c *Client) UpdateJob(ctx context.Context, id string, request *models.UpdateJobRequest) (*models.JobResponse, error) {
	resp := new(models.JobResponse)
	if err := c.do(ctx, http.MethodPatch, jobPath(id), nil, request, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) DeleteJob(ctx context.Context, id string, purge bool) (*models.DeleteJobResponse, error) {
	resp := new(models.DeleteJobResponse)
	query := url.Values{"purge": []string{strconv.FormatBool(purge)}}
	err := c.do(ctx, http.MethodDelete, jobPath(id), query, nil, resp)
	return resp, err
}

// Deploy action deploy|undeploy
func (c *Client) Deploy(ctx context.Context, id, action string) (*models.DeployResponse, error) {
	resp := new(models.DeployResponse)
	err := c.do(ctx, http.MethodPost, jobPath(id)+"/deploy", nil, &models.DeployRequest{Action: action}, resp)
	return resp, err
}

func (c *Client) Predict(ctx context.Context, id string, features map[string]interface{}) (*models.PredictResponse, error) {
	resp := new(models.PredictResponse)
	err := c.do(ctx, http.MethodPost, "/predict/"+url.PathEscape(id), nil,
		&models.PredictRequest{Features: features}, resp)
	return resp, err
}

func (c *Client) PredictInfo(ctx context.Context, id string) (*models.PredictInfoResponse, error) {
	resp := new(models.PredictInfoResponse)
	err := c.do(ctx, http.MethodGet, "/predict/"+url.PathEscape(id)+"/info", nil, nil, resp)
	return resp, err
}

// OpenStream the event stream of the job, the caller closes the body
func (c *Client) OpenStream(ctx context.Context, id string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, jobPath(id)+"/stream", nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, decodeError(resp.StatusCode, body)
	}
	return resp.Body, nil
}
