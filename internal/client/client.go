// Package client is a typed HTTP client for the yield prediction API.
package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agri-yield/internal/api"
	"agri-yield/internal/features"
	"agri-yield/internal/ml"
	"agri-yield/internal/providers"

	"github.com/go-resty/resty/v2"
)

const unsupportedCropPrefix = "Unsupported crop: "

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agri-yield: %d %s", e.StatusCode, e.Detail)
}

type errorBody struct {
	Detail string `json:"detail"`
}

type Client struct {
	base string
	rest *resty.Client
}

// New creates a client for the service at base, e.g. http://localhost:8000.
func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second) // training can take a while
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Predict requests a yield estimate. An unsupported crop is returned as
// both an *APIError and a *features.UnsupportedCropError.
func (c *Client) Predict(ctx context.Context, rec features.FeatureRecord) (ml.PredictionResult, error) {
	var result ml.PredictionResult
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(rec).
		SetResult(&result).
		SetError(&errorBody{}).
		Post(c.base + "/api/predict")
	if err := checkResponse(resp, err); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 400 && strings.HasPrefix(apiErr.Detail, unsupportedCropPrefix) {
			crop := strings.TrimPrefix(apiErr.Detail, unsupportedCropPrefix)
			return ml.PredictionResult{}, fmt.Errorf("%w: %w", apiErr, &features.UnsupportedCropError{Crop: crop})
		}
		return ml.PredictionResult{}, err
	}
	return result, nil
}

// Train asks the service to retrain and swap in a new model.
func (c *Client) Train(ctx context.Context) (api.TrainResponse, error) {
	var out api.TrainResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Post(c.base + "/api/train")
	return out, checkResponse(resp, err)
}

// Reload asks the service to re-read the model artifact from disk.
func (c *Client) Reload(ctx context.Context) (api.TrainResponse, error) {
	var out api.TrainResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Post(c.base + "/api/reload")
	return out, checkResponse(resp, err)
}

func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Get(c.base + "/health")
	return out, checkResponse(resp, err)
}

func (c *Client) ModelInfo(ctx context.Context) (api.ModelInfo, error) {
	var out api.ModelInfo
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Get(c.base + "/api/model")
	return out, checkResponse(resp, err)
}

// Weather fetches the outlook, optionally for coordinates.
func (c *Client) Weather(ctx context.Context, lat, lon *float64) (providers.WeatherSummary, error) {
	params := map[string]string{}
	if lat != nil {
		params["lat"] = strconv.FormatFloat(*lat, 'f', -1, 64)
	}
	if lon != nil {
		params["lon"] = strconv.FormatFloat(*lon, 'f', -1, 64)
	}

	var out providers.WeatherSummary
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		SetError(&errorBody{}).
		Get(c.base + "/api/weather")
	return out, checkResponse(resp, err)
}

func (c *Client) Soil(ctx context.Context, plotID string) (providers.SoilMetrics, error) {
	req := c.rest.R().SetContext(ctx)
	if plotID != "" {
		req.SetQueryParam("plot_id", plotID)
	}

	var out providers.SoilMetrics
	resp, err := req.
		SetResult(&out).
		SetError(&errorBody{}).
		Get(c.base + "/api/soil")
	return out, checkResponse(resp, err)
}

// Predictions reads the audit log, newest first when crop is empty.
func (c *Client) Predictions(ctx context.Context, crop string, limit int) ([]ml.PredictionEvent, error) {
	params := map[string]string{}
	if crop != "" {
		params["crop"] = crop
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	var out []ml.PredictionEvent
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		SetError(&errorBody{}).
		Get(c.base + "/api/predictions")
	return out, checkResponse(resp, err)
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		detail := resp.String()
		if body, ok := resp.Error().(*errorBody); ok && body.Detail != "" {
			detail = body.Detail
		}
		return &APIError{StatusCode: resp.StatusCode(), Detail: detail}
	}
	return nil
}
