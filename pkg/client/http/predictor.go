package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/landing-ai/landingai-go/config"
	custom_logger "github.com/landing-ai/landingai-go/pkg/logger"
	"github.com/landing-ai/landingai-go/pkg/prediction"
)

const (
	defaultTimeout = time.Second * 30
	predictPath    = "/inference/v1/predict"
)

// ErrMissingEndpoint is returned when the inference config has no endpoint id.
var ErrMissingEndpoint = status.New(codes.InvalidArgument, "inference endpoint id is required").Err()

// ResponseCache stores raw inference responses keyed by endpoint and image.
type ResponseCache interface {
	Get(ctx context.Context, endpointID string, img []byte) ([]byte, bool, error)
	Set(ctx context.Context, endpointID string, img []byte, body []byte) error
}

// PredictorClient calls the cloud inference endpoint of a deployed model.
type PredictorClient struct {
	*resty.Client
	endpointID string
	cache      ResponseCache
	parseOpts  []prediction.SegmentationOption
}

// NewPredictorClient returns an initialized inference HTTP client. cache may
// be nil, in which case every call reaches the endpoint.
func NewPredictorClient(ctx context.Context, cfg config.InferenceConfig, cache ResponseCache, opts ...prediction.SegmentationOption) (*PredictorClient, error) {
	if cfg.EndpointID == "" {
		return nil, ErrMissingEndpoint
	}

	logger, _ := custom_logger.GetZapLogger(ctx)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	r := resty.New().
		SetLogger(logger.Sugar()).
		SetBaseURL(strings.TrimSuffix(cfg.Host, "/")).
		SetTimeout(timeout).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("apisecret", cfg.APISecret)

	return &PredictorClient{
		Client:     r,
		endpointID: cfg.EndpointID,
		cache:      cache,
		parseOpts:  opts,
	}, nil
}

// Predict calls the POST /inference/v1/predict endpoint with img as the
// multipart "file" field and decodes the returned predictions.
func (c *PredictorClient) Predict(ctx context.Context, img []byte) ([]prediction.Prediction, error) {
	logger, _ := custom_logger.GetZapLogger(ctx)

	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, c.endpointID, img)
		if err != nil {
			logger.Warn("prediction cache lookup failed", zap.Error(err))
		}
		if ok {
			preds, err := prediction.ParseResponse(body, c.parseOpts...)
			if err == nil {
				logger.Debug("prediction cache hit", zap.String("endpoint_id", c.endpointID))
				return preds, nil
			}
			logger.Warn("ignoring unparsable cached prediction response", zap.String("endpoint_id", c.endpointID), zap.Error(err))
		}
	}

	mime := mimetype.Detect(img)
	fileName := "image" + mime.Extension()

	resp, err := c.R().
		SetContext(ctx).
		SetQueryParam("endpoint_id", c.endpointID).
		SetMultipartField("file", fileName, mime.String(), bytes.NewReader(img)).
		Post(predictPath)
	if err != nil {
		return nil, fmt.Errorf("couldn't connect with the inference endpoint: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("inference endpoint returned %s: %w", resp.Status(), statusError(resp))
	}

	preds, err := prediction.ParseResponse(resp.Body(), c.parseOpts...)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, c.endpointID, img, resp.Body()); err != nil {
			logger.Warn("unable to cache prediction response", zap.Error(err))
		}
	}

	return preds, nil
}

func statusError(resp *resty.Response) error {
	msg := strings.TrimSpace(string(resp.Body()))
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return status.Error(codes.Unauthenticated, msg)
	case http.StatusForbidden:
		return status.Error(codes.PermissionDenied, msg)
	case http.StatusNotFound:
		return status.Error(codes.NotFound, msg)
	case http.StatusTooManyRequests:
		return status.Error(codes.ResourceExhausted, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return status.Error(codes.InvalidArgument, msg)
	default:
		return status.Error(codes.Unavailable, msg)
	}
}
