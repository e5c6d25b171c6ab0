package video

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/celestiaorg/vidbatch/internal/errs"
)

// Veo API defaults
const (
	DefaultVeoBaseURL = "https://generativelanguage.googleapis.com"
	DefaultVeoModel   = "veo-3.1-fast-generate-preview"
	apiKeyHeader      = "x-goog-api-key"
)

// VeoConfig configures a VeoClient
type VeoConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// VeoClient drives the Gemini API long-running video generation endpoints
type VeoClient struct {
	http  *resty.Client
	model string
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	AspectRatio    string `json:"aspectRatio"`
	Resolution     string `json:"resolution"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
}

type operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *operationError `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
			RAIMediaFilteredReasons []string `json:"raiMediaFilteredReasons"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type errorBody struct {
	Error operationError `json:"error"`
}

// NewVeoClient creates a Veo client. The API key is required.
func NewVeoClient(cfg VeoConfig) (*VeoClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("veo api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultVeoBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultVeoModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader(apiKeyHeader, cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)

	return &VeoClient{http: httpClient, model: cfg.Model}, nil
}

// Submit starts a generation and returns its operation handle
func (c *VeoClient) Submit(ctx context.Context, prompt string, opts Options) (OperationHandle, error) {
	opts, err := checkRequest(prompt, opts)
	if err != nil {
		return OperationHandle{}, err
	}

	var op operation
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(predictRequest{
			Instances: []predictInstance{{Prompt: prompt}},
			Parameters: predictParameters{
				AspectRatio:    opts.AspectRatio,
				Resolution:     opts.Resolution,
				NegativePrompt: opts.NegativePrompt,
			},
		}).
		SetResult(&op).
		SetError(&errorBody{}).
		Post(fmt.Sprintf("/v1beta/models/%s:predictLongRunning", c.model))
	if err != nil {
		return OperationHandle{}, errs.NewTransportError("failed to submit video generation", err)
	}
	if resp.IsError() {
		return OperationHandle{}, statusError(resp)
	}
	if op.Name == "" {
		return OperationHandle{}, errs.NewStatusError(resp.StatusCode(), "response carried no operation name")
	}
	return OperationHandle{Name: op.Name}, nil
}

// Poll fetches the operation once
func (c *VeoClient) Poll(ctx context.Context, handle OperationHandle) (PollResult, error) {
	if handle.Name == "" {
		return PollResult{}, errs.Validation("operation name cannot be empty")
	}

	var op operation
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&op).
		SetError(&errorBody{}).
		Get("/v1beta/" + strings.TrimLeft(handle.Name, "/"))
	if err != nil {
		return PollResult{}, errs.NewTransportError("failed to poll video generation", err)
	}
	if resp.IsError() {
		return PollResult{}, statusError(resp)
	}
	return op.result(), nil
}

func (op *operation) result() PollResult {
	if op.Error != nil {
		msg := op.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("operation failed with code %d", op.Error.Code)
		}
		return PollResult{Done: true, Error: msg}
	}
	if !op.Done {
		return PollResult{}
	}
	if op.Response != nil {
		gen := op.Response.GenerateVideoResponse
		for _, sample := range gen.GeneratedSamples {
			if sample.Video.URI != "" {
				return PollResult{Done: true, VideoURL: sample.Video.URI}
			}
		}
		if len(gen.RAIMediaFilteredReasons) > 0 {
			return PollResult{Done: true, Error: "video filtered: " + strings.Join(gen.RAIMediaFilteredReasons, "; ")}
		}
	}
	return PollResult{Done: true, Error: "operation finished without a video"}
}

func statusError(resp *resty.Response) error {
	msg := strings.TrimSpace(resp.String())
	if body, ok := resp.Error().(*errorBody); ok && body.Error.Message != "" {
		msg = body.Error.Message
	}
	if msg == "" {
		msg = resp.Status()
	}
	return errs.NewStatusError(resp.StatusCode(), msg)
}
