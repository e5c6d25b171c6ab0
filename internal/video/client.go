// Package video talks to the external video generation API.
//
// Generation is asynchronous: Submit returns an OperationHandle straight away
// and Poll checks it once without blocking. AwaitCompletion turns the pair into
// a bounded synchronous wait.
package video

import (
	"context"
	"strings"

	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/validation"
)

// Default generation options
const (
	DefaultAspectRatio = "16:9"
	DefaultResolution  = "720p"
)

// Client submits generation requests and polls their progress
type Client interface {
	Submit(ctx context.Context, prompt string, opts Options) (OperationHandle, error)
	Poll(ctx context.Context, handle OperationHandle) (PollResult, error)
}

// OperationHandle identifies a submitted generation at the provider
type OperationHandle struct {
	Name string `json:"name"`
}

// PollResult is the outcome of a single status check.
// When Done is set exactly one of VideoURL and Error is non-empty.
type PollResult struct {
	Done     bool   `json:"done"`
	VideoURL string `json:"video_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Options tune a generation request. Empty fields take the defaults.
type Options struct {
	AspectRatio    string `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16 1:1"`
	Resolution     string `json:"resolution" validate:"omitempty,oneof=720p 1080p"`
	NegativePrompt string `json:"negative_prompt,omitempty" validate:"max=2000"`
}

// Normalize validates the options and fills in the defaults
func (o Options) Normalize() (Options, error) {
	if err := validation.Struct(o); err != nil {
		return o, err
	}
	if o.AspectRatio == "" {
		o.AspectRatio = DefaultAspectRatio
	}
	if o.Resolution == "" {
		o.Resolution = DefaultResolution
	}
	return o, nil
}

// checkRequest runs the checks every client performs before any I/O
func checkRequest(prompt string, opts Options) (Options, error) {
	if strings.TrimSpace(prompt) == "" {
		return opts, errs.Validation("prompt cannot be empty")
	}
	return opts.Normalize()
}
