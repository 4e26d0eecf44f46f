// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package publish provides the `publish` runner, which uploads a mesh from
// the artifact store over HTTP.
package publish

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/vk/meshgrid/internal/artifact"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/handlers"
	"github.com/vk/meshgrid/internal/registry"
)

//go:embed manifest.hcl
var manifest []byte

// Module implements the registry.Module interface for this package.
type Module struct {
	Store *artifact.Store
	// Client is shared by all publish steps to reuse connections. Nil means
	// http.DefaultClient.
	Client *http.Client
}

// Input defines the arguments for the publish runner.
type Input struct {
	MeshID         string  `bggo:"mesh_id"`
	URL            string  `bggo:"url"`
	Method         string  `bggo:"method"`
	ContentType    string  `bggo:"content_type"`
	TimeoutSeconds float64 `bggo:"timeout_seconds"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// Output defines the data structure returned by the runner.
type Output struct {
	Status     string `cty:"status"`
	StatusCode int    `cty:"status_code"`
	Size       int64  `cty:"size"`
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Handlers.RegisterHandler("OnRunPublish", &handlers.RegisteredHandler{
		Input:     func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Deps:      func() any { return new(Deps) },
		Fn:        m.OnRunPublish,
	})
}

// Manifest returns the embedded runner manifest.
func (m *Module) Manifest() (string, []byte) {
	return "modules/publish/manifest.hcl", manifest
}

// OnRunPublish is the handler for the 'publish' runner's on_run lifecycle event.
// Any 2xx response counts as success.
func (m *Module) OnRunPublish(ctx context.Context, _ *Deps, input *Input) (*Output, error) {
	if m.Store == nil {
		return nil, errors.New("publish: artifact store is not configured")
	}
	if input.URL == "" {
		return nil, errors.New("publish: url must not be empty")
	}
	method := strings.ToUpper(input.Method)
	if method != http.MethodPut && method != http.MethodPost {
		return nil, fmt.Errorf("publish: unsupported method '%s', want PUT or POST", input.Method)
	}

	art, err := m.Store.Get(input.MeshID)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	body, err := m.Store.Open(art.ID)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	defer body.Close()

	if input.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(input.TimeoutSeconds*float64(time.Second)))
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, input.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create publish request: %w", err)
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(art.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = art.Size

	logger := ctxlog.FromContext(ctx).With("mesh_id", art.ID)
	logger.Info("Publishing mesh", "filename", art.Filename, "size", art.Size, "method", method)

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute publish request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("publish failed with status: %s", resp.Status)
	}
	logger.Info("Published mesh", "status", resp.Status)

	return &Output{Status: resp.Status, StatusCode: resp.StatusCode, Size: art.Size}, nil
}
