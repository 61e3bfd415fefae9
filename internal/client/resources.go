package client

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/internal/http"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// Get implements hub.ResourceClient.Get.
func (c *Client) Get(ctx context.Context, id, resourceName, versionType string) (*hub.Envelope, error) {
	path, err := hub.ResourceURI(constants.ResourcePrefix, resourceName, id)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, &http.Request{
		Method: nethttp.MethodGet,
		Path:   path,
		Accept: versionType,
	})
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", path, err)
	}

	return &hub.Envelope{
		Data:              string(resp.Body),
		Version:           resp.Headers.Get(constants.HeaderMediaType),
		TotalCount:        1,
		ContentRestricted: contentRestricted(resp),
	}, nil
}

// GetAll implements hub.ResourceClient.GetAll.
func (c *Client) GetAll(ctx context.Context, resourceName string, params *hub.Query, offset, limit int, versionType string) (*hub.Envelope, error) {
	path, err := hub.ResourceURI(constants.ResourcePrefix, resourceName)
	if err != nil {
		return nil, err
	}

	query := params.Clone()
	query.Set(constants.OffsetParam, strconv.Itoa(offset))

	if limit > 0 {
		query.Set(constants.LimitParam, strconv.Itoa(limit))
	}

	resp, err := c.send(ctx, &http.Request{
		Method: nethttp.MethodGet,
		Path:   path,
		Query:  query,
		Accept: versionType,
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	total, err := c.totalCount(resp)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	return &hub.Envelope{
		Data:              string(resp.Body),
		Version:           resp.Headers.Get(constants.HeaderMediaType),
		TotalCount:        total,
		ContentRestricted: contentRestricted(resp),
	}, nil
}

// Create implements hub.ResourceClient.Create.
func (c *Client) Create(ctx context.Context, model hub.Resource, out any) error {
	if model == nil {
		return fmt.Errorf("%w: model cannot be nil", hub.ErrInvalidArgument)
	}

	path, err := hub.ResourceURI(constants.ResourcePrefix, model.ResourceName())
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, &http.Request{
		Method:      nethttp.MethodPost,
		Path:        path,
		Body:        model,
		ContentType: model.VersionType(),
		Accept:      model.VersionType(),
	})
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	err = decode(resp.Body, out, false)
	if err != nil {
		return fmt.Errorf("parsing %s create response: %w", model.ResourceName(), err)
	}

	return nil
}

// Update implements hub.ResourceClient.Update.
func (c *Client) Update(ctx context.Context, model hub.Resource, id string, out any) error {
	if model == nil {
		return fmt.Errorf("%w: model cannot be nil", hub.ErrInvalidArgument)
	}

	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", hub.ErrInvalidArgument)
	}

	path, err := hub.ResourceURI(constants.ResourcePrefix, model.ResourceName(), id)
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, &http.Request{
		Method:      nethttp.MethodPut,
		Path:        path,
		Body:        model,
		ContentType: model.VersionType(),
		Accept:      model.VersionType(),
	})
	if err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}

	err = decode(resp.Body, out, false)
	if err != nil {
		return fmt.Errorf("parsing %s update response: %w", model.ResourceName(), err)
	}

	return nil
}

// Delete implements hub.ResourceClient.Delete. The model, when given, is
// sent as the request body. A 204 or otherwise empty answer leaves out
// untouched.
func (c *Client) Delete(ctx context.Context, model any, id, resourceName, versionType string, out any) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", hub.ErrInvalidArgument)
	}

	path, err := hub.ResourceURI(constants.ResourcePrefix, resourceName, id)
	if err != nil {
		return err
	}

	req := &http.Request{
		Method: nethttp.MethodDelete,
		Path:   path,
		Accept: versionType,
	}

	if !isNilModel(model) {
		req.Body = model
		req.ContentType = versionType
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}

	err = decode(resp.Body, out, true)
	if err != nil {
		return fmt.Errorf("parsing %s delete response: %w", resourceName, err)
	}

	return nil
}

// VersionSupported implements hub.ResourceClient.VersionSupported.
//
// The probe is a one-record GetAll for version. Any 2xx, even an empty page,
// counts as supported and any non-2xx as unsupported; a resource that is
// simply empty or forbidden is indistinguishable from a missing version.
func (c *Client) VersionSupported(ctx context.Context, resourceName, version string) (bool, error) {
	_, err := c.GetAll(ctx, resourceName, nil, 0, 1, version)
	if err == nil || errors.Is(err, hub.ErrMalformedResponse) {
		return true, nil
	}

	if hub.IsRequestFailed(err) {
		c.logDebug("version not supported", map[string]interface{}{
			"resource":    resourceName,
			"version":     version,
			"status_code": hub.StatusCode(err),
		})

		return false, nil
	}

	return false, err
}

func (c *Client) totalCount(resp *http.Response) (int, error) {
	raw := strings.TrimSpace(resp.Headers.Get(constants.HeaderTotalCount))
	if raw == "" {
		if c.totalCountPolicy == hub.MissingTotalCountError {
			return 0, fmt.Errorf("%w: missing %s header", hub.ErrMalformedResponse, constants.HeaderTotalCount)
		}

		return 0, nil
	}

	total, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s header %q", hub.ErrMalformedResponse, constants.HeaderTotalCount, raw)
	}

	return total, nil
}

func contentRestricted(resp *http.Response) bool {
	return strings.EqualFold(resp.Headers.Get(constants.HeaderContentRestricted), constants.ContentRestrictedEnabled)
}
