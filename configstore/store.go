// Package configstore provides canvas-configuration storage: an HTTP
// client for hosts that fetch configuration from the backend, and a
// Postgres store for hosts that own the storage side.
package configstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/R3E-Network/widget_layer/canvas"
	"github.com/R3E-Network/widget_layer/platform/api"
)

// EndpointCanvasGet is the config-storage retrieval endpoint.
const EndpointCanvasGet = "/canvas.getConfig"

// HTTPStore retrieves canvas documents over the request primitive.
type HTTPStore struct {
	apiClient api.Requester
	appKey    string
}

// NewHTTPStore creates an HTTPStore. The app key scopes every request.
func NewHTTPStore(client api.Requester, appKey string) *HTTPStore {
	return &HTTPStore{apiClient: client, appKey: appKey}
}

// Canvas fetches the configuration document stored under canvasID.
func (s *HTTPStore) Canvas(ctx context.Context, canvasID string) (*canvas.Document, error) {
	doc, err := s.apiClient.Do(ctx, EndpointCanvasGet, api.Params{
		"appkey":   s.appKey,
		"canvasID": canvasID,
	})
	if err != nil {
		return nil, err
	}

	// wrong_query and incorrect_appkey are distinct conditions and stay
	// distinct in the surfaced error.
	switch code := api.ErrorCode(doc); code {
	case "":
	case api.CodeWrongQuery, api.CodeIncorrectAppKey:
		return nil, fmt.Errorf("config storage rejected request: %s", code)
	default:
		return nil, fmt.Errorf("config storage error: %s", code)
	}

	var parsed canvas.Document
	if err := json.Unmarshal([]byte(doc.Get("config").Raw), &parsed); err != nil {
		return nil, fmt.Errorf("decode canvas document: %w", err)
	}
	return &parsed, nil
}
