// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateIndex stores records as objects of one Weaviate class. The
// namespace is kept in the "namespace" property and the caller's record ID
// in "record_id"; object IDs are UUIDs derived from the record ID.
type WeaviateIndex struct {
	client *weaviate.Client
	class  string
}

// NewWeaviateIndex connects to the Weaviate server at rawURL.
func NewWeaviateIndex(rawURL, apiKey, class string) (*WeaviateIndex, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing weaviate url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("weaviate url %q has no host", rawURL)
	}
	cfg := weaviate.Config{
		Host:   parsed.Host,
		Scheme: parsed.Scheme,
	}
	if apiKey != "" {
		cfg.Headers = map[string]string{"Authorization": "Bearer " + apiKey}
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating weaviate client: %w", err)
	}
	if class == "" {
		class = "Paper"
	}
	return &WeaviateIndex{client: client, class: class}, nil
}

// ObjectID maps a record ID onto the stable UUID used as the Weaviate object ID.
func ObjectID(recordID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String())
}

// Upsert writes records in one batch request.
func (w *WeaviateIndex) Upsert(ctx context.Context, records []Record, namespace string) error {
	if len(records) == 0 {
		return nil
	}
	objects := make([]*models.Object, len(records))
	for i, r := range records {
		props := make(map[string]any, len(r.Metadata)+2)
		for k, v := range r.Metadata {
			props[k] = v
		}
		props["record_id"] = r.ID
		props["namespace"] = namespace

		objects[i] = &models.Object{
			Class:      w.class,
			ID:         ObjectID(r.ID),
			Vector:     r.Values,
			Properties: props,
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate batch import: %w", err)
	}

	var errs []string
	for _, item := range resp {
		if item.Result == nil || item.Result.Errors == nil {
			continue
		}
		for _, e := range item.Result.Errors.Error {
			if e != nil {
				errs = append(errs, e.Message)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("weaviate batch import: %d item errors: %w", len(errs), errors.New(strings.Join(errs, "; ")))
	}
	return nil
}
