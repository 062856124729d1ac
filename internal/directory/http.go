package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"medibook/pkg/client"
	"medibook/pkg/model"
)

// HTTPDirectory calls the directory REST API. Every lookup is
// GET /api/v1/<collection>/<ref> answering {"data": {...}}.
type HTTPDirectory struct {
	client *client.HttpClient
}

func NewHTTPDirectory(baseURL string, timeout time.Duration) *HTTPDirectory {
	c := client.NewHttpClient(baseURL)
	c.HTTPClient.Timeout = timeout
	return &HTTPDirectory{client: c}
}

func (d *HTTPDirectory) Patient(ctx context.Context, ref string) (*model.Patient, error) {
	var p model.Patient
	if err := d.get(ctx, "patients", ref, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *HTTPDirectory) Facility(ctx context.Context, ref string) (*model.Facility, error) {
	var f model.Facility
	if err := d.get(ctx, "facilities", ref, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (d *HTTPDirectory) CatalogService(ctx context.Context, ref string) (*model.CatalogService, error) {
	var s model.CatalogService
	if err := d.get(ctx, "services", ref, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *HTTPDirectory) Practitioner(ctx context.Context, ref string) (*model.Practitioner, error) {
	var p model.Practitioner
	if err := d.get(ctx, "practitioners", ref, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *HTTPDirectory) get(ctx context.Context, collection, ref string, target any) error {
	resp, err := d.client.GET(ctx, fmt.Sprintf("/api/v1/%s/%s", collection, url.PathEscape(ref)))
	if err != nil {
		return fmt.Errorf("directory lookup %s/%s failed: %w", collection, ref, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", collection, ref, ErrNotFound)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("directory lookup %s/%s failed: %s", collection, ref, resp.ToString())
	}
	if err := resp.DecodeData(target); err != nil {
		return fmt.Errorf("directory lookup %s/%s: %w", collection, ref, err)
	}
	return nil
}
