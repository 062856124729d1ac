// Package directory reads patient, facility, catalog and practitioner
// records owned by the external directory service.
package directory

import (
	"context"
	"errors"
	"fmt"

	"medibook/pkg/config"
	"medibook/pkg/model"
)

var ErrNotFound = errors.New("directory record not found")

type Directory interface {
	Patient(ctx context.Context, ref string) (*model.Patient, error)
	Facility(ctx context.Context, ref string) (*model.Facility, error)
	CatalogService(ctx context.Context, ref string) (*model.CatalogService, error)
	Practitioner(ctx context.Context, ref string) (*model.Practitioner, error)
}

// New picks the HTTP directory when DIRECTORY_URL is set and falls back to
// the fixture file.
func New(cfg *config.Config) (Directory, error) {
	if cfg.DirectoryURL != "" {
		return NewHTTPDirectory(cfg.DirectoryURL, cfg.RequestTimeout), nil
	}
	if cfg.DirectoryFixture != "" {
		d, err := LoadFixture(cfg.DirectoryFixture)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("either %s or %s must be set", config.EnvDirectoryURL, config.EnvDirectoryFixture)
}
