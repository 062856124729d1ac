package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"medibook/pkg/model"
)

// Fixture is the on-disk format read by LoadFixture.
type Fixture struct {
	Patients      []model.Patient        `json:"patients"`
	Facilities    []model.Facility       `json:"facilities"`
	Services      []model.CatalogService `json:"services"`
	Practitioners []model.Practitioner   `json:"practitioners"`
}

// StaticDirectory serves records held in memory. It backs local runs and
// tests.
type StaticDirectory struct {
	patients      map[string]model.Patient
	facilities    map[string]model.Facility
	services      map[string]model.CatalogService
	practitioners map[string]model.Practitioner
}

func NewStaticDirectory(f Fixture) *StaticDirectory {
	d := &StaticDirectory{
		patients:      make(map[string]model.Patient, len(f.Patients)),
		facilities:    make(map[string]model.Facility, len(f.Facilities)),
		services:      make(map[string]model.CatalogService, len(f.Services)),
		practitioners: make(map[string]model.Practitioner, len(f.Practitioners)),
	}
	for _, p := range f.Patients {
		d.patients[p.Ref] = p
	}
	for _, fc := range f.Facilities {
		d.facilities[fc.Ref] = fc
	}
	for _, s := range f.Services {
		d.services[s.Ref] = s
	}
	for _, p := range f.Practitioners {
		d.practitioners[p.Ref] = p
	}
	return d
}

func LoadFixture(path string) (*StaticDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse directory fixture %s: %w", path, err)
	}
	return NewStaticDirectory(f), nil
}

func (d *StaticDirectory) Patient(_ context.Context, ref string) (*model.Patient, error) {
	p, ok := d.patients[ref]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", ref, ErrNotFound)
	}
	return &p, nil
}

func (d *StaticDirectory) Facility(_ context.Context, ref string) (*model.Facility, error) {
	f, ok := d.facilities[ref]
	if !ok {
		return nil, fmt.Errorf("facility %s: %w", ref, ErrNotFound)
	}
	return &f, nil
}

func (d *StaticDirectory) CatalogService(_ context.Context, ref string) (*model.CatalogService, error) {
	s, ok := d.services[ref]
	if !ok {
		return nil, fmt.Errorf("service %s: %w", ref, ErrNotFound)
	}
	return &s, nil
}

func (d *StaticDirectory) Practitioner(_ context.Context, ref string) (*model.Practitioner, error) {
	p, ok := d.practitioners[ref]
	if !ok {
		return nil, fmt.Errorf("practitioner %s: %w", ref, ErrNotFound)
	}
	return &p, nil
}
