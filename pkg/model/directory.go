package model

// Directory records are owned by the external directory service; only the
// fields the booking core reads are modelled.

type Patient struct {
	Ref   string `json:"ref"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Facility struct {
	Ref  string `json:"ref"`
	Name string `json:"name"`
}

// CatalogService carries the tariff and its contracted split for one facility.
type CatalogService struct {
	Ref           string  `json:"ref"`
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	Tariff        float64 `json:"tariff"`
	FacilityShare float64 `json:"facility_share"`
	VendorShare   float64 `json:"vendor_share"`
}

type Practitioner struct {
	Ref  string `json:"ref"`
	Name string `json:"name"`
}
