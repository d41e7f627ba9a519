package freightcom

import "github.com/shopspring/decimal"

// RatesRequest is a rate quote request.
// POST /rate
type RatesRequest struct {
	Services []int           `json:"services,omitempty"` // all services if omitted
	Details  ShippingDetails `json:"details"`
}

// ShippingDetails contains the shipping information of a rate request.
type ShippingDetails struct {
	Origin      Location      `json:"origin"`
	Destination Location      `json:"destination"`
	Packaging   PackagingInfo `json:"packaging"`
}

// Location is an origin or destination.
type Location struct {
	Name        string `json:"name,omitempty" yaml:"name"`
	Address1    string `json:"address_1" yaml:"address_1"`
	City        string `json:"city" yaml:"city"`
	Province    string `json:"province" yaml:"province"`
	PostalCode  string `json:"postal_code" yaml:"postal_code"`
	Country     string `json:"country" yaml:"country"` // ISO 3166-1 alpha-2 code
	Residential bool   `json:"residential,omitempty" yaml:"residential"`
}

// PackagingInfo contains package details.
type PackagingInfo struct {
	Type     string    `json:"type"` // "package", "envelope", "pallet"
	Packages []Package `json:"packages"`
}

// Package is a single package.
type Package struct {
	Length      float64 `json:"length"` // cm
	Width       float64 `json:"width"`  // cm
	Height      float64 `json:"height"` // cm
	Weight      float64 `json:"weight"` // kg
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
}

// RateRequestResponse is the response of POST /rate.
type RateRequestResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// RatesResponse is the response of GET /rate/{request_id}.
type RatesResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"` // "pending", "complete", "error"
	Rates     []Rate `json:"rates,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Rate is a single service offer.
type Rate struct {
	ID                string          `json:"id"`
	ServiceID         int             `json:"service_id"`
	CarrierName       string          `json:"carrier_name"`
	ServiceCode       string          `json:"service_code"`
	ServiceName       string          `json:"service_name"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Currency          string          `json:"currency"`
	TransitDays       int             `json:"transit_days"`
	EstimatedDelivery string          `json:"estimated_delivery,omitempty"` // YYYY-MM-DD
}

// APIError is an error returned by the Freightcom API.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"` // field-level errors
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
