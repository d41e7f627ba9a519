// Package freightcom quotes carrier rates through the Freightcom REST API.
package freightcom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/physical"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/shipping/method"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	carrierName = "freightcom"
	tracerName  = "github.com/tournevent/shipping/pkg/shipping/carrier/freightcom"
)

// ProfileLoader loads the shipping profile a shipment is sent to.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, id string) (*order.Profile, error)
}

// Config holds Freightcom configuration.
type Config struct {
	APIKey       string
	BaseURL      string
	Origin       Location
	Timeout      time.Duration
	PollInterval time.Duration // between polls of a pending rate request
	PollTimeout  time.Duration // max wait for a rate request
}

// Client is a method.Quoter backed by the Freightcom API. Rate requests are
// asynchronous: POST /rate returns a request id which is polled on
// GET /rate/{request_id} until complete.
type Client struct {
	config     Config
	httpClient *http.Client
	profiles   ProfileLoader
	logger     *otelzap.Logger
	tracer     trace.Tracer
}

var _ method.Quoter = (*Client)(nil)

// New creates a Freightcom client. A nil tracer uses the global provider.
func New(cfg Config, profiles ProfileLoader, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		profiles:   profiles,
		logger:     logger,
		tracer:     tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// GetQuote returns the Freightcom quotes for a shipment.
func (c *Client) GetQuote(ctx context.Context, req *method.QuoteRequest) ([]method.Quote, error) {
	ctx, span := c.tracer.Start(ctx, "freightcom.GetQuote",
		trace.WithAttributes(attribute.String("shipment.id", req.ShipmentID)),
	)
	defer span.End()

	destination, err := c.destination(ctx, req.ShippingProfileID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.logger.Ctx(ctx).Info("Getting Freightcom quotes",
		zap.String("shipment_id", req.ShipmentID),
		zap.String("destination_country", destination.Country),
		zap.String("weight", req.Weight.String()),
	)

	resp, err := c.getRates(ctx, &RatesRequest{
		Details: ShippingDetails{
			Origin:      c.config.Origin,
			Destination: destination,
			Packaging: PackagingInfo{
				Type:     "package",
				Packages: []Package{packageOf(req)},
			},
		},
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			err = shipping.NewProviderError(carrierName, apiErr.Code, apiErr.Message)
		}
		c.logger.Ctx(ctx).Error("Freightcom API error", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	quotes := make([]method.Quote, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		quotes = append(quotes, quoteOf(r))
	}
	span.SetAttributes(attribute.Int("quotes.count", len(quotes)))
	return quotes, nil
}

func (c *Client) destination(ctx context.Context, profileID string) (Location, error) {
	if profileID == "" {
		return Location{}, fmt.Errorf("%w: shipping profile", shipping.ErrMissingProperty)
	}
	p, err := c.profiles.LoadProfile(ctx, profileID)
	if err != nil {
		return Location{}, fmt.Errorf("loading shipping profile: %w", err)
	}
	a := p.Address
	name := a.GivenName
	if a.FamilyName != "" {
		name += " " + a.FamilyName
	}
	return Location{
		Name:        name,
		Address1:    a.AddressLine1,
		City:        a.Locality,
		Province:    a.AdministrativeArea,
		PostalCode:  a.PostalCode,
		Country:     a.CountryCode,
		Residential: true,
	}, nil
}

func (c *Client) getRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/rate", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var submitted RateRequestResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return nil, fmt.Errorf("decoding rate request response: %w", err)
	}
	return c.pollRates(ctx, submitted.RequestID)
}

func (c *Client) pollRates(ctx context.Context, requestID string) (*RatesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.PollTimeout)
	defer cancel()
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	path := "/rate/" + requestID
	for {
		result, err := c.fetchRates(ctx, path)
		if err != nil {
			return nil, err
		}
		switch result.Status {
		case "complete":
			return result, nil
		case "error":
			return nil, &APIError{Code: "RATE_ERROR", Message: result.Error}
		case "pending":
		default:
			return nil, &APIError{Code: "UNKNOWN_STATUS", Message: "unknown rate status " + result.Status}
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, &APIError{Code: "TIMEOUT", Message: "rate request timed out waiting for results"}
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchRates(ctx context.Context, path string) (*RatesResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}
	var result RatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding rates response: %w", err)
	}
	return &result, nil
}

func (c *Client) doRequest(ctx context.Context, httpMethod, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.config.APIKey)
	req.Header.Set("User-Agent", "tournevent-shipping/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shipping.NewProviderError(carrierName, "UNAVAILABLE", "request failed").WithCause(err)
	}
	return resp, nil
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		return &apiErr
	}
	var simple struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &simple); err == nil {
		msg := simple.Error
		if msg == "" {
			msg = simple.Message
		}
		if msg != "" {
			return &APIError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: msg}
		}
	}
	return &APIError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: string(body)}
}

func packageOf(req *method.QuoteRequest) Package {
	p := Package{Quantity: 1}
	if req.Weight.Unit != "" {
		p.Weight = toFloat(req.Weight.Convert(physical.Kilogram).Number)
	}
	if pt := req.PackageType; pt != nil {
		p.Description = pt.Label
		p.Length = centimeters(pt.Dimensions.Length)
		p.Width = centimeters(pt.Dimensions.Width)
		p.Height = centimeters(pt.Dimensions.Height)
	}
	return p
}

func centimeters(l physical.Length) float64 {
	if l.Unit == "" {
		return 0
	}
	return toFloat(l.Convert(physical.Centimeter).Number)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(3).Float64()
	return f
}

func quoteOf(r Rate) method.Quote {
	q := method.Quote{
		ServiceID:    r.ServiceCode,
		ServiceLabel: r.CarrierName + " " + r.ServiceName,
		Amount:       price.FromDecimal(r.TotalPrice, r.Currency),
		TransitDays:  r.TransitDays,
	}
	if t, err := time.Parse(time.DateOnly, r.EstimatedDelivery); err == nil {
		q.DeliveryDate = &t
	}
	return q
}
