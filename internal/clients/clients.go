package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
)

// IdentityLookup resolves whether a user exists at the identity authority
type IdentityLookup interface {
	LookupUser(ctx context.Context, userID int64, credential string) (*User, error)
}

// PriceLookup resolves the current per-participant price of a tour
type PriceLookup interface {
	UnitPrice(ctx context.Context, tourID int64) (decimal.Decimal, error)
}

// TourLookup fetches the catalog summary of a tour
type TourLookup interface {
	TourInfo(ctx context.Context, tourID int64) (*booking.TourInfo, error)
}

// User is the identity authority's view of a user
type User struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone"`
}

type tourResponse struct {
	ID           int64            `json:"id"`
	Title        string           `json:"title"`
	Destination  string           `json:"destination"`
	Price        *decimal.Decimal `json:"price"`
	DurationDays int              `json:"duration_days"`
}

// IdentityClient calls the identity authority over HTTP
type IdentityClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewIdentityClient creates a client whose calls are bounded by timeout
func NewIdentityClient(baseURL string, timeout time.Duration) *IdentityClient {
	return &IdentityClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// LookupUser fetches a user, forwarding the caller's bearer credential
func (c *IdentityClient) LookupUser(ctx context.Context, userID int64, credential string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+strconv.FormatInt(userID, 10), nil)
	if err != nil {
		return nil, booking.Internal("failed to build identity request", err)
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	var user User
	if err := do(c.httpClient, req, "identity service", &user); err != nil {
		if booking.KindOf(err) == booking.KindNotFound {
			return nil, booking.NewError(booking.KindUserNotFound, fmt.Sprintf("user %d not found", userID), nil)
		}
		return nil, err
	}
	return &user, nil
}

// CatalogClient calls the catalog authority over HTTP. Tour reads are
// public, so no credential is sent.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCatalogClient creates a client whose calls are bounded by timeout
func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UnitPrice returns the tour's current price
func (c *CatalogClient) UnitPrice(ctx context.Context, tourID int64) (decimal.Decimal, error) {
	tour, err := c.getTour(ctx, tourID)
	if err != nil {
		return decimal.Zero, err
	}
	return *tour.Price, nil
}

// TourInfo returns the tour summary used to enrich listings
func (c *CatalogClient) TourInfo(ctx context.Context, tourID int64) (*booking.TourInfo, error) {
	tour, err := c.getTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	return &booking.TourInfo{
		Title:        tour.Title,
		Destination:  tour.Destination,
		Price:        *tour.Price,
		DurationDays: tour.DurationDays,
	}, nil
}

func (c *CatalogClient) getTour(ctx context.Context, tourID int64) (*tourResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tours/"+strconv.FormatInt(tourID, 10), nil)
	if err != nil {
		return nil, booking.Internal("failed to build catalog request", err)
	}

	var tour tourResponse
	if err := do(c.httpClient, req, "catalog service", &tour); err != nil {
		if booking.KindOf(err) == booking.KindNotFound {
			return nil, booking.NewError(booking.KindTourNotFound, fmt.Sprintf("tour %d not found", tourID), nil)
		}
		return nil, err
	}
	if tour.Price == nil || tour.Price.IsNegative() {
		return nil, booking.Upstream(fmt.Sprintf("catalog service returned no usable price for tour %d", tourID), nil)
	}
	return &tour, nil
}

// do performs one attempt. 404 is reported as KindNotFound for the caller
// to specialise; anything else short of a decodable 200 is upstream trouble.
func do(client *http.Client, req *http.Request, service string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return booking.Upstream(service+" unavailable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return booking.NewError(booking.KindNotFound, service+" reported not found", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return booking.Upstream(fmt.Sprintf("%s returned status %d", service, resp.StatusCode), fmt.Errorf("%s", body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return booking.Upstream("failed to decode "+service+" response", err)
	}
	return nil
}
