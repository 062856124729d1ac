package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"medibook/pkg/model"
)

// BookingClient calls the bookings API. Methods return the raw Response so
// callers can assert on status codes; Decode* helpers unwrap the envelope.
type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// Issued mirrors the OTP issue response. Code is only present when the server
// runs with OTP_EXPOSE_CODE.
type Issued struct {
	model.OTPChallenge
	Code string `json:"code,omitempty"`
}

type Metadata struct {
	TotalCount int64
	Limit      int
	Offset     int64
}

func bookingPath(id string, parts ...string) string {
	path := "/api/v1/bookings/id/" + url.PathEscape(id)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

func (c *BookingClient) Create(ctx context.Context, req *model.CreateBookingRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/bookings", req)
}

func (c *BookingClient) GetAll(ctx context.Context, limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/api/v1/bookings?limit=%d&offset=%d", limit, offset))
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, bookingPath(id))
}

func (c *BookingClient) Cancel(ctx context.Context, id, reason string) (*Response, error) {
	return c.httpClient.POST(ctx, bookingPath(id, "cancel"), &model.CancelRequest{Reason: reason})
}

func (c *BookingClient) SetApproval(ctx context.Context, id string, req *model.ApprovalRequest) (*Response, error) {
	return c.httpClient.PATCH(ctx, bookingPath(id, "approval"), req)
}

func (c *BookingClient) RequestConsentOTP(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.POST(ctx, bookingPath(id, "consent", "otp"), nil)
}

func (c *BookingClient) ResendConsentOTP(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.POST(ctx, bookingPath(id, "consent", "otp", "resend"), nil)
}

func (c *BookingClient) VerifyConsent(ctx context.Context, id string, req *model.VerifyRequest) (*Response, error) {
	return c.httpClient.POST(ctx, bookingPath(id, "consent", "verify"), req)
}

func (c *BookingClient) RequestServiceOTP(ctx context.Context, id, serviceID string) (*Response, error) {
	return c.httpClient.POST(ctx, bookingPath(id, "services", serviceID, "otp"), nil)
}

func (c *BookingClient) ResendServiceOTP(ctx context.Context, id, serviceID string) (*Response, error) {
	return c.httpClient.POST(ctx, bookingPath(id, "services", serviceID, "otp", "resend"), nil)
}

func (c *BookingClient) VerifyService(ctx context.Context, id, serviceID string, req *model.VerifyRequest) (*Response, error) {
	return c.httpClient.POST(ctx, bookingPath(id, "services", serviceID, "verify"), req)
}

func (c *BookingClient) CancelService(ctx context.Context, id, serviceID string) (*Response, error) {
	return c.httpClient.POST(ctx, bookingPath(id, "services", serviceID, "cancel"), nil)
}

func (c *BookingClient) GetOTP(ctx context.Context, sessionID string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/otp/"+url.PathEscape(sessionID))
}

func (c *BookingClient) Worklist(ctx context.Context, query url.Values) (*Response, error) {
	path := "/api/v1/worklist"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.httpClient.GET(ctx, path)
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var booking model.Booking
	if err := resp.DecodeData(&booking); err != nil {
		return nil, fmt.Errorf("could not decode booking: %w (%s)", err, resp.ToString())
	}
	return &booking, nil
}

func (c *BookingClient) DecodeIssued(resp *Response) (*Issued, error) {
	var issued Issued
	if err := resp.DecodeData(&issued); err != nil {
		return nil, fmt.Errorf("could not decode otp challenge: %w (%s)", err, resp.ToString())
	}
	return &issued, nil
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]*model.Booking, *Metadata, error) {
	var wrapper struct {
		Data       json.RawMessage `json:"data"`
		TotalCount int64           `json:"total_count"`
		Limit      int             `json:"limit"`
		Offset     int64           `json:"offset"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated response: %w (%s)", err, resp.ToString())
	}

	var bookings []*model.Booking
	if err := json.Unmarshal(wrapper.Data, &bookings); err != nil {
		return nil, nil, fmt.Errorf("could not decode booking list: %w (%s)", err, resp.ToString())
	}

	return bookings, &Metadata{
		TotalCount: wrapper.TotalCount,
		Limit:      wrapper.Limit,
		Offset:     wrapper.Offset,
	}, nil
}
