package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/alignperks/loyalty-portal/internal/config"
)

// ErrSyncFailed wraps every error returned by the CRM API.
var ErrSyncFailed = errors.New("external sync failed")

// Contact is the subset of CRM contact fields the portal writes.
type Contact struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Client talks to a LeadConnector-style contacts API.
type Client struct {
	baseURL    string
	token      string
	version    string
	locationID string
	tracer     trace.Tracer
	httpClient *http.Client
}

// NewClient creates a Client from config. Requests have no client-wide timeout;
// callers bound each call through its context.
func NewClient(cfg config.CRMConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.AccessToken,
		version:    cfg.APIVersion,
		locationID: cfg.LocationID,
		tracer:     otel.Tracer("loyalty-portal/crm"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type customField struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// UpdateContactField sets one custom field on the contact.
func (c *Client) UpdateContactField(ctx context.Context, contactID, fieldID string, value any) error {
	body := map[string]any{"customFields": []customField{{ID: fieldID, Value: value}}}
	return c.do(ctx, "update_contact_field", http.MethodPut, "/contacts/"+url.PathEscape(contactID), body, nil)
}

// AddNote appends a note to the contact's timeline.
func (c *Client) AddNote(ctx context.Context, contactID, text string) error {
	body := map[string]string{"body": text}
	return c.do(ctx, "add_note", http.MethodPost, "/contacts/"+url.PathEscape(contactID)+"/notes", body, nil)
}

// AddTag adds tags to the contact.
func (c *Client) AddTag(ctx context.Context, contactID string, tags []string) error {
	body := map[string][]string{"tags": tags}
	return c.do(ctx, "add_tag", http.MethodPost, "/contacts/"+url.PathEscape(contactID)+"/tags", body, nil)
}

// CreateContact creates a contact in the configured CRM location and returns its id.
func (c *Client) CreateContact(ctx context.Context, contact Contact) (string, error) {
	body := struct {
		LocationID string `json:"locationId,omitempty"`
		Contact
	}{LocationID: c.locationID, Contact: contact}

	var resp struct {
		Contact struct {
			ID string `json:"id"`
		} `json:"contact"`
	}
	if err := c.do(ctx, "create_contact", http.MethodPost, "/contacts/", body, &resp); err != nil {
		return "", err
	}
	if resp.Contact.ID == "" {
		return "", fmt.Errorf("%w: create contact: response has no contact id", ErrSyncFailed)
	}
	return resp.Contact.ID, nil
}

// DeleteContact removes the contact.
func (c *Client) DeleteContact(ctx context.Context, contactID string) error {
	return c.do(ctx, "delete_contact", http.MethodDelete, "/contacts/"+url.PathEscape(contactID), nil, nil)
}

// do sends one JSON request inside a client span and decodes the response into out when set.
func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) error {
	ctx, span := c.tracer.Start(ctx, "crm."+operation, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %s: %v", ErrSyncFailed, operation, err)
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fail(fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Version", c.version)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	span.SetAttributes(
		attribute.String("http.url", endpoint),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fail(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(fmt.Errorf("status %d: %s", resp.StatusCode, apiMessage(raw, resp.Status)))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fail(fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// apiMessage extracts the API's "message" field, which may be a string or a list of strings.
func apiMessage(raw []byte, fallback string) string {
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Message) == 0 {
		return fallback
	}
	var single string
	if err := json.Unmarshal(body.Message, &single); err == nil && single != "" {
		return single
	}
	var many []string
	if err := json.Unmarshal(body.Message, &many); err == nil && len(many) > 0 {
		return strings.Join(many, "; ")
	}
	return fallback
}
