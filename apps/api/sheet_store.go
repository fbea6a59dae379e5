package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/menootpass/admin-gemitra/libs/txreport"
)

var (
	errRecordNotFound   = errors.New("record not found")
	errStoreRejected    = errors.New("store rejected request")
	errStoreUnavailable = errors.New("store unavailable")
)

// SheetStore is the remote spreadsheet holding destinations, events and
// transactions.
type SheetStore interface {
	ListDestinations(ctx context.Context) ([]Destination, error)
	CreateDestination(ctx context.Context, rec DestinationRecord) error
	UpdateDestination(ctx context.Context, id string, rec DestinationRecord) error
	DeleteDestination(ctx context.Context, id string) error

	ListEvents(ctx context.Context) ([]Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	CreateEvent(ctx context.Context, rec EventRecord) error
	UpdateEvent(ctx context.Context, id string, rec EventRecord) error
	DeleteEvent(ctx context.Context, id string) error

	ListTransactions(ctx context.Context) ([]txreport.Transaction, error)
}

// StoreError carries the message a store endpoint returned with a failure.
type StoreError struct {
	Op      string
	Status  int
	Message string
}

func (e *StoreError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: store returned %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error { return errStoreRejected }

// storeEnvelope is the response shape of every script endpoint.
type storeEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (e storeEnvelope) failureMessage() string {
	if msg := strings.TrimSpace(e.Error); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return "request failed"
}

// HTTPSheetStore talks to the spreadsheet script endpoints over HTTP.
type HTTPSheetStore struct {
	CatalogURL     string
	TransactionURL string
	Client         *http.Client
	Log            *slog.Logger
}

func (s *HTTPSheetStore) ListDestinations(ctx context.Context) ([]Destination, error) {
	var out []Destination
	if err := s.get(ctx, "list destinations", s.CatalogURL, url.Values{"endpoint": {"destinations"}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSheetStore) CreateDestination(ctx context.Context, rec DestinationRecord) error {
	return s.post(ctx, "create destination", s.CatalogURL, rec)
}

func (s *HTTPSheetStore) UpdateDestination(ctx context.Context, id string, rec DestinationRecord) error {
	rec.Action = "update"
	rec.ID = storeIdentifier(id)
	return s.post(ctx, "update destination", s.CatalogURL, rec)
}

func (s *HTTPSheetStore) DeleteDestination(ctx context.Context, id string) error {
	return s.post(ctx, "delete destination", s.CatalogURL, map[string]any{
		"action": "delete",
		"id":     storeIdentifier(id),
	})
}

func (s *HTTPSheetStore) ListEvents(ctx context.Context) ([]Event, error) {
	var out []Event
	if err := s.get(ctx, "list events", s.CatalogURL, url.Values{"endpoint": {"events"}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSheetStore) GetEvent(ctx context.Context, id string) (*Event, error) {
	var raw json.RawMessage
	query := url.Values{"endpoint": {"events"}, "action": {"id"}, "id": {id}}
	if err := s.get(ctx, "get event", s.CatalogURL, query, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errRecordNotFound
	}

	// Some deployments answer with a one-element list.
	if raw[0] == '[' {
		var list []Event
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("get event: decode: %w: %w", errStoreUnavailable, err)
		}
		if len(list) == 0 {
			return nil, errRecordNotFound
		}
		return &list[0], nil
	}

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("get event: decode: %w: %w", errStoreUnavailable, err)
	}
	return &event, nil
}

func (s *HTTPSheetStore) CreateEvent(ctx context.Context, rec EventRecord) error {
	rec.Action = "addEvent"
	return s.post(ctx, "create event", s.CatalogURL, rec)
}

func (s *HTTPSheetStore) UpdateEvent(ctx context.Context, id string, rec EventRecord) error {
	rec.Action = "updateEvent"
	rec.ID = id
	return s.post(ctx, "update event", s.CatalogURL, rec)
}

func (s *HTTPSheetStore) DeleteEvent(ctx context.Context, id string) error {
	return s.post(ctx, "delete event", s.CatalogURL, map[string]any{
		"action": "deleteEvent",
		"id":     id,
	})
}

func (s *HTTPSheetStore) ListTransactions(ctx context.Context) ([]txreport.Transaction, error) {
	var out []txreport.Transaction
	if err := s.get(ctx, "list transactions", s.TransactionURL, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSheetStore) get(ctx context.Context, op, endpoint string, query url.Values, into any) error {
	target, err := withQuery(endpoint, query)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	return s.do(req, op, into)
}

func (s *HTTPSheetStore) post(ctx context.Context, op, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, op, nil)
}

func (s *HTTPSheetStore) do(req *http.Request, op string, into any) error {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, errStoreUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w: %w", op, errStoreUnavailable, err)
	}

	var envelope storeEnvelope
	var decodeErr error
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		envelope.Data = trimmed
	} else {
		decodeErr = json.Unmarshal(raw, &envelope)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(raw))
		if decodeErr == nil {
			message = envelope.failureMessage()
		}
		return &StoreError{Op: op, Status: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: decode envelope: %w: %w", op, errStoreUnavailable, decodeErr)
	}
	if envelope.Success != nil && !*envelope.Success {
		return &StoreError{Op: op, Message: envelope.failureMessage()}
	}

	if into == nil {
		return nil
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		if rawTarget, ok := into.(*json.RawMessage); ok {
			*rawTarget = nil
		}
		return nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("%s: decode data: %w: %w", op, errStoreUnavailable, err)
	}
	if s.Log != nil {
		s.Log.DebugContext(req.Context(), "sheet store call", "op", op, "bytes", len(raw))
	}
	return nil
}

func withQuery(endpoint string, query url.Values) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if len(query) == 0 {
		return u.String(), nil
	}
	values := u.Query()
	for key, vals := range query {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// storeIdentifier sends numeric row IDs as JSON numbers.
func storeIdentifier(id string) any {
	id = strings.TrimSpace(id)
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

// sheetText keeps a JSON string as is and any other value as its raw text.
type sheetText string

func (s *sheetText) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		*s = ""
	case raw[0] == '"':
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		*s = sheetText(v)
	default:
		*s = sheetText(raw)
	}
	return nil
}

func (s sheetText) String() string { return strings.TrimSpace(string(s)) }
