package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/menootpass/admin-gemitra/libs/refcodec"
	"github.com/shopspring/decimal"
)

const (
	fuzzySearchMinLength   = 4
	fuzzySearchMaxDistance = 2
	categoryFilterAll      = "all"
)

// Destination is a destination row as the sheet returns it.
type Destination struct {
	ID          sheetText           `json:"id"`
	Name        sheetText           `json:"nama"`
	Location    sheetText           `json:"lokasi"`
	Category    sheetText           `json:"kategori"`
	Image       refcodec.ImageField `json:"img"`
	Description sheetText           `json:"deskripsi"`
	Facilities  sheetText           `json:"fasilitas"`
	Position    sheetText           `json:"posisi"`
	Price       sheetText           `json:"harga"`
	Rating      json.RawMessage     `json:"rating"`
	Comments    json.RawMessage     `json:"komentar"`
	Visits      json.RawMessage     `json:"dikunjungi"`
}

// DestinationRecord is the body written back to the sheet.
type DestinationRecord struct {
	Action      string          `json:"action,omitempty"`
	ID          any             `json:"id,omitempty"`
	Name        string          `json:"nama"`
	Location    string          `json:"lokasi"`
	Category    string          `json:"kategori"`
	Image       string          `json:"img"`
	Description string          `json:"deskripsi"`
	Facilities  string          `json:"fasilitas"`
	Position    string          `json:"posisi"`
	Price       json.Number     `json:"harga"`
	Rating      json.RawMessage `json:"rating"`
	Comments    json.RawMessage `json:"komentar"`
	Visits      json.RawMessage `json:"dikunjungi"`
}

// DestinationForm is the edit form for a destination. Coordinates and
// price are free text.
type DestinationForm struct {
	Name        sheetText `json:"nama"`
	Location    sheetText `json:"lokasi"`
	Category    sheetText `json:"kategori"`
	Image       sheetText `json:"img"`
	Description sheetText `json:"deskripsi"`
	Facilities  sheetText `json:"fasilitas"`
	Altitude    sheetText `json:"altitude"`
	Longitude   sheetText `json:"longitude"`
	Price       sheetText `json:"harga"`
}

type DestinationView struct {
	ID          string                `json:"id"`
	Name        string                `json:"nama"`
	Location    string                `json:"lokasi"`
	Category    string                `json:"kategori"`
	Description string                `json:"deskripsi"`
	Facilities  string                `json:"fasilitas"`
	Price       json.Number           `json:"harga"`
	Rating      json.RawMessage       `json:"rating"`
	Comments    json.RawMessage       `json:"komentar"`
	Visits      json.RawMessage       `json:"dikunjungi"`
	Images      []string              `json:"images"`
	ImageURLs   []string              `json:"image_urls"`
	Position    *refcodec.GeoPosition `json:"position"`
}

// Event is an event row as the sheet returns it.
type Event struct {
	ID           sheetText           `json:"id"`
	Title        sheetText           `json:"title"`
	Description  sheetText           `json:"description"`
	Image        refcodec.ImageField `json:"image"`
	Date         sheetText           `json:"date"`
	Location     sheetText           `json:"location"`
	Category     sheetText           `json:"category"`
	Readers      json.RawMessage     `json:"totalPembaca"`
	Content      sheetText           `json:"content"`
	Author       sheetText           `json:"author"`
	Slug         sheetText           `json:"slug"`
	Destinations sheetList           `json:"destinasi"`
}

// EventRecord is the body written back to the sheet.
type EventRecord struct {
	Action       string `json:"action"`
	ID           string `json:"id,omitempty"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Image        string `json:"image"`
	Date         string `json:"date"`
	Location     string `json:"location"`
	Category     string `json:"category"`
	Content      string `json:"content"`
	Author       string `json:"author"`
	Destinations string `json:"destinasi"`
}

type EventForm struct {
	Title          sheetText `json:"title"`
	Description    sheetText `json:"description"`
	Image          sheetText `json:"image"`
	Date           sheetText `json:"date"`
	Location       sheetText `json:"location"`
	Category       sheetText `json:"category"`
	Content        sheetText `json:"content"`
	Author         sheetText `json:"author"`
	DestinationIDs []string  `json:"destinasi_ids"`
}

type EventView struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Date           string          `json:"date"`
	Location       string          `json:"location"`
	Category       string          `json:"category"`
	Content        string          `json:"content"`
	Author         string          `json:"author"`
	Slug           string          `json:"slug"`
	Readers        json.RawMessage `json:"total_pembaca"`
	Images         []string        `json:"images"`
	ImageURLs      []string        `json:"image_urls"`
	DestinationIDs []string        `json:"destinasi_ids"`
}

// sheetList reads either a comma-joined string or a JSON list.
type sheetList []string

func (l *sheetList) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '[' {
		var items []sheetText
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if v := item.String(); v != "" {
				out = append(out, v)
			}
		}
		*l = out
		return nil
	}
	var text sheetText
	if err := text.UnmarshalJSON(raw); err != nil {
		return err
	}
	*l = splitCommaList(text.String())
	return nil
}

func splitCommaList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func rawOrDefault(raw json.RawMessage, fallback string) json.RawMessage {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(fallback)
	}
	return raw
}

// parsePrice reads a price leniently; anything unparseable is zero.
func parsePrice(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return price
}

func (a *App) destinationView(d Destination) DestinationView {
	ids := a.codec.DecodeImageField(d.Image)
	view := DestinationView{
		ID:          d.ID.String(),
		Name:        d.Name.String(),
		Location:    d.Location.String(),
		Category:    d.Category.String(),
		Description: string(d.Description),
		Facilities:  string(d.Facilities),
		Price:       json.Number(parsePrice(d.Price.String()).String()),
		Rating:      rawOrDefault(d.Rating, "0"),
		Comments:    rawOrDefault(d.Comments, `""`),
		Visits:      rawOrDefault(d.Visits, "0"),
		Images:      ids,
		ImageURLs:   a.codec.URLs(ids),
	}
	if pos, ok := refcodec.DecodePosition(d.Position.String()); ok {
		view.Position = &pos
	}
	return view
}

func (a *App) destinationFormView(d Destination) DestinationForm {
	altitude, longitude := refcodec.PositionFormFields(d.Position.String())
	return DestinationForm{
		Name:        d.Name,
		Location:    d.Location,
		Category:    d.Category,
		Image:       sheetText(strings.Join(a.codec.DecodeImageField(d.Image), ", ")),
		Description: d.Description,
		Facilities:  d.Facilities,
		Altitude:    sheetText(altitude),
		Longitude:   sheetText(longitude),
		Price:       d.Price,
	}
}

func validateDestinationForm(form DestinationForm) error {
	missing := missingFields(
		fieldValue{"nama", form.Name.String()},
		fieldValue{"deskripsi", form.Description.String()},
		fieldValue{"lokasi", form.Location.String()},
		fieldValue{"kategori", form.Category.String()},
	)
	if len(missing) > 0 {
		return &apiError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_payload",
			Message: fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}

// destinationRecord encodes a form for the sheet. existing carries the
// counters an update must keep; it is nil on create.
func (a *App) destinationRecord(form DestinationForm, existing *Destination) DestinationRecord {
	rec := DestinationRecord{
		Name:        form.Name.String(),
		Location:    form.Location.String(),
		Category:    form.Category.String(),
		Image:       a.codec.EncodeImageField(refcodec.ParseIdentifierList(string(form.Image))),
		Description: string(form.Description),
		Facilities:  string(form.Facilities),
		Position:    refcodec.EncodePosition(form.Altitude.String(), form.Longitude.String()),
		Price:       json.Number(parsePrice(form.Price.String()).String()),
		Rating:      json.RawMessage("0"),
		Comments:    json.RawMessage(`"[]"`),
		Visits:      json.RawMessage("0"),
	}
	if existing != nil {
		rec.Rating = rawOrDefault(existing.Rating, "0")
		rec.Comments = rawOrDefault(existing.Comments, `""`)
		rec.Visits = rawOrDefault(existing.Visits, "0")
	}
	return rec
}

func (a *App) eventView(e Event) EventView {
	ids := a.codec.DecodeImageField(e.Image)
	destinations := []string(e.Destinations)
	if destinations == nil {
		destinations = []string{}
	}
	return EventView{
		ID:             e.ID.String(),
		Title:          e.Title.String(),
		Description:    string(e.Description),
		Date:           e.Date.String(),
		Location:       e.Location.String(),
		Category:       e.Category.String(),
		Content:        string(e.Content),
		Author:         e.Author.String(),
		Slug:           e.Slug.String(),
		Readers:        rawOrDefault(e.Readers, "0"),
		Images:         ids,
		ImageURLs:      a.codec.URLs(ids),
		DestinationIDs: destinations,
	}
}

func (a *App) eventFormView(e Event) EventForm {
	destinations := []string(e.Destinations)
	if destinations == nil {
		destinations = []string{}
	}
	return EventForm{
		Title:          e.Title,
		Description:    e.Description,
		Image:          sheetText(strings.Join(a.codec.DecodeImageField(e.Image), "\n")),
		Date:           e.Date,
		Location:       e.Location,
		Category:       e.Category,
		Content:        e.Content,
		Author:         e.Author,
		DestinationIDs: destinations,
	}
}

func validateEventForm(form EventForm) error {
	missing := missingFields(
		fieldValue{"title", form.Title.String()},
		fieldValue{"description", form.Description.String()},
		fieldValue{"image", form.Image.String()},
		fieldValue{"date", form.Date.String()},
		fieldValue{"location", form.Location.String()},
		fieldValue{"category", form.Category.String()},
		fieldValue{"content", form.Content.String()},
		fieldValue{"author", form.Author.String()},
	)
	if len(missing) > 0 {
		return &apiError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_payload",
			Message: fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}

func (a *App) eventRecord(form EventForm) EventRecord {
	destinations := make([]string, 0, len(form.DestinationIDs))
	for _, id := range form.DestinationIDs {
		if id = strings.TrimSpace(id); id != "" {
			destinations = append(destinations, id)
		}
	}
	return EventRecord{
		Title:        form.Title.String(),
		Description:  string(form.Description),
		Image:        a.codec.EncodeImageField(refcodec.ParseIdentifierList(string(form.Image))),
		Date:         form.Date.String(),
		Location:     form.Location.String(),
		Category:     form.Category.String(),
		Content:      string(form.Content),
		Author:       form.Author.String(),
		Destinations: strings.Join(destinations, ","),
	}
}

type fieldValue struct {
	name  string
	value string
}

func missingFields(fields ...fieldValue) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// catalogFilter is the list query shared by destinations and events.
type catalogFilter struct {
	Query    string
	Category string
}

func (f catalogFilter) matchesCategory(category string) bool {
	want := strings.TrimSpace(f.Category)
	if want == "" || strings.EqualFold(want, categoryFilterAll) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(category), want)
}

// matchesSearch reports whether the query is a case-insensitive substring
// of any field, or is within a small edit distance of a word of the first
// field.
func (f catalogFilter) matchesSearch(primary string, others ...string) bool {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	if query == "" {
		return true
	}
	for _, field := range append([]string{primary}, others...) {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	if len([]rune(query)) < fuzzySearchMinLength || strings.ContainsFunc(query, unicode.IsSpace) {
		return false
	}
	for _, word := range strings.FieldsFunc(strings.ToLower(primary), isWordSeparator) {
		if levenshtein.ComputeDistance(query, word) <= fuzzySearchMaxDistance {
			return true
		}
	}
	return false
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func filterDestinations(items []Destination, filter catalogFilter) []Destination {
	out := make([]Destination, 0, len(items))
	for _, d := range items {
		if !filter.matchesCategory(d.Category.String()) {
			continue
		}
		if !filter.matchesSearch(d.Name.String(), d.Location.String()) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func filterEvents(items []Event, filter catalogFilter) []Event {
	out := make([]Event, 0, len(items))
	for _, e := range items {
		if !filter.matchesCategory(e.Category.String()) {
			continue
		}
		if !filter.matchesSearch(e.Title.String(), e.Location.String()) {
			continue
		}
		out = append(out, e)
	}
	return out
}
