package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Common errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMalformedDocument   = errors.New("malformed document")
	ErrUnknownCollection   = errors.New("unknown collection")
	ErrInvalidDocumentName = errors.New("invalid document name")
)

// Document names inside the data directory
const (
	ContentDocument = "content.json"
	UsersDocument   = "users.json"
)

// DateLayout is the ISO-8601 layout used for inquiry capture times.
const DateLayout = "2006-01-02T15:04:05.000Z"

// Collection identifies an array-shaped document of records.
type Collection string

const (
	CollectionTestimonials Collection = "testimonials"
	CollectionPortfolio    Collection = "portfolio"
	CollectionTeam         Collection = "team"
	CollectionInquiries    Collection = "inquiries"
	CollectionServices     Collection = "services"
)

// Collections lists every collection kind in a stable order.
var Collections = []Collection{
	CollectionTestimonials,
	CollectionPortfolio,
	CollectionTeam,
	CollectionInquiries,
	CollectionServices,
}

// ParseCollection maps a path segment to a Collection.
func ParseCollection(s string) (Collection, error) {
	for _, c := range Collections {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, s)
}

// Document returns the file name backing the collection.
func (c Collection) Document() string {
	return string(c) + ".json"
}

// UploadField returns the multipart field carrying the record image, if any.
func (c Collection) UploadField() string {
	switch c {
	case CollectionPortfolio:
		return "image"
	case CollectionTeam:
		return "photo"
	default:
		return ""
	}
}

// SiteContent is the free-form key to text mapping shown on public pages.
type SiteContent map[string]string

// Text returns the value for key or an empty string.
func (sc SiteContent) Text(key string) string {
	return sc[key]
}

// UnmarshalJSON accepts any JSON value per key and keeps its text form.
// Numbers and booleans keep their literal spelling, null becomes empty and
// nested values are kept as compact JSON.
func (sc *SiteContent) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	content := make(SiteContent, len(raw))
	for k, v := range raw {
		text, err := contentText(v)
		if err != nil {
			return fmt.Errorf("content key %q: %w", k, err)
		}
		content[k] = text
	}

	*sc = content
	return nil
}

func contentText(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// Record is one entry of a collection: an id plus free-form fields.
// The id is always held as a string; numeric ids in stored documents are
// normalised on decode.
type Record struct {
	ID     string
	Fields map[string]any
}

// NewRecord builds a record without an id from submitted form values.
// Single values are stored as strings, repeated values as string slices.
func NewRecord(values map[string][]string) Record {
	fields := make(map[string]any, len(values))
	for k, v := range values {
		if k == "id" {
			continue
		}
		switch len(v) {
		case 0:
			fields[k] = ""
		case 1:
			fields[k] = v[0]
		default:
			fields[k] = append([]string(nil), v...)
		}
	}
	return Record{Fields: fields}
}

// Get returns the field as display text.
func (r Record) Get(key string) string {
	if key == "id" {
		return r.ID
	}
	switch v := r.Fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// Set assigns a field value.
func (r *Record) Set(key string, value any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[key] = value
}

// FieldNames returns the field keys in sorted order, without the id.
func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Image is the relative URL of a portfolio item's image.
func (r Record) Image() string { return r.Get("image") }

// Photo is the relative URL of a team member's photo.
func (r Record) Photo() string { return r.Get("photo") }

// Date is the capture time of an inquiry.
func (r Record) Date() string { return r.Get("date") }

// MarshalJSON writes the record flat, with the id next to its fields.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	return json.Marshal(out)
}

// UnmarshalJSON accepts string and numeric ids alike.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	id, err := normalizeID(raw["id"])
	if err != nil {
		return err
	}
	delete(raw, "id")

	r.ID = id
	r.Fields = raw
	return nil
}

func normalizeID(v any) (string, error) {
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	case json.Number:
		return id.String(), nil
	default:
		return "", fmt.Errorf("record id has unsupported type %T", v)
	}
}

// User is an admin account. Password holds a bcrypt hash, never plaintext.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// FormatDate renders t in the inquiry date layout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
