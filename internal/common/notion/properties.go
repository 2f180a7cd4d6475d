package notion

import (
	"strings"
	"unicode/utf8"

	gnt "github.com/dstotijn/go-notion"

	"recruiting-pipeline/internal/models"
)

// MaxSegmentLength is the per-segment character limit for rich_text values.
const MaxSegmentLength = 2000

// PropertyKind is the database property type a flat field is written as.
type PropertyKind string

const (
	KindRichText PropertyKind = "rich_text"
	KindTitle    PropertyKind = "title"
	KindEmail    PropertyKind = "email"
	KindPhone    PropertyKind = "phone_number"
	KindURL      PropertyKind = "url"
)

// Schema maps field names to property kinds. Unlisted fields are rich_text.
type Schema map[string]PropertyKind

func (s Schema) kind(name string) PropertyKind {
	if k, ok := s[name]; ok {
		return k
	}
	return KindRichText
}

// ApplicantSchema is the applicant database layout. Interview blobs, scores and
// the status are all rich_text.
var ApplicantSchema = Schema{
	models.FieldFullName: KindTitle,
	models.FieldEmail:    KindEmail,
	models.FieldPhone:    KindPhone,
	models.FieldLinkedIn: KindURL,
	models.FieldResume:   KindURL,
}

// Chunk splits s into segments of at most size characters. An empty string
// yields one empty segment so the property is cleared rather than omitted.
func Chunk(s string, size int) []string {
	if size <= 0 || utf8.RuneCountInString(s) <= size {
		return []string{s}
	}
	var out []string
	for len(s) > 0 {
		n, i := 0, 0
		for i < len(s) && n < size {
			_, w := utf8.DecodeRuneInString(s[i:])
			i += w
			n++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}

func richText(s string) []gnt.RichText {
	segs := Chunk(s, MaxSegmentLength)
	out := make([]gnt.RichText, 0, len(segs))
	for _, seg := range segs {
		out = append(out, gnt.RichText{
			Type: gnt.RichTextTypeText,
			Text: &gnt.Text{Content: seg},
		})
	}
	return out
}

func joinRichText(rt []gnt.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		if r.PlainText != "" {
			b.WriteString(r.PlainText)
		} else if r.Text != nil {
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

// buildProperties converts flat fields into typed database properties.
// Empty email/phone/url values are skipped.
func buildProperties(schema Schema, fields map[string]string) gnt.DatabasePageProperties {
	props := make(gnt.DatabasePageProperties, len(fields))
	for name, value := range fields {
		v := value
		switch schema.kind(name) {
		case KindTitle:
			props[name] = gnt.DatabasePageProperty{Type: gnt.DBPropTypeTitle, Title: richText(v)}
		case KindEmail:
			if v != "" {
				props[name] = gnt.DatabasePageProperty{Type: gnt.DBPropTypeEmail, Email: &v}
			}
		case KindPhone:
			if v != "" {
				props[name] = gnt.DatabasePageProperty{Type: gnt.DBPropTypePhoneNumber, PhoneNumber: &v}
			}
		case KindURL:
			if v != "" {
				props[name] = gnt.DatabasePageProperty{Type: gnt.DBPropTypeURL, URL: &v}
			}
		default:
			props[name] = gnt.DatabasePageProperty{Type: gnt.DBPropTypeRichText, RichText: richText(v)}
		}
	}
	return props
}

// flattenProperties reduces typed properties to strings. Property types with
// no sensible text form are dropped.
func flattenProperties(props gnt.DatabasePageProperties) map[string]string {
	out := make(map[string]string, len(props))
	for name, p := range props {
		switch {
		case p.Title != nil:
			out[name] = joinRichText(p.Title)
		case p.RichText != nil:
			out[name] = joinRichText(p.RichText)
		case p.Number != nil:
			out[name] = models.FormatNumber(*p.Number)
		case p.Select != nil:
			out[name] = p.Select.Name
		case p.Email != nil:
			out[name] = *p.Email
		case p.PhoneNumber != nil:
			out[name] = *p.PhoneNumber
		case p.URL != nil:
			out[name] = *p.URL
		case p.Type == gnt.DBPropTypeTitle, p.Type == gnt.DBPropTypeRichText:
			out[name] = ""
		}
	}
	return out
}

// REST wire shapes, used by the fallback client.

type restText struct {
	Content string `json:"content"`
}

type restRichText struct {
	Type      string    `json:"type,omitempty"`
	Text      *restText `json:"text,omitempty"`
	PlainText string    `json:"plain_text,omitempty"`
}

type restSelect struct {
	Name string `json:"name"`
}

type restProperty struct {
	Type        string         `json:"type"`
	Title       []restRichText `json:"title,omitempty"`
	RichText    []restRichText `json:"rich_text,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Select      *restSelect    `json:"select,omitempty"`
	Status      *restSelect    `json:"status,omitempty"`
	Email       *string        `json:"email,omitempty"`
	PhoneNumber *string        `json:"phone_number,omitempty"`
	URL         *string        `json:"url,omitempty"`
}

func restRichTextOf(s string) []restRichText {
	segs := Chunk(s, MaxSegmentLength)
	out := make([]restRichText, 0, len(segs))
	for _, seg := range segs {
		out = append(out, restRichText{Type: "text", Text: &restText{Content: seg}})
	}
	return out
}

func joinRestRichText(rt []restRichText) string {
	var b strings.Builder
	for _, r := range rt {
		if r.PlainText != "" {
			b.WriteString(r.PlainText)
		} else if r.Text != nil {
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

func buildRESTProperties(schema Schema, fields map[string]string) map[string]interface{} {
	props := make(map[string]interface{}, len(fields))
	for name, v := range fields {
		switch k := schema.kind(name); k {
		case KindTitle:
			props[name] = map[string]interface{}{"title": restRichTextOf(v)}
		case KindEmail, KindPhone, KindURL:
			if v != "" {
				props[name] = map[string]interface{}{string(k): v}
			}
		default:
			props[name] = map[string]interface{}{"rich_text": restRichTextOf(v)}
		}
	}
	return props
}

func flattenRESTProperties(props map[string]restProperty) map[string]string {
	out := make(map[string]string, len(props))
	for name, p := range props {
		switch p.Type {
		case "title":
			out[name] = joinRestRichText(p.Title)
		case "rich_text":
			out[name] = joinRestRichText(p.RichText)
		case "number":
			if p.Number != nil {
				out[name] = models.FormatNumber(*p.Number)
			}
		case "select":
			if p.Select != nil {
				out[name] = p.Select.Name
			}
		case "status":
			if p.Status != nil {
				out[name] = p.Status.Name
			}
		case "email":
			if p.Email != nil {
				out[name] = *p.Email
			}
		case "phone_number":
			if p.PhoneNumber != nil {
				out[name] = *p.PhoneNumber
			}
		case "url":
			if p.URL != nil {
				out[name] = *p.URL
			}
		}
	}
	return out
}
