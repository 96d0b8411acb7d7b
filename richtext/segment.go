package richtext

import (
	"encoding/json"
	"fmt"
)

// Kind is the discriminator tag for Segment.
type Kind string

const (
	KindText    Kind = "text"
	KindMention Kind = "mention"
)

// Segment is one atomic unit of formatted output. The set of implementations
// is closed: Text and Mention.
type Segment interface {
	Kind() Kind
	segment()
}

// Text is a run of text, optionally bold.
type Text struct {
	Content string
	Bold    bool
}

// Mention references another page by identifier.
type Mention struct {
	PageID string
}

func (Text) Kind() Kind    { return KindText }
func (Mention) Kind() Kind { return KindMention }

func (Text) segment()    {}
func (Mention) segment() {}

type textObject struct {
	Type        string          `json:"type"`
	Text        textContent     `json:"text"`
	Annotations textAnnotations `json:"annotations"`
}

type textContent struct {
	Content string `json:"content"`
}

type textAnnotations struct {
	Bold bool `json:"bold"`
}

type mentionObject struct {
	Type    string      `json:"type"`
	Mention pageMention `json:"mention"`
}

type pageMention struct {
	Type string  `json:"type"`
	Page pageRef `json:"page"`
}

type pageRef struct {
	ID string `json:"id"`
}

// MarshalJSON renders the segment as a Notion rich_text text object.
func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(textObject{
		Type:        "text",
		Text:        textContent{Content: t.Content},
		Annotations: textAnnotations{Bold: t.Bold},
	})
}

// MarshalJSON renders the segment as a Notion rich_text page mention.
func (m Mention) MarshalJSON() ([]byte, error) {
	return json.Marshal(mentionObject{
		Type: "mention",
		Mention: pageMention{
			Type: "page",
			Page: pageRef{ID: m.PageID},
		},
	})
}

// Parse decodes a Notion rich_text array into segments. Only text and page
// mention objects are understood; anything else is an error.
func Parse(data []byte) ([]Segment, error) {
	var raw []struct {
		Type        string           `json:"type"`
		Text        *textContent     `json:"text"`
		Annotations *textAnnotations `json:"annotations"`
		Mention     *pageMention     `json:"mention"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode rich_text: %w", err)
	}

	segments := make([]Segment, 0, len(raw))
	for i, obj := range raw {
		switch {
		case obj.Type == "text" && obj.Text != nil:
			seg := Text{Content: obj.Text.Content}
			if obj.Annotations != nil {
				seg.Bold = obj.Annotations.Bold
			}
			segments = append(segments, seg)
		case obj.Type == "mention" && obj.Mention != nil && obj.Mention.Type == "page":
			segments = append(segments, Mention{PageID: obj.Mention.Page.ID})
		default:
			return nil, fmt.Errorf("rich_text[%d]: unsupported object type %q", i, obj.Type)
		}
	}
	return segments, nil
}
