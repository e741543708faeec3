package notion

// Notion API limits
const (
	MaxRichTextLength = 2000
	MaxTitleLength    = 100
	MaxSelectLength   = 100
	MaxMultiSelect    = 10
	MaxChildren       = 100
)

// Text is the content of a text rich-text run
type Text struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is a hyperlink target
type Link struct {
	URL string `json:"url"`
}

// Annotations style a rich-text run
type Annotations struct {
	Bold   bool `json:"bold,omitempty"`
	Italic bool `json:"italic,omitempty"`
	Code   bool `json:"code,omitempty"`
}

// RichText is one rich-text run
type RichText struct {
	Type        string       `json:"type"`
	Text        Text         `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// TextBlock is the payload of paragraph, heading, list and toggle blocks
type TextBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  *bool      `json:"checked,omitempty"`
	Children []Block    `json:"children,omitempty"`
}

// ExternalFile references a file by URL
type ExternalFile struct {
	URL string `json:"url"`
}

// ImageBlock is the payload of an image block
type ImageBlock struct {
	Type     string       `json:"type"`
	External ExternalFile `json:"external"`
}

// Block is a page content block. Exactly one payload field is set, matching Type.
type Block struct {
	Object           string      `json:"object"`
	Type             string      `json:"type"`
	Paragraph        *TextBlock  `json:"paragraph,omitempty"`
	Heading2         *TextBlock  `json:"heading_2,omitempty"`
	BulletedListItem *TextBlock  `json:"bulleted_list_item,omitempty"`
	ToDo             *TextBlock  `json:"to_do,omitempty"`
	Toggle           *TextBlock  `json:"toggle,omitempty"`
	Image            *ImageBlock `json:"image,omitempty"`
	Divider          *struct{}   `json:"divider,omitempty"`
}

// SelectOption names a select or multi-select value
type SelectOption struct {
	Name string `json:"name"`
}

// DateValue is the value of a date property
type DateValue struct {
	Start string `json:"start"`
}

// Property is a database page property value. Exactly one field is set.
type Property struct {
	Title       []RichText     `json:"title,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Number      *int           `json:"number,omitempty"`
}

// Parent identifies the database a page belongs to
type Parent struct {
	DatabaseID string `json:"database_id"`
}

// CreatePageRequest is the body of POST /pages
type CreatePageRequest struct {
	Parent     Parent              `json:"parent"`
	Properties map[string]Property `json:"properties"`
	Children   []Block             `json:"children,omitempty"`
}

// UpdatePageRequest is the body of PATCH /pages/{id}
type UpdatePageRequest struct {
	Properties map[string]Property `json:"properties"`
}

// Page is the subset of a page object returned by the API
type Page struct {
	Object string `json:"object"`
	ID     string `json:"id"`
	URL    string `json:"url"`
}
