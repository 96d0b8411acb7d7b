package notion

// ObjectType filters search results.
type ObjectType string

const (
	ObjectPage     ObjectType = "page"
	ObjectDatabase ObjectType = "database"
)

const (
	defaultSearchLimit = 10
	maxPageSize        = 100
)

// SearchQuery is the input of Search.
type SearchQuery struct {
	Keyword    string
	ObjectType ObjectType
	Limit      int
}

// SearchResult is one match, newest first.
type SearchResult struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Type           string `json:"type"`
	LastEditedTime string `json:"last_edited_time"`
}

// Block is a raw Notion block object. Recursive fetches add a "children" key
// holding []Block.
type Block map[string]any

type sortSpec struct {
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
}

type objectFilter struct {
	Value    string `json:"value"`
	Property string `json:"property"`
}

type searchRequest struct {
	Query    string        `json:"query,omitempty"`
	Sort     sortSpec      `json:"sort"`
	Filter   *objectFilter `json:"filter,omitempty"`
	PageSize int           `json:"page_size"`
}

func newestFirst() sortSpec {
	return sortSpec{Timestamp: "last_edited_time", Direction: "descending"}
}

type childrenPage struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

type calloutUpdate struct {
	Callout calloutBody `json:"callout"`
}

type calloutBody struct {
	RichText any `json:"rich_text"`
}
