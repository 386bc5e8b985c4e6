package notion

import (
	"strconv"
	"strings"
)

const (
	PropertyTypeTitle    = "title"
	PropertyTypeRichText = "rich_text"
	PropertyTypeUniqueID = "unique_id"
	PropertyTypeFormula  = "formula"
	PropertyTypeFiles    = "files"
	PropertyTypeNumber   = "number"
)

type Page struct {
	Object         string              `json:"object"`
	ID             string              `json:"id"`
	Parent         Parent              `json:"parent"`
	Archived       bool                `json:"archived"`
	CreatedTime    string              `json:"created_time,omitempty"`
	LastEditedTime string              `json:"last_edited_time,omitempty"`
	Properties     map[string]Property `json:"properties"`
}

type Parent struct {
	Type       string `json:"type"`
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
}

// Property holds the value shapes read by this package. Unknown types keep
// only ID and Type.
type Property struct {
	ID       string     `json:"id,omitempty"`
	Type     string     `json:"type"`
	Title    []RichText `json:"title,omitempty"`
	RichText []RichText `json:"rich_text,omitempty"`
	UniqueID *UniqueID  `json:"unique_id,omitempty"`
	Formula  *Formula   `json:"formula,omitempty"`
	Files    []File     `json:"files,omitempty"`
	Number   *float64   `json:"number,omitempty"`
}

type RichText struct {
	Type      string `json:"type,omitempty"`
	PlainText string `json:"plain_text"`
}

type UniqueID struct {
	Prefix *string `json:"prefix"`
	Number *int64  `json:"number"`
}

// String renders PREFIX-NUMBER, or the bare number when no prefix is set.
func (u *UniqueID) String() string {
	if u == nil || u.Number == nil {
		return ""
	}
	number := strconv.FormatInt(*u.Number, 10)
	if u.Prefix == nil || strings.TrimSpace(*u.Prefix) == "" {
		return number
	}
	return strings.TrimSpace(*u.Prefix) + "-" + number
}

type Formula struct {
	Type   string   `json:"type"`
	String *string  `json:"string,omitempty"`
	Number *float64 `json:"number,omitempty"`
}

type File struct {
	Type       string          `json:"type"`
	Name       string          `json:"name,omitempty"`
	FileUpload *FileUploadLink `json:"file_upload,omitempty"`
}

type FileUploadLink struct {
	ID string `json:"id"`
}

type queryRequest struct {
	Filter      queryFilter `json:"filter"`
	PageSize    int         `json:"page_size"`
	StartCursor string      `json:"start_cursor,omitempty"`
}

type queryFilter struct {
	Property string           `json:"property"`
	Files    queryFilesFilter `json:"files"`
}

type queryFilesFilter struct {
	IsEmpty bool `json:"is_empty"`
}

type QueryResult struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type createFileUploadRequest struct {
	Mode        string `json:"mode"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type fileUploadResponse struct {
	Object      string `json:"object"`
	ID          string `json:"id"`
	Status      string `json:"status"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type updatePageRequest struct {
	Properties map[string]any `json:"properties"`
}

func plainText(parts []RichText) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.PlainText)
	}
	return strings.TrimSpace(b.String())
}
