package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-qrsync/core"
	"github.com/goliatone/go-qrsync/transport"
)

const (
	OperationQueryDatabase    = "notion.databases.query"
	OperationRetrievePage     = "notion.pages.retrieve"
	OperationUpdatePage       = "notion.pages.update"
	OperationCreateFileUpload = "notion.file_uploads.create"
	OperationSendFileUpload   = "notion.file_uploads.send"
)

const (
	defaultPageSize      = 100
	fileUploadModeSingle = "single_part"
	fileUploadFormField  = "file"
	fileReferenceType    = "file_upload"
)

// Client issues Notion API calls. Every call goes through Transport, so
// retries and admission control are applied per request.
type Client struct {
	BaseURL    string
	Token      string
	Version    string
	DatabaseID string
	Schema     PropertySchema
	Transport  core.TransportAdapter
	Logger     core.Logger
}

func NewClient(cfg core.NotionConfig, adapter core.TransportAdapter, logger core.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = core.DefaultNotionBaseURL
	}
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = core.DefaultNotionVersion
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      strings.TrimSpace(cfg.Token),
		Version:    version,
		DatabaseID: strings.TrimSpace(cfg.DatabaseID),
		Schema:     NewPropertySchema(cfg.Properties),
		Transport:  adapter,
		Logger:     glog.Ensure(logger),
	}
}

// QueryPending returns every database page whose artifact property is empty,
// following next_cursor until the result set is exhausted.
func (c *Client) QueryPending(ctx context.Context) ([]Page, error) {
	var pages []Page
	cursor := ""
	for {
		result, err := c.QueryPendingPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		pages = append(pages, result.Results...)
		core.LogDebug(ctx, c.Logger, "notion query page fetched", map[string]any{
			"database_id": c.DatabaseID,
			"results":     len(result.Results),
			"has_more":    result.HasMore,
		})
		if !result.HasMore || result.NextCursor == nil || strings.TrimSpace(*result.NextCursor) == "" {
			return pages, nil
		}
		next := strings.TrimSpace(*result.NextCursor)
		if next == cursor {
			return nil, notionError(
				"notion: query returned a repeated cursor",
				goerrors.CategoryExternal,
				http.StatusBadGateway,
				map[string]any{"cursor": next},
			)
		}
		cursor = next
	}
}

func (c *Client) QueryPendingPage(ctx context.Context, cursor string) (QueryResult, error) {
	if strings.TrimSpace(c.DatabaseID) == "" {
		return QueryResult{}, notionError("notion: database id is required", goerrors.CategoryValidation, http.StatusBadRequest, nil)
	}
	payload := queryRequest{
		Filter: queryFilter{
			Property: c.Schema.ArtifactProperty,
			Files:    queryFilesFilter{IsEmpty: true},
		},
		PageSize:    defaultPageSize,
		StartCursor: strings.TrimSpace(cursor),
	}
	var result QueryResult
	path := "/databases/" + url.PathEscape(c.DatabaseID) + "/query"
	if err := c.doJSON(ctx, OperationQueryDatabase, http.MethodPost, path, payload, &result); err != nil {
		return QueryResult{}, err
	}
	return result, nil
}

func (c *Client) RetrieveRecord(ctx context.Context, recordID string) (Page, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return Page{}, notionError("notion: record id is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	var page Page
	if err := c.doJSON(ctx, OperationRetrievePage, http.MethodGet, "/pages/"+url.PathEscape(recordID), nil, &page); err != nil {
		return Page{}, err
	}
	return page, nil
}

func (c *Client) UpdateRecordProperties(ctx context.Context, recordID string, properties map[string]any) error {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return notionError("notion: record id is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	if len(properties) == 0 {
		return notionError("notion: at least one property is required", goerrors.CategoryBadInput, http.StatusBadRequest, map[string]any{"record_id": recordID})
	}
	return c.doJSON(ctx, OperationUpdatePage, http.MethodPatch, "/pages/"+url.PathEscape(recordID), updatePageRequest{Properties: properties}, nil)
}

// AttachArtifact replaces the artifact property with a single uploaded file.
func (c *Client) AttachArtifact(ctx context.Context, recordID string, fileID string, filename string) error {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return notionError("notion: file upload id is required", goerrors.CategoryBadInput, http.StatusBadRequest, map[string]any{"record_id": recordID})
	}
	return c.UpdateRecordProperties(ctx, recordID, map[string]any{
		c.Schema.ArtifactProperty: map[string]any{
			"files": []File{{
				Type:       fileReferenceType,
				Name:       strings.TrimSpace(filename),
				FileUpload: &FileUploadLink{ID: fileID},
			}},
		},
	})
}

func (c *Client) CreateFileUpload(ctx context.Context, filename string, contentType string) (core.FileUpload, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return core.FileUpload{}, notionError("notion: filename is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	var res fileUploadResponse
	payload := createFileUploadRequest{
		Mode:        fileUploadModeSingle,
		Filename:    filename,
		ContentType: strings.TrimSpace(contentType),
	}
	if err := c.doJSON(ctx, OperationCreateFileUpload, http.MethodPost, "/file_uploads", payload, &res); err != nil {
		return core.FileUpload{}, err
	}
	return res.toFileUpload(OperationCreateFileUpload)
}

// SendFileUpload transmits the file bytes into an upload slot.
func (c *Client) SendFileUpload(ctx context.Context, uploadID string, filename string, contentType string, data []byte) (core.FileUpload, error) {
	uploadID = strings.TrimSpace(uploadID)
	if uploadID == "" {
		return core.FileUpload{}, notionError("notion: file upload id is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	body, formContentType, err := transport.EncodeMultipartFile(fileUploadFormField, filename, contentType, data)
	if err != nil {
		return core.FileUpload{}, err
	}
	res, err := c.call(ctx, OperationSendFileUpload, http.MethodPost, "/file_uploads/"+url.PathEscape(uploadID)+"/send", body, map[string]string{
		"Content-Type": formContentType,
	})
	if err != nil {
		return core.FileUpload{}, err
	}
	var uploaded fileUploadResponse
	if err := decodeBody(OperationSendFileUpload, res.Body, &uploaded); err != nil {
		return core.FileUpload{}, err
	}
	return uploaded.toFileUpload(OperationSendFileUpload)
}

func (c *Client) doJSON(ctx context.Context, operation string, method string, path string, payload any, out any) error {
	var body []byte
	headers := map[string]string{}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return notionWrapError(err, goerrors.CategoryInternal, "notion: encode request body", http.StatusInternalServerError, map[string]any{"operation": operation})
		}
		body = encoded
		headers["Content-Type"] = "application/json"
	}
	res, err := c.call(ctx, operation, method, path, body, headers)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeBody(operation, res.Body, out)
}

func (c *Client) call(ctx context.Context, operation string, method string, path string, body []byte, headers map[string]string) (core.TransportResponse, error) {
	if c == nil || c.Transport == nil {
		return core.TransportResponse{}, notionError(
			"notion: client requires a transport",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"operation": operation},
		)
	}
	if strings.TrimSpace(c.Token) == "" {
		return core.TransportResponse{}, notionError(
			"notion: api token is required",
			goerrors.CategoryValidation,
			http.StatusBadRequest,
			map[string]any{"operation": operation},
		)
	}
	merged := map[string]string{
		"Authorization":  "Bearer " + c.Token,
		"Notion-Version": c.Version,
		"Accept":         "application/json",
	}
	for key, value := range headers {
		merged[key] = value
	}
	res, err := c.Transport.Do(ctx, core.TransportRequest{
		Method:   method,
		URL:      c.BaseURL + path,
		Headers:  merged,
		Body:     body,
		Metadata: map[string]any{"operation": operation},
	})
	if err != nil {
		return core.TransportResponse{}, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return core.TransportResponse{}, &transport.ExhaustedError{
			Operation:  operation,
			Method:     method,
			URL:        c.BaseURL + path,
			Attempts:   1,
			StatusCode: res.StatusCode,
			Body:       res.Body,
			Permanent:  true,
		}
	}
	return res, nil
}

func decodeBody(operation string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return notionWrapError(err, goerrors.CategoryExternal, "notion: decode response body", http.StatusBadGateway, map[string]any{"operation": operation})
	}
	return nil
}

func (r fileUploadResponse) toFileUpload(operation string) (core.FileUpload, error) {
	if strings.TrimSpace(r.ID) == "" {
		return core.FileUpload{}, notionError(
			"notion: file upload response has no id",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"operation": operation},
		)
	}
	return core.FileUpload{
		ID:          strings.TrimSpace(r.ID),
		Status:      r.Status,
		Filename:    r.Filename,
		ContentType: r.ContentType,
	}, nil
}
