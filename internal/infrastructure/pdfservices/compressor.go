package pdfservices

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/resilience"
)

// Compressor drives the remote upload, compress, status and download endpoints.
type Compressor struct {
	client *Client
}

func NewCompressor(client *Client) *Compressor {
	return &Compressor{client: client}
}

func (c *Compressor) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	body, contentType, err := multipartFile(data, filename)
	if err != nil {
		return "", domain.WrapError(domain.ErrUpload, "build upload", err)
	}

	var response struct {
		DocumentID string `json:"documentId"`
	}
	err = c.client.execute(ctx, resilience.OpUpload, func(callCtx context.Context) error {
		raw, err := c.client.do(callCtx, "upload", c.client.timeouts.Upload, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.client.baseURL+uploadPath, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", contentType)
			return req, nil
		})
		if err != nil {
			return err
		}
		return decodeJSON(raw, &response, "upload")
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrUpload, "upload document", wrapTemporaryIfNeeded(resilience.OpUpload, err))
	}
	if response.DocumentID == "" {
		return "", domain.WrapError(domain.ErrUpload, "upload document", errors.New("no documentId returned"))
	}
	return response.DocumentID, nil
}

func multipartFile(data []byte, filename string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", domain.MimeTypePDF)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (c *Compressor) StartCompression(ctx context.Context, documentID string, level domain.CompressionLevel) (string, error) {
	if level == "" {
		level = domain.CompressionMedium
	}
	if !level.Valid() {
		return "", domain.WrapError(domain.ErrCompressionStart, "start compression", fmt.Errorf("unsupported compression level %q", level))
	}

	payload := map[string]string{
		"documentId":       documentID,
		"compressionLevel": string(level),
	}
	var response struct {
		TaskID string `json:"taskId"`
	}
	err := c.client.execute(ctx, resilience.OpCompress, func(callCtx context.Context) error {
		response.TaskID = ""
		return c.client.postJSON(callCtx, compressPath, c.client.timeouts.Compress, payload, &response, "compress")
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrCompressionStart, "start compression", wrapTemporaryIfNeeded(resilience.OpCompress, err))
	}
	if response.TaskID == "" {
		return "", domain.WrapError(domain.ErrCompressionStart, "start compression", errors.New("no taskId returned"))
	}
	return response.TaskID, nil
}

type taskResponse struct {
	TaskID           string          `json:"taskId"`
	DocumentID       string          `json:"documentId"`
	Status           string          `json:"status"`
	Progress         float64         `json:"progress"`
	ResultDocumentID string          `json:"resultDocumentId"`
	Error            json.RawMessage `json:"error"`
}

// TaskStatus makes exactly one status request.
func (c *Compressor) TaskStatus(ctx context.Context, taskID string) (*domain.CompressionTask, error) {
	var response taskResponse
	err := c.client.execute(ctx, resilience.OpTaskStatus, func(callCtx context.Context) error {
		return c.client.getJSON(callCtx, tasksPath+url.PathEscape(taskID), c.client.timeouts.Status, &response, "task_status")
	})
	if err != nil {
		return nil, wrapTemporaryIfNeeded(resilience.OpTaskStatus, err)
	}

	task := &domain.CompressionTask{
		TaskID:           response.TaskID,
		DocumentID:       response.DocumentID,
		Status:           domain.TaskStatus(strings.ToUpper(strings.TrimSpace(response.Status))),
		Progress:         int(response.Progress),
		ResultDocumentID: response.ResultDocumentID,
		Error:            parseTaskError(response.Error),
	}
	if task.TaskID == "" {
		task.TaskID = taskID
	}
	return task, nil
}

// parseTaskError accepts either {"code","message"} or a bare string.
func parseTaskError(raw json.RawMessage) *domain.TaskError {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var structured domain.TaskError
	if err := json.Unmarshal(raw, &structured); err == nil {
		if structured.Code == "" && structured.Message == "" {
			return nil
		}
		return &structured
	}
	var message string
	if err := json.Unmarshal(raw, &message); err == nil && message != "" {
		return &domain.TaskError{Message: message}
	}
	return &domain.TaskError{Message: string(raw)}
}

func (c *Compressor) Download(ctx context.Context, documentID, filename string) ([]byte, error) {
	path := documentPath + url.PathEscape(documentID) + "/download"
	if filename != "" {
		path += "?filename=" + url.QueryEscape(filename)
	}

	var data []byte
	err := c.client.execute(ctx, resilience.OpDownload, func(callCtx context.Context) error {
		var err error
		data, err = c.client.get(callCtx, path, c.client.timeouts.Download, "download")
		return err
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrDownload, "download document", wrapTemporaryIfNeeded(resilience.OpDownload, err))
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrDownload, "download document", errors.New("empty payload"))
	}
	return data, nil
}
