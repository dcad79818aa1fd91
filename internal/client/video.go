package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"listings-cms/models"
)

// VideoUpdate is the multipart payload for POST /api/video. Either field may be empty but not both.
type VideoUpdate struct {
	PhoneNumber string
	File        io.Reader
	FileName    string
	ContentType string
}

type VideoClient struct {
	c *Client
}

func (c *Client) Video() *VideoClient {
	return &VideoClient{c: c}
}

func (v *VideoClient) Get(ctx context.Context) (*models.VideoSettings, error) {
	var resp models.VideoSettingsResponse
	if err := v.c.doJSON(ctx, http.MethodGet, "/api/video", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("video settings response has no data")
	}
	return resp.Data, nil
}

func (v *VideoClient) Update(ctx context.Context, update VideoUpdate) (*models.VideoSettings, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if update.PhoneNumber != "" {
		if err := writer.WriteField("phoneNumber", update.PhoneNumber); err != nil {
			return nil, fmt.Errorf("failed to write phone number: %w", err)
		}
	}

	if update.File != nil {
		name := update.FileName
		if name == "" {
			name = "video"
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename=%q`, name))
		header.Set("Content-Type", update.ContentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, update.File); err != nil {
			return nil, fmt.Errorf("failed to copy file data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.c.baseURL+"/api/video", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp models.VideoSettingsResponse
	if err := v.c.send(req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
