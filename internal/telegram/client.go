// Package telegram implements the Bot API calls used to send photo files
// to a chat: sendDocument for unaltered transfer, sendPhoto for compressed
// previews, and getChat for destination verification.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/commons-systems/photovault/internal/sync"
)

const defaultBaseURL = "https://api.telegram.org"

const (
	connectTimeout = 60 * time.Second
	requestTimeout = 120 * time.Second
	verifyTimeout  = 10 * time.Second
)

const copyBufferSize = 32 * 1024

// Result is the parsed acknowledgment of a successful send.
type Result struct {
	FileID    string
	MessageID int64
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client sends files to one chat using one bot credential. A stalled
// transfer fails via the client timeouts rather than hanging.
type Client struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given bot token and destination chat.
func NewClient(token, chatID string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		chatID:  chatID,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configured reports whether both credential and destination are present.
func (c *Client) Configured() bool {
	return c.token != "" && c.chatID != ""
}

// Upload implements the sync.Uploader contract: one multipart transfer of
// one file, sent unaltered as a document or compressed as a photo.
func (c *Client) Upload(ctx context.Context, sourcePath, caption string, asDocument bool) (sync.UploadAck, error) {
	var res *Result
	var err error
	if asDocument {
		res, err = c.SendDocument(ctx, sourcePath, caption)
	} else {
		res, err = c.SendPhoto(ctx, sourcePath, caption)
	}
	if err != nil {
		return sync.UploadAck{}, err
	}
	return sync.UploadAck{FileHandle: res.FileID, MessageID: res.MessageID}, nil
}

// SendDocument sends the file unaltered via the sendDocument method.
func (c *Client) SendDocument(ctx context.Context, path, caption string) (*Result, error) {
	return c.send(ctx, "sendDocument", "document", path, caption)
}

// SendPhoto sends the file as a compressed image via the sendPhoto method.
// The acknowledgment's file handle is the highest-resolution size variant.
func (c *Client) SendPhoto(ctx context.Context, path, caption string) (*Result, error) {
	return c.send(ctx, "sendPhoto", "photo", path, caption)
}

// Verify checks the destination chat is reachable with the configured
// credential.
func (c *Client) Verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	reqURL := c.methodURL("getChat") + "?chat_id=" + url.QueryEscape(c.chatID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("getChat request failed: %w", err)
	}
	defer resp.Body.Close()

	if _, err := parseResponse(resp.Body); err != nil {
		return err
	}

	return nil
}

// send builds and posts one multipart form with the destination id, parse
// mode, optional caption and the raw file bytes. The file is streamed
// through a pipe in fixed-size chunks; it is never buffered in memory.
func (c *Client) send(ctx context.Context, method, fileField, path, caption string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		var werr error
		defer func() {
			f.Close()
			pw.CloseWithError(werr)
		}()

		if werr = mw.WriteField("chat_id", c.chatID); werr != nil {
			return
		}
		if werr = mw.WriteField("parse_mode", "Markdown"); werr != nil {
			return
		}
		if caption != "" {
			if werr = mw.WriteField("caption", caption); werr != nil {
				return
			}
		}

		part, perr := createFilePart(mw, fileField, filepath.Base(path))
		if perr != nil {
			werr = perr
			return
		}
		if _, werr = io.CopyBuffer(part, f, make([]byte, copyBufferSize)); werr != nil {
			return
		}

		werr = mw.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	return parseResponse(resp.Body)
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// createFilePart opens a form file part with the real content type instead
// of the octet-stream default.
func createFilePart(mw *multipart.Writer, field, filename string) (io.Writer, error) {
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)

	return mw.CreatePart(h)
}

// apiResponse mirrors the Bot API envelope for the calls this client makes.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      *struct {
		MessageID int64 `json:"message_id"`
		Document  *struct {
			FileID string `json:"file_id"`
		} `json:"document"`
		Photo []struct {
			FileID string `json:"file_id"`
		} `json:"photo"`
	} `json:"result"`
}

// parseResponse decodes the acknowledgment. A malformed body is an error on
// the same channel as transport failures; callers do not distinguish them.
func parseResponse(body io.Reader) (*Result, error) {
	var resp apiResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	if !resp.OK {
		desc := resp.Description
		if desc == "" {
			desc = "unknown error"
		}
		return nil, fmt.Errorf("remote rejected request: %s", desc)
	}

	res := &Result{}
	if resp.Result != nil {
		res.MessageID = resp.Result.MessageID
		switch {
		case resp.Result.Document != nil:
			res.FileID = resp.Result.Document.FileID
		case len(resp.Result.Photo) > 0:
			// The photo array lists size variants smallest first; the last
			// entry is the full-resolution one.
			res.FileID = resp.Result.Photo[len(resp.Result.Photo)-1].FileID
		}
	}

	return res, nil
}
