// Package webdriver implements core.Driver over the W3C WebDriver protocol,
// talking to chromedriver or a remote Selenium endpoint.
package webdriver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// W3C WebDriver element identifier key (standard constant)
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// Error is a WebDriver error response.
type Error struct {
	Status  int
	Code    string // W3C error code, e.g. "no such element"
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is maps session-level WebDriver errors onto the core sentinels.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case "invalid session id", "no such window":
		return target == core.ErrSessionClosed
	case "timeout":
		return target == core.ErrPageLoadTimeout
	}
	return false
}

// Client handles HTTP communication with a WebDriver server.
type Client struct {
	serverURL string
	sessionID string
	client    *http.Client
}

// NewClient creates a new WebDriver client.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Minute, // page loads block the /url call
		},
	}
}

// SessionID returns the active session ID, or "" before Connect.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Status reports whether the server is ready to create sessions.
func (c *Client) Status(ctx context.Context) (bool, error) {
	resp, err := c.get(ctx, "/status")
	if err != nil {
		return false, err
	}
	value, _ := resp["value"].(map[string]interface{})
	ready, _ := value["ready"].(bool)
	return ready, nil
}

// Connect creates a new session with the given capabilities.
func (c *Client) Connect(ctx context.Context, capabilities map[string]interface{}) error {
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": capabilities,
		},
	}

	resp, err := c.post(ctx, "/session", body)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	value, ok := resp["value"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid session response")
	}

	c.sessionID, _ = value["sessionId"].(string)
	if c.sessionID == "" {
		return fmt.Errorf("no session ID in response")
	}
	return nil
}

// Disconnect closes the session.
func (c *Client) Disconnect(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}
	_, err := c.delete(ctx, c.sessionPath())
	c.sessionID = ""
	return err
}

// Navigation

// OpenURL navigates and blocks until the page load strategy is satisfied.
func (c *Client) OpenURL(ctx context.Context, url string) error {
	_, err := c.post(ctx, c.sessionPath()+"/url", map[string]interface{}{
		"url": url,
	})
	return err
}

// CurrentURL returns the current document URL.
func (c *Client) CurrentURL(ctx context.Context) (string, error) {
	return c.getString(ctx, c.sessionPath()+"/url")
}

// Title returns the document title.
func (c *Client) Title(ctx context.Context) (string, error) {
	return c.getString(ctx, c.sessionPath()+"/title")
}

// MaximizeWindow maximizes the current window.
func (c *Client) MaximizeWindow(ctx context.Context) error {
	_, err := c.post(ctx, c.sessionPath()+"/window/maximize", map[string]interface{}{})
	return err
}

// SetWindowRect resizes the current window.
func (c *Client) SetWindowRect(ctx context.Context, width, height int) error {
	_, err := c.post(ctx, c.sessionPath()+"/window/rect", map[string]interface{}{
		"width":  width,
		"height": height,
	})
	return err
}

// Timeouts

// SetTimeouts sets the implicit and page load timeouts.
// A zero pageLoad keeps the server default.
func (c *Client) SetTimeouts(ctx context.Context, implicit, pageLoad time.Duration) error {
	body := map[string]interface{}{
		"implicit": implicit.Milliseconds(),
	}
	if pageLoad > 0 {
		body["pageLoad"] = pageLoad.Milliseconds()
	}
	_, err := c.post(ctx, c.sessionPath()+"/timeouts", body)
	return err
}

// Element Operations

// FindElements finds multiple elements.
func (c *Client) FindElements(ctx context.Context, strategy, value string) ([]string, error) {
	body := map[string]interface{}{
		"using": strategy,
		"value": value,
	}

	resp, err := c.post(ctx, c.sessionPath()+"/elements", body)
	if err != nil {
		return nil, err
	}

	values, ok := resp["value"].([]interface{})
	if !ok {
		return nil, nil
	}

	var ids []string
	for _, v := range values {
		if elem, ok := v.(map[string]interface{}); ok {
			if id := extractElementID(elem); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// ClickElement clicks an element.
func (c *Client) ClickElement(ctx context.Context, elementID string) error {
	_, err := c.post(ctx, c.elementPath(elementID)+"/click", map[string]interface{}{})
	return err
}

// ClearElement clears an element's text.
func (c *Client) ClearElement(ctx context.Context, elementID string) error {
	_, err := c.post(ctx, c.elementPath(elementID)+"/clear", map[string]interface{}{})
	return err
}

// SendKeysToElement types text into an element.
func (c *Client) SendKeysToElement(ctx context.Context, elementID, text string) error {
	_, err := c.post(ctx, c.elementPath(elementID)+"/value", map[string]interface{}{
		"text": text,
	})
	return err
}

// GetElementText returns an element's rendered text.
func (c *Client) GetElementText(ctx context.Context, elementID string) (string, error) {
	return c.getString(ctx, c.elementPath(elementID)+"/text")
}

// IsElementDisplayed checks if element is visible.
func (c *Client) IsElementDisplayed(ctx context.Context, elementID string) (bool, error) {
	resp, err := c.get(ctx, c.elementPath(elementID)+"/displayed")
	if err != nil {
		return false, err
	}
	displayed, _ := resp["value"].(bool)
	return displayed, nil
}

// IsElementEnabled checks if element is enabled.
func (c *Client) IsElementEnabled(ctx context.Context, elementID string) (bool, error) {
	resp, err := c.get(ctx, c.elementPath(elementID)+"/enabled")
	if err != nil {
		return false, err
	}
	enabled, _ := resp["value"].(bool)
	return enabled, nil
}

// MoveToElement moves the mouse pointer to the centre of an element.
func (c *Client) MoveToElement(ctx context.Context, elementID string) error {
	payload := []map[string]interface{}{
		{
			"type":       "pointer",
			"id":         "mouse",
			"parameters": map[string]interface{}{"pointerType": "mouse"},
			"actions": []map[string]interface{}{
				{
					"type":     "pointerMove",
					"duration": 100,
					"x":        0,
					"y":        0,
					"origin":   map[string]interface{}{w3cElementKey: elementID},
				},
			},
		},
	}
	_, err := c.post(ctx, c.sessionPath()+"/actions", map[string]interface{}{"actions": payload})
	return err
}

// Scripts and Screen

// ExecuteScript runs a synchronous script. Element handles in args must
// already be in W3C reference form.
func (c *Client) ExecuteScript(ctx context.Context, script string, args []interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	resp, err := c.post(ctx, c.sessionPath()+"/execute/sync", map[string]interface{}{
		"script": script,
		"args":   args,
	})
	if err != nil {
		return nil, err
	}
	return resp["value"], nil
}

// Screenshot returns a screenshot as PNG bytes.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	resp, err := c.get(ctx, c.sessionPath()+"/screenshot")
	if err != nil {
		return nil, err
	}
	encoded, ok := resp["value"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid screenshot response")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// HTTP Helpers

func (c *Client) sessionPath() string {
	return "/session/" + c.sessionID
}

func (c *Client) elementPath(elementID string) string {
	return c.sessionPath() + "/element/" + elementID
}

func (c *Client) getString(ctx context.Context, path string) (string, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return "", err
	}
	s, _ := resp["value"].(string)
	return s, nil
}

func (c *Client) get(ctx context.Context, path string) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *Client) delete(ctx context.Context, path string) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodDelete, path, nil)
}

func (c *Client) request(ctx context.Context, method, path string, body interface{}) (map[string]interface{}, error) {
	url := c.serverURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.ErrServerUnreachable.WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response (HTTP %d): %w", resp.StatusCode, err)
	}

	// Check for WebDriver error
	if errValue, ok := result["value"].(map[string]interface{}); ok {
		if errType, ok := errValue["error"].(string); ok {
			msg, _ := errValue["message"].(string)
			return result, &Error{Status: resp.StatusCode, Code: errType, Message: msg}
		}
	}

	return result, nil
}

func extractElementID(value map[string]interface{}) string {
	// W3C format
	if id, ok := value[w3cElementKey].(string); ok {
		return id
	}
	// Legacy format
	if id, ok := value["ELEMENT"].(string); ok {
		return id
	}
	return ""
}

// isCode reports whether err is a WebDriver error with the given code.
func isCode(err error, code string) bool {
	var wdErr *Error
	return errors.As(err, &wdErr) && wdErr.Code == code
}
