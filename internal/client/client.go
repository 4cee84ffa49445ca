// Package client talks to a Luminosity server over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/luminosity-leds/luminosity/internal/apperr"
	"github.com/luminosity-leds/luminosity/internal/auth"
	"github.com/luminosity-leds/luminosity/internal/color"
	"github.com/luminosity-leds/luminosity/internal/lighting"
	"github.com/luminosity-leds/luminosity/internal/models"
)

// DefaultServer is used when neither a flag nor the environment names one.
const DefaultServer = "http://localhost:8080"

// ErrNotLoggedIn is returned by calls that need a session when none is held.
var ErrNotLoggedIn = errors.New("not logged in")

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int
	Code    apperr.Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Client holds the server address and the current session token.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultServer
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 15 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token is the session token, empty when logged out.
func (c *Client) Token() string { return c.token }

// Server is the base URL requests go to.
func (c *Client) Server() string { return c.base.String() }

func (c *Client) do(ctx context.Context, method, path string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		e := &Error{Status: resp.StatusCode}
		var eb struct {
			Error string      `json:"error"`
			Code  apperr.Code `json:"code"`
		}
		if json.Unmarshal(data, &eb) == nil {
			e.Message, e.Code = eb.Error, eb.Code
		}
		return resp, e
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func (c *Client) requireSession() error {
	if c.token == "" {
		return ErrNotLoggedIn
	}
	return nil
}

// Signup creates an account. It does not log in.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*models.Account, error) {
	var out struct {
		SavedUser models.Account `json:"savedUser"`
	}
	in := map[string]string{"name": name, "email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/users/signup", in, &out); err != nil {
		return nil, err
	}
	return &out.SavedUser, nil
}

// Login authenticates and keeps the token the server set as a cookie.
func (c *Client) Login(ctx context.Context, email, password string) error {
	in := map[string]string{"email": email, "password": password}
	resp, err := c.do(ctx, http.MethodPost, "/api/users/login", in, nil)
	if err != nil {
		return err
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == auth.CookieName && ck.Value != "" {
			c.token = ck.Value
			return nil
		}
	}
	return errors.New("login response carried no session cookie")
}

// Logout revokes the session on the server and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	_, err := c.do(ctx, http.MethodPost, "/api/users/logout", nil, nil)
	c.token = ""
	return err
}

// Me returns the logged in account.
func (c *Client) Me(ctx context.Context) (*models.Account, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out struct {
		Data models.Account `json:"data"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// VerifyEmail redeems an emailed verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/users/verifyemail", map[string]string{"token": token}, nil)
	return err
}

// DeleteAccount deletes the logged in account and its devices.
func (c *Client) DeleteAccount(ctx context.Context) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodDelete, "/api/users/deleteAccount", struct{}{}, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

type deviceEnvelope struct {
	Device models.Device `json:"device"`
}

// Devices lists the account's devices.
func (c *Client) Devices(ctx context.Context) ([]models.Device, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out struct {
		Devices []models.Device `json:"devices"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/devices", nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// RegisterDevice adds a device with a palette color and a brightness in
// 0..100.
func (c *Client) RegisterDevice(ctx context.Context, name, colorName string, brightness int) (*models.Device, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	in := map[string]any{"name": name, "color": colorName, "brightness": brightness}
	var out deviceEnvelope
	if _, err := c.do(ctx, http.MethodPost, "/api/devices/new", in, &out); err != nil {
		return nil, err
	}
	return &out.Device, nil
}

func devicePath(ref string) string {
	return "/api/devices/" + url.PathEscape(ref)
}

// Device fetches one device by UUID or id.
func (c *Client) Device(ctx context.Context, ref string) (*models.Device, error) {
	return c.deviceCall(ctx, http.MethodGet, devicePath(ref), nil)
}

// UpdateDevice applies a partial update.
func (c *Client) UpdateDevice(ctx context.Context, ref string, u models.DeviceUpdate) (*models.Device, error) {
	return c.deviceCall(ctx, http.MethodPut, devicePath(ref), u)
}

// Connect marks the device connected.
func (c *Client) Connect(ctx context.Context, ref string) (*models.Device, error) {
	return c.deviceCall(ctx, http.MethodPut, "/api/devices/connect/"+url.PathEscape(ref), nil)
}

// Disconnect marks the device disconnected.
func (c *Client) Disconnect(ctx context.Context, ref string) (*models.Device, error) {
	return c.deviceCall(ctx, http.MethodPut, "/api/devices/disconnect/"+url.PathEscape(ref), nil)
}

func (c *Client) deviceCall(ctx context.Context, method, path string, in any) (*models.Device, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out deviceEnvelope
	if _, err := c.do(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return &out.Device, nil
}

// DeleteDevice removes a device.
func (c *Client) DeleteDevice(ctx context.Context, ref string) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodDelete, devicePath(ref), nil, nil)
	return err
}

// Output returns the frame the device is currently showing.
func (c *Client) Output(ctx context.Context, ref string) (*lighting.Frame, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out struct {
		Frame lighting.Frame `json:"frame"`
	}
	if _, err := c.do(ctx, http.MethodGet, devicePath(ref)+"/output", nil, &out); err != nil {
		return nil, err
	}
	return &out.Frame, nil
}

// Colors returns the server's palette.
func (c *Client) Colors(ctx context.Context) (color.Palette, error) {
	var out struct {
		Colors color.Palette `json:"colors"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/colors", nil, &out); err != nil {
		return nil, err
	}
	return out.Colors, nil
}

// Match is the palette entry closest to a requested color.
type Match struct {
	Name string    `json:"name"`
	Hex  string    `json:"hex"`
	RGB  color.RGB `json:"rgb"`
}

// MatchHex asks the server for the palette name closest to hex.
func (c *Client) MatchHex(ctx context.Context, hex string) (*Match, error) {
	return c.match(ctx, map[string]any{"hex": hex})
}

// MatchRGB asks the server for the palette name closest to r, g, b.
func (c *Client) MatchRGB(ctx context.Context, r, g, b int) (*Match, error) {
	return c.match(ctx, map[string]any{"r": r, "g": g, "b": b})
}

func (c *Client) match(ctx context.Context, in map[string]any) (*Match, error) {
	var out Match
	if _, err := c.do(ctx, http.MethodPost, "/api/colors/match", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
