package npm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"npmdeck/internal/model"
	"npmdeck/internal/upstream"
)

// Resource paths on the upstream API.
const (
	pathProxyHosts       = "/api/nginx/proxy-hosts"
	pathRedirectionHosts = "/api/nginx/redirection-hosts"
	pathDeadHosts        = "/api/nginx/dead-hosts"
	pathStreams          = "/api/nginx/streams"
	pathCertificates     = "/api/nginx/certificates"
	pathAccessLists      = "/api/nginx/access-lists"
	pathUsers            = "/api/users"
)

// APIError is a non-2xx reply from the upstream API, relayed with its
// decoded message when one is present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream api status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream api status %d", e.Status)
}

// Client is the typed resource client used by operators scripting against
// the gateway. All calls forward the caller's bearer token; the gateway
// itself holds no credentials.
type Client struct {
	up *upstream.Client
}

// NewClient wraps the retrying upstream client.
func NewClient(up *upstream.Client) *Client {
	return &Client{up: up}
}

func bearerHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// decode reads a response, translating non-2xx statuses into *APIError.
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil {
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

func getJSON[T any](ctx context.Context, c *Client, path, token string) (T, error) {
	var out T
	resp, err := c.up.Get(ctx, path, nil, bearerHeader(token))
	if err != nil {
		return out, err
	}
	err = decode(resp, &out)
	return out, err
}

func sendJSON[T any](ctx context.Context, c *Client, method, path, token string, in any) (T, error) {
	var out T
	var body []byte
	hdr := bearerHeader(token)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return out, fmt.Errorf("encode request: %w", err)
		}
		body = b
		hdr.Set("Content-Type", "application/json")
	}
	resp, err := c.up.Do(ctx, method, path, nil, hdr, body)
	if err != nil {
		return out, err
	}
	err = decode(resp, &out)
	return out, err
}

func (c *Client) deleteResource(ctx context.Context, path, token string) error {
	resp, err := c.up.Do(ctx, http.MethodDelete, path, nil, bearerHeader(token), nil)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

func (c *Client) setEnabled(ctx context.Context, base string, id int64, token string, enabled bool) error {
	action := "disable"
	if enabled {
		action = "enable"
	}
	resp, err := c.up.Do(ctx, http.MethodPost, fmt.Sprintf("%s/%d/%s", base, id, action), nil, bearerHeader(token), nil)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// --- Proxy hosts ---

func (c *Client) ListProxyHosts(ctx context.Context, token string) ([]model.ProxyHost, error) {
	return getJSON[[]model.ProxyHost](ctx, c, pathProxyHosts, token)
}

func (c *Client) GetProxyHost(ctx context.Context, token string, id int64) (model.ProxyHost, error) {
	return getJSON[model.ProxyHost](ctx, c, fmt.Sprintf("%s/%d", pathProxyHosts, id), token)
}

func (c *Client) CreateProxyHost(ctx context.Context, token string, h *model.ProxyHost) (model.ProxyHost, error) {
	if err := ValidateProxyHost(h); err != nil {
		return model.ProxyHost{}, err
	}
	return sendJSON[model.ProxyHost](ctx, c, http.MethodPost, pathProxyHosts, token, h)
}

func (c *Client) UpdateProxyHost(ctx context.Context, token string, h *model.ProxyHost) (model.ProxyHost, error) {
	if err := ValidateProxyHost(h); err != nil {
		return model.ProxyHost{}, err
	}
	return sendJSON[model.ProxyHost](ctx, c, http.MethodPut, fmt.Sprintf("%s/%d", pathProxyHosts, h.ID), token, h)
}

func (c *Client) DeleteProxyHost(ctx context.Context, token string, id int64) error {
	return c.deleteResource(ctx, fmt.Sprintf("%s/%d", pathProxyHosts, id), token)
}

func (c *Client) SetProxyHostEnabled(ctx context.Context, token string, id int64, enabled bool) error {
	return c.setEnabled(ctx, pathProxyHosts, id, token, enabled)
}

// --- Redirection hosts ---

func (c *Client) ListRedirectionHosts(ctx context.Context, token string) ([]model.RedirectionHost, error) {
	return getJSON[[]model.RedirectionHost](ctx, c, pathRedirectionHosts, token)
}

func (c *Client) CreateRedirectionHost(ctx context.Context, token string, h *model.RedirectionHost) (model.RedirectionHost, error) {
	if err := ValidateRedirectionHost(h); err != nil {
		return model.RedirectionHost{}, err
	}
	return sendJSON[model.RedirectionHost](ctx, c, http.MethodPost, pathRedirectionHosts, token, h)
}

func (c *Client) UpdateRedirectionHost(ctx context.Context, token string, h *model.RedirectionHost) (model.RedirectionHost, error) {
	if err := ValidateRedirectionHost(h); err != nil {
		return model.RedirectionHost{}, err
	}
	return sendJSON[model.RedirectionHost](ctx, c, http.MethodPut, fmt.Sprintf("%s/%d", pathRedirectionHosts, h.ID), token, h)
}

func (c *Client) DeleteRedirectionHost(ctx context.Context, token string, id int64) error {
	return c.deleteResource(ctx, fmt.Sprintf("%s/%d", pathRedirectionHosts, id), token)
}

// --- Dead hosts ---

func (c *Client) ListDeadHosts(ctx context.Context, token string) ([]model.DeadHost, error) {
	return getJSON[[]model.DeadHost](ctx, c, pathDeadHosts, token)
}

func (c *Client) CreateDeadHost(ctx context.Context, token string, h *model.DeadHost) (model.DeadHost, error) {
	if err := ValidateDeadHost(h); err != nil {
		return model.DeadHost{}, err
	}
	return sendJSON[model.DeadHost](ctx, c, http.MethodPost, pathDeadHosts, token, h)
}

func (c *Client) UpdateDeadHost(ctx context.Context, token string, h *model.DeadHost) (model.DeadHost, error) {
	if err := ValidateDeadHost(h); err != nil {
		return model.DeadHost{}, err
	}
	return sendJSON[model.DeadHost](ctx, c, http.MethodPut, fmt.Sprintf("%s/%d", pathDeadHosts, h.ID), token, h)
}

func (c *Client) DeleteDeadHost(ctx context.Context, token string, id int64) error {
	return c.deleteResource(ctx, fmt.Sprintf("%s/%d", pathDeadHosts, id), token)
}

// --- Streams ---

func (c *Client) ListStreams(ctx context.Context, token string) ([]model.Stream, error) {
	return getJSON[[]model.Stream](ctx, c, pathStreams, token)
}

func (c *Client) CreateStream(ctx context.Context, token string, s *model.Stream) (model.Stream, error) {
	if err := ValidateStream(s); err != nil {
		return model.Stream{}, err
	}
	return sendJSON[model.Stream](ctx, c, http.MethodPost, pathStreams, token, s)
}

func (c *Client) UpdateStream(ctx context.Context, token string, s *model.Stream) (model.Stream, error) {
	if err := ValidateStream(s); err != nil {
		return model.Stream{}, err
	}
	return sendJSON[model.Stream](ctx, c, http.MethodPut, fmt.Sprintf("%s/%d", pathStreams, s.ID), token, s)
}

func (c *Client) DeleteStream(ctx context.Context, token string, id int64) error {
	return c.deleteResource(ctx, fmt.Sprintf("%s/%d", pathStreams, id), token)
}

// --- Certificates ---

func (c *Client) ListCertificates(ctx context.Context, token string) ([]model.Certificate, error) {
	return getJSON[[]model.Certificate](ctx, c, pathCertificates, token)
}

func (c *Client) CreateCertificate(ctx context.Context, token string, cert *model.Certificate) (model.Certificate, error) {
	if err := ValidateCertificate(cert); err != nil {
		return model.Certificate{}, err
	}
	return sendJSON[model.Certificate](ctx, c, http.MethodPost, pathCertificates, token, cert)
}

func (c *Client) DeleteCertificate(ctx context.Context, token string, id int64) error {
	return c.deleteResource(ctx, fmt.Sprintf("%s/%d", pathCertificates, id), token)
}

func (c *Client) RenewCertificate(ctx context.Context, token string, id int64) error {
	resp, err := c.up.Do(ctx, http.MethodPost, fmt.Sprintf("%s/%d/renew", pathCertificates, id), nil, bearerHeader(token), nil)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// UploadCertificate sends a custom certificate bundle as multipart form
// data, the same wire shape the console's file pickers produce.
func (c *Client) UploadCertificate(ctx context.Context, token string, id int64, bundle *model.CertificateBundle) error {
	if err := ValidateCertificateBundle(bundle); err != nil {
		return err
	}

	body, contentType, err := encodeBundle(bundle)
	if err != nil {
		return err
	}

	hdr := bearerHeader(token)
	hdr.Set("Content-Type", contentType)
	resp, err := c.up.Do(ctx, http.MethodPost, fmt.Sprintf("%s/%d/upload", pathCertificates, id), nil, hdr, body)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// TestCertificateBundle asks the upstream to validate a bundle without
// storing it.
func (c *Client) TestCertificateBundle(ctx context.Context, token string, bundle *model.CertificateBundle) error {
	if err := ValidateCertificateBundle(bundle); err != nil {
		return err
	}

	body, contentType, err := encodeBundle(bundle)
	if err != nil {
		return err
	}

	hdr := bearerHeader(token)
	hdr.Set("Content-Type", contentType)
	resp, err := c.up.Do(ctx, http.MethodPost, pathCertificates+"/validate", nil, hdr, body)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

func encodeBundle(bundle *model.CertificateBundle) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	parts := []struct {
		field, filename string
		data            []byte
	}{
		{"certificate", "certificate.pem", bundle.Certificate},
		{"certificate_key", "privkey.pem", bundle.Key},
		{"intermediate_certificate", "chain.pem", bundle.Intermediate},
	}
	for _, p := range parts {
		if len(p.data) == 0 {
			continue
		}
		fw, err := w.CreateFormFile(p.field, p.filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(p.data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// --- Access lists ---

func (c *Client) ListAccessLists(ctx context.Context, token string) ([]model.AccessList, error) {
	return getJSON[[]model.AccessList](ctx, c, pathAccessLists, token)
}

func (c *Client) CreateAccessList(ctx context.Context, token string, l *model.AccessList) (model.AccessList, error) {
	if err := ValidateAccessList(l); err != nil {
		return model.AccessList{}, err
	}
	return sendJSON[model.AccessList](ctx, c, http.MethodPost, pathAccessLists, token, l)
}

func (c *Client) UpdateAccessList(ctx context.Context, token string, l *model.AccessList) (model.AccessList, error) {
	if err := ValidateAccessList(l); err != nil {
		return model.AccessList{}, err
	}
	return sendJSON[model.AccessList](ctx, c, http.MethodPut, fmt.Sprintf("%s/%d", pathAccessLists, l.ID), token, l)
}

func (c *Client) DeleteAccessList(ctx context.Context, token string, id int64) error {
	return c.deleteResource(ctx, fmt.Sprintf("%s/%d", pathAccessLists, id), token)
}

// --- Users ---

func (c *Client) ListUsers(ctx context.Context, token string) ([]model.User, error) {
	return getJSON[[]model.User](ctx, c, pathUsers, token)
}

func (c *Client) CreateUser(ctx context.Context, token string, u *model.User) (model.User, error) {
	if err := ValidateUser(u); err != nil {
		return model.User{}, err
	}
	return sendJSON[model.User](ctx, c, http.MethodPost, pathUsers, token, u)
}

func (c *Client) UpdateUser(ctx context.Context, token string, u *model.User) (model.User, error) {
	if err := ValidateUser(u); err != nil {
		return model.User{}, err
	}
	return sendJSON[model.User](ctx, c, http.MethodPut, fmt.Sprintf("%s/%d", pathUsers, u.ID), token, u)
}

func (c *Client) DeleteUser(ctx context.Context, token string, id int64) error {
	return c.deleteResource(ctx, fmt.Sprintf("%s/%d", pathUsers, id), token)
}

// SetUserAuth updates a user's login secret.
func (c *Client) SetUserAuth(ctx context.Context, token string, id int64, auth *model.UserAuth) error {
	if auth.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	_, err := sendJSON[json.RawMessage](ctx, c, http.MethodPut, fmt.Sprintf("%s/%d/auth", pathUsers, id), token, auth)
	return err
}
