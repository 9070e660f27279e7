package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"npmdeck/internal/http/middleware"
	"npmdeck/internal/model"
	"npmdeck/internal/monitor"
	"npmdeck/internal/npm"
	"npmdeck/internal/service"
	"npmdeck/internal/upstream"
)

// hopByHop headers are connection-scoped and must not cross the gateway in
// either direction (RFC 9110 section 7.6.1).
var hopByHop = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Proxy-Connection":    {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

var certUploadRe = regexp.MustCompile(`^/api/nginx/certificates/(\d+)/upload$`)

// Proxy forwards /api/* requests to the Nginx Proxy Manager API. The caller's
// bearer token passes through untouched; the upstream performs all
// authentication and authorization.
type Proxy struct {
	up      *upstream.Client
	mon     *monitor.Monitor
	audit   service.AuditService       // nil when the audit store is disabled
	archive service.CertArchiveService // nil when the archive is disabled
	logw    io.Writer
}

// NewProxy builds the forwarding handler. audit and archive may be nil.
func NewProxy(up *upstream.Client, mon *monitor.Monitor, audit service.AuditService, archive service.CertArchiveService) *Proxy {
	return &Proxy{up: up, mon: mon, audit: audit, archive: archive, logw: os.Stdout}
}

// Forward relays one request to the upstream and the upstream's response back
// to the caller. Upstream error statuses are relayed as-is; only transport
// failures after retries produce a gateway error.
func (p *Proxy) Forward(c *fiber.Ctx) error {
	method := c.Method()
	path := c.Path()

	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "malformed query string")
	}

	header := requestHeader(c)
	body := c.Body()

	start := time.Now()
	resp, err := p.up.Do(c.UserContext(), method, path, query, header, body)
	latency := time.Since(start)

	if err != nil {
		var ue *upstream.Error
		if !errors.As(err, &ue) {
			ue = &upstream.Error{Class: upstream.ClassNetwork, Message: "upstream request failed", Err: err}
		}
		p.mon.Record(method, path, 0, latency, ue.Message)
		p.recordAudit(c, method, path, 0, latency)

		status := fiber.StatusBadGateway
		code := "BAD_GATEWAY"
		if ue.Class == upstream.ClassTimeout {
			status = fiber.StatusGatewayTimeout
			code = "GATEWAY_TIMEOUT"
		}
		return writeError(c, status, code, ue.Message)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		p.mon.Record(method, path, 0, latency, "failed to read upstream response")
		return writeError(c, fiber.StatusBadGateway, "BAD_GATEWAY", "failed to read upstream response")
	}

	errMsg := ""
	if resp.StatusCode >= 400 {
		errMsg = "upstream returned status " + strconv.Itoa(resp.StatusCode)
	}
	p.mon.Record(method, path, resp.StatusCode, latency, errMsg)
	p.recordAudit(c, method, path, resp.StatusCode, latency)
	p.archiveCertUpload(c, method, path, resp.StatusCode)

	for k, vs := range resp.Header {
		if _, skip := hopByHop[http.CanonicalHeaderKey(k)]; skip {
			continue
		}
		if http.CanonicalHeaderKey(k) == "Content-Length" {
			continue
		}
		for _, v := range vs {
			c.Response().Header.Add(k, v)
		}
	}
	return c.Status(resp.StatusCode).Send(respBody)
}

// requestHeader copies the inbound headers, drops hop-by-hop ones and stamps
// the request id so upstream logs correlate with ours.
func requestHeader(c *fiber.Ctx) http.Header {
	header := make(http.Header)
	c.Request().Header.VisitAll(func(k, v []byte) {
		name := http.CanonicalHeaderKey(string(k))
		if _, skip := hopByHop[name]; skip {
			return
		}
		switch name {
		case "Host", "Content-Length":
			return
		}
		header.Add(name, string(v))
	})
	header.Set(middleware.RequestIDHeader, requestIDFromCtx(c))
	return header
}

// recordAudit persists mutating requests best-effort. Failures are logged and
// never affect the proxied response.
func (p *Proxy) recordAudit(c *fiber.Ctx, method, path string, status int, latency time.Duration) {
	if p.audit == nil {
		return
	}
	switch method {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete:
	default:
		return
	}

	ev := &model.AuditEvent{
		RequestID: requestIDFromCtx(c),
		Actor:     actorFromToken(c.Get(fiber.HeaderAuthorization)),
		Method:    method,
		Path:      path,
		Status:    status,
		LatencyMs: latency.Milliseconds(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.audit.Record(ctx, ev); err != nil {
		p.logJSON("audit record failed", err)
	}
}

// archiveCertUpload tees a successful certificate custom upload into the
// archive. Best-effort, same contract as audit recording.
func (p *Proxy) archiveCertUpload(c *fiber.Ctx, method, path string, status int) {
	if p.archive == nil || method != fiber.MethodPost || status >= 300 {
		return
	}
	m := certUploadRe.FindStringSubmatch(path)
	if m == nil {
		return
	}
	certID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		p.logJSON("archive parse upload failed", err)
		return
	}
	bundle := &model.CertificateBundle{
		Certificate:  formFileBytes(form, "certificate"),
		Key:          formFileBytes(form, "certificate_key"),
		Intermediate: formFileBytes(form, "intermediate_certificate"),
	}
	if err := npm.ValidateCertificateBundle(bundle); err != nil {
		p.logJSON("archive skipped incomplete bundle", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := p.archive.Archive(ctx, certID, bundle); err != nil {
		p.logJSON("archive certificate failed", err)
	}
}

func formFileBytes(form *multipart.Form, field string) []byte {
	fhs := form.File[field]
	if len(fhs) == 0 {
		return nil
	}
	f, err := fhs[0].Open()
	if err != nil {
		return nil
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil
	}
	return b
}

func (p *Proxy) logJSON(msg string, err error) {
	line, _ := json.Marshal(map[string]string{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": "error",
		"msg":   msg,
		"error": err.Error(),
	})
	fmt.Fprintln(p.logw, string(line))
}

// actorFromToken pulls an identity hint out of a bearer token's payload for
// audit purposes. The token is NOT verified here; the upstream rejects forged
// tokens, and a forged identity only pollutes our own audit trail.
func actorFromToken(authorization string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return ""
	}
	parts := strings.Split(strings.TrimPrefix(authorization, prefix), ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var claims struct {
		Email string `json:"email"`
		Sub   string `json:"sub"`
		ID    any    `json:"id"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	switch {
	case claims.Email != "":
		return claims.Email
	case claims.Sub != "":
		return claims.Sub
	case claims.ID != nil:
		return fmt.Sprintf("user:%v", claims.ID)
	}
	return ""
}
