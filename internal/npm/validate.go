// Package npm is the typed resource layer for the upstream Nginx Proxy
// Manager API: DTO validation mirroring the console's form rules, and a
// client for the seven managed resources.
package npm

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"npmdeck/internal/domainname"
	"npmdeck/internal/model"
)

var (
	ErrNoDomains      = errors.New("at least one domain name is required")
	ErrInvalidDomain  = errors.New("invalid domain name")
	ErrInvalidPort    = errors.New("port must be between 1 and 65535")
	ErrInvalidHost    = errors.New("forward host must be a hostname or IP address")
	ErrInvalidScheme  = errors.New("forward scheme must be http or https")
	ErrNameRequired   = errors.New("name is required")
	ErrEmailRequired  = errors.New("a valid email is required")
	ErrInvalidAddress = errors.New("client address must be an IP or CIDR range")
)

// hostnameRe allows single-label internal hostnames ("backend") as well as
// dotted names; domain-facing fields use the stricter domainname.IsValid.
var hostnameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidPort reports whether p is a usable TCP/UDP port.
func ValidPort(p int) bool { return p >= 1 && p <= 65535 }

// ValidHost reports whether h is a plausible forward target: a hostname or
// an IP address (v4 or v6).
func ValidHost(h string) bool {
	if h == "" {
		return false
	}
	if _, err := netip.ParseAddr(h); err == nil {
		return true
	}
	return hostnameRe.MatchString(strings.ToLower(h))
}

// ValidClientAddress reports whether a is an IP address or CIDR range, the
// only accepted forms for access-list client rules.
func ValidClientAddress(a string) bool {
	if _, err := netip.ParseAddr(a); err == nil {
		return true
	}
	_, err := netip.ParsePrefix(a)
	return err == nil
}

func validateDomains(names []string) ([]string, error) {
	cleaned := domainname.Expand(strings.Join(names, "\n"))
	if len(cleaned) == 0 {
		return nil, ErrNoDomains
	}
	for _, d := range cleaned {
		if !domainname.IsValid(d) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDomain, d)
		}
	}
	return cleaned, nil
}

func validateScheme(s string) error {
	if s != "http" && s != "https" {
		return fmt.Errorf("%w, got %q", ErrInvalidScheme, s)
	}
	return nil
}

// ValidateProxyHost normalizes the host's domain names in place and checks
// the form rules the console enforces before submission.
func ValidateProxyHost(h *model.ProxyHost) error {
	domains, err := validateDomains(h.DomainNames)
	if err != nil {
		return err
	}
	h.DomainNames = domains

	if err := validateScheme(h.ForwardScheme); err != nil {
		return err
	}
	if !ValidHost(h.ForwardHost) {
		return fmt.Errorf("%w, got %q", ErrInvalidHost, h.ForwardHost)
	}
	if !ValidPort(h.ForwardPort) {
		return fmt.Errorf("%w, got %d", ErrInvalidPort, h.ForwardPort)
	}

	for i := range h.Locations {
		loc := &h.Locations[i]
		if loc.Path == "" || !strings.HasPrefix(loc.Path, "/") {
			return fmt.Errorf("location %d: path must start with /", i)
		}
		if err := validateScheme(loc.ForwardScheme); err != nil {
			return fmt.Errorf("location %d: %w", i, err)
		}
		if !ValidHost(loc.ForwardHost) {
			return fmt.Errorf("location %d: %w", i, ErrInvalidHost)
		}
		if !ValidPort(loc.ForwardPort) {
			return fmt.Errorf("location %d: %w", i, ErrInvalidPort)
		}
	}
	return nil
}

// ValidateRedirectionHost normalizes domains and checks redirect settings.
func ValidateRedirectionHost(h *model.RedirectionHost) error {
	domains, err := validateDomains(h.DomainNames)
	if err != nil {
		return err
	}
	h.DomainNames = domains

	target := domainname.Clean(h.ForwardDomainName)
	if target == "" || !domainname.IsValid(target) {
		return fmt.Errorf("%w: %q", ErrInvalidDomain, h.ForwardDomainName)
	}
	h.ForwardDomainName = target

	switch h.ForwardHTTPCode {
	case 300, 301, 302, 303, 307, 308:
	default:
		return fmt.Errorf("forward_http_code must be a redirect status, got %d", h.ForwardHTTPCode)
	}
	return nil
}

// ValidateDeadHost normalizes domains; dead hosts have no forward target.
func ValidateDeadHost(h *model.DeadHost) error {
	domains, err := validateDomains(h.DomainNames)
	if err != nil {
		return err
	}
	h.DomainNames = domains
	return nil
}

// ValidateStream checks a layer-4 forward definition.
func ValidateStream(s *model.Stream) error {
	if !ValidPort(s.IncomingPort) {
		return fmt.Errorf("incoming %w, got %d", ErrInvalidPort, s.IncomingPort)
	}
	if !ValidHost(s.ForwardingHost) {
		return fmt.Errorf("%w, got %q", ErrInvalidHost, s.ForwardingHost)
	}
	if !ValidPort(s.ForwardingPort) {
		return fmt.Errorf("forwarding %w, got %d", ErrInvalidPort, s.ForwardingPort)
	}
	if !s.TCPForwarding && !s.UDPForwarding {
		return errors.New("at least one of tcp_forwarding or udp_forwarding must be enabled")
	}
	return nil
}

// ValidateCertificate checks a certificate request before submission. For
// the letsencrypt provider domains and an agreement email are required; the
// "other" provider carries its payload as a separate multipart upload.
func ValidateCertificate(c *model.Certificate) error {
	switch c.Provider {
	case "letsencrypt":
		domains, err := validateDomains(c.DomainNames)
		if err != nil {
			return err
		}
		c.DomainNames = domains
		if !emailRe.MatchString(c.Meta.LetsencryptEmail) {
			return ErrEmailRequired
		}
		if !c.Meta.LetsencryptAgree {
			return errors.New("letsencrypt terms must be agreed to")
		}
		if c.Meta.DNSChallenge && c.Meta.DNSProvider == "" {
			return errors.New("dns_provider is required for a dns challenge")
		}
	case "other":
		if c.NiceName == "" {
			return ErrNameRequired
		}
	default:
		return fmt.Errorf("unknown certificate provider %q", c.Provider)
	}
	return nil
}

// ValidateCertificateBundle checks an uploaded custom certificate payload.
func ValidateCertificateBundle(b *model.CertificateBundle) error {
	if len(b.Certificate) == 0 {
		return errors.New("certificate PEM is required")
	}
	if len(b.Key) == 0 {
		return errors.New("certificate key PEM is required")
	}
	return nil
}

// ValidateAccessList checks auth entries and client rules.
func ValidateAccessList(l *model.AccessList) error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrNameRequired
	}
	if len(l.Items) == 0 && len(l.Clients) == 0 {
		return errors.New("an access list needs at least one authorization or client rule")
	}
	for i, item := range l.Items {
		if item.Username == "" {
			return fmt.Errorf("authorization %d: username is required", i)
		}
	}
	for i, cl := range l.Clients {
		if !ValidClientAddress(cl.Address) {
			return fmt.Errorf("client %d: %w, got %q", i, ErrInvalidAddress, cl.Address)
		}
		if cl.Directive != "allow" && cl.Directive != "deny" {
			return fmt.Errorf("client %d: directive must be allow or deny, got %q", i, cl.Directive)
		}
	}
	return nil
}

// ValidateUser checks an admin account form.
func ValidateUser(u *model.User) error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrNameRequired
	}
	if !emailRe.MatchString(u.Email) {
		return ErrEmailRequired
	}
	return nil
}
