package npm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"npmdeck/internal/model"
)

func validProxyHost() *model.ProxyHost {
	return &model.ProxyHost{
		DomainNames:   []string{"app.example.com"},
		ForwardScheme: "http",
		ForwardHost:   "backend",
		ForwardPort:   8080,
	}
}

func TestValidateProxyHost(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(h *model.ProxyHost)
		wantErr error
	}{
		{"valid", func(h *model.ProxyHost) {}, nil},
		{"no domains", func(h *model.ProxyHost) { h.DomainNames = nil }, ErrNoDomains},
		{"blank domains", func(h *model.ProxyHost) { h.DomainNames = []string{"  ", ""} }, ErrNoDomains},
		{"bad domain", func(h *model.ProxyHost) { h.DomainNames = []string{"-nope.example.com"} }, ErrInvalidDomain},
		{"bad scheme", func(h *model.ProxyHost) { h.ForwardScheme = "ftp" }, ErrInvalidScheme},
		{"empty host", func(h *model.ProxyHost) { h.ForwardHost = "" }, ErrInvalidHost},
		{"port zero", func(h *model.ProxyHost) { h.ForwardPort = 0 }, ErrInvalidPort},
		{"port too large", func(h *model.ProxyHost) { h.ForwardPort = 70000 }, ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validProxyHost()
			tt.mutate(h)
			err := ValidateProxyHost(h)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateProxyHostNormalizesDomains(t *testing.T) {
	h := validProxyHost()
	h.DomainNames = []string{"https://App.Example.com/login", "app.example.com", "Other.example.com:8443"}

	require.NoError(t, ValidateProxyHost(h))

	// Cleaned, lowercased, deduplicated.
	assert.Equal(t, []string{"app.example.com", "other.example.com"}, h.DomainNames)
}

func TestValidateProxyHostLocations(t *testing.T) {
	h := validProxyHost()
	h.Locations = []model.ProxyLocation{
		{Path: "/api", ForwardScheme: "http", ForwardHost: "10.0.0.2", ForwardPort: 9000},
	}
	assert.NoError(t, ValidateProxyHost(h))

	h.Locations[0].Path = "api" // missing leading slash
	assert.Error(t, ValidateProxyHost(h))

	h.Locations[0].Path = "/api"
	h.Locations[0].ForwardPort = 0
	assert.ErrorIs(t, ValidateProxyHost(h), ErrInvalidPort)
}

func TestValidateRedirectionHost(t *testing.T) {
	h := &model.RedirectionHost{
		DomainNames:       []string{"old.example.com"},
		ForwardScheme:     "https",
		ForwardDomainName: "HTTPS://new.example.com/",
		ForwardHTTPCode:   301,
	}
	require.NoError(t, ValidateRedirectionHost(h))
	assert.Equal(t, "new.example.com", h.ForwardDomainName)

	h.ForwardHTTPCode = 200
	assert.Error(t, ValidateRedirectionHost(h))

	h.ForwardHTTPCode = 302
	h.ForwardDomainName = ""
	assert.ErrorIs(t, ValidateRedirectionHost(h), ErrInvalidDomain)
}

func TestValidateDeadHost(t *testing.T) {
	h := &model.DeadHost{DomainNames: []string{"gone.example.com"}}
	assert.NoError(t, ValidateDeadHost(h))

	h.DomainNames = nil
	assert.ErrorIs(t, ValidateDeadHost(h), ErrNoDomains)
}

func TestValidateStream(t *testing.T) {
	s := &model.Stream{IncomingPort: 2222, ForwardingHost: "10.1.2.3", ForwardingPort: 22, TCPForwarding: true}
	assert.NoError(t, ValidateStream(s))

	s.IncomingPort = 0
	assert.ErrorIs(t, ValidateStream(s), ErrInvalidPort)

	s.IncomingPort = 2222
	s.TCPForwarding = false
	s.UDPForwarding = false
	assert.Error(t, ValidateStream(s))

	s.TCPForwarding = true
	s.ForwardingHost = "not valid!"
	assert.ErrorIs(t, ValidateStream(s), ErrInvalidHost)
}

func TestValidateCertificate(t *testing.T) {
	le := &model.Certificate{
		Provider:    "letsencrypt",
		DomainNames: []string{"secure.example.com"},
		Meta: model.CertificateMeta{
			LetsencryptEmail: "ops@example.com",
			LetsencryptAgree: true,
		},
	}
	assert.NoError(t, ValidateCertificate(le))

	le.Meta.LetsencryptAgree = false
	assert.Error(t, ValidateCertificate(le))

	le.Meta.LetsencryptAgree = true
	le.Meta.LetsencryptEmail = "not-an-email"
	assert.ErrorIs(t, ValidateCertificate(le), ErrEmailRequired)

	le.Meta.LetsencryptEmail = "ops@example.com"
	le.Meta.DNSChallenge = true
	assert.Error(t, ValidateCertificate(le)) // dns provider missing

	other := &model.Certificate{Provider: "other", NiceName: "wildcard 2026"}
	assert.NoError(t, ValidateCertificate(other))

	other.NiceName = ""
	assert.ErrorIs(t, ValidateCertificate(other), ErrNameRequired)

	assert.Error(t, ValidateCertificate(&model.Certificate{Provider: "acme-corp"}))
}

func TestValidateCertificateBundle(t *testing.T) {
	b := &model.CertificateBundle{Certificate: []byte("CERT"), Key: []byte("KEY")}
	assert.NoError(t, ValidateCertificateBundle(b))

	assert.Error(t, ValidateCertificateBundle(&model.CertificateBundle{Key: []byte("KEY")}))
	assert.Error(t, ValidateCertificateBundle(&model.CertificateBundle{Certificate: []byte("CERT")}))
}

func TestValidateAccessList(t *testing.T) {
	l := &model.AccessList{
		Name:    "office",
		Items:   []model.AccessListAuth{{Username: "admin", Password: "pw"}},
		Clients: []model.AccessListClient{{Address: "10.0.0.0/8", Directive: "allow"}},
	}
	assert.NoError(t, ValidateAccessList(l))

	l.Name = "  "
	assert.ErrorIs(t, ValidateAccessList(l), ErrNameRequired)

	l.Name = "office"
	l.Clients[0].Address = "300.1.2.3"
	assert.ErrorIs(t, ValidateAccessList(l), ErrInvalidAddress)

	l.Clients[0].Address = "10.0.0.1"
	l.Clients[0].Directive = "maybe"
	assert.Error(t, ValidateAccessList(l))

	empty := &model.AccessList{Name: "empty"}
	assert.Error(t, ValidateAccessList(empty))
}

func TestValidateUser(t *testing.T) {
	u := &model.User{Name: "Jamie", Email: "jamie@example.com"}
	assert.NoError(t, ValidateUser(u))

	u.Email = "nope"
	assert.ErrorIs(t, ValidateUser(u), ErrEmailRequired)

	u.Email = "jamie@example.com"
	u.Name = ""
	assert.ErrorIs(t, ValidateUser(u), ErrNameRequired)
}

func TestValidHost(t *testing.T) {
	valid := []string{"backend", "api.internal", "10.0.0.1", "::1", "my-svc"}
	invalid := []string{"", "bad host", "-x", "x-", "under_score"}

	for _, h := range valid {
		assert.True(t, ValidHost(h), "expected valid host: %q", h)
	}
	for _, h := range invalid {
		assert.False(t, ValidHost(h), "expected invalid host: %q", h)
	}
}

func TestValidClientAddress(t *testing.T) {
	assert.True(t, ValidClientAddress("192.168.1.1"))
	assert.True(t, ValidClientAddress("192.168.0.0/16"))
	assert.True(t, ValidClientAddress("2001:db8::/32"))
	assert.False(t, ValidClientAddress("example.com"))
	assert.False(t, ValidClientAddress("10.0.0.0/99"))
}

func TestValidPort(t *testing.T) {
	assert.True(t, ValidPort(1))
	assert.True(t, ValidPort(65535))
	assert.False(t, ValidPort(0))
	assert.False(t, ValidPort(65536))
	assert.False(t, ValidPort(-1))
}
