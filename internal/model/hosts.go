package model

// Host models mirror the upstream Nginx Proxy Manager REST resources. They
// are transport DTOs with no persistence coupling; validation lives in the
// npm package.

// ProxyHost is an HTTP(S) virtual host forwarded to an upstream service.
type ProxyHost struct {
	ID                    int64           `json:"id,omitempty"`
	CreatedOn             string          `json:"created_on,omitempty"`
	ModifiedOn            string          `json:"modified_on,omitempty"`
	DomainNames           []string        `json:"domain_names"`
	ForwardScheme         string          `json:"forward_scheme"`
	ForwardHost           string          `json:"forward_host"`
	ForwardPort           int             `json:"forward_port"`
	AccessListID          int64           `json:"access_list_id"`
	CertificateID         int64           `json:"certificate_id"`
	SSLForced             bool            `json:"ssl_forced"`
	HSTSEnabled           bool            `json:"hsts_enabled"`
	HSTSSubdomains        bool            `json:"hsts_subdomains"`
	HTTP2Support          bool            `json:"http2_support"`
	BlockExploits         bool            `json:"block_exploits"`
	CachingEnabled        bool            `json:"caching_enabled"`
	AllowWebsocketUpgrade bool            `json:"allow_websocket_upgrade"`
	AdvancedConfig        string          `json:"advanced_config"`
	Enabled               bool            `json:"enabled"`
	Locations             []ProxyLocation `json:"locations,omitempty"`
}

// ProxyLocation is a per-path override inside a proxy host.
type ProxyLocation struct {
	Path           string `json:"path"`
	ForwardScheme  string `json:"forward_scheme"`
	ForwardHost    string `json:"forward_host"`
	ForwardPort    int    `json:"forward_port"`
	AdvancedConfig string `json:"advanced_config,omitempty"`
}

// RedirectionHost answers on its domains with an HTTP redirect.
type RedirectionHost struct {
	ID                int64    `json:"id,omitempty"`
	CreatedOn         string   `json:"created_on,omitempty"`
	ModifiedOn        string   `json:"modified_on,omitempty"`
	DomainNames       []string `json:"domain_names"`
	ForwardScheme     string   `json:"forward_scheme"`
	ForwardDomainName string   `json:"forward_domain_name"`
	ForwardHTTPCode   int      `json:"forward_http_code"`
	PreservePath      bool     `json:"preserve_path"`
	CertificateID     int64    `json:"certificate_id"`
	SSLForced         bool     `json:"ssl_forced"`
	HSTSEnabled       bool     `json:"hsts_enabled"`
	HSTSSubdomains    bool     `json:"hsts_subdomains"`
	HTTP2Support      bool     `json:"http2_support"`
	BlockExploits     bool     `json:"block_exploits"`
	AdvancedConfig    string   `json:"advanced_config"`
	Enabled           bool     `json:"enabled"`
}

// DeadHost serves a 404 page for its domains.
type DeadHost struct {
	ID             int64    `json:"id,omitempty"`
	CreatedOn      string   `json:"created_on,omitempty"`
	ModifiedOn     string   `json:"modified_on,omitempty"`
	DomainNames    []string `json:"domain_names"`
	CertificateID  int64    `json:"certificate_id"`
	SSLForced      bool     `json:"ssl_forced"`
	HSTSEnabled    bool     `json:"hsts_enabled"`
	HSTSSubdomains bool     `json:"hsts_subdomains"`
	HTTP2Support   bool     `json:"http2_support"`
	AdvancedConfig string   `json:"advanced_config"`
	Enabled        bool     `json:"enabled"`
}

// Stream is a layer-4 TCP/UDP port forward.
type Stream struct {
	ID             int64  `json:"id,omitempty"`
	CreatedOn      string `json:"created_on,omitempty"`
	ModifiedOn     string `json:"modified_on,omitempty"`
	IncomingPort   int    `json:"incoming_port"`
	ForwardingHost string `json:"forwarding_host"`
	ForwardingPort int    `json:"forwarding_port"`
	TCPForwarding  bool   `json:"tcp_forwarding"`
	UDPForwarding  bool   `json:"udp_forwarding"`
	CertificateID  int64  `json:"certificate_id"`
	Enabled        bool   `json:"enabled"`
}
