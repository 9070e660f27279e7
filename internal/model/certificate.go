package model

import "time"

// Certificate is a TLS certificate managed by the upstream, either issued
// through Let's Encrypt or uploaded by the operator ("other" provider).
type Certificate struct {
	ID          int64           `json:"id,omitempty"`
	CreatedOn   string          `json:"created_on,omitempty"`
	ModifiedOn  string          `json:"modified_on,omitempty"`
	Provider    string          `json:"provider"`
	NiceName    string          `json:"nice_name"`
	DomainNames []string        `json:"domain_names"`
	ExpiresOn   string          `json:"expires_on,omitempty"`
	Meta        CertificateMeta `json:"meta,omitempty"`
}

// CertificateMeta carries provider-specific details.
type CertificateMeta struct {
	LetsencryptEmail       string `json:"letsencrypt_email,omitempty"`
	LetsencryptAgree       bool   `json:"letsencrypt_agree,omitempty"`
	DNSChallenge           bool   `json:"dns_challenge,omitempty"`
	DNSProvider            string `json:"dns_provider,omitempty"`
	DNSProviderCredentials string `json:"dns_provider_credentials,omitempty"`
	PropagationSeconds     int    `json:"propagation_seconds,omitempty"`
}

// CertificateBundle holds the PEM payloads of a custom certificate upload.
// The intermediate chain is optional.
type CertificateBundle struct {
	Certificate  []byte
	Key          []byte
	Intermediate []byte
}

// ArchivedCertificate describes one archived certificate bundle in object
// storage.
type ArchivedCertificate struct {
	Key           string `json:"key"`
	CertificateID int64  `json:"certificate_id"`
	Size          int64  `json:"size"`
	ArchivedAt    time.Time `json:"archived_at"`
}
