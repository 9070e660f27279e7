package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"npmdeck/internal/model"
	"npmdeck/internal/storage"
)

const (
	archivePrefix      = "certificates/"
	archiveContentType = "application/x-pem-file"
	presignExpiry      = 15 * time.Minute
)

var ErrEmptyBundle = errors.New("certificate bundle has no content")

// CertArchiveService keeps copies of certificate bundles uploaded through the
// gateway in object storage. Archiving is best-effort from the forwarder's
// point of view, same as audit recording.
type CertArchiveService interface {
	Archive(ctx context.Context, certID int64, bundle *model.CertificateBundle) (model.ArchivedCertificate, error)
	List(ctx context.Context) ([]model.ArchivedCertificate, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type certArchiveService struct {
	store storage.Storage
	now   func() time.Time
}

// NewCertArchiveService constructs a CertArchiveService over the given storage.
func NewCertArchiveService(store storage.Storage) CertArchiveService {
	return &certArchiveService{store: store, now: time.Now}
}

// Archive uploads the bundle as one PEM object keyed by certificate id and
// upload time. The private key is included, so bucket access controls are the
// protection boundary here.
func (s *certArchiveService) Archive(ctx context.Context, certID int64, bundle *model.CertificateBundle) (model.ArchivedCertificate, error) {
	if bundle == nil || (len(bundle.Certificate) == 0 && len(bundle.Key) == 0) {
		return model.ArchivedCertificate{}, ErrEmptyBundle
	}

	var buf bytes.Buffer
	buf.Write(bundle.Certificate)
	if len(bundle.Key) > 0 {
		ensureNewline(&buf)
		buf.Write(bundle.Key)
	}
	if len(bundle.Intermediate) > 0 {
		ensureNewline(&buf)
		buf.Write(bundle.Intermediate)
	}

	at := s.now().UTC()
	key := fmt.Sprintf("%s%d/%s-%s.pem",
		archivePrefix, certID, at.Format("20060102T150405Z"), shortID())

	info, err := s.store.Put(ctx, key, &buf, storage.PutOptions{
		Size:        int64(buf.Len()),
		ContentType: archiveContentType,
		Metadata:    map[string]string{"certificate-id": strconv.FormatInt(certID, 10)},
	})
	if err != nil {
		return model.ArchivedCertificate{}, fmt.Errorf("archive certificate %d: %w", certID, err)
	}

	return model.ArchivedCertificate{
		Key:           info.Key,
		CertificateID: certID,
		Size:          info.Size,
		ArchivedAt:    at,
	}, nil
}

// List returns every archived bundle, derived from the object keys.
func (s *certArchiveService) List(ctx context.Context) ([]model.ArchivedCertificate, error) {
	objs, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, err
	}

	out := make([]model.ArchivedCertificate, 0, len(objs))
	for _, o := range objs {
		out = append(out, model.ArchivedCertificate{
			Key:           o.Key,
			CertificateID: certIDFromKey(o.Key),
			Size:          o.Size,
			ArchivedAt:    o.LastModified,
		})
	}
	return out, nil
}

// PresignDownload returns a time-limited URL for one archived bundle.
func (s *certArchiveService) PresignDownload(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, archivePrefix) {
		return "", fmt.Errorf("key %q is outside the archive", key)
	}
	return s.store.PresignGet(ctx, key, presignExpiry)
}

// Delete removes one archived bundle.
func (s *certArchiveService) Delete(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, archivePrefix) {
		return fmt.Errorf("key %q is outside the archive", key)
	}
	return s.store.Delete(ctx, key)
}

// certIDFromKey parses "certificates/{id}/..." back to the certificate id.
// Unparseable keys yield 0 rather than an error; listing stays best-effort.
func certIDFromKey(key string) int64 {
	rest := strings.TrimPrefix(key, archivePrefix)
	idPart, _, ok := strings.Cut(rest, "/")
	if !ok {
		return 0
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func ensureNewline(buf *bytes.Buffer) {
	if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}
}

func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
