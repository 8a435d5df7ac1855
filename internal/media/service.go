package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// maxSuffixAttempts bounds the numbered variants tried after the id suffix.
const maxSuffixAttempts = 100

// Service persists downloaded attachments through a storage provider.
type Service struct {
	provider    StorageProvider
	onCollision string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a media service with the given storage provider.
func NewService(log *slog.Logger, provider StorageProvider, onCollision string) *Service {
	if log == nil {
		log = slog.Default()
	}
	if onCollision != CollisionOverwrite {
		onCollision = CollisionSuffix
	}
	return &Service{
		provider:    provider,
		onCollision: onCollision,
		logger:      log.With(slog.String("service", "media")),
		now:         time.Now,
	}
}

// Ingest writes the attachment bytes under a sanitized name. With the suffix
// policy an existing file is never replaced; a short attachment id and then
// a counter are appended until a free name is found.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (Asset, error) {
	if s.provider == nil {
		return Asset{}, ErrProviderUnavailable
	}
	if len(input.Data) == 0 {
		return Asset{}, ErrEmptyPayload
	}
	maxBytes := input.MaxBytes
	if maxBytes <= 0 {
		maxBytes = MaxAssetBytes
	}
	if int64(len(input.Data)) > maxBytes {
		return Asset{}, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, maxBytes)
	}

	sum := sha256.Sum256(input.Data)
	asset := Asset{
		Mime:        MimeByExtension(input.Extension),
		SizeBytes:   int64(len(input.Data)),
		ContentHash: hex.EncodeToString(sum[:]),
	}

	name := AttachmentFilename(input.Title, input.Extension)
	if s.onCollision == CollisionOverwrite {
		if err := s.provider.Put(ctx, name, bytes.NewReader(input.Data), WriteOverwrite); err != nil {
			return Asset{}, fmt.Errorf("store attachment: %w", err)
		}
		return s.finish(asset, name), nil
	}

	for _, candidate := range collisionCandidates(name, input.AttachmentID) {
		if err := ctx.Err(); err != nil {
			return Asset{}, err
		}
		err := s.provider.Put(ctx, candidate, bytes.NewReader(input.Data), WriteExclusive)
		if err == nil {
			if candidate != name {
				s.logger.Info("name taken, stored under suffix", slog.String("name", name), slog.String("key", candidate))
			}
			return s.finish(asset, candidate), nil
		}
		if !errors.Is(err, ErrAssetExists) {
			return Asset{}, fmt.Errorf("store attachment: %w", err)
		}
	}
	return Asset{}, fmt.Errorf("%w: no free name for %s", ErrAssetExists, name)
}

// Sweep removes stored attachments older than olderThan when the provider
// supports it.
func (s *Service) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	sw, ok := s.provider.(Sweeper)
	if !ok {
		return 0, ErrProviderUnavailable
	}
	return sw.Sweep(ctx, s.now().Add(-olderThan))
}

// List returns stored objects sorted by key.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	l, ok := s.provider.(Lister)
	if !ok {
		return nil, ErrProviderUnavailable
	}
	return l.List(ctx)
}

// Open returns a reader for a stored key.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}
	return s.provider.Open(ctx, key)
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if s.provider == nil {
		return ErrProviderUnavailable
	}
	if err := s.provider.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Info("stored file deleted", slog.String("key", key))
	return nil
}

// PathOf returns the local path for a key, or "" when the key is invalid.
func (s *Service) PathOf(key string) string {
	if s.provider == nil {
		return ""
	}
	return s.provider.AccessPath(key)
}

// AccessPath returns the local path of a persisted asset.
func (s *Service) AccessPath(asset Asset) string {
	if s.provider == nil {
		return ""
	}
	return s.provider.AccessPath(asset.Key)
}

func (s *Service) finish(asset Asset, key string) Asset {
	asset.Key = key
	asset.Path = s.provider.AccessPath(key)
	asset.CreatedAt = s.now()
	return asset
}

// collisionCandidates yields name, name_<id8>, name_<id8>_2, ... preserving
// the extension.
func collisionCandidates(name, attachmentID string) []string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	stem := base
	if short := shortID(attachmentID); short != "" {
		stem = base + "_" + short
	}
	out := make([]string, 0, maxSuffixAttempts+2)
	out = append(out, name)
	if stem != base {
		out = append(out, stem+ext)
	}
	for i := 2; len(out) < maxSuffixAttempts+2; i++ {
		out = append(out, stem+"_"+strconv.Itoa(i)+ext)
	}
	return out
}

func shortID(id string) string {
	id = SafeFilename(strings.TrimSpace(id))
	// attach ids share a long common prefix; the tail is what varies.
	if r := []rune(id); len(r) > 8 {
		id = string(r[len(r)-8:])
	}
	return id
}
