package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/errors"
)

// Document names shared by every backend.
const (
	DocTracks    = "tracks"
	DocHierarchy = "hierarchy"
	DocColorTags = "color-tags"
)

// Gateway persists library documents. Each save replaces the whole document.
type Gateway interface {
	SaveTracks(ctx context.Context, doc domain.TracksDocument) error
	SaveHierarchy(ctx context.Context, doc domain.HierarchyDocument) error
	SaveColorTags(ctx context.Context, tags map[string]string) error
	Load(ctx context.Context) (*LoadResult, error)
	Close() error
}

// LoadResult holds the documents read at startup. Missing documents are
// returned empty.
type LoadResult struct {
	Tracks    domain.TracksDocument
	Hierarchy domain.HierarchyDocument
	ColorTags map[string]string
	// Found reports whether at least one document existed.
	Found bool
}

// DocumentStore is a backend that keeps named byte documents.
type DocumentStore interface {
	Put(ctx context.Context, name string, data []byte) error
	// Get returns ok=false when the document does not exist.
	Get(ctx context.Context, name string) (data []byte, ok bool, err error)
	Close() error
}

// DocumentGateway implements Gateway over any DocumentStore. All backends
// share its encoding, so equal state produces equal bytes everywhere.
type DocumentGateway struct {
	docs   DocumentStore
	logger *slog.Logger
}

// NewGateway wraps a document store.
func NewGateway(docs DocumentStore, logger *slog.Logger) *DocumentGateway {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DocumentGateway{docs: docs, logger: logger}
}

// SaveTracks implements Gateway.
func (g *DocumentGateway) SaveTracks(ctx context.Context, doc domain.TracksDocument) error {
	if doc.Tracks == nil {
		doc.Tracks = map[string]*domain.Track{}
	}
	return g.put(ctx, DocTracks, doc)
}

// SaveHierarchy implements Gateway.
func (g *DocumentGateway) SaveHierarchy(ctx context.Context, doc domain.HierarchyDocument) error {
	if doc.Hierarchy == nil {
		doc.Hierarchy = []*domain.Node{}
	}
	if doc.Index == nil {
		doc.Index = domain.Index{}
	}
	return g.put(ctx, DocHierarchy, doc)
}

// SaveColorTags implements Gateway.
func (g *DocumentGateway) SaveColorTags(ctx context.Context, tags map[string]string) error {
	if tags == nil {
		tags = map[string]string{}
	}
	return g.put(ctx, DocColorTags, tags)
}

// Load implements Gateway.
func (g *DocumentGateway) Load(ctx context.Context) (*LoadResult, error) {
	res := &LoadResult{
		Tracks:    domain.TracksDocument{Tracks: map[string]*domain.Track{}},
		Hierarchy: domain.HierarchyDocument{Hierarchy: []*domain.Node{}, Index: domain.Index{}},
		ColorTags: map[string]string{},
	}

	found, err := g.get(ctx, DocTracks, &res.Tracks)
	if err != nil {
		return nil, err
	}
	res.Found = res.Found || found

	found, err = g.get(ctx, DocHierarchy, &res.Hierarchy)
	if err != nil {
		return nil, err
	}
	res.Found = res.Found || found

	found, err = g.get(ctx, DocColorTags, &res.ColorTags)
	if err != nil {
		return nil, err
	}
	res.Found = res.Found || found

	// Decoding may leave nil containers when a document holds JSON null.
	if res.Tracks.Tracks == nil {
		res.Tracks.Tracks = map[string]*domain.Track{}
	}
	if res.Hierarchy.Hierarchy == nil {
		res.Hierarchy.Hierarchy = []*domain.Node{}
	}
	if res.Hierarchy.Index == nil {
		res.Hierarchy.Index = domain.Index{}
	}
	if res.ColorTags == nil {
		res.ColorTags = map[string]string{}
	}

	return res, nil
}

// Close closes the underlying store.
func (g *DocumentGateway) Close() error {
	return g.docs.Close()
}

func (g *DocumentGateway) put(ctx context.Context, name string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "encode %s document", name)
	}
	if err := g.docs.Put(ctx, name, data); err != nil {
		return errors.PersistenceFailure(fmt.Errorf("save %s: %w", name, err))
	}
	g.logger.Debug("document saved", "name", name, "bytes", len(data))
	return nil
}

func (g *DocumentGateway) get(ctx context.Context, name string, dest any) (bool, error) {
	data, ok, err := g.docs.Get(ctx, name)
	if err != nil {
		return false, errors.PersistenceFailure(fmt.Errorf("load %s: %w", name, err))
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrapf(err, errors.CodeImportMalformed, "decode %s document", name)
	}
	return true, nil
}

// Encode renders a document as indented JSON with a trailing newline. Map
// keys are sorted, so the output depends only on the value.
func Encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// SaveSnapshot writes both halves of a snapshot, hierarchy first. Both
// writes are attempted; the returned error joins any failures.
func SaveSnapshot(ctx context.Context, g Gateway, snap *domain.Snapshot) error {
	return errors.Join(
		g.SaveHierarchy(ctx, snap.HierarchyDocument()),
		g.SaveTracks(ctx, snap.TracksDocument()),
	)
}
