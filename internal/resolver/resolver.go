// Package resolver maps logical entity ids onto physical document handles.
// Records were created by different historical code paths, so a document's
// handle is not guaranteed to equal the stringified logical id, and the same
// logical id may even be shadowed by ghost documents under several handles.
// All of that reconciliation lives here; nothing above this package reasons
// about physical handles.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/staffsync/staff-management/internal/docstore"
)

// HandleSource is the mirror-side handle lookup; the mirror registry
// implements it.
type HandleSource interface {
	HandleFor(collection string, id int64) (string, bool)
}

type Resolver struct {
	store   docstore.Store
	mirrors HandleSource
	logger  *slog.Logger
}

func New(store docstore.Store, mirrors HandleSource, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, mirrors: mirrors, logger: logger}
}

// WriteTarget resolves the handle an update for the logical id must be
// written to. Resolution order: the mirror-captured handle, a query on the
// numeric-typed id field, a query on the string-typed id field, and finally
// the legacy convention of using the stringified id as the handle itself.
func (r *Resolver) WriteTarget(ctx context.Context, collection string, id int64) (string, error) {
	if handle, ok := r.mirrors.HandleFor(collection, id); ok {
		return handle, nil
	}

	docs, err := r.store.QueryEquals(ctx, collection, "id", id)
	if err != nil {
		return "", err
	}
	if len(docs) > 0 {
		return docs[0].Handle, nil
	}

	docs, err = r.store.QueryEquals(ctx, collection, "id", strconv.FormatInt(id, 10))
	if err != nil {
		return "", err
	}
	if len(docs) > 0 {
		return docs[0].Handle, nil
	}

	r.logger.Debug("falling back to legacy handle convention", "collection", collection, "id", id)
	return strconv.FormatInt(id, 10), nil
}

// DeleteAll removes every document reachable for the logical id. Unlike
// WriteTarget it does not stop at the first hit: historical writes under
// inconsistent handle conventions can leave ghost duplicates, so all
// resolution paths contribute candidates and each one is deleted. It reports
// true when at least one document was removed; a clean miss is (false, nil).
func (r *Resolver) DeleteAll(ctx context.Context, collection string, id int64) (bool, error) {
	candidates := make(map[string]struct{})

	if handle, ok := r.mirrors.HandleFor(collection, id); ok {
		candidates[handle] = struct{}{}
	}
	if docs, err := r.store.QueryEquals(ctx, collection, "id", id); err == nil {
		for _, doc := range docs {
			candidates[doc.Handle] = struct{}{}
		}
	} else {
		r.logger.Warn("numeric id query failed during delete", "collection", collection, "id", id, "error", err)
	}
	if docs, err := r.store.QueryEquals(ctx, collection, "id", strconv.FormatInt(id, 10)); err == nil {
		for _, doc := range docs {
			candidates[doc.Handle] = struct{}{}
		}
	} else {
		r.logger.Warn("string id query failed during delete", "collection", collection, "id", id, "error", err)
	}
	candidates[strconv.FormatInt(id, 10)] = struct{}{}

	removed := 0
	var lastErr error
	for handle := range candidates {
		err := r.store.Delete(ctx, collection, handle)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, docstore.ErrNotFound):
			// nothing under this handle, keep going
		default:
			lastErr = err
			r.logger.Warn("delete failed for handle", "collection", collection, "handle", handle, "error", err)
		}
	}

	if removed > 0 {
		if removed > 1 {
			r.logger.Info("removed ghost duplicates", "collection", collection, "id", id, "count", removed)
		}
		return true, nil
	}
	return false, lastErr
}
