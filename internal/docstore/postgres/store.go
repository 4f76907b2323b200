package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staffsync/staff-management/internal/docstore"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRow is the storage shape: one row per document with the payload in
// a JSON text column, so the table never needs to know entity fields.
type documentRow struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Collection string `gorm:"uniqueIndex:idx_documents_collection_handle;size:64;not null"`
	Handle     string `gorm:"uniqueIndex:idx_documents_collection_handle;size:128;not null"`
	Data       string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

// Store implements docstore.Store using GORM. Subscription fan-out is kept
// in process: every committed write republishes the affected collection to
// local subscribers through a docstore.Hub.
type Store struct {
	db  *gorm.DB
	hub *docstore.Hub
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, hub: docstore.NewHub()}
}

// AutoMigrate creates the documents table. Test databases use it directly;
// deployed schemas are owned by the goose migrations under db/migrations.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&documentRow{})
}

func (s *Store) Subscribe(ctx context.Context, collection string) (<-chan docstore.Batch, error) {
	initial, err := s.load(collection, "")
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, collection, "", initial), nil
}

func (s *Store) SubscribeDocument(ctx context.Context, collection, handle string) (<-chan docstore.Batch, error) {
	initial, err := s.load(collection, handle)
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, collection, handle, initial), nil
}

func (s *Store) Set(ctx context.Context, collection, handle string, data map[string]any) error {
	payload, err := encode(data)
	if err != nil {
		return err
	}
	row := documentRow{Collection: collection, Handle: handle, Data: payload}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "handle"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	s.publish(collection)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, handle string, partial map[string]any) error {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND handle = ?", collection, handle).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return docstore.ErrNotFound
		}
		return err
	}

	data, err := decode(row.Data)
	if err != nil {
		return err
	}
	for k, v := range partial {
		data[k] = v
	}
	payload, err := encode(data)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Model(&documentRow{}).
		Where("collection = ? AND handle = ?", collection, handle).
		Updates(map[string]interface{}{"data": payload, "updated_at": time.Now()}).Error
	if err != nil {
		return err
	}
	s.publish(collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, handle string) error {
	res := s.db.WithContext(ctx).
		Where("collection = ? AND handle = ?", collection, handle).
		Delete(&documentRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return docstore.ErrNotFound
	}
	s.publish(collection)
	return nil
}

func (s *Store) QueryEquals(ctx context.Context, collection, field string, value any) ([]docstore.Document, error) {
	batch, err := s.load(collection, "")
	if err != nil {
		return nil, err
	}
	var out []docstore.Document
	for _, doc := range batch.Docs {
		if docstore.ValueEquals(doc.Data[field], value) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, collection string, limit int) ([]docstore.Document, error) {
	q := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("handle ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []documentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	payload, err := encode(data)
	if err != nil {
		return "", err
	}
	handle := uuid.NewString()
	row := documentRow{Collection: collection, Handle: handle, Data: payload}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	s.publish(collection)
	return handle, nil
}

// publish reloads the collection and fans it out to in-process subscribers.
func (s *Store) publish(collection string) {
	s.hub.Publish(collection, func(collection, handle string) docstore.Batch {
		batch, err := s.load(collection, handle)
		if err != nil {
			return docstore.Batch{Err: err}
		}
		return batch
	})
}

// load reads one collection, or a single document of it when handle is set.
func (s *Store) load(collection, handle string) (docstore.Batch, error) {
	q := s.db.Where("collection = ?", collection).Order("handle ASC")
	if handle != "" {
		q = q.Where("handle = ?", handle)
	}
	var rows []documentRow
	if err := q.Find(&rows).Error; err != nil {
		return docstore.Batch{}, err
	}
	docs, err := decodeRows(rows)
	if err != nil {
		return docstore.Batch{}, err
	}
	return docstore.Batch{Docs: docs}, nil
}

func decodeRows(rows []documentRow) ([]docstore.Document, error) {
	var out []docstore.Document
	for _, row := range rows {
		data, err := decode(row.Data)
		if err != nil {
			return nil, fmt.Errorf("document %s/%s: %w", row.Collection, row.Handle, err)
		}
		out = append(out, docstore.Document{Handle: row.Handle, Data: data})
	}
	return out, nil
}

func encode(data map[string]any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}

func decode(payload string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return data, nil
}
