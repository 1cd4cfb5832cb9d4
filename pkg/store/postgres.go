package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// documentRow is the GORM model backing the Postgres adapter: one JSONB
// payload per (collection, doc_id).
type documentRow struct {
	Collection string         `gorm:"primaryKey;size:64"`
	DocID      string         `gorm:"primaryKey;size:64"`
	Data       datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

// PostgresStore keeps documents in a single JSONB table. Change streams are
// fanned out in-process after each local write, which gives the same
// semantics as the other backends for a single server instance; multi-node
// deployments should use the Firestore backend.
type PostgresStore struct {
	db *gorm.DB

	mu      sync.Mutex
	subs    map[int]*memorySub
	nextSub int
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}

	log.Println("[Store] Postgres document store initialized")
	return &PostgresStore{db: db, subs: make(map[int]*memorySub)}, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rowToDocument(row)
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	payload, err := json.Marshal(resolveTimestamps(cloneMap(data)))
	if err != nil {
		return err
	}
	row := documentRow{Collection: collection, DocID: id, Data: payload, UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	s.notify(ctx, collection)
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, updates map[string]interface{}) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Where("collection = ? AND doc_id = ?", collection, id).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var data map[string]interface{}
		if err := json.Unmarshal(row.Data, &data); err != nil {
			return err
		}
		for k, v := range resolveTimestamps(cloneMap(updates)) {
			data[k] = v
		}
		payload, err := json.Marshal(data)
		if err != nil {
			return err
		}
		return tx.Model(&documentRow{}).
			Where("collection = ? AND doc_id = ?", collection, id).
			Updates(map[string]interface{}{"data": datatypes.JSON(payload), "updated_at": time.Now()}).Error
	})
	if err != nil {
		return err
	}
	s.notify(ctx, collection)
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	q := s.db.WithContext(ctx).Model(&documentRow{}).Where("collection = ?", collection)
	for _, f := range filters {
		switch f.Op {
		case "==":
			contains, err := json.Marshal(map[string]interface{}{f.Field: f.Value})
			if err != nil {
				return nil, err
			}
			q = q.Where("data @> ?", string(contains))
		case "array-contains":
			contains, err := json.Marshal([]interface{}{f.Value})
			if err != nil {
				return nil, err
			}
			q = q.Where("data -> ? @> ?", f.Field, string(contains))
		default:
			return nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}

	var rows []documentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := rowToDocument(row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (s *PostgresStore) Subscribe(ctx context.Context, collection string, filters []Filter, fn func([]Document)) (Unsubscribe, error) {
	docs, err := s.Query(ctx, collection, filters...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	sub := &memorySub{collection: collection, filters: filters, notifier: newNotifier(fn)}
	s.subs[id] = sub
	sub.notifier.push(docs)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			sub.notifier.stop()
			delete(s.subs, id)
		}
		s.mu.Unlock()
	}, nil
}

// notify re-runs the query of every subscription on the collection and
// pushes the fresh result set. Errors are logged; a failed refresh leaves
// the subscriber on its previous snapshot until the next change.
func (s *PostgresStore) notify(ctx context.Context, collection string) {
	s.mu.Lock()
	subs := make([]*memorySub, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.collection == collection {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		docs, err := s.Query(ctx, sub.collection, sub.filters...)
		if err != nil {
			log.Printf("[Store] failed to refresh subscription on %s: %v", collection, err)
			continue
		}
		sub.notifier.push(docs)
	}
}

func rowToDocument(row documentRow) (*Document, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(row.Data, &data); err != nil {
		return nil, err
	}
	return &Document{ID: row.DocID, Data: data}, nil
}
