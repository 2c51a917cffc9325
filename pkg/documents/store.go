package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/docgate-ai/docgate/pkg/cache"
)

const (
	schemaSampleSize = 50
	schemaCacheTTL   = 10 * time.Minute
	maxResults       = 1000
)

// Store reads schemaless documents out of Postgres and executes generated
// filter expressions against them. Filter operators follow the Mongo-style
// comparison vocabulary and are translated to JSONB SQL.
type Store struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger *logrus.Logger
}

func NewStore(db *gorm.DB, c *cache.Cache, logger *logrus.Logger) (*Store, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return &Store{db: db, cache: c, logger: logger}, nil
}

func (s *Store) Insert(ctx context.Context, collection string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	doc := Document{Collection: collection, Data: raw}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// Schema derives the field layout of a collection by sampling documents and
// taking the union of keys with an inferred type per key. The result is
// cached: deriving it costs a table scan and it feeds every prompt.
func (s *Store) Schema(ctx context.Context, collection string) (map[string]string, error) {
	cacheKey := "schema:" + collection
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			var schema map[string]string
			if err := json.Unmarshal([]byte(cached), &schema); err == nil {
				return schema, nil
			}
		}
	}

	var docs []Document
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at DESC").
		Limit(schemaSampleSize).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sample collection %s: %w", collection, err)
	}

	schema := make(map[string]string)
	for _, doc := range docs {
		var data map[string]interface{}
		if err := json.Unmarshal(doc.Data, &data); err != nil {
			continue
		}
		for key, value := range data {
			if _, seen := schema[key]; !seen {
				schema[key] = inferType(value)
			}
		}
	}

	if s.cache != nil {
		if raw, err := json.Marshal(schema); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(raw), schemaCacheTTL); err != nil {
				s.logger.WithError(err).Warn("failed to cache collection schema")
			}
		}
	}
	return schema, nil
}

func inferType(value interface{}) string {
	switch value.(type) {
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	case nil:
		return "null"
	default:
		return "string"
	}
}

// ExecuteFilter runs a parsed filter expression against a collection. The
// expression maps field names to either a literal (equality) or an operator
// object like {"$gt": 25}.
func (s *Store) ExecuteFilter(ctx context.Context, collection string, filter map[string]interface{}) ([]map[string]interface{}, error) {
	query := s.db.WithContext(ctx).Model(&Document{}).Where("collection = ?", collection)

	// Deterministic clause order keeps query plans and tests stable.
	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		cond := filter[field]
		ops, isOperator := cond.(map[string]interface{})
		if !isOperator {
			query = query.Where("data->>? = ?", field, fmt.Sprintf("%v", cond))
			continue
		}
		for op, operand := range ops {
			clause, err := comparisonClause(op, operand)
			if err != nil {
				return nil, err
			}
			query = query.Where(clause, field, operand)
		}
	}

	var docs []Document
	if err := query.Limit(maxResults).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to execute filter on %s: %w", collection, err)
	}

	results := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		var data map[string]interface{}
		if err := json.Unmarshal(doc.Data, &data); err != nil {
			s.logger.WithError(err).WithField("id", doc.ID).Warn("skipping undecodable document")
			continue
		}
		results = append(results, data)
	}
	return results, nil
}

func comparisonClause(op string, operand interface{}) (string, error) {
	_, numeric := operand.(float64)

	switch op {
	case "$gt", "$gte", "$lt", "$lte":
		if !numeric {
			return "", fmt.Errorf("operator %s requires a numeric operand", op)
		}
		sqlOp := map[string]string{"$gt": ">", "$gte": ">=", "$lt": "<", "$lte": "<="}[op]
		return fmt.Sprintf("(data->>?)::numeric %s ?", sqlOp), nil
	case "$eq":
		if numeric {
			return "(data->>?)::numeric = ?", nil
		}
		return "data->>? = ?", nil
	case "$ne":
		if numeric {
			return "(data->>?)::numeric <> ?", nil
		}
		return "data->>? <> ?", nil
	default:
		return "", fmt.Errorf("unsupported filter operator %s", op)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
