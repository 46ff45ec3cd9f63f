package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"newsboard/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStorage keeps documents in the JSONB table "nodes".
type PostgresStorage struct {
	db *gorm.DB
}

func NewPostgresStorage(db *gorm.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

var upsertNode = clause.OnConflict{
	Columns:   []clause.Column{{Name: "collection"}, {Name: "key"}},
	DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
}

func (s *PostgresStorage) Query(ctx context.Context, q Query) ([]Child, error) {
	tx := s.db.WithContext(ctx).Model(&models.Node{}).Where("collection = ?", q.Ref.Collection)

	if q.Ref.Key != "" {
		var nodes []models.Node
		if err := tx.Where(`"key" = ?`, q.Ref.Key).Limit(1).Find(&nodes).Error; err != nil {
			return nil, err
		}
		return toChildren(nodes), nil
	}

	if q.OrderBy != "" {
		if q.HasEqual() {
			if str, ok := q.Equal.(string); ok {
				// 字符串相等走 ->> 表达式索引
				tx = tx.Where("value ->> ?::text = ?", q.OrderBy, str)
			} else {
				tx = tx.Where("value -> ?::text = ?::jsonb", q.OrderBy, jsonText(q.Equal))
			}
		}
		if q.HasStart() {
			tx = tx.Where("value -> ?::text >= ?::jsonb", q.OrderBy, jsonText(q.Start))
		}
		if q.HasEnd() {
			tx = tx.Where("value -> ?::text <= ?::jsonb", q.OrderBy, jsonText(q.End))
		}
	}

	desc := q.Last > 0
	tx = tx.Clauses(orderClause(q.OrderBy, desc))
	if desc {
		tx = tx.Limit(q.Last)
	}

	var nodes []models.Node
	if err := tx.Find(&nodes).Error; err != nil {
		return nil, err
	}
	if desc {
		// limitToLast: 倒序取 N 条后翻回升序
		nodes = lo.Reverse(nodes)
	}
	return toChildren(nodes), nil
}

func orderClause(field string, desc bool) clause.OrderBy {
	dir, nulls := "ASC", "NULLS FIRST"
	if desc {
		dir, nulls = "DESC", "NULLS LAST"
	}
	if field == "" {
		return clause.OrderBy{Expression: clause.Expr{
			SQL:                `"key" COLLATE "C" ` + dir,
			WithoutParentheses: true,
		}}
	}
	return clause.OrderBy{Expression: clause.Expr{
		SQL:                "value -> ?::text " + dir + " " + nulls + `, "key" COLLATE "C" ` + dir,
		Vars:               []interface{}{field},
		WithoutParentheses: true,
	}}
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func toChildren(nodes []models.Node) []Child {
	return lo.Map(nodes, func(n models.Node, _ int) Child {
		return Child{Key: n.Key, Value: json.RawMessage(n.Value)}
	})
}

func (s *PostgresStorage) Put(ctx context.Context, collection, key string, value json.RawMessage) error {
	node := models.Node{Collection: collection, Key: key, Value: string(value)}
	return s.db.WithContext(ctx).Clauses(upsertNode).Create(&node).Error
}

func (s *PostgresStorage) Delete(ctx context.Context, collection, key string) error {
	return s.db.WithContext(ctx).
		Where(`collection = ? AND "key" = ?`, collection, key).
		Delete(&models.Node{}).Error
}

func (s *PostgresStorage) Transact(ctx context.Context, collection, key string, fn func(json.RawMessage) (json.RawMessage, error)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var nodes []models.Node
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(`collection = ? AND "key" = ?`, collection, key).
			Limit(1).
			Find(&nodes).Error
		if err != nil {
			return err
		}

		var current json.RawMessage
		if len(nodes) > 0 {
			current = json.RawMessage(nodes[0].Value)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}

		if next == nil {
			if len(nodes) == 0 {
				return nil
			}
			return tx.Where(`collection = ? AND "key" = ?`, collection, key).Delete(&models.Node{}).Error
		}
		node := models.Node{Collection: collection, Key: key, Value: string(next)}
		return tx.Clauses(upsertNode).Create(&node).Error
	})
}

func (s *PostgresStorage) CreateAccount(ctx context.Context, account *models.Account) error {
	account.Email = strings.ToLower(account.Email)
	err := s.db.WithContext(ctx).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

func (s *PostgresStorage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *PostgresStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
