package repository

import (
	"context"
	"strings"

	domainRepo "github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"gorm.io/gorm"
)

type ctxKey string

// txKey is the context key carrying the active transaction
const txKey ctxKey = "gorm_tx"

// withTx stores tx on the context so repositories join the transaction
func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// conn returns the transaction on ctx if there is one, otherwise db
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// SearchScope matches term as a case-insensitive substring of any of columns.
// LOWER/LIKE keeps the query portable between postgres and sqlite.
func SearchScope(term string, columns ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(columns) == 0 {
			return db
		}
		like := "%" + strings.ToLower(term) + "%"
		clauses := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, c := range columns {
			clauses[i] = "LOWER(" + c + ") LIKE ?"
			args[i] = like
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

type transactor struct {
	db *gorm.DB
}

// NewTransactor creates a Transactor over db
func NewTransactor(db *gorm.DB) domainRepo.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}
