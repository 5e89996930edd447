package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos fall back to their own *gorm.DB handle when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Runner executes a function inside a transaction scope. Services depend
// on this instead of *gorm.DB directly so tests can run the function with
// a plain Context.
type Runner interface {
	InTx(ctx context.Context, fn func(dbc Context) error) error
}

type gormRunner struct {
	db *gorm.DB
}

func NewGormRunner(db *gorm.DB) Runner {
	return &gormRunner{db: db}
}

func (r *gormRunner) InTx(ctx context.Context, fn func(dbc Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Context{Ctx: ctx, Tx: tx})
	})
}
