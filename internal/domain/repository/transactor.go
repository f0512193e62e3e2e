package repository

import "context"

// Transactor runs fn inside one database transaction. Repositories called
// with the context handed to fn take part in that transaction; a nested call
// joins the outer one.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
