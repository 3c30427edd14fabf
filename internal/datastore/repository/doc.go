// Package repository provides repository interfaces and their GORM
// implementations for the incident schema.
//
// # Transactions
//
// Repositories are bound to a *gorm.DB handle. Store bundles one repository
// per entity and Store.Transaction hands the callback a Store bound to the
// transaction, so every repository call inside it shares the same scope:
//
//	err := store.Transaction(ctx, func(tx *repository.Store) error {
//	    datum, err := tx.Data().GetByKey(ctx, key)
//	    ...
//	    return tx.Events().Delete(ctx, previousID)
//	})
//
// Nested Store.Transaction calls become savepoints.
//
// # Error Handling
//
// Repositories never leak gorm.ErrRecordNotFound. Missing rows surface as
// the sentinels in errors.go wrapped with errors.NotFound, and unique
// constraint violations as ErrDuplicateKey.
package repository
