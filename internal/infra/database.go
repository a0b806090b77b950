package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"easypos/internal/model"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate,
// then applies the idempotent SQL patches GORM cannot express — the partial
// unique indexes that carry the engine's cross-row invariants.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(
		&model.Establishment{},
		&model.CashRegister{},
		&model.User{},
		&model.CashSession{},
		&model.CashTransaction{},
		&model.CashCount{},
		&model.ClosureDocument{},
		&model.DocumentCounter{},
	); err != nil {
		return nil, fmt.Errorf("AutoMigrate: %w", err)
	}

	if err := ApplySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// ApplySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// These indexes are the store-side half of the concurrency guarantees:
//
//   - at most one open-equivalent session per register, safe under
//     concurrent open() calls — one insert commits, the other violates the
//     partial unique index;
//   - at most one closure document per closure cycle of a session, making
//     generate() a true create-if-absent under concurrency.
//
// Each statement is guarded so re-running on a patched schema is a no-op.
func ApplySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uni_open_session_per_register') THEN
		    CREATE UNIQUE INDEX uni_open_session_per_register
		        ON cash_sessions (cash_register_id)
		        WHERE status IN ('open', 'received', 'reopened');
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uni_closure_doc_per_cycle') THEN
		    CREATE UNIQUE INDEX uni_closure_doc_per_cycle
		        ON closure_documents (cash_session_id, closure_seq);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uni_document_number_per_establishment') THEN
		    CREATE UNIQUE INDEX uni_document_number_per_establishment
		        ON closure_documents (establishment_id, document_number);
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
