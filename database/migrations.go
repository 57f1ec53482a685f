/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// MigrationManager creates registered model tables and applies versioned
// migrations recorded in the schema_migrations table.
type MigrationManager struct {
	db         *bun.DB
	logger     Logger
	registry   ModelRegistry
	fkManager  *ForeignKeyManager
	migrations []MigrationItem
}

// Migration represents an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version with up/down functions.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// NewMigrationManager constructs a MigrationManager over the default model
// registry.
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	return &MigrationManager{
		db:       db,
		logger:   logger,
		registry: DefaultModelRegistry(),
	}
}

func (mm *MigrationManager) SetRegistry(registry ModelRegistry) {
	mm.registry = registry
}

// SetForeignKeyManager applies the manager's constraints to created tables.
// On sqlite they are emitted inside CREATE TABLE; other dialects get them
// through ALTER TABLE, in EnsureCreated and in migration "002".
func (mm *MigrationManager) SetForeignKeyManager(fkm *ForeignKeyManager) {
	mm.fkManager = fkm
}

// Register appends custom migrations. Versions are applied in lexical order.
func (mm *MigrationManager) Register(items ...MigrationItem) {
	mm.migrations = append(mm.migrations, items...)
}

// EnsureCreated creates every registered model table that does not exist,
// in ascending priority order, then adds the configured foreign keys.
func (mm *MigrationManager) EnsureCreated(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := mm.createTables(ctx, mm.db); err != nil {
		return err
	}
	if mm.fkManager != nil {
		return mm.fkManager.AddAllForeignKeys(ctx, mm.db)
	}
	return nil
}

// EnsureDeleted drops every registered model table, in descending priority
// order so referencing tables go first.
func (mm *MigrationManager) EnsureDeleted(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	instances := modelInstances(mm.registry.Models())
	for _, model := range lo.Reverse(instances) {
		if _, err := mm.db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", getModelName(model), err)
		}
	}
	if _, err := mm.db.NewDropTable().Model((*Migration)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop migrations table: %w", err)
	}
	return nil
}

// RunMigrations creates the registered tables and the migration tracking table
// if needed, then executes pending migrations in ascending version order.
// Query hooks stay silent unless BUNDEBUG_MIGRATION is set.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := mm.getAllMigrations()
	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	if mm.logger != nil {
		mm.logger.Info("Database migrations completed!")
	}
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) getAllMigrations() []MigrationItem {
	migrations := []MigrationItem{
		{
			Version:     "001",
			Name:        "create_base_tables",
			Description: "Create base table structure",
			Up:          mm.createTables,
		},
	}
	if mm.fkManager != nil {
		migrations = append(migrations, MigrationItem{
			Version:     "002",
			Name:        "add_foreign_keys",
			Description: "Add table foreign key constraints",
			Up:          mm.fkManager.AddAllForeignKeys,
		})
	}
	return append(migrations, mm.migrations...)
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if migration.Up != nil {
			if err := migration.Up(ctx, tx); err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     migration.Version,
				Name:        migration.Name,
				AppliedAt:   time.Now(),
				Description: migration.Description,
			}).
			Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if mm.logger != nil {
		mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	}
	return nil
}

func (mm *MigrationManager) createTables(ctx context.Context, db bun.IDB) error {
	for _, model := range modelInstances(mm.registry.Models()) {
		if _, err := mm.createTableQuery(db, model).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %s: %w", getModelName(model), err)
		}
	}
	return nil
}

// createTableQuery inlines foreign keys only on sqlite. Elsewhere they are
// added by name with ALTER TABLE so a constraint is never created twice.
func (mm *MigrationManager) createTableQuery(db bun.IDB, model interface{}) *bun.CreateTableQuery {
	q := db.NewCreateTable().
		Model(model).
		IfNotExists()
	if mm.fkManager == nil || db.Dialect().Name() != dialect.SQLite {
		return q
	}
	for _, fk := range mm.fkManager.GetConstraintsByTable(mm.tableName(model)) {
		q = q.ForeignKey(fk.ClauseSQL())
	}
	return q
}

func (mm *MigrationManager) tableName(model interface{}) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return mm.db.Table(t).Name
}

func getModelName(model interface{}) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}

// AppliedVersions returns the versions of applied migrations in order.
func (mm *MigrationManager) AppliedVersions(ctx context.Context) ([]string, error) {
	migrations, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(migrations, func(m Migration, _ int) string { return m.Version }), nil
}

// RollbackMigration runs the Down step of an applied migration and removes its
// record. Built-in migrations have no Down step and cannot be rolled back.
func (mm *MigrationManager) RollbackMigration(ctx context.Context, version string) error {
	item, ok := lo.Find(mm.getAllMigrations(), func(m MigrationItem) bool { return m.Version == version })
	if !ok {
		return fmt.Errorf("unknown migration version: %s", version)
	}
	if item.Down == nil {
		return fmt.Errorf("migration %s does not support rollback", version)
	}

	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*Migration)(nil)).
			Where("version = ?", version).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("migration %s has not been applied", version)
		}
		return item.Down(ctx, tx)
	})
}
