package db

import (
	"fmt"

	"gorm.io/gorm"

	"plate-service/internal/config"
	"plate-service/internal/model"
)

// Поиск идёт по UPPER(plate_number), поэтому нужен функциональный индекс.
// В MySQL нет CREATE INDEX IF NOT EXISTS, там обходимся уникальным индексом колонки
// с регистронезависимой сортировкой по умолчанию.
var plateIndexStatement = `CREATE INDEX IF NOT EXISTS idx_vehicles_plate_upper ON vehicles (UPPER(plate_number));`

var postgresStatements = []string{
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_vehicles_updated_at') THEN
			CREATE TRIGGER trg_vehicles_updated_at
				BEFORE UPDATE ON vehicles
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_employees_updated_at') THEN
			CREATE TRIGGER trg_employees_updated_at
				BEFORE UPDATE ON employees
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
}

// Migrate создаёт таблицы реестра и диалектные индексы.
func Migrate(database *gorm.DB, driver string) error {
	if err := database.AutoMigrate(
		&model.Dependency{},
		&model.Employee{},
		&model.Vehicle{},
		&model.RecognitionEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return runMigrations(database, statementsFor(driver))
}

func statementsFor(driver string) []string {
	switch driver {
	case config.DBDriverPostgres:
		return append([]string{plateIndexStatement}, postgresStatements...)
	case config.DBDriverSQLite:
		return []string{plateIndexStatement}
	default:
		return nil
	}
}

func runMigrations(db *gorm.DB, statements []string) error {
	for i, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
