// Command reconcile находит счета, зависшие в pending, и при -apply
// помечает их failed. Флаг -force-migration снимает dirty-состояние миграций.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yourusername/course-api/internal/config"
	"github.com/yourusername/course-api/internal/domain/entity"
	pgRepo "github.com/yourusername/course-api/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "путь к файлу конфигурации")
	olderThan := flag.Duration("older-than", 24*time.Hour, "возраст pending-счёта, после которого он считается зависшим")
	limit := flag.Int("limit", 500, "максимум счетов за запуск")
	apply := flag.Bool("apply", false, "пометить найденные счета как failed")
	forceVersion := flag.Int("force-migration", -1, "принудительно выставить версию миграций и выйти")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Fatal(err)
	}

	if *forceVersion >= 0 {
		if err := forceMigration(sqlDB, cfg.Database.MigrationsDir, *forceVersion); err != nil {
			log.Fatalf("Failed to force version: %v", err)
		}
		fmt.Printf("Версия миграций выставлена в %d\n", *forceVersion)
		return
	}

	db, err := gorm.Open(gormpg.New(gormpg.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to open gorm: %v", err)
	}
	invoices := pgRepo.NewInvoiceRepo(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stale, err := invoices.ListPendingBefore(ctx, time.Now().Add(-*olderThan), *limit)
	if err != nil {
		log.Fatalf("Failed to list pending invoices: %v", err)
	}
	fmt.Printf("Найдено %d зависших счетов (старше %s)\n", len(stale), *olderThan)

	failed := 0
	for _, inv := range stale {
		fmt.Printf("  %s membership=%s processor=%s created=%s\n",
			inv.InvoiceID, inv.MembershipID, inv.PaymentProcessor, inv.CreatedAt.Format(time.RFC3339))
		if !*apply {
			continue
		}
		changed, err := invoices.TransitionStatus(ctx, inv.InvoiceID, entity.InvoiceStatusPending, entity.InvoiceStatusFailed, "")
		if err != nil {
			log.Printf("[Reconcile] Ошибка обновления счёта %s: %v", inv.InvoiceID, err)
			failed++
			continue
		}
		if !changed {
			log.Printf("[Reconcile] Счёт %s уже обработан вебхуком", inv.InvoiceID)
		}
	}

	if !*apply {
		fmt.Println("Dry run. Запустите с -apply, чтобы пометить счета как failed.")
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func forceMigration(db *sql.DB, dir string, version int) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return err
	}
	return m.Force(version)
}
