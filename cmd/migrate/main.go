package main

import (
	"errors"
	"flag"
	"log"
	"marketplace/internal/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	direction := flag.String("direction", "up", "up | down | force")
	version := flag.Int("version", -1, "target version for force")
	source := flag.String("source", "file://migrations", "migration source URL")
	flag.Parse()

	config.LoadConfig()

	m, err := migrate.New(*source, config.GlobalConfig.Database.URL())
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "force":
		// dirty 状态需要人工确认后强制指定版本
		if *version < 0 {
			log.Fatal("force requires -version")
		}
		err = m.Force(*version)
	default:
		log.Fatalf("unknown direction %q", *direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			log.Fatalf("database is dirty at version %d, fix it and run with -direction=force -version=%d", dirty.Version, dirty.Version-1)
		}
		log.Fatal(err)
	}

	v, isDirty, _ := m.Version()
	log.Printf("Migration successful, version=%d dirty=%v", v, isDirty)
}
