package main

import (
	"os"

	"sheet-broadcast/internal/config"
	"sheet-broadcast/internal/database"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Tables with serial ids whose sequences can drift after manual imports.
var sequenceTables = []string{
	"delivery_logs",
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.LoadConfig()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history database")
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	if cfg.DBDriver != "postgres" {
		log.Info().Msg("DONE!")
		return
	}

	log.Info().Msg("syncing PostgreSQL sequences")
	for _, table := range sequenceTables {
		query := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), coalesce(max(id), 0) + 1, false) FROM " + table
		if err := db.Exec(query).Error; err != nil {
			log.Error().Err(err).Str("table", table).Msg("failed to sync sequence")
		} else {
			log.Info().Str("table", table).Msg("sequence synced")
		}
	}

	log.Info().Msg("DONE!")
}
