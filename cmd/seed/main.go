package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"communityhub/internal/config"
	"communityhub/internal/db"
	"communityhub/internal/logging"
	"communityhub/internal/security"
)

// Seeds a small demo dataset: two communities, three users (password
// "pass1234"), plus sample posts, events, messages and lists.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_seed", "service", "communityhub-seed")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbConn, err := db.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("db_connect_failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := dbConn.EnsureSchema(ctx); err != nil {
		logger.Error("schema_migrate_failed", "error", err)
		os.Exit(1)
	}

	if err := seedAll(ctx, dbConn, logger); err != nil {
		logger.Error("seed_failed", "error", err)
		os.Exit(1)
	}

	logger.Info("seed_complete")
}

func seedAll(ctx context.Context, dbConn *db.DB, logger *slog.Logger) error {
	password, err := security.HashPassword("pass1234")
	if err != nil {
		return err
	}

	seeder := db.NewSeeder(dbConn, logger)

	if err := seeder.Insert(ctx, "communities", []string{"id", "name"}, [][]interface{}{
		{int64(1), "Tech Enthusiasts"},
		{int64(2), "Nature Lovers"},
	}); err != nil {
		return err
	}

	if err := seeder.Insert(ctx, "users",
		[]string{"id", "community_id", "username", "email", "password"}, [][]interface{}{
			{int64(1), int64(1), "Alice", "alice@example.com", password},
			{int64(2), int64(1), "Bob", "bob@example.com", password},
			{int64(3), int64(2), "Carol", "carol@example.com", password},
		}); err != nil {
		return err
	}

	if err := seeder.Insert(ctx, "user_communities",
		[]string{"user_id", "community_id", "role"}, [][]interface{}{
			{int64(1), int64(1), "admin"},
			{int64(2), int64(1), "member"},
			{int64(3), int64(2), "admin"},
		}); err != nil {
		return err
	}

	if err := seeder.Insert(ctx, "posts",
		[]string{"id", "user_id", "community_id", "title", "content"}, [][]interface{}{
			{int64(1), int64(1), int64(1), "Hello World", "First post!"},
			{int64(2), int64(3), int64(2), "Nature is beautiful", "Trees and lakes."},
		}); err != nil {
		return err
	}

	hackathonStart := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	hackathonEnd := time.Date(2025, 5, 10, 18, 0, 0, 0, time.UTC)
	walkStart := time.Date(2025, 6, 15, 8, 30, 0, 0, time.UTC)
	walkEnd := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if err := seeder.Insert(ctx, "events",
		[]string{"id", "user_id", "community_id", "title", "description", "location", "type", "date", "start_time", "end_time"},
		[][]interface{}{
			{int64(1), int64(1), int64(1), "Hackathon 2025",
				"A full-day coding event to build cool stuff.", "Tech Hub Berlin", "Tech",
				hackathonStart, hackathonStart, hackathonEnd},
			{int64(2), int64(3), int64(2), "Nature Walk",
				"A peaceful morning hike through the forest.", "Black Forest Trailhead", "Outdoor",
				walkStart, walkStart, walkEnd},
		}); err != nil {
		return err
	}

	if err := seeder.Insert(ctx, "event_attendees",
		[]string{"user_id", "event_id"}, [][]interface{}{
			{int64(1), int64(1)},
			{int64(2), int64(1)},
			{int64(3), int64(2)},
		}); err != nil {
		return err
	}

	if err := seeder.Insert(ctx, "messages",
		[]string{"id", "user_id", "community_id", "content"}, [][]interface{}{
			{int64(1), int64(1), int64(1), "Welcome to the group!"},
			{int64(2), int64(2), int64(1), "Excited to be here!"},
		}); err != nil {
		return err
	}

	if err := seeder.Insert(ctx, "lists",
		[]string{"id", "user_id", "community_id", "title", "category", "privacy"}, [][]interface{}{
			{int64(1), int64(1), int64(1), "Groceries", "Shopping", "private"},
			{int64(2), int64(2), int64(1), "Travel Checklist", "Travel", "public"},
		}); err != nil {
		return err
	}

	if err := seeder.Insert(ctx, "list_items",
		[]string{"id", "list_id", "name", "is_completed"}, [][]interface{}{
			{int64(1), int64(1), "Red Apples (2kg)", false},
			{int64(2), int64(1), "Whole Wheat Bread", false},
			{int64(3), int64(2), "Valid Passport for Travel", false},
		}); err != nil {
		return err
	}

	// Rows were inserted with explicit ids, so bump the sequences past them.
	for _, table := range []string{"communities", "users", "posts", "events", "messages", "lists", "list_items"} {
		if _, err := dbConn.Pool.Exec(ctx,
			`SELECT setval(pg_get_serial_sequence($1, 'id'), (SELECT COALESCE(MAX(id), 0) + 1 FROM `+table+`), false)`,
			table); err != nil {
			return err
		}
	}

	return nil
}
