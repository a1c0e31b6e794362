package main

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"gmaps-scraper/browser"
	"gmaps-scraper/config"
	"gmaps-scraper/models"
	"gmaps-scraper/scraper/gmaps"
	"gmaps-scraper/services"
	"gmaps-scraper/storage"
	"gmaps-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Google Maps Lead Scraper starting ===")

	if cfg.QueriesFile != "" {
		runBulk(cfg, logger)
		return
	}

	session := models.SearchSession{
		Query:         cfg.Query,
		Location:      cfg.Location,
		ResultLimit:   cfg.ResultLimit,
		NoWebsiteOnly: cfg.NoWebsiteOnly,
	}
	logger.Info("Config — query: %q | location: %q | limit: %d | no-website only: %v",
		session.Query, session.Location, session.ResultLimit, session.NoWebsiteOnly)

	businesses := runSession(cfg, logger, session)
	if len(businesses) == 0 {
		logger.Error("No results found. Try a different query or location.")
		os.Exit(1)
	}

	exportResults(cfg, logger, session, businesses)
	storeAndReport(cfg, logger, businesses)
}

// runSession launches a dedicated browser, runs one scrape session in it,
// and shuts the browser down. Session failures come back as an empty slice.
func runSession(cfg *config.Config, logger *utils.Logger, session models.SearchSession) []*models.Business {
	b, err := browser.Launch(cfg, logger)
	if err != nil {
		logger.Error("Failed to launch browser: %v", err)
		return nil
	}
	defer b.Close()

	scraper := gmaps.New(cfg, logger, b.Page(), func() (gmaps.Page, error) {
		return b.NewPage()
	})

	results, err := scraper.ScrapeAll(session)
	if err != nil {
		logger.Error("Session failed for %q: %v", session.Term(), err)
	}
	return results
}

// exportResults writes one timestamped CSV and JSON file per session.
func exportResults(cfg *config.Config, logger *utils.Logger, session models.SearchSession, businesses []*models.Business) {
	csvPath := storage.OutputFilename(cfg.OutputDir, session.Query, session.Location, "csv")
	csvWriter, err := storage.NewCSVWriter(csvPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
	} else {
		if err := csvWriter.Write(businesses); err != nil {
			logger.Error("CSV write failed: %v", err)
		} else {
			logger.Info("Saved CSV: %s", csvPath)
		}
		_ = csvWriter.Close()
	}

	jsonPath := storage.OutputFilename(cfg.OutputDir, session.Query, session.Location, "json")
	jsonWriter, err := storage.NewJSONWriter(jsonPath)
	if err != nil {
		logger.Error("Failed to create JSON writer: %v", err)
		return
	}
	if err := jsonWriter.Write(businesses); err != nil {
		logger.Error("JSON write failed: %v", err)
	} else {
		logger.Info("Saved JSON: %s", jsonPath)
	}
	_ = jsonWriter.Close()
}

// storeAndReport persists to PostgreSQL when available and prints insights.
// Database trouble degrades to in-memory insights rather than aborting.
func storeAndReport(cfg *config.Config, logger *utils.Logger, businesses []*models.Business) {
	dataset := businesses

	pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
	if err != nil {
		logger.Warn("PostgreSQL unavailable, skipping persistence: %v", err)
	} else {
		defer pgWriter.Close()
		if err := pgWriter.Write(businesses); err != nil {
			logger.Error("PostgreSQL write failed: %v", err)
		} else {
			logger.Info("Stored %d businesses in PostgreSQL (table: businesses)", len(businesses))
		}
		if stored, err := pgWriter.FetchAll(); err == nil && len(stored) > 0 {
			dataset = stored
		}
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(insightSvc.Generate(dataset))
}

// runBulk reads "query|location" lines from the configured queries file
// and runs one independent session per line. Each session owns its own
// browser, so they can safely run in parallel on the worker pool.
func runBulk(cfg *config.Config, logger *utils.Logger) {
	sessions, err := readQueriesFile(cfg)
	if err != nil {
		logger.Error("Failed to read queries file: %v", err)
		os.Exit(1)
	}
	if len(sessions) == 0 {
		logger.Error("No valid queries in %s (expected one \"query|location\" per line)", cfg.QueriesFile)
		os.Exit(1)
	}

	logger.Info("Bulk mode — %d queries, concurrency %d", len(sessions), cfg.BulkConcurrency)

	var (
		mu  sync.Mutex
		all []*models.Business
	)

	pool := utils.NewWorkerPool(cfg.BulkConcurrency, 0)
	for _, session := range sessions {
		sess := session
		pool.Submit(func() {
			results := runSession(cfg, logger, sess)
			if len(results) == 0 {
				logger.Warn("No results for %q", sess.Term())
				return
			}
			exportResults(cfg, logger, sess, results)
			mu.Lock()
			all = append(all, results...)
			mu.Unlock()
			logger.Info("Finished %q — %d leads", sess.Term(), len(results))
		})
	}
	pool.Wait()

	if len(all) == 0 {
		logger.Error("Bulk run produced no results.")
		os.Exit(1)
	}

	logger.Info("Bulk run complete — %d leads across %d queries", len(all), len(sessions))
	storeAndReport(cfg, logger, all)
}

func readQueriesFile(cfg *config.Config) ([]models.SearchSession, error) {
	f, err := os.Open(cfg.QueriesFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sessions []models.SearchSession
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}
		query := strings.TrimSpace(parts[0])
		location := strings.TrimSpace(parts[1])
		if query == "" || location == "" {
			continue
		}
		sessions = append(sessions, models.SearchSession{
			Query:         query,
			Location:      location,
			ResultLimit:   cfg.ResultLimit,
			NoWebsiteOnly: cfg.NoWebsiteOnly,
		})
	}
	return sessions, scanner.Err()
}
