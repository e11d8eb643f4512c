package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	account "auction-house/internal/accountService"
	auction "auction-house/internal/auctionService"
	model "auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/internal/server"
	"auction-house/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	store, err := openStore()
	if err != nil {
		utils.Fatal("failed to open store", map[string]any{"error": err.Error()})
	}

	auctionSvc := auction.NewAuctionService(store)
	accountSvc := account.NewAccountService(store, sessionLifetime())

	router := server.SetupRouter(auctionSvc, accountSvc)

	port := getPort()
	utils.Info("starting auction server", map[string]any{"addr": port})
	if err := router.Run(port); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// openStore picks postgres when DATABASE_URL is set, otherwise an in-memory
// store seeded with the default categories
func openStore() (repository.AuctionStore, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		pg, err := repository.NewPostgresStore(url)
		if err != nil {
			return nil, err
		}
		return pg, seedCategories(pg.AddCategory)
	}

	mem := repository.NewMemoryStore()
	return mem, seedCategories(mem.AddCategory)
}

// seedCategories ensures the default categories exist; listing creation
// requires a pre-existing category
func seedCategories(add func(model.Category) error) error {
	for _, name := range defaultCategories() {
		if err := add(model.Category{CategoryID: utils.GenerateID(), Name: name}); err != nil {
			return err
		}
	}
	return nil
}

func defaultCategories() []string {
	if v := os.Getenv("CATEGORIES"); v != "" {
		var names []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		return names
	}
	return []string{"Fashion", "Toys", "Electronics", "Home"}
}

// sessionLifetime returns the session duration from env or defaults to 24h
func sessionLifetime() time.Duration {
	if h := os.Getenv("SESSION_LIFETIME_HOURS"); h != "" {
		if d, err := time.ParseDuration(h + "h"); err == nil {
			return d
		}
	}
	return 24 * time.Hour
}

// getPort returns the server port from env or defaults to ":8080"
func getPort() string {
	if p := os.Getenv("PORT"); p != "" {
		return fmt.Sprintf(":%s", p)
	}
	return ":8080"
}
