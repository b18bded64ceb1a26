// ledger-stats prints redemption statistics for the submission ledger. It is
// an operator tool; point it at the same configuration the server uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/saaw-digital/giveaway-service/internal/config"
	"github.com/saaw-digital/giveaway-service/internal/database"
	"github.com/saaw-digital/giveaway-service/internal/ledger"
	"github.com/saaw-digital/giveaway-service/internal/model"
	"github.com/saaw-digital/giveaway-service/internal/repository"
)

func main() {
	campaign := flag.String("campaign", "", "restrict statistics to one campaign (empty = all)")
	flag.Parse()

	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	stats, err := loadStats(ctx, cfg, *campaign)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load statistics: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("==========================================")
	fmt.Println("Submission ledger statistics")
	fmt.Println("==========================================")
	fmt.Printf("Backend       : %s\n", cfg.Ledger.Backend)
	if *campaign != "" {
		fmt.Printf("Campaign      : %s\n", *campaign)
	} else {
		fmt.Printf("Campaign      : (all)\n")
	}
	fmt.Printf("Total codes   : %d\n", stats.TotalCodes)
	fmt.Printf("Unique emails : %d\n", stats.UniqueEmails)

	if len(stats.ByWebsite) > 0 {
		fmt.Println("By website    :")
		websites := make([]string, 0, len(stats.ByWebsite))
		for w := range stats.ByWebsite {
			websites = append(websites, w)
		}
		sort.Strings(websites)
		for _, w := range websites {
			fmt.Printf("  %-40s %d\n", w, stats.ByWebsite[w])
		}
	}

	if stats.MostRecent != nil {
		fmt.Printf("Most recent   : %s (%s, %s)\n",
			stats.MostRecent.Code,
			stats.MostRecent.Website,
			stats.MostRecent.Timestamp.Format("2006-01-02 15:04:05"))
	}
}

func loadStats(ctx context.Context, cfg *config.Config, campaign string) (model.Stats, error) {
	if cfg.Ledger.Backend == "postgres" {
		db, err := database.NewDB(ctx, cfg, zap.NewNop())
		if err != nil {
			return model.Stats{}, err
		}
		defer db.Close()

		return repository.NewLedgerRepository(db.Postgres).Statistics(ctx, campaign)
	}

	return ledger.New(ledger.NewFileStore(cfg.Ledger.FilePath)).Statistics(ctx, campaign)
}
