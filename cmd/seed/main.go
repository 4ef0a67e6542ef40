// Command seed populates a running hub with demo shoppers, votes and
// reviews for the storefront's businesses and products. It talks to the
// public endpoint only, so it works against any storage driver.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/client"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/logger"
)

// --------------------------------------------------------------------------
// Configuration helpers
// --------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type businessDef struct {
	id       string
	products []string
}

var businesses = []businessDef{
	{id: "jeffery-flowers", products: []string{"red-rose-bouquet", "sunflower-basket", "orchid-pot"}},
	{id: "kingston-blooms", products: []string{"wedding-arch", "lily-wreath"}},
	{id: "montego-garden-supply", products: []string{"potting-mix-20l", "clay-pot-set", "pruning-shears"}},
}

var reviewTexts = map[int][]string{
	1: {"Arrived wilted.", "Not as pictured."},
	2: {"Delivery was late.", "Smaller than expected."},
	3: {"Decent for the price.", "Okay, nothing special."},
	4: {"Fresh and well packed.", "Would order again."},
	5: {"Absolutely stunning!", "Best florist in town.", "Lasted two weeks, amazing."},
}

// weightedRating skews towards good reviews like a real storefront.
func weightedRating(rng *rand.Rand) int {
	weights := []int{1, 1, 3, 6, 9}
	n := rng.Intn(20)
	for i, w := range weights {
		if n < w {
			return i + 1
		}
		n -= w
	}
	return domain.MaxRating
}

// --------------------------------------------------------------------------
// main
// --------------------------------------------------------------------------

func main() {
	log := logger.New("hub-seed", getEnv("LOG_LEVEL", "info"))

	endpoint := getEnv("HUB_ENDPOINT", "http://localhost:8080/api/v1/hub")
	shoppers := getEnvInt("SEED_SHOPPERS", 25)
	seed := int64(getEnvInt("SEED_RANDOM", int(time.Now().UnixNano()%1_000_000)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	hub := client.New(endpoint, log)
	rng := rand.New(rand.NewSource(seed))
	log.Info("seeding hub",
		slog.String("endpoint", endpoint),
		slog.Int("shoppers", shoppers),
		slog.Int64("random_seed", seed),
	)

	// ---------------------------------------------------------------
	// 1. Usernames
	// ---------------------------------------------------------------
	names := make([]string, 0, shoppers)
	for i := 1; i <= shoppers; i++ {
		name := fmt.Sprintf("shopper%03d", i)
		taken, err := hub.CheckUsername(ctx, name)
		if err != nil {
			log.Error("check username", slog.String("username", name), slog.String("error", client.Message(err)))
			os.Exit(1)
		}
		if !taken {
			if err := hub.CreateUsername(ctx, name); err != nil {
				log.Warn("create username", slog.String("username", name), slog.String("error", client.Message(err)))
				continue
			}
		}
		names = append(names, name)
	}
	log.Info("usernames ready", slog.Int("count", len(names)))

	// ---------------------------------------------------------------
	// 2. Votes and reviews
	// ---------------------------------------------------------------
	var votes, reviews int
	for _, b := range businesses {
		for _, name := range names {
			voteType := domain.VoteLike
			if rng.Intn(5) == 0 {
				voteType = domain.VoteDislike
			}
			if _, err := hub.Vote(ctx, b.id, name, voteType); err != nil {
				log.Warn("vote", slog.String("business_id", b.id), slog.String("error", client.Message(err)))
				continue
			}
			votes++

			if rng.Intn(3) == 0 {
				rating := weightedRating(rng)
				text := reviewTexts[rating][rng.Intn(len(reviewTexts[rating]))]
				if _, err := hub.SubmitBusinessReview(ctx, b.id, name, rating, text); err == nil {
					reviews++
				}
			}

			for _, p := range b.products {
				if rng.Intn(4) != 0 {
					continue
				}
				rating := weightedRating(rng)
				text := reviewTexts[rating][rng.Intn(len(reviewTexts[rating]))]
				if _, err := hub.SubmitReview(ctx, p, name, rating, text); err != nil {
					log.Warn("review", slog.String("product_id", p), slog.String("error", client.Message(err)))
					continue
				}
				reviews++
			}
		}

		tally, err := hub.GetVotes(ctx, b.id, "")
		if err == nil {
			log.Info("business seeded",
				slog.String("business_id", b.id),
				slog.Int("likes", tally.Likes),
				slog.Int("dislikes", tally.Dislikes),
			)
		}
	}

	// ---------------------------------------------------------------
	// Done
	// ---------------------------------------------------------------
	log.Info("seed complete", slog.Int("votes", votes), slog.Int("reviews", reviews))
}
