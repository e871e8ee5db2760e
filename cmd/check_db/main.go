package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"choreo-backend/internal/config"
	"choreo-backend/internal/database"
	"choreo-backend/internal/model"
)

type violation struct {
	owner, id, name string
	problems        []string
}

func main() {
	ok, err := run()
	if err != nil {
		log.Fatal("Audit failed", "err", err)
	}
	if !ok {
		os.Exit(1)
	}
}

// run reports false when any dance violates the formation invariants.
func run() (bool, error) {
	cfg, err := config.LoadStore()
	if err != nil {
		return false, fmt.Errorf("invalid store configuration: %w", err)
	}

	store, err := database.Open(cfg)
	if err != nil {
		return false, fmt.Errorf("connect %s store: %w", cfg.Driver, err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		return false, fmt.Errorf("ping store: %w", err)
	}
	fmt.Printf("✅ Connected to %s store\n\n", store.Driver)

	var (
		users      int64
		dances     atomic.Int64
		formations atomic.Int64
		violations []violation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := store.Credentials.Count(gctx)
		users = n
		return err
	})
	g.Go(func() error {
		return store.Dances.All(gctx, func(d *model.Dance) error {
			dances.Add(1)
			formations.Add(int64(len(d.Formations)))
			if problems := model.Violations(d); len(problems) > 0 {
				violations = append(violations, violation{owner: d.UserID, id: d.ID, name: d.Name, problems: problems})
			}
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	fmt.Println("📊 Store contents:")
	fmt.Printf("  - Users:      %s\n", humanize.Comma(users))
	fmt.Printf("  - Dances:     %s\n", humanize.Comma(dances.Load()))
	fmt.Printf("  - Formations: %s\n", humanize.Comma(formations.Load()))
	fmt.Println()

	if len(violations) == 0 {
		fmt.Println("✅ Every formation matches its dance's dancer count")
		return true, nil
	}

	fmt.Printf("⚠️  %d dance(s) violate the formation invariants:\n", len(violations))
	for _, v := range violations {
		fmt.Printf("  - %s %q (owner %s)\n", v.id, v.name, v.owner)
		for _, p := range v.problems {
			fmt.Printf("      %s\n", p)
		}
	}
	fmt.Println()
	fmt.Println("Run repair_formations to fix them.")
	return false, nil
}
