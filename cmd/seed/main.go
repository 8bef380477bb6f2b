package main

import (
	"context"
	"log"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/showseat/boxoffice/internal/adapters/postgres"
	"github.com/showseat/boxoffice/internal/auth"
	"github.com/showseat/boxoffice/internal/config"
	"github.com/showseat/boxoffice/internal/domain"
)

// Seeds a demo catalog: an admin account, a couple of titles per kind,
// one cinema with two halls and a week of showtimes. Safe to re-run
// against an empty database only.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	if err := repo.Bootstrap(ctx); err != nil {
		log.Fatalf("failed to bootstrap schema: %v", err)
	}
	if err := seed(ctx, repo); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Println("seed complete")
}

func seed(ctx context.Context, repo *postgres.Repository) error {
	hash, err := auth.HashPassword("admin123")
	if err != nil {
		return err
	}
	admin := &domain.User{Email: "admin@boxoffice.local", Name: "Admin", HashedPassword: hash, IsAdmin: true}
	if err := repo.CreateUser(ctx, admin); err != nil && !errors.Is(err, domain.ErrConflict) {
		return err
	}

	var g errgroup.Group
	g.Go(func() error { return seedCategories(ctx, repo) })
	g.Go(func() error { return seedMovies(ctx, repo) })
	g.Go(func() error { return seedEvents(ctx, repo) })
	if err := g.Wait(); err != nil {
		return err
	}

	return seedVenues(ctx, repo)
}

func seedCategories(ctx context.Context, repo *postgres.Repository) error {
	categories := []domain.EventCategory{
		{Kind: domain.KindMovie, Name: "Action", Status: "ON"},
		{Kind: domain.KindMovie, Name: "Drama", Status: "ON"},
		{Kind: domain.KindMovie, Name: "Sci-Fi", Status: "ON"},
		{Kind: domain.KindConcert, Name: "Rock", Status: "ON"},
		{Kind: domain.KindConcert, Name: "Classical", Status: "ON"},
		{Kind: domain.KindExhibition, Name: "Modern Art", Status: "ON"},
	}
	for i := range categories {
		if err := repo.UpsertCategory(ctx, &categories[i]); err != nil {
			return err
		}
	}
	return nil
}

func seedMovies(ctx context.Context, repo *postgres.Repository) error {
	movies := []domain.Movie{
		{Title: "Midnight Chase", Description: "A detective has one night to clear his name.", Category: "Action", DurationMin: 118, Rating: "PG-13", Status: "ON"},
		{Title: "The Long Winter", Description: "Three generations survive a collapsing farm.", Category: "Drama", DurationMin: 142, Rating: "R", Status: "ON"},
		{Title: "Signal Lost", Description: "First contact goes wrong at a deep space relay.", Category: "Sci-Fi", DurationMin: 127, Rating: "PG-13", Status: "ON"},
	}
	for i := range movies {
		if err := repo.CreateMovie(ctx, &movies[i]); err != nil {
			return err
		}
	}
	return nil
}

func seedEvents(ctx context.Context, repo *postgres.Repository) error {
	events := []domain.Event{
		{Kind: domain.KindConcert, Title: "Ninth Symphony", Description: "Full orchestra performance.", Category: "Classical", Venue: "City Philharmonic", PriceInfo: "from $40", Status: "ON"},
		{Kind: domain.KindConcert, Title: "Static Bloom Tour", Description: "Album release show.", Category: "Rock", Venue: "Riverside Arena", PriceInfo: "from $55", Status: "ON"},
		{Kind: domain.KindExhibition, Title: "Concrete Gardens", Description: "Brutalism reimagined in textile.", Category: "Modern Art", Venue: "North Gallery", PriceInfo: "$15", Status: "ON"},
	}
	for i := range events {
		if err := repo.CreateEvent(ctx, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

func seedVenues(ctx context.Context, repo *postgres.Repository) error {
	cinema := &domain.Cinema{Name: "Grand Central Cinema", Address: "12 Station Square", City: "Springfield"}
	if err := repo.CreateCinema(ctx, cinema); err != nil {
		return err
	}

	halls := []domain.Hall{
		{CinemaID: cinema.ID, Name: "Hall 1", Rows: 8, Cols: 12},
		{CinemaID: cinema.ID, Name: "Hall 2", Rows: 5, Cols: 10},
	}
	for i := range halls {
		if err := repo.CreateHall(ctx, &halls[i]); err != nil {
			return err
		}
	}

	movies, err := repo.ListMovies(ctx, "", "")
	if err != nil {
		return err
	}
	start := time.Now().Truncate(time.Hour).Add(24 * time.Hour)
	for day := 0; day < 7; day++ {
		for i, m := range movies {
			hall := halls[i%len(halls)]
			st := &domain.Showtime{
				Kind:       domain.KindMovie,
				TargetID:   m.ID,
				HallID:     hall.ID,
				StartTime:  start.Add(time.Duration(day)*24*time.Hour + time.Duration(18+i)*time.Hour),
				PriceCents: 4500,
			}
			if err := repo.CreateShowtime(ctx, st); err != nil {
				return err
			}
		}
	}
	return nil
}
