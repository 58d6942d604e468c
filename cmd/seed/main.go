// Package main provides a tool to seed the database with demo users and events.
//
// Events are spread around now so the sweep has something to advance: some
// already running, some upcoming, one private with an invite.
//
// Usage:
//
//	DATA_PATH=~/EventSphere/data go run ./cmd/seed
//	DATA_PATH=~/EventSphere/data go run ./cmd/seed --events 20
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	"github.com/eventsphere/eventsphere-server/internal/search"
	"github.com/eventsphere/eventsphere-server/internal/service"
	"github.com/eventsphere/eventsphere-server/internal/store"
	"github.com/eventsphere/eventsphere-server/internal/store/sqlite"
)

var eventCount = flag.Int("events", 8, "Number of public events to create")

var demoUsers = []struct{ username, name string }{
	{"olga", "Olga Organizer"},
	{"cleo", "Cleo Collaborator"},
	{"max", "Max Member"},
	{"ines", "Inès Invitee"},
	{"vic", "Vic Visitor"},
}

var venues = []string{"Main hall", "Rooftop terrace", "Library annex", "Riverside park", "Café Lumière"}

var topics = []string{"Board games", "Coding dojo", "Book club", "Jazz night", "Photo walk", "Language exchange"}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/EventSphere/data")
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dataPath, "eventsphere.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	index, err := search.Open(search.Options{Path: filepath.Join(dataPath, "search.bleve")})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	ctx := context.Background()
	users := ensureUsers(ctx, s)

	events := service.NewEventService(s, nil, index, nil, nil)
	access := service.NewAccessService(s, index, nil, nil)

	now := time.Now().UTC().Truncate(time.Minute)
	rng := rand.New(rand.NewPCG(uint64(now.UnixNano()), 0))
	owner, collaborator := users["olga"], users["cleo"]

	for n := range *eventCount {
		// Half the events straddle now so the first sweep starts them.
		start := now.Add(time.Duration(rng.IntN(96)-24) * time.Hour)
		e, err := events.Register(ctx, service.RegisterEventInput{
			OwnerID:         owner.ID,
			Name:            fmt.Sprintf("%s #%d", topics[n%len(topics)], n+1),
			Localization:    venues[rng.IntN(len(venues))],
			Description:     "A friendly gathering. Everyone is welcome.",
			FixedStart:      start,
			FixedEnd:        start.Add(time.Duration(1+rng.IntN(4)) * time.Hour),
			MaxParticipants: 10 + rng.IntN(40),
			Access:          domain.AccessPublic,
		})
		if err != nil {
			log.Fatalf("Failed to register event: %v", err)
		}
		if start.After(now) {
			if _, err := access.JoinPublic(ctx, e.ID, users["max"].ID); err != nil {
				log.Printf("Failed to join %s: %v", e.ID, err)
			}
		}
		fmt.Printf("  Event %s: %s at %s\n", e.ID, e.Name, e.FixedStart.Format(time.RFC3339))
	}

	private, err := events.Register(ctx, service.RegisterEventInput{
		OwnerID:      owner.ID,
		Name:         "Planning committee",
		Localization: "Back office",
		Description:  "Invite only.",
		FixedStart:   now.Add(48 * time.Hour),
		FixedEnd:     now.Add(50 * time.Hour),
		Access:       domain.AccessPrivate,
	})
	if err != nil {
		log.Fatalf("Failed to register private event: %v", err)
	}
	if _, err := access.AddCollaborator(ctx, private.ID, collaborator.ID, owner.ID); err != nil {
		log.Fatalf("Failed to add collaborator: %v", err)
	}
	invite, err := access.GenerateInvite(ctx, private.ID, owner.ID)
	if err != nil {
		log.Fatalf("Failed to generate invite: %v", err)
	}
	if _, err := access.JoinWithCode(ctx, invite.Code, users["ines"].ID); err != nil {
		log.Fatalf("Failed to join private event: %v", err)
	}

	fmt.Printf("\nPrivate event %s\n  invite code:  %s\n  invite token: %s\n", private.ID, invite.Code, invite.Token)
	fmt.Println("\nSeeding complete!")
}

func ensureUsers(ctx context.Context, s *sqlite.Store) map[string]*domain.User {
	users := make(map[string]*domain.User, len(demoUsers))
	now := time.Now().UTC()
	for _, du := range demoUsers {
		u, err := s.GetUserByUsername(ctx, du.username)
		if errors.Is(err, store.ErrNotFound) {
			u = &domain.User{
				Syncable:    domain.Syncable{ID: "usr-demo-" + du.username, CreatedAt: now, UpdatedAt: now},
				Username:    du.username,
				Email:       du.username + "@eventsphere.test",
				DisplayName: du.name,
			}
			err = s.CreateUser(ctx, u)
			fmt.Printf("Created user %s\n", du.username)
		}
		if err != nil {
			log.Fatalf("Failed to ensure user %s: %v", du.username, err)
		}
		users[du.username] = u
	}
	return users
}
