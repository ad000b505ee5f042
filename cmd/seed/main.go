// Command main seeds a development database with accounts and pending requests.
package main

import (
	"flag"
	"log"
	"os"

	"habitpal/internal/config"
	"habitpal/internal/database"
	"habitpal/internal/seed"
)

func main() {
	fixturePath := flag.String("fixture", "", "YAML fixture with accounts and relationships")
	numAccounts := flag.Int("accounts", 50, "Number of random accounts to create")
	fakerSeed := flag.Int64("seed", 0, "Faker seed (0 picks a random one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, *fakerSeed)

	if *fixturePath != "" {
		f, err := os.Open(*fixturePath)
		if err != nil {
			log.Fatalf("❌ Cannot open fixture: %v", err)
		}
		fixture, err := seed.LoadFixture(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("❌ Invalid fixture: %v", err)
		}
		if err := s.Apply(fixture); err != nil {
			log.Fatalf("❌ Fixture seeding failed: %v", err)
		}
		log.Printf("Applied fixture: %d accounts, %d relationships", len(fixture.Accounts), len(fixture.Relationships))
	}

	accounts, err := s.GenerateAccounts(*numAccounts)
	if err != nil {
		log.Fatalf("❌ Account seeding failed: %v", err)
	}
	log.Printf("Created %d random accounts", len(accounts))

	log.Println("✨ All done! Your database is now populated with test data.")
}
