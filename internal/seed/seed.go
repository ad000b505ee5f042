// Package seed creates demo accounts and relationships for local
// development and tests. It is never used by the API process.
package seed

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"habitpal/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fixture is the YAML seed file layout.
type Fixture struct {
	Accounts      []AccountFixture      `yaml:"accounts"`
	Relationships []RelationshipFixture `yaml:"relationships"`
}

// AccountFixture describes one account. Omitted names are generated.
type AccountFixture struct {
	UID         string `yaml:"uid"`
	DisplayName string `yaml:"display_name"`
	AvatarRef   string `yaml:"avatar_ref"`
	Inactive    bool   `yaml:"inactive"`
}

// RelationshipFixture links two fixture accounts by UID. Only pending and
// declined rows can be seeded; accepted friendships need a conversation
// and are created through the service.
type RelationshipFixture struct {
	From    string                    `yaml:"from"`
	To      string                    `yaml:"to"`
	Status  models.RelationshipStatus `yaml:"status"`
	Message string                    `yaml:"message"`
}

// LoadFixture decodes a YAML fixture and checks its references.
func LoadFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	uids := make(map[string]bool, len(f.Accounts))
	for i, a := range f.Accounts {
		if a.UID == "" {
			return nil, fmt.Errorf("account %d: uid is required", i)
		}
		if uids[a.UID] {
			return nil, fmt.Errorf("account %d: duplicate uid %q", i, a.UID)
		}
		uids[a.UID] = true
	}
	for i, r := range f.Relationships {
		if !uids[r.From] || !uids[r.To] {
			return nil, fmt.Errorf("relationship %d: unknown account %q or %q", i, r.From, r.To)
		}
		if r.From == r.To {
			return nil, fmt.Errorf("relationship %d: self reference %q", i, r.From)
		}
		switch {
		case r.Status == "":
			f.Relationships[i].Status = models.StatusPending
		case !r.Status.Valid():
			return nil, fmt.Errorf("relationship %d: unknown status %q", i, r.Status)
		case r.Status != models.StatusPending && r.Status != models.StatusDeclined:
			return nil, fmt.Errorf("relationship %d: status %q cannot be seeded", i, r.Status)
		}
	}
	return &f, nil
}

// Seeder writes fixtures and generated accounts.
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewSeeder returns a Seeder. A zero seed picks a random one.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	return &Seeder{db: db, faker: gofakeit.New(seed), now: time.Now}
}

// Apply writes the fixture in one transaction and can be applied repeatedly.
// Accounts that already exist (by UID) keep their name and avatar; an
// inactive entry still deactivates them. Existing relationships are kept.
func (s *Seeder) Apply(f *Fixture) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		byUID := make(map[string]*models.Account, len(f.Accounts))
		for _, a := range f.Accounts {
			acc := &models.Account{
				PublicUID:   a.UID,
				DisplayName: a.DisplayName,
				AvatarRef:   a.AvatarRef,
				Active:      true,
			}
			if acc.DisplayName == "" {
				acc.DisplayName = s.faker.Name()
			}
			if acc.AvatarRef == "" {
				acc.AvatarRef = s.avatar()
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(acc).Error; err != nil {
				return fmt.Errorf("create account %s: %w", a.UID, err)
			}
			var stored models.Account
			if err := tx.Where("public_uid = ?", a.UID).First(&stored).Error; err != nil {
				return fmt.Errorf("load account %s: %w", a.UID, err)
			}
			if a.Inactive && stored.Active {
				if err := tx.Model(&stored).Update("active", false).Error; err != nil {
					return fmt.Errorf("deactivate account %s: %w", a.UID, err)
				}
			}
			byUID[a.UID] = &stored
		}

		for _, r := range f.Relationships {
			rel := &models.Relationship{
				RequesterID:      byUID[r.From].ID,
				AddresseeID:      byUID[r.To].ID,
				Status:           r.Status,
				RequesterMessage: r.Message,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rel)
			if res.Error != nil {
				return fmt.Errorf("create relationship %s->%s: %w", r.From, r.To, res.Error)
			}
			if res.RowsAffected == 0 || rel.Status != models.StatusPending {
				continue
			}
			note := models.NewNotification(rel, rel.AddresseeID, models.NotificationRequest, r.Message, byUID[r.From])
			if err := tx.Create(note).Error; err != nil {
				return fmt.Errorf("notify %s: %w", r.To, err)
			}
		}
		return nil
	})
}

// GenerateAccounts creates n accounts with fake names and random UIDs. A
// share of them is marked as recently seen so presence shows up.
func (s *Seeder) GenerateAccounts(n int) ([]models.Account, error) {
	if n <= 0 {
		return nil, nil
	}
	accounts := make([]models.Account, 0, n)
	now := s.now().UTC()
	for i := 0; i < n; i++ {
		acc := models.Account{
			PublicUID:   s.uid(),
			DisplayName: s.faker.Name(),
			AvatarRef:   s.avatar(),
			Active:      true,
		}
		if s.faker.Bool() {
			seen := now.Add(-time.Duration(s.faker.Number(0, 600)) * time.Second)
			acc.LastSeenAt = &seen
		}
		accounts = append(accounts, acc)
	}
	if err := s.db.CreateInBatches(&accounts, 100).Error; err != nil {
		return nil, fmt.Errorf("create accounts: %w", err)
	}
	return accounts, nil
}

func (s *Seeder) uid() string {
	return strings.ToUpper(s.faker.LetterN(3)) + s.faker.Numerify("###")
}

func (s *Seeder) avatar() string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/200/200", s.faker.UUID())
}
