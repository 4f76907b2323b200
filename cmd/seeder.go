package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/docstore"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the document store with sample data",
	Long:  `Seed the document store with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		store, db, err := initStore(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init store: %v", err)
		}
		if db != nil {
			defer db.Close()
		}

		ctx := context.Background()

		if clearData {
			if err := wipeStore(ctx, store); err != nil {
				log.Fatalf("failed to clear existing data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		if err := seedCredentials(ctx, store, cfg.Security.BCryptCost); err != nil {
			log.Fatalf("failed to seed credentials: %v", err)
		}
		if err := seedAccounts(ctx, store); err != nil {
			log.Fatalf("failed to seed accounts: %v", err)
		}
		if err := seedSettings(ctx, store); err != nil {
			log.Fatalf("failed to seed settings: %v", err)
		}
		if err := seedWorkforce(ctx, store); err != nil {
			log.Fatalf("failed to seed workforce data: %v", err)
		}

		fmt.Println("Sample data seeded successfully")
	},
}

var seedCollections = []string{
	docstore.CollectionEmployees,
	docstore.CollectionTeams,
	docstore.CollectionAccounts,
	docstore.CollectionPlanning,
	docstore.CollectionBonuses,
	docstore.CollectionTrainings,
	docstore.CollectionAuditLog,
	docstore.CollectionConfig,
	docstore.CollectionAuthUsers,
}

func wipeStore(ctx context.Context, store docstore.Store) error {
	for _, collection := range seedCollections {
		docs, err := store.List(ctx, collection, 0)
		if err != nil {
			return fmt.Errorf("list %s: %w", collection, err)
		}
		for _, doc := range docs {
			if err := store.Delete(ctx, collection, doc.Handle); err != nil {
				return fmt.Errorf("delete %s/%s: %w", collection, doc.Handle, err)
			}
		}
	}
	return nil
}

func collectionEmpty(ctx context.Context, store docstore.Store, collection string) (bool, error) {
	docs, err := store.List(ctx, collection, 1)
	if err != nil {
		return false, err
	}
	return len(docs) == 0, nil
}

func seedCredentials(ctx context.Context, store docstore.Store, bcryptCost int) error {
	adminEmail := "admin@staffsync.local"

	existing, err := store.QueryEquals(ctx, docstore.CollectionAuthUsers, "email", adminEmail)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		fmt.Println("admin credential already exists; skipping")
		return nil
	}

	password := "password"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}

	uid := uuid.NewString()
	doc := map[string]any{
		"uid":           uid,
		"email":         adminEmail,
		"password_hash": string(hash),
		"name":          "Demo Admin",
		"verified":      true,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	}
	if err := store.Set(ctx, docstore.CollectionAuthUsers, uid, doc); err != nil {
		return err
	}

	fmt.Printf("Seeded admin credential: %s (password: %s)\n", adminEmail, password)
	return nil
}

func seedAccounts(ctx context.Context, store docstore.Store) error {
	empty, err := collectionEmpty(ctx, store, docstore.CollectionAccounts)
	if err != nil {
		return err
	}
	if !empty {
		fmt.Println("accounts already present; skipping")
		return nil
	}

	viewerEmployee := int64(2)
	accounts := []datamodel.Account{
		{ID: 1, Name: "Demo Admin", Email: "admin@staffsync.local", Role: datamodel.RoleAdmin, Active: true},
		{ID: 2, Name: "Mara Lindgren", Email: "mara@staffsync.local", Role: datamodel.RoleViewer, Active: true, EmployeeID: &viewerEmployee},
	}
	for _, account := range accounts {
		handle := strconv.FormatInt(account.ID, 10)
		if err := store.Set(ctx, docstore.CollectionAccounts, handle, account.Document()); err != nil {
			return err
		}
	}

	fmt.Printf("Seeded %d accounts\n", len(accounts))
	return nil
}

func seedSettings(ctx context.Context, store docstore.Store) error {
	empty, err := collectionEmpty(ctx, store, docstore.CollectionConfig)
	if err != nil {
		return err
	}
	if !empty {
		fmt.Println("settings already present; skipping")
		return nil
	}

	settings := datamodel.DefaultSettings()
	settings.CompanyName = "Demo Staffing GmbH"
	if err := store.Set(ctx, docstore.CollectionConfig, datamodel.SettingsHandle, settings.Document()); err != nil {
		return err
	}

	fmt.Println("Seeded company settings")
	return nil
}

func seedWorkforce(ctx context.Context, store docstore.Store) error {
	empty, err := collectionEmpty(ctx, store, docstore.CollectionEmployees)
	if err != nil {
		return err
	}
	if !empty {
		fmt.Println("employees already present; skipping")
		return nil
	}

	frontTeam := int64(1)
	backTeam := int64(2)
	employees := []datamodel.Employee{
		{ID: 1, Code: "EMP001", Name: "Mara Lindgren", TeamID: &frontTeam},
		{ID: 2, Code: "EMP002", Name: "Jonas Weber", TeamID: &frontTeam},
		{ID: 3, Code: "EMP003", Name: "Aylin Kaya", TeamID: &backTeam},
		{ID: 4, Code: "EMP004", Name: "Petr Novak"},
	}
	for _, employee := range employees {
		handle := strconv.FormatInt(employee.ID, 10)
		if err := store.Set(ctx, docstore.CollectionEmployees, handle, employee.Document()); err != nil {
			return err
		}
	}
	fmt.Printf("Seeded %d employees\n", len(employees))

	frontLeader := int64(1)
	teams := []datamodel.Team{
		{ID: 1, Name: "Front Office", LeaderID: &frontLeader, MemberIDs: []int64{1, 2}},
		{ID: 2, Name: "Back Office", MemberIDs: []int64{3}},
	}
	for _, team := range teams {
		handle := strconv.FormatInt(team.ID, 10)
		if err := store.Set(ctx, docstore.CollectionTeams, handle, team.Document()); err != nil {
			return err
		}
	}
	fmt.Printf("Seeded %d teams\n", len(teams))

	monday := time.Now().UTC().Truncate(24 * time.Hour)
	for int(monday.Weekday()) != int(time.Monday) {
		monday = monday.AddDate(0, 0, -1)
	}
	shifts := []datamodel.PlanningEntry{
		{EmployeeID: 1, Date: monday, Shift: "early"},
		{EmployeeID: 1, Date: monday.AddDate(0, 0, 1), Shift: "late"},
		{EmployeeID: 2, Date: monday, Shift: "late"},
		{EmployeeID: 3, Date: monday.AddDate(0, 0, 2), Shift: "night"},
	}
	for _, entry := range shifts {
		if err := store.Set(ctx, docstore.CollectionPlanning, entry.Key(), entry.Document()); err != nil {
			return err
		}
	}
	fmt.Printf("Seeded %d planning entries\n", len(shifts))

	bonus := datamodel.Bonus{
		EmployeeID: 1,
		Month:      monday.Format(datamodel.MonthLayout),
		Amount:     decimal.NewFromInt(250),
	}
	if err := store.Set(ctx, docstore.CollectionBonuses, bonus.Key(), bonus.Document()); err != nil {
		return err
	}
	fmt.Println("Seeded 1 bonus")

	trainee := int64(2)
	trainings := []datamodel.Training{
		{ID: 1, Title: "Workplace Safety", Status: datamodel.TrainingDone, EmployeeID: &trainee},
		{ID: 2, Title: "First Aid Refresher", Status: datamodel.TrainingPlanned},
	}
	for _, training := range trainings {
		handle := strconv.FormatInt(training.ID, 10)
		if err := store.Set(ctx, docstore.CollectionTrainings, handle, training.Document()); err != nil {
			return err
		}
	}
	fmt.Printf("Seeded %d trainings\n", len(trainings))

	return nil
}
