package memory

import (
	"context"
	"testing"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/app/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) app.Store { return NewStore() })
}

func TestRollbackDoesNotReuseIDs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_ = store.Atomically(ctx, func(tx app.Store) error {
		if _, err := tx.CreateTeam(ctx, "Ghost"); err != nil {
			return err
		}
		return tx.DeleteTeam(ctx, 9999)
	})

	teams, _ := store.ListTeams(ctx)
	if len(teams) != 0 {
		t.Fatalf("expected rolled back team to be gone, got %+v", teams)
	}
	team, err := store.CreateTeam(ctx, "Reds")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if team.ID != 2 {
		t.Fatalf("expected id 2 after rolled back id 1, got %d", team.ID)
	}
}
