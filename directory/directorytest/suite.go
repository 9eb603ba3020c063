// Package directorytest runs the same behavioral checks against every
// goIdentity.UserDirectory implementation.
package directorytest

import (
	"context"
	"errors"
	"testing"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
)

// Run exercises insert, lookup, update and the unique email rule against the
// directory returned by newDirectory. Each subtest gets a fresh directory.
func Run(t *testing.T, newDirectory func(t *testing.T) goIdentity.UserDirectory) {
	t.Helper()

	t.Run("missing user", func(t *testing.T) {
		d := newDirectory(t)
		ctx := context.Background()

		if _, err := d.FindByEmail(ctx, "ghost@x.com"); !errors.Is(err, goIdentity.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
		exists, err := d.ExistsByEmail(ctx, "ghost@x.com")
		if err != nil || exists {
			t.Fatalf("ExistsByEmail = %v, %v", exists, err)
		}
	})

	t.Run("insert assigns id and round trips fields", func(t *testing.T) {
		d := newDirectory(t)
		ctx := context.Background()
		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		saved, err := d.Save(ctx, &goIdentity.User{
			Email:        "a@x.com",
			PasswordHash: "$2a$04$hash",
			FullName:     "Alice",
			Avatar:       "https://img/a.png",
			Phone:        "+100",
			Address:      "1 Main St",
			Role:         goIdentity.RoleUser,
			Provider:     goIdentity.ProviderNone,
			Active:       true,
			CreatedAt:    created,
			UpdatedAt:    created,
		})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if saved.ID == "" {
			t.Fatal("expected generated id")
		}

		got, err := d.FindByEmail(ctx, "a@x.com")
		if err != nil {
			t.Fatalf("FindByEmail failed: %v", err)
		}
		if got.ID != saved.ID || got.FullName != "Alice" || got.Avatar != "https://img/a.png" ||
			got.Phone != "+100" || got.Address != "1 Main St" || got.PasswordHash != "$2a$04$hash" ||
			got.Role != goIdentity.RoleUser || got.Provider != goIdentity.ProviderNone || !got.Active {
			t.Fatalf("unexpected user: %+v", got)
		}
		if !got.CreatedAt.Equal(created) {
			t.Fatalf("created_at = %v, want %v", got.CreatedAt, created)
		}

		exists, err := d.ExistsByEmail(ctx, "a@x.com")
		if err != nil || !exists {
			t.Fatalf("ExistsByEmail = %v, %v", exists, err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		d := newDirectory(t)
		ctx := context.Background()
		u := &goIdentity.User{Email: "a@x.com", Role: goIdentity.RoleUser, Provider: goIdentity.ProviderNone, Active: true}

		if _, err := d.Save(ctx, u); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		dup := &goIdentity.User{Email: "a@x.com", Role: goIdentity.RoleUser, Provider: goIdentity.ProviderGoogle, Active: true}
		if _, err := d.Save(ctx, dup); !errors.Is(err, goIdentity.ErrEmailExists) {
			t.Fatalf("expected ErrEmailExists, got %v", err)
		}
	})

	t.Run("update keeps id", func(t *testing.T) {
		d := newDirectory(t)
		ctx := context.Background()

		saved, err := d.Save(ctx, &goIdentity.User{Email: "a@x.com", FullName: "Old", Role: goIdentity.RoleUser, Provider: goIdentity.ProviderNone, Active: true})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		saved.FullName = "New"
		saved.PasswordHash = "$2a$04$other"
		saved.Active = false
		if _, err := d.Save(ctx, saved); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		got, err := d.FindByEmail(ctx, "a@x.com")
		if err != nil {
			t.Fatalf("FindByEmail failed: %v", err)
		}
		if got.ID != saved.ID || got.FullName != "New" || got.PasswordHash != "$2a$04$other" || got.Active {
			t.Fatalf("unexpected user after update: %+v", got)
		}
	})

	t.Run("returned users are copies", func(t *testing.T) {
		d := newDirectory(t)
		ctx := context.Background()

		if _, err := d.Save(ctx, &goIdentity.User{Email: "a@x.com", FullName: "Alice", Role: goIdentity.RoleUser, Provider: goIdentity.ProviderNone, Active: true}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		got, _ := d.FindByEmail(ctx, "a@x.com")
		got.FullName = "mutated"

		again, _ := d.FindByEmail(ctx, "a@x.com")
		if again.FullName != "Alice" {
			t.Fatal("directory must not hand out shared records")
		}
	})
}
