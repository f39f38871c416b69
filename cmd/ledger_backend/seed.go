package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pse-app/pse-sub001/internal/apperrors"
	"github.com/pse-app/pse-sub001/internal/core/domain"
	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
)

// seedFile is the layout of the -seed file.
type seedFile struct {
	Users []struct {
		UserID string `json:"userID"`
		Name   string `json:"name"`
	} `json:"users"`
	Groups []struct {
		GroupID string `json:"groupID"`
		Name    string `json:"name"`
	} `json:"groups"`
	Memberships []domain.Membership `json:"memberships"`
}

func seedFromFile(ctx context.Context, writer portsrepo.MembershipWriter, path string, logger *slog.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	return applySeed(ctx, writer, seed, time.Now().UTC(), logger)
}

// applySeed creates everything in seed. Entities that already exist are skipped,
// so seeding the same file twice is harmless.
func applySeed(ctx context.Context, writer portsrepo.MembershipWriter, seed seedFile, now time.Time, logger *slog.Logger) error {
	created := 0
	for _, u := range seed.Users {
		err := writer.CreateUser(ctx, domain.User{UserID: u.UserID, Name: u.Name, CreatedAt: now})
		if skip, err := ignoreConflict(err); err != nil {
			return err
		} else if !skip {
			created++
		}
	}
	for _, g := range seed.Groups {
		err := writer.CreateGroup(ctx, domain.Group{GroupID: g.GroupID, Name: g.Name, CreatedAt: now})
		if skip, err := ignoreConflict(err); err != nil {
			return err
		} else if !skip {
			created++
		}
	}
	for _, m := range seed.Memberships {
		if err := writer.AddMember(ctx, m); err != nil {
			return fmt.Errorf("failed to add %s to %s: %w", m.UserID, m.GroupID, err)
		}
	}

	logger.Info("Seed applied",
		slog.Int("created", created),
		slog.Int("memberships", len(seed.Memberships)))
	return nil
}

func ignoreConflict(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, apperrors.ErrConflict) {
		return true, nil
	}
	return false, err
}
