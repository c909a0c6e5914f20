package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/task-distribution/internal/config"
	"github.com/spec-kit/task-distribution/internal/domain"
	"github.com/spec-kit/task-distribution/internal/repository"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            bcrypt.MinCost,
		},
		Distribution: config.DistributionConfig{LockTTLSeconds: 30},
	}
}

func seedPrincipal(t *testing.T, repo repository.PrincipalRepository, role domain.Role, name string, parent *string) domain.Principal {
	t.Helper()
	p := &domain.Principal{
		Role:          role,
		Name:          name,
		Email:         name + "@example.com",
		Mobile:        "555-0000",
		ParentAgentID: parent,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return *p
}

func records(n int) []domain.TaskRecord {
	out := make([]domain.TaskRecord, n)
	for i := range out {
		out[i] = domain.TaskRecord{
			FirstName: fmt.Sprintf("contact-%02d", i),
			Phone:     fmt.Sprintf("555-%04d", i),
			Notes:     "call",
		}
	}
	return out
}
