//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MrEthical07/authengine/domain"
	repo "github.com/MrEthical07/authengine/storage/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "authengine_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/authengine_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestRepositories(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.Ping(ctx))

	t.Run("accounts", func(t *testing.T) {
		ar := repo.NewAccountRepository(conn)
		acc := &domain.Account{
			ID:           "acc-1",
			Username:     "alice",
			PasswordHash: "$argon2id$hash",
			PasswordAlg:  domain.PasswordArgon2id,
			Email:        "alice@example.com",
			Role:         "user",
			Status:       domain.AccountDisabledUntilActivation,
			CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, ar.Create(ctx, acc))
		require.ErrorIs(t, ar.Create(ctx, &domain.Account{ID: "acc-2", Username: "alice", Status: domain.AccountEnabled, PasswordAlg: domain.PasswordBcrypt}), domain.ErrAlreadyExists)

		got, err := ar.ReadByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, acc.ID, got.ID)
		require.Equal(t, domain.AccountDisabledUntilActivation, got.Status)
		require.Equal(t, domain.PasswordArgon2id, got.PasswordAlg)

		require.NoError(t, ar.Enable(ctx, acc.ID))
		require.NoError(t, ar.SetMFA(ctx, acc.ID, true))
		require.NoError(t, ar.ChangePassword(ctx, acc.ID, "$2a$bcrypt", domain.PasswordBcrypt))
		got, err = ar.ReadByID(ctx, acc.ID)
		require.NoError(t, err)
		require.True(t, got.Enabled())
		require.True(t, got.UsingMFA)
		require.Equal(t, domain.PasswordBcrypt, got.PasswordAlg)

		got.Telephone = "+48123456789"
		require.NoError(t, ar.Update(ctx, got))
		changed, err := ar.Disable(ctx, acc.ID)
		require.NoError(t, err)
		require.True(t, changed)
		changed, err = ar.Disable(ctx, acc.ID)
		require.NoError(t, err)
		require.False(t, changed)
		got, err = ar.ReadByID(ctx, acc.ID)
		require.NoError(t, err)
		require.Equal(t, "+48123456789", got.Telephone)
		require.Equal(t, domain.AccountDisabled, got.Status)

		require.NoError(t, ar.Delete(ctx, acc.ID))
		_, err = ar.ReadByID(ctx, acc.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.ErrorIs(t, ar.Enable(ctx, acc.ID), domain.ErrNotFound)
		_, err = ar.Disable(ctx, acc.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("failed_attempts", func(t *testing.T) {
		fr := repo.NewFailedAttemptRepository(conn)
		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			require.NoError(t, fr.Create(ctx, &domain.FailedAuthenticationAttempt{
				ID:        fmt.Sprintf("fa-%d", i),
				AccountID: "acc-9",
				Username:  "bob",
				Timestamp: base.Add(time.Duration(i) * time.Hour),
				DeviceID:  "dev-1",
				Location:  &domain.Location{CountryCode: "DE"},
				BannedIPs: []string{"10.0.0.1", "10.0.0.2"},
				Counter:   20,
			}))
		}

		got, err := fr.ReadRange(ctx, "acc-9", base, base.Add(2*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "fa-0", got[0].ID)
		require.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, got[0].BannedIPs)
		require.Equal(t, "DE", got[0].Location.CountryCode)
	})

	t.Run("access_points", func(t *testing.T) {
		pr := repo.NewAccessPointRepository(conn)
		p := &domain.AccessPoint{AccountID: "acc-7", DeviceID: "laptop", IP: "10.1.1.1", FirstSeen: time.Now().UTC()}
		require.NoError(t, pr.Create(ctx, p))
		require.NoError(t, pr.Create(ctx, p))

		ok, err := pr.Exists(ctx, "acc-7", "laptop")
		require.NoError(t, err)
		require.True(t, ok)

		all, err := pr.ReadAll(ctx, "acc-7")
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.Nil(t, all[0].Location)

		require.NoError(t, pr.DeleteAll(ctx, "acc-7"))
		ok, err = pr.Exists(ctx, "acc-7", "laptop")
		require.NoError(t, err)
		require.False(t, ok)
	})
}
