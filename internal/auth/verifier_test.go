package auth

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockCredentialStore struct {
	CredentialFunc func(ctx context.Context, username string) (domain.Credential, error)
}

func (m *MockCredentialStore) Credential(ctx context.Context, username string) (domain.Credential, error) {
	if m.CredentialFunc != nil {
		return m.CredentialFunc(ctx, username)
	}
	// Default: Not found
	return domain.Credential{}, internal_errors.ErrNotFound
}

func storeWith(t *testing.T, hasher Hasher, username, password string) (*MockCredentialStore, domain.UserId) {
	t.Helper()
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	userId := uuid.New()
	return &MockCredentialStore{
		CredentialFunc: func(ctx context.Context, u string) (domain.Credential, error) {
			if u != username {
				return domain.Credential{}, internal_errors.ErrNotFound
			}
			return domain.Credential{UserId: userId, Username: username, PasswordHash: hash}, nil
		},
	}, userId
}

func TestVerify(t *testing.T) {
	hasher := Argon2id{Params: testParams}
	store, userId := storeWith(t, hasher, "admin", "secret")

	v, err := NewVerifier(store, hasher, 2)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		got, err := v.Verify(context.Background(), domain.Credentials{Username: "admin", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, userId, got)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := v.Verify(context.Background(), domain.Credentials{Username: "admin", Password: "guess"})
		assert.ErrorIs(t, err, internal_errors.ErrUnauthorized)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := v.Verify(context.Background(), domain.Credentials{Username: "nobody", Password: "secret"})
		assert.ErrorIs(t, err, internal_errors.ErrUnauthorized)
	})
}

func TestVerifyBcryptCredential(t *testing.T) {
	// stored bcrypt hashes keep working when the configured hasher is argon2id
	store, userId := storeWith(t, Bcrypt{Cost: 4}, "admin", "secret")

	v, err := NewVerifier(store, Argon2id{Params: testParams}, 1)
	require.NoError(t, err)

	got, err := v.Verify(context.Background(), domain.Credentials{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, userId, got)
}

func TestVerifyStorageFailure(t *testing.T) {
	store := &MockCredentialStore{
		CredentialFunc: func(ctx context.Context, username string) (domain.Credential, error) {
			return domain.Credential{}, errors.New("connection refused")
		},
	}
	v, err := NewVerifier(store, Argon2id{Params: testParams}, 1)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), domain.Credentials{Username: "admin", Password: "secret"})
	assert.ErrorIs(t, err, internal_errors.ErrInternal)
	assert.NotErrorIs(t, err, internal_errors.ErrUnauthorized)
}

func TestVerifyUnusableStoredHash(t *testing.T) {
	hashes := map[string]string{
		"plain text":       "plaintext",
		"zero iterations":  "$argon2id$v=19$m=15000,t=0,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5",
		"zero parallelism": "$argon2id$v=19$m=15000,t=2,p=0$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5",
		"oversized memory": "$argon2id$v=19$m=4000000000,t=2,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5",
	}
	for name, hash := range hashes {
		t.Run(name, func(t *testing.T) {
			store := &MockCredentialStore{
				CredentialFunc: func(ctx context.Context, username string) (domain.Credential, error) {
					return domain.Credential{UserId: uuid.New(), Username: username, PasswordHash: hash}, nil
				},
			}
			v, err := NewVerifier(store, Argon2id{Params: testParams}, 1)
			require.NoError(t, err)

			_, err = v.Verify(context.Background(), domain.Credentials{Username: "admin", Password: "plaintext"})
			assert.ErrorIs(t, err, internal_errors.ErrUnauthorized)
		})
	}
}

func TestVerifyContextCancelled(t *testing.T) {
	hasher := Argon2id{Params: testParams}
	store, _ := storeWith(t, hasher, "admin", "secret")
	v, err := NewVerifier(store, hasher, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = v.Verify(ctx, domain.Credentials{Username: "admin", Password: "secret"})
	assert.Error(t, err)
}

func TestDummyHashSharesParameters(t *testing.T) {
	params := Argon2idParams{Memory: 2048, Iterations: 2, Parallelism: 1, KeyLength: 24}
	v, err := NewVerifier(&MockCredentialStore{}, Argon2id{Params: params}, 1)
	require.NoError(t, err)

	got, _, _, err := parseArgon2id(v.dummyHash)
	require.NoError(t, err)
	assert.Equal(t, params, got)

	v, err = NewVerifier(&MockCredentialStore{}, Bcrypt{Cost: 5}, 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(v.dummyHash, "$2a$05$"), v.dummyHash)
}

func TestVerifyNegativePathsTakeComparableTime(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	hasher := Argon2id{Params: Argon2idParams{Memory: 8 * 1024, Iterations: 2, Parallelism: 1, KeyLength: 32}}
	store, _ := storeWith(t, hasher, "admin", "secret")
	v, err := NewVerifier(store, hasher, 1)
	require.NoError(t, err)

	median := func(creds domain.Credentials) time.Duration {
		const runs = 15
		samples := make([]time.Duration, runs)
		for i := range samples {
			start := time.Now()
			_, err := v.Verify(context.Background(), creds)
			samples[i] = time.Since(start)
			require.ErrorIs(t, err, internal_errors.ErrUnauthorized)
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
		return samples[runs/2]
	}

	unknownUser := median(domain.Credentials{Username: "nobody", Password: "secret"})
	wrongPassword := median(domain.Credentials{Username: "admin", Password: "guess"})

	ratio := float64(unknownUser) / float64(wrongPassword)
	assert.Greater(t, ratio, 0.33, "unknown user %v, wrong password %v", unknownUser, wrongPassword)
	assert.Less(t, ratio, 3.0, "unknown user %v, wrong password %v", unknownUser, wrongPassword)
}
