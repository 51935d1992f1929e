package licenses

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gymdesk-backend/internal/gyms"
	"github.com/angelmondragon/gymdesk-backend/internal/users"
	"github.com/angelmondragon/gymdesk-backend/pkg/config"
	"github.com/angelmondragon/gymdesk-backend/pkg/db"
	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
	"github.com/angelmondragon/gymdesk-backend/pkg/migrate"
	"github.com/angelmondragon/gymdesk-backend/pkg/security"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var (
	keysOnce   sync.Once
	signingKey *rsa.PrivateKey
	foreignKey *rsa.PrivateKey
	keysErr    error
)

func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		signingKey, keysErr = rsa.GenerateKey(rand.Reader, 2048)
		if keysErr != nil {
			return
		}
		foreignKey, keysErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, keysErr)
	return signingKey, foreignKey
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(at time.Time) *testClock {
	return &testClock{now: at}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}

// newTestStore returns a migrated in-memory sqlite database. Migrations run on
// a separate handle that is closed once the client holds the shared cache open.
func newTestStore(t *testing.T) *db.Client {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())

	raw, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	_, err = migrate.Up(ctx, raw, config.DriverSQLite)
	require.NoError(t, err)

	client, err := db.New(ctx, config.DBConfig{Driver: config.DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx))
	require.NoError(t, raw.Close())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type activationFixture struct {
	store     *db.Client
	gyms      *gyms.Repository
	users     *users.Repository
	clock     *testClock
	activator *Activator
}

func newActivationFixture(t *testing.T, cfg ActivatorConfig) *activationFixture {
	t.Helper()
	key, _ := testKeys(t)
	store := newTestStore(t)
	clock := newTestClock(baseTime)

	validator, err := licensekey.NewValidator(&key.PublicKey, licensekey.WithClock(clock.Now))
	require.NoError(t, err)

	gymsRepo := gyms.NewRepository(store.DB())
	usersRepo := users.NewRepository(store.DB())
	hasher := security.NewPasswordHasher(config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1})

	activator, err := NewActivator(store, gymsRepo, usersRepo, validator, hasher, cfg, nil, nil)
	require.NoError(t, err)
	activator.now = clock.Now

	return &activationFixture{store: store, gyms: gymsRepo, users: usersRepo, clock: clock, activator: activator}
}

type tokenSpec struct {
	gymID    string
	ownerID  string
	username string
	email    string
	password string
	issuedAt time.Time
	expires  time.Time
	key      *rsa.PrivateKey
}

func signToken(t *testing.T, opts tokenSpec) string {
	t.Helper()
	key := opts.key
	if key == nil {
		key, _ = testKeys(t)
	}
	if opts.gymID == "" {
		opts.gymID = "gym-1"
	}
	if opts.ownerID == "" {
		opts.ownerID = "owner-1"
	}
	if opts.username == "" {
		opts.username = "ana"
	}
	if opts.issuedAt.IsZero() {
		opts.issuedAt = baseTime.Add(-time.Hour)
	}
	if opts.expires.IsZero() {
		opts.expires = baseTime.AddDate(0, 6, 0)
	}

	owner := licensekey.OwnerSnapshot{
		ID:        opts.ownerID,
		Username:  opts.username,
		FirstName: "Ana",
		LastName:  "Lopez",
	}
	if opts.email != "" {
		email := opts.email
		owner.Email = &email
	}
	if opts.password != "" {
		password := opts.password
		owner.Password = &password
	}

	signer, err := licensekey.NewSigner(key, licensekey.WithIssuer("gymdesk"))
	require.NoError(t, err)
	token, err := signer.Sign(licensekey.SignInput{
		Gym:       licensekey.GymSnapshot{ID: opts.gymID, Name: "Iron Temple", Address: "Main St 1", Phone: "555-0100"},
		Owner:     owner,
		IssuedAt:  opts.issuedAt,
		ExpiresAt: opts.expires,
	})
	require.NoError(t, err)
	return token
}

func countRows(t *testing.T, store *db.Client, table string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, store.DB().Table(table).Count(&count).Error)
	return count
}
