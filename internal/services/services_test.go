package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/postboard-be/internal/database"
	"github.com/isdelr/postboard-be/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	actions []string
}

func (n *recordingNotifier) BroadcastPost(action string, _ models.Post) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions = append(n.actions, action)
}

type testEnv struct {
	db          *sqlx.DB
	events      *EventService
	users       *UserService
	posts       *PostService
	maintenance *MaintenanceService
	notifier    *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	events := NewEventService(db)
	notifier := &recordingNotifier{}
	return &testEnv{
		db:          db,
		events:      events,
		users:       NewUserService(db, events),
		posts:       NewPostService(db, events, notifier),
		maintenance: NewMaintenanceService(db, events),
		notifier:    notifier,
	}
}

func (e *testEnv) signup(t *testing.T, username, password string) models.User {
	t.Helper()
	user, err := e.users.Signup(context.Background(), username, password)
	require.NoError(t, err)
	return user
}

func TestSignupOnlyOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	alice := env.signup(t, "alice", "pw1")
	assert.NotZero(t, alice.ID)
	assert.Equal(t, "alice", alice.Username)
	assert.Empty(t, alice.PasswordHash)

	_, err := env.users.Signup(ctx, "alice", "pw2")
	assert.ErrorIs(t, err, ErrUserExists)

	var count int
	require.NoError(t, env.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE username = 'alice'`))
	assert.Equal(t, 1, count)

	// The first password still works; the second attempt changed nothing.
	_, err = env.users.Signin(ctx, "alice", "pw1")
	assert.NoError(t, err)
	_, err = env.users.Signin(ctx, "alice", "pw2")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestSignupStoresHashNotPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice", "pw1")

	var stored string
	require.NoError(t, env.db.GetContext(context.Background(), &stored, `SELECT password_hash FROM users WHERE username = 'alice'`))
	assert.NotEqual(t, "pw1", stored)
	assert.NotEmpty(t, stored)
}

func TestConcurrentSignupCreatesOneRow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.users.Signup(ctx, "racer", "pw")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case err == ErrUserExists:
				dupes++
			default:
				t.Errorf("unexpected signup error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, dupes)
}

func TestSignin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signup(t, "alice", "pw1")

	_, err := env.users.Signin(ctx, "nobody", "pw1")
	assert.ErrorIs(t, err, ErrUserNotRegistered)

	_, err = env.users.Signin(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	user, err := env.users.Signin(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash)

	_, err = env.users.Signin(ctx, "Alice", "pw1")
	assert.ErrorIs(t, err, ErrUserNotRegistered, "usernames match exactly")
}

func TestResolveIdentity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signup(t, "alice", "pw1")

	user, err := env.users.ResolveIdentity(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)

	_, err = env.users.ResolveIdentity(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.users.ResolveIdentity(ctx, "ghost", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPostLifecycleAndOwnership(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signup(t, "alice", "pw1")
	bob := env.signup(t, "bob", "pw2")

	post, err := env.posts.CreatePost(ctx, alice, "hello", "first post")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, post.AuthorID)

	got, err := env.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, "first post", got.Content)

	_, err = env.posts.UpdatePost(ctx, bob, post.ID, "hijack", "x")
	assert.ErrorIs(t, err, ErrNotPostOwner)
	assert.ErrorIs(t, env.posts.DeletePost(ctx, bob, post.ID), ErrNotPostOwner)

	updated, err := env.posts.UpdatePost(ctx, alice, post.ID, "hello again", "edited")
	require.NoError(t, err)
	assert.Equal(t, "hello again", updated.Title)
	assert.Equal(t, "edited", updated.Content)

	got, err = env.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Title, got.Title)
	assert.Equal(t, updated.Content, got.Content)

	require.NoError(t, env.posts.DeletePost(ctx, alice, post.ID))
	_, err = env.posts.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	assert.Equal(t, []string{PostCreated, PostUpdated, PostDeleted}, env.notifier.actions)
}

func TestMissingPostIsNotFoundForEveryone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signup(t, "alice", "pw1")

	_, err := env.posts.GetPost(ctx, 999)
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = env.posts.UpdatePost(ctx, alice, 999, "t", "c")
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.ErrorIs(t, env.posts.DeletePost(ctx, alice, 999), ErrPostNotFound)
}

func TestResetDatabase(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signup(t, "alice", "pw1")
	post, err := env.posts.CreatePost(ctx, alice, "t", "c")
	require.NoError(t, err)

	require.NoError(t, env.maintenance.ResetDatabase(ctx))

	_, err = env.users.Signin(ctx, "alice", "pw1")
	assert.ErrorIs(t, err, ErrUserNotRegistered)
	_, err = env.posts.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	// The name is free again after the reset.
	env.signup(t, "alice", "pw1")
}

func TestEventsAreRecordedAndPruned(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signup(t, "alice", "pw1")
	_, err := env.posts.CreatePost(ctx, alice, "t", "c")
	require.NoError(t, err)

	events, err := env.events.GetRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "post.create", events[0].Type)
	assert.Equal(t, "user.signup", events[1].Type)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, alice.ID, *events[0].UserID)

	_, err = env.db.ExecContext(ctx, `INSERT INTO events (id, type, level, message, created_at) VALUES ('old', 'x', 'info', 'stale', '2000-01-01 00:00:00')`)
	require.NoError(t, err)

	removed, err := env.events.PruneEvents(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	events, err = env.events.GetRecentEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
