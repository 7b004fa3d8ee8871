package auth

import (
	"context"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-recipe-api/internal/database"
	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-jwt-secret-key-32-characters"

func setupTestDB(t *testing.T) (*gorm.DB, services.UserService, *models.User) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	users := services.NewUserService(db, services.NewBcryptHasher(bcrypt.MinCost))
	user, err := users.Register(context.Background(), services.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "wonderland",
	})
	require.NoError(t, err)
	return db, users, user
}

func TestIssueAndVerifyToken(t *testing.T) {
	_, users, user := setupTestDB(t)
	svc := NewTokenService(users, []byte(testSecret), "test-issuer", 24*time.Hour)
	ctx := context.Background()

	issued, err := svc.IssueToken(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.Equal(t, int64(86400), issued.ExpiresIn)

	uid, err := svc.VerifyToken(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, uid)

	_, err = svc.IssueToken(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = svc.IssueToken(ctx, "mallory", "wonderland")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestVerifyTokenRejects(t *testing.T) {
	db, users, user := setupTestDB(t)
	svc := NewTokenService(users, []byte(testSecret), "test-issuer", 24*time.Hour)
	ctx := context.Background()

	sign := func(method jwt.SigningMethod, key interface{}, claims Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func(uid uint) Claims {
		now := time.Now()
		return Claims{
			UserID: uid,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	expired := valid(user.ID)
	expired.IssuedAt = jwt.NewNumericDate(time.Now().Add(-25 * time.Hour))
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongIssuer := valid(user.ID)
	wrongIssuer.Issuer = "someone-else"

	noExpiry := valid(user.ID)
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"malformed", "not-a-jwt"},
		{"empty", ""},
		{"bad signature", sign(jwt.SigningMethodHS256, []byte("other-secret"), valid(user.ID))},
		{"none algorithm", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid(user.ID))},
		{"other hmac algorithm", sign(jwt.SigningMethodHS512, []byte(testSecret), valid(user.ID))},
		{"expired", sign(jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"wrong issuer", sign(jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer)},
		{"missing expiry", sign(jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"missing uid", sign(jwt.SigningMethodHS256, []byte(testSecret), valid(0))},
		{"unknown user", sign(jwt.SigningMethodHS256, []byte(testSecret), valid(user.ID+99))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyToken(ctx, tt.token)
			assert.ErrorIs(t, err, services.ErrUnauthorized)
		})
	}

	// a deleted user invalidates previously issued tokens
	issued, err := svc.IssueToken(ctx, "alice", "wonderland")
	require.NoError(t, err)
	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)
	_, err = svc.VerifyToken(ctx, issued.Token)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestTokenExpiresAfterTTL(t *testing.T) {
	_, users, _ := setupTestDB(t)
	svc := NewTokenService(users, []byte(testSecret), "test-issuer", 24*time.Hour)
	ctx := context.Background()

	issuedAt := time.Now().Add(-25 * time.Hour)
	svc.now = func() time.Time { return issuedAt }
	issued, err := svc.IssueToken(ctx, "alice", "wonderland")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.VerifyToken(ctx, issued.Token)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestSessionLoginResolveLogout(t *testing.T) {
	db, users, user := setupTestDB(t)
	mgr := NewSessionManager(users, NewGormSessionStore(db), time.Hour)
	ctx := context.Background()

	first, err := mgr.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.Len(t, first.ID, 64)

	second, err := mgr.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID, "every login must issue a fresh session id")

	uid, err := mgr.Resolve(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, uid)

	require.NoError(t, mgr.Logout(ctx, second.ID))
	_, err = mgr.Resolve(ctx, second.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// logout is idempotent
	assert.NoError(t, mgr.Logout(ctx, second.ID))
	assert.NoError(t, mgr.Logout(ctx, ""))

	_, err = mgr.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = mgr.Login(ctx, "alice", "nope")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestSessionExpiryAndSliding(t *testing.T) {
	db, users, _ := setupTestDB(t)
	store := NewGormSessionStore(db)
	mgr := NewSessionManager(users, store, time.Hour)
	ctx := context.Background()

	start := time.Now()
	mgr.now = func() time.Time { return start }
	session, err := mgr.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)

	// activity within the ttl pushes expiry forward
	mgr.now = func() time.Time { return start.Add(50 * time.Minute) }
	_, err = mgr.Resolve(ctx, session.ID)
	require.NoError(t, err)

	mgr.now = func() time.Time { return start.Add(100 * time.Minute) }
	_, err = mgr.Resolve(ctx, session.ID)
	require.NoError(t, err)

	mgr.now = func() time.Time { return start.Add(200 * time.Minute) }
	_, err = mgr.Resolve(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCleanupExpiredSessions(t *testing.T) {
	db, users, _ := setupTestDB(t)
	mgr := NewSessionManager(users, NewGormSessionStore(db), time.Hour)
	ctx := context.Background()

	start := time.Now()
	mgr.now = func() time.Time { return start.Add(-2 * time.Hour) }
	_, err := mgr.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)

	mgr.now = func() time.Time { return start }
	live, err := mgr.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)

	n, err := mgr.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = mgr.Resolve(ctx, live.ID)
	assert.NoError(t, err)
}
