package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/mafia-game/internal/models"
	"gorm.io/gorm"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{
		Username: "godfather",
		Nickname: "教父",
		Status:   "active",
	}
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	found, err := repo.FindByUsername(ctx, "godfather")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "教父", found.Nickname)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "godfather", byID.Username)

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_UpdateLastLogin(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 1)
	require.Nil(t, users[0].LastLoginAt)

	require.NoError(t, repo.UpdateLastLogin(ctx, users[0].ID))

	found, err := repo.FindByID(ctx, users[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, found.LastLoginAt)
}

func TestUserRepository_IncrementStats(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 1)
	id := users[0].ID

	require.NoError(t, repo.IncrementStats(ctx, id, true))
	require.NoError(t, repo.IncrementStats(ctx, id, true))
	require.NoError(t, repo.IncrementStats(ctx, id, false))

	found, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, found.TotalGames)
	assert.Equal(t, 2, found.Wins)
	assert.Equal(t, 1, found.Losses)
}

func TestUserRepository_List(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	SeedTestUsers(t, db, 15)

	p := NewPagination(1, 10)
	page1, err := repo.List(ctx, p)
	require.NoError(t, err)
	assert.Len(t, page1, 10)
	assert.Equal(t, int64(15), p.Total)

	p2 := NewPagination(2, 10)
	page2, err := repo.List(ctx, p2)
	require.NoError(t, err)
	assert.Len(t, page2, 5)
}
