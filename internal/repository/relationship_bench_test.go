package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/newsmeme/internal/model"
)

func setupRelBenchDB(b *testing.B) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		b.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.User{}, &model.Follow{}, &model.Fan{}); err != nil {
		b.Fatalf("migrate: %v", err)
	}
	return db
}

func seedBenchUsers(b *testing.B, db *gorm.DB, n int) []*model.User {
	users := make([]*model.User, n)
	for i := range users {
		name := fmt.Sprintf("u%05d", i)
		users[i] = model.NewUser(name, name+"@example.com")
	}
	if err := db.CreateInBatches(users, 500).Error; err != nil {
		b.Fatalf("seed users: %v", err)
	}
	return users
}

func BenchmarkFollowWrite_And_FanRedundancy(b *testing.B) {
	db := setupRelBenchDB(b)
	store := NewStore(db)
	ctx := context.Background()
	users := seedBenchUsers(b, db, 1000)
	rng := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from := users[rng.Intn(len(users))].ID
		to := users[rng.Intn(len(users))].ID
		if from == to {
			continue
		}
		_ = store.Transaction(ctx, func(tx *Store) error {
			if err := tx.Follows.Create(ctx, from, to); err != nil {
				return err
			}
			return tx.Fans.Create(ctx, to, from)
		})
	}
}

func BenchmarkQueryFansAndFollowing(b *testing.B) {
	db := setupRelBenchDB(b)
	store := NewStore(db)
	ctx := context.Background()

	// u0 有 N 个粉丝，同时关注这 N 个用户
	const N = 2000
	users := seedBenchUsers(b, db, N+1)
	u0 := users[0]
	for _, u := range users[1:] {
		_ = store.Follows.Create(ctx, u.ID, u0.ID)
		_ = store.Fans.Create(ctx, u0.ID, u.ID)
		_ = store.Follows.Create(ctx, u0.ID, u.ID)
		_ = store.Fans.Create(ctx, u.ID, u0.ID)
	}

	b.ResetTimer()
	b.Run("ListFans", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = store.Fans.ListFans(ctx, u0.ID, 0, 50)
		}
	})

	b.Run("ListFollowing", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = store.Follows.ListFollowings(ctx, u0.ID, 0, 50)
		}
	})

	b.Run("FanIDs", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = store.Fans.FanIDs(ctx, u0.ID)
		}
	})
}
