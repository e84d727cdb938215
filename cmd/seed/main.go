package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/newsmeme/config"
	"github.com/d60-Lab/newsmeme/internal/auth"
	"github.com/d60-Lab/newsmeme/internal/cache"
	"github.com/d60-Lab/newsmeme/internal/ledger"
	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/policy"
	"github.com/d60-Lab/newsmeme/internal/repository"
	"github.com/d60-Lab/newsmeme/internal/service"
	"github.com/d60-Lab/newsmeme/pkg/database"
)

// seed 生成演示数据：N 个用户关注同一个大 V，随机发帖、评论、投票，
// 并输出关注写入与粉丝分页（冷/热缓存）的延迟分布。

var tagPool = []string{"go", "redis", "postgres", "music", "comedy", "IT crowd", "science", "news"}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer func() { _ = database.Close(db) }()
	ctx := context.Background()

	n := envInt("N", 1000)
	conc := envInt("CONC", 4)
	pageSize := envInt("PAGE", 50)
	numPosts := envInt("POSTS", 200)
	rng := rand.New(rand.NewSource(1))

	store := repository.NewStore(db)
	var fans *cache.FanIndex
	if cfg.Redis.Enabled {
		if rdb, err := cache.NewRedisClient(ctx, cfg.Redis); err == nil {
			defer rdb.Close()
			fans = cache.NewFanIndex(rdb, cfg.Redis.FanCacheTTL, service.FanLoader(store))
		} else {
			fmt.Println("redis unavailable, fan pages served from database:", err)
		}
	}
	mailer := service.NewLogMailer(cfg.App.MailSender)
	tags := service.NewTagService(store, cache.Nop{}, 0, cfg.App.TopTags)
	rels := service.NewRelationshipService(store, fans, mailer)
	posts := service.NewPostService(store, tags, mailer, cfg.App.PostsPerPage)
	comments := service.NewCommentService(store, mailer, cfg.App.Admins, cfg.App.CommentsPerPage)
	accounts := service.NewAccountService(store, auth.NewTokenManager(cfg.JWT), tags, fans, mailer, cfg.App.PostsPerPage)

	// 所有种子用户共用同一个密码哈希
	hash := string(must(bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)))
	stamp := time.Now().Unix()
	celeb := model.NewUser(fmt.Sprintf("celeb_%d", stamp), fmt.Sprintf("celeb_%d@example.com", stamp))
	celeb.Password = hash
	celeb.ReceiveEmail = true
	check(store.Users.Create(ctx, celeb))

	users := make([]*model.User, n)
	for i := range users {
		u := model.NewUser(fmt.Sprintf("u%d_%d", stamp, i), fmt.Sprintf("u%d_%d@example.com", stamp, i))
		u.Password = hash
		users[i] = u
	}
	check(db.WithContext(ctx).CreateInBatches(users, 500).Error)
	fmt.Printf("seeded %d users\n", n)

	identities := make([]policy.Identity, n)
	for i, u := range users {
		identities[i] = must(accounts.Identify(ctx, u.ID))
	}

	// 并发关注
	feed := make(chan int, n)
	for i := 0; i < n; i++ {
		feed <- i
	}
	close(feed)
	latCh := make(chan time.Duration, n)
	done := make(chan struct{}, conc)
	t0 := time.Now()
	for w := 0; w < conc; w++ {
		go func() {
			for i := range feed {
				st := time.Now()
				if err := rels.Follow(ctx, identities[i], celeb.ID); err != nil {
					fmt.Println("follow:", err)
				}
				latCh <- time.Since(st)
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < conc; w++ {
		<-done
	}
	close(latCh)
	followDur := time.Since(t0)
	followLat := make([]time.Duration, 0, n)
	for d := range latCh {
		followLat = append(followLat, d)
	}

	// 大 V 回关前 10% 的粉丝，形成好友关系
	celebID := must(accounts.Identify(ctx, celeb.ID))
	for i := 0; i < n/10; i++ {
		_ = rels.Follow(ctx, celebID, users[i].ID)
	}

	// 发帖、评论、投票
	accessLevels := []model.Access{model.AccessPublic, model.AccessPublic, model.AccessPublic, model.AccessFriends, model.AccessPrivate}
	var postIDs []int64
	for i := 0; i < numPosts; i++ {
		author := celebID
		if i%3 != 0 {
			author = identities[rng.Intn(n)]
		}
		raw := tagPool[rng.Intn(len(tagPool))] + ", " + tagPool[rng.Intn(len(tagPool))]
		p, err := posts.Submit(ctx, author, service.PostInput{
			Title:       fmt.Sprintf("post %d", i),
			Link:        fmt.Sprintf("http://example.com/%d/%d", stamp, i),
			Description: "seeded",
			Tags:        raw,
			Access:      accessLevels[rng.Intn(len(accessLevels))],
		})
		if err != nil {
			fmt.Println("submit:", err)
			continue
		}
		postIDs = append(postIDs, p.ID)
	}
	var numComments, numVotes int
	for _, pid := range postIDs {
		var parent *int64
		for j := rng.Intn(5); j > 0; j-- {
			c, err := comments.Add(ctx, identities[rng.Intn(n)], pid, parent, service.CommentInput{Comment: "seeded comment"})
			if err != nil {
				continue
			}
			numComments++
			if rng.Intn(2) == 0 {
				parent = &c.ID
			}
		}
		for j := rng.Intn(8); j > 0; j-- {
			delta := ledger.Up
			if rng.Intn(4) == 0 {
				delta = ledger.Down
			}
			if res, err := posts.Vote(ctx, identities[rng.Intn(n)], pid, delta); err == nil && res.Applied {
				numVotes++
			}
		}
	}
	check(tags.Warm(ctx))

	// 粉丝分页：首次为冷缓存，其余命中
	var cold time.Duration
	pageLat := make([]time.Duration, 0, 100)
	for i := 0; i < 100; i++ {
		st := time.Now()
		if _, err := rels.ListFans(ctx, celeb.ID, 1+i%5, pageSize); err != nil {
			fmt.Println("list fans:", err)
		}
		d := time.Since(st)
		if i == 0 {
			cold = d
			continue
		}
		pageLat = append(pageLat, d)
	}

	fmt.Printf("N=%d, CONC=%d, PAGE=%d\n", n, conc, pageSize)
	fmt.Printf("follow total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		followDur, followDur/time.Duration(n), pct(followLat, 0.50), pct(followLat, 0.95), pct(followLat, 0.99))
	fmt.Printf("posts=%d comments=%d votes=%d\n", len(postIDs), numComments, numVotes)
	fmt.Printf("fans page cold: %v, warm p50: %v, p99: %v (redis=%v)\n", cold, pct(pageLat, 0.50), pct(pageLat, 0.99), fans != nil)
}
