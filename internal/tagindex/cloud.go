package tagindex

import (
	"math"
	"math/rand"
)

const (
	maxSize   = 10
	minBucket = 0.1
)

// Count 标签与其 public 帖子数
type Count struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	NumPosts int64  `json:"num_posts"`
}

// CloudTag 带显示权重的标签，Size 取值 [1,10]
type CloudTag struct {
	Count
	Size int `json:"size"`
}

// Shuffler 打乱顺序，测试中可替换为固定实现
type Shuffler func(n int, swap func(i, j int))

// Cloud 计算标签云，num_posts 为 0 的标签被忽略
func Cloud(counts []Count, shuffle Shuffler) []CloudTag {
	tags := make([]CloudTag, 0, len(counts))
	for _, c := range counts {
		if c.NumPosts > 0 {
			tags = append(tags, CloudTag{Count: c})
		}
	}
	if len(tags) == 0 {
		return tags
	}

	maxPosts, minPosts := tags[0].NumPosts, tags[0].NumPosts
	for _, t := range tags[1:] {
		if t.NumPosts > maxPosts {
			maxPosts = t.NumPosts
		}
		if t.NumPosts < minPosts {
			minPosts = t.NumPosts
		}
	}

	bucket := float64(maxPosts-minPosts) / maxSize
	if bucket < minBucket {
		bucket = minBucket
	}

	for i := range tags {
		size := int(math.Floor(float64(tags[i].NumPosts) / bucket))
		if size < 1 {
			size = 1
		}
		if size > maxSize {
			size = maxSize
		}
		tags[i].Size = size
	}

	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	shuffle(len(tags), func(i, j int) { tags[i], tags[j] = tags[j], tags[i] })
	return tags
}
