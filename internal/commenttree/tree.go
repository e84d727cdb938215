// Package commenttree 把帖子下的扁平评论列表还原为带深度的树。
package commenttree

import (
	"sort"

	"github.com/d60-Lab/newsmeme/internal/model"
)

type Node struct {
	Comment  *model.Comment `json:"comment"`
	Depth    int            `json:"depth"`
	Children []*Node        `json:"children,omitempty"`
}

// Build 一次遍历建立 id 与父子索引，再从根节点深度优先标注深度。
// 子节点按 id 升序；父评论不在输入中的评论无法从根到达，不出现在结果里。
func Build(comments []*model.Comment) []*Node {
	sorted := make([]*model.Comment, len(comments))
	copy(sorted, comments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	children := make(map[int64][]*model.Comment, len(sorted))
	roots := make([]*model.Comment, 0)
	for _, c := range sorted {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	var build func(c *model.Comment, depth int) *Node
	build = func(c *model.Comment, depth int) *Node {
		n := &Node{Comment: c, Depth: depth}
		for _, child := range children[c.ID] {
			n.Children = append(n.Children, build(child, depth+1))
		}
		return n
	}

	out := make([]*Node, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r, 0))
	}
	return out
}

// Subtree 以 rootID 为根的子树中全部评论 id（含自身），rootID 不存在时返回 nil
func Subtree(comments []*model.Comment, rootID int64) []int64 {
	byParent := make(map[int64][]int64, len(comments))
	found := false
	for _, c := range comments {
		if c.ID == rootID {
			found = true
		}
		if c.ParentID != nil {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c.ID)
		}
	}
	if !found {
		return nil
	}
	ids := []int64{rootID}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, byParent[ids[i]]...)
	}
	return ids
}
