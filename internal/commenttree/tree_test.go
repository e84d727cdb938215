package commenttree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsmeme/internal/model"
)

func comment(id int64, parent int64) *model.Comment {
	c := &model.Comment{ID: id}
	if parent != 0 {
		p := parent
		c.ParentID = &p
	}
	return c
}

type flat struct {
	id    int64
	depth int
}

// shape 先序展开为 (id, depth)
func shape(nodes []*Node) []flat {
	var out []flat
	var walk func([]*Node)
	walk = func(ns []*Node) {
		for _, n := range ns {
			out = append(out, flat{n.Comment.ID, n.Depth})
			walk(n.Children)
		}
	}
	walk(nodes)
	return out
}

func TestBuild(t *testing.T) {
	comments := []*model.Comment{comment(1, 0), comment(2, 1), comment(3, 1), comment(4, 2)}

	roots := Build(comments)
	require.Len(t, roots, 1)
	assert.Equal(t, int64(1), roots[0].Comment.ID)
	require.Len(t, roots[0].Children, 2)
	assert.Equal(t, int64(2), roots[0].Children[0].Comment.ID)
	assert.Equal(t, int64(3), roots[0].Children[1].Comment.ID)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(t, int64(4), roots[0].Children[0].Children[0].Comment.ID)

	assert.Equal(t, []flat{{1, 0}, {2, 1}, {4, 2}, {3, 1}}, shape(roots))
}

func TestBuildUnorderedInput(t *testing.T) {
	comments := []*model.Comment{comment(4, 2), comment(3, 1), comment(5, 0), comment(2, 1), comment(1, 0)}
	assert.Equal(t, []flat{{1, 0}, {2, 1}, {4, 2}, {3, 1}, {5, 0}}, shape(Build(comments)))
}

func TestBuildOmitsOrphans(t *testing.T) {
	comments := []*model.Comment{comment(1, 0), comment(7, 99)}
	assert.Equal(t, []flat{{1, 0}}, shape(Build(comments)))
}

func TestBuildEmpty(t *testing.T) {
	assert.Empty(t, Build(nil))
}

func TestSubtree(t *testing.T) {
	comments := []*model.Comment{comment(1, 0), comment(2, 1), comment(3, 1), comment(4, 2), comment(5, 0)}

	assert.ElementsMatch(t, []int64{2, 4}, Subtree(comments, 2))
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, Subtree(comments, 1))
	assert.Equal(t, []int64{5}, Subtree(comments, 5))
	assert.Nil(t, Subtree(comments, 42))
}
