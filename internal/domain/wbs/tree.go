package wbs

import "github.com/taskmaster/wbs/internal/domain/entities"

// BuildTree nests a flat task list. Children keep the relative order they had in the
// input, so callers should pass tasks sorted by (level, sort_order).
//
// A task whose parent is not in the input is returned as a root with Orphan set.
func BuildTree(tasks []entities.Task) []*entities.TaskNode {
	nodes := make(map[int64]*entities.TaskNode, len(tasks))
	for _, t := range tasks {
		nodes[t.ID] = &entities.TaskNode{Task: t, Children: []*entities.TaskNode{}}
	}

	roots := make([]*entities.TaskNode, 0)
	for _, t := range tasks {
		node := nodes[t.ID]
		if t.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*t.ParentID]
		if !ok {
			node.Orphan = true
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	return roots
}

// CountOrphans walks the top level of a built tree and counts promoted orphans.
func CountOrphans(roots []*entities.TaskNode) int {
	n := 0
	for _, r := range roots {
		if r.Orphan {
			n++
		}
	}
	return n
}
