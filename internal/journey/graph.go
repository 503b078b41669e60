package journey

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Node types in a story graph.
const (
	NodeStory  = "story"
	NodeChoice = "choice"
)

var (
	// ErrNodeNotFound is returned when a node id is not in the graph.
	ErrNodeNotFound = errors.New("node not found")
	// ErrInvalidEdge is returned when an edge would violate the graph shape.
	ErrInvalidEdge = errors.New("invalid edge")
)

// Node is one element of a story graph. Story nodes carry generated passages;
// choice nodes carry the option text a reader can pick.
type Node struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Label       string    `json:"label,omitempty"`
	Story       string    `json:"story,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	ImagePrompt string    `json:"image_prompt,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Edge is a directed link between two nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a branching story: story and choice nodes strictly alternate along
// every path, every node has at most one parent, and a choice leads to at most
// one story. The shape is a tree rooted at the opening story node.
type Graph struct {
	nodes    map[string]*Node
	order    []string
	parent   map[string]string
	children map[string][]string
}

// NewGraph creates an empty story graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		parent:   make(map[string]string),
		children: make(map[string][]string),
	}
}

// AddStoryNode adds a story node holding a generated passage.
func (g *Graph) AddStoryNode(story string) *Node {
	n := &Node{
		ID:        "story_" + uuid.NewString(),
		Type:      NodeStory,
		Story:     story,
		CreatedAt: time.Now().UTC(),
	}
	g.insert(n)
	return n
}

// AddChoiceNode adds a choice node with the given option text.
func (g *Graph) AddChoiceNode(label string) *Node {
	n := &Node{
		ID:        "choice_" + uuid.NewString(),
		Type:      NodeChoice,
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}
	g.insert(n)
	return n
}

func (g *Graph) insert(n *Node) {
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
}

// AddEdge links source to target, enforcing the graph shape: edges go
// story to choice or choice to story, a node gains at most one parent, and a
// choice leads to at most one story.
func (g *Graph) AddEdge(source, target string) error {
	src, ok := g.nodes[source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	dst, ok := g.nodes[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}

	if src.Type == dst.Type {
		return fmt.Errorf("%w: %s -> %s nodes must alternate", ErrInvalidEdge, src.Type, dst.Type)
	}
	if _, has := g.parent[target]; has {
		return fmt.Errorf("%w: %s already has a parent", ErrInvalidEdge, target)
	}
	if src.Type == NodeChoice && len(g.children[source]) > 0 {
		return fmt.Errorf("%w: choice %s already resolved", ErrInvalidEdge, source)
	}

	// Reject edges that would close a cycle through the root.
	for cur := source; cur != ""; cur = g.parent[cur] {
		if cur == target {
			return fmt.Errorf("%w: %s is an ancestor of %s", ErrInvalidEdge, target, source)
		}
	}

	g.parent[target] = source
	g.children[source] = append(g.children[source], target)
	return nil
}

// Node returns a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Parent returns the parent of a node, if it has one.
func (g *Graph) Parent(id string) (*Node, bool) {
	pid, ok := g.parent[id]
	if !ok {
		return nil, false
	}
	return g.nodes[pid], true
}

// Children returns the children of a node in insertion order.
func (g *Graph) Children(id string) []*Node {
	ids := g.children[id]
	out := make([]*Node, 0, len(ids))
	for _, cid := range ids {
		out = append(out, g.nodes[cid])
	}
	return out
}

// SetLabel replaces the label of a node.
func (g *Graph) SetLabel(id, label string) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.Label = label
	return nil
}

// Len returns the total number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// StoryCount returns the number of story nodes.
func (g *Graph) StoryCount() int {
	count := 0
	for _, id := range g.order {
		if g.nodes[id].Type == NodeStory {
			count++
		}
	}
	return count
}

// LastStoryNode returns the most recently added story node, or nil if none.
func (g *Graph) LastStoryNode() *Node {
	for i := len(g.order) - 1; i >= 0; i-- {
		if n := g.nodes[g.order[i]]; n.Type == NodeStory {
			return n
		}
	}
	return nil
}

// LastStoryTime returns the creation time of the most recent story node.
func (g *Graph) LastStoryTime() time.Time {
	if n := g.LastStoryNode(); n != nil {
		return n.CreatedAt
	}
	return time.Time{}
}

// PathTo returns the nodes from the root down to id, inclusive.
func (g *Graph) PathTo(id string) ([]*Node, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	var path []*Node
	for cur := id; cur != ""; {
		path = append(path, g.nodes[cur])
		cur = g.parent[cur]
	}
	// Reverse to root-first order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

type graphJSON struct {
	Nodes []*Node `json:"nodes"`
	Links []Edge  `json:"links"`
}

// MarshalJSON serializes the graph in node-link form.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{
		Nodes: make([]*Node, 0, len(g.order)),
		Links: make([]Edge, 0, len(g.parent)),
	}
	for _, id := range g.order {
		out.Nodes = append(out.Nodes, g.nodes[id])
	}
	for _, id := range g.order {
		for _, child := range g.children[id] {
			out.Links = append(out.Links, Edge{Source: id, Target: child})
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the graph from node-link form, re-validating the
// shape invariants on every edge.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	g.nodes = make(map[string]*Node, len(in.Nodes))
	g.order = make([]string, 0, len(in.Nodes))
	g.parent = make(map[string]string)
	g.children = make(map[string][]string)

	for _, n := range in.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node without id")
		}
		if n.Type != NodeStory && n.Type != NodeChoice {
			return fmt.Errorf("node %s has unknown type %q", n.ID, n.Type)
		}
		if _, dup := g.nodes[n.ID]; dup {
			return fmt.Errorf("duplicate node id %s", n.ID)
		}
		g.insert(n)
	}
	for _, e := range in.Links {
		if err := g.AddEdge(e.Source, e.Target); err != nil {
			return err
		}
	}
	return nil
}
