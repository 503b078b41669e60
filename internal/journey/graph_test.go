package journey

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func TestAddNodesAssignTypedIDs(t *testing.T) {
	g := NewGraph()

	story := g.AddStoryNode("once upon a time")
	choice := g.AddChoiceNode("open the door")

	if !strings.HasPrefix(story.ID, "story_") {
		t.Errorf("story id = %q, want story_ prefix", story.ID)
	}
	if !strings.HasPrefix(choice.ID, "choice_") {
		t.Errorf("choice id = %q, want choice_ prefix", choice.ID)
	}
	if story.CreatedAt.IsZero() {
		t.Error("story CreatedAt not set")
	}
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
}

func TestAddEdgeEnforcesAlternation(t *testing.T) {
	g := NewGraph()
	s1 := g.AddStoryNode("one")
	s2 := g.AddStoryNode("two")
	c1 := g.AddChoiceNode("left")
	c2 := g.AddChoiceNode("right")

	if err := g.AddEdge(s1.ID, c1.ID); err != nil {
		t.Fatalf("story->choice AddEdge() error = %v", err)
	}
	if err := g.AddEdge(c1.ID, s2.ID); err != nil {
		t.Fatalf("choice->story AddEdge() error = %v", err)
	}

	if err := g.AddEdge(s1.ID, s2.ID); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("story->story AddEdge() error = %v, want ErrInvalidEdge", err)
	}
	if err := g.AddEdge(c1.ID, c2.ID); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("choice->choice AddEdge() error = %v, want ErrInvalidEdge", err)
	}
}

func TestAddEdgeSingleParent(t *testing.T) {
	g := NewGraph()
	s1 := g.AddStoryNode("one")
	s2 := g.AddStoryNode("two")
	c := g.AddChoiceNode("pick")

	if err := g.AddEdge(s1.ID, c.ID); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}
	if err := g.AddEdge(s2.ID, c.ID); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("second parent AddEdge() error = %v, want ErrInvalidEdge", err)
	}
}

func TestAddEdgeChoiceResolvesOnce(t *testing.T) {
	g := NewGraph()
	s1 := g.AddStoryNode("one")
	c := g.AddChoiceNode("pick")
	s2 := g.AddStoryNode("two")
	s3 := g.AddStoryNode("three")

	if err := g.AddEdge(s1.ID, c.ID); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}
	if err := g.AddEdge(c.ID, s2.ID); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}
	if err := g.AddEdge(c.ID, s3.ID); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("second resolution AddEdge() error = %v, want ErrInvalidEdge", err)
	}
}

func TestAddEdgeRejectsCycle(t *testing.T) {
	g := NewGraph()
	s := g.AddStoryNode("root")
	c := g.AddChoiceNode("loop")

	if err := g.AddEdge(s.ID, c.ID); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}
	if err := g.AddEdge(c.ID, s.ID); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("cycle AddEdge() error = %v, want ErrInvalidEdge", err)
	}
}

func TestAddEdgeUnknownNode(t *testing.T) {
	g := NewGraph()
	s := g.AddStoryNode("root")

	if err := g.AddEdge(s.ID, "choice_missing"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("AddEdge() error = %v, want ErrNodeNotFound", err)
	}
	if err := g.AddEdge("story_missing", s.ID); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("AddEdge() error = %v, want ErrNodeNotFound", err)
	}
}

func buildBranchingGraph(t *testing.T) (*Graph, []*Node) {
	t.Helper()

	g := NewGraph()
	root := g.AddStoryNode("the journey begins")
	left := g.AddChoiceNode("go left")
	right := g.AddChoiceNode("go right")
	leftStory := g.AddStoryNode("you went left")

	for _, e := range []Edge{
		{root.ID, left.ID},
		{root.ID, right.ID},
		{left.ID, leftStory.ID},
	} {
		if err := g.AddEdge(e.Source, e.Target); err != nil {
			t.Fatalf("AddEdge(%s, %s) error = %v", e.Source, e.Target, err)
		}
	}
	return g, []*Node{root, left, right, leftStory}
}

func TestPathTo(t *testing.T) {
	g, nodes := buildBranchingGraph(t)
	root, left, _, leftStory := nodes[0], nodes[1], nodes[2], nodes[3]

	path, err := g.PathTo(leftStory.ID)
	if err != nil {
		t.Fatalf("PathTo() error = %v", err)
	}
	want := []string{root.ID, left.ID, leftStory.ID}
	if len(path) != len(want) {
		t.Fatalf("PathTo() length = %d, want %d", len(path), len(want))
	}
	for i, n := range path {
		if n.ID != want[i] {
			t.Errorf("path[%d] = %s, want %s", i, n.ID, want[i])
		}
	}

	if _, err := g.PathTo("story_missing"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("PathTo() error = %v, want ErrNodeNotFound", err)
	}
}

func TestStoryCountAndLastStoryNode(t *testing.T) {
	g, nodes := buildBranchingGraph(t)

	if got := g.StoryCount(); got != 2 {
		t.Errorf("StoryCount() = %d, want 2", got)
	}
	if last := g.LastStoryNode(); last == nil || last.ID != nodes[3].ID {
		t.Errorf("LastStoryNode() = %v, want %s", last, nodes[3].ID)
	}
	if g.LastStoryTime().IsZero() {
		t.Error("LastStoryTime() is zero")
	}

	empty := NewGraph()
	if empty.LastStoryNode() != nil {
		t.Error("LastStoryNode() on empty graph should be nil")
	}
}

func TestGraphMarshalRoundtrip(t *testing.T) {
	g, nodes := buildBranchingGraph(t)
	leftStory := nodes[3]
	leftStory.ImageURL = "http://images/1.png"
	leftStory.ImagePrompt = "a fork in the road"

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var restored Graph
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if restored.Len() != g.Len() {
		t.Fatalf("restored Len() = %d, want %d", restored.Len(), g.Len())
	}
	if restored.StoryCount() != g.StoryCount() {
		t.Errorf("restored StoryCount() = %d, want %d", restored.StoryCount(), g.StoryCount())
	}

	got, ok := restored.Node(leftStory.ID)
	if !ok {
		t.Fatalf("restored graph missing node %s", leftStory.ID)
	}
	if got.Story != leftStory.Story || got.ImageURL != leftStory.ImageURL || got.ImagePrompt != leftStory.ImagePrompt {
		t.Errorf("restored node = %+v, want %+v", got, leftStory)
	}

	parent, ok := restored.Parent(leftStory.ID)
	if !ok || parent.ID != nodes[1].ID {
		t.Errorf("restored Parent() = %v, want %s", parent, nodes[1].ID)
	}
	if children := restored.Children(nodes[0].ID); len(children) != 2 {
		t.Errorf("restored root has %d children, want 2", len(children))
	}
}

func TestGraphUnmarshalRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown node type", `{"nodes":[{"id":"x_1","type":"mystery"}],"links":[]}`},
		{"duplicate id", `{"nodes":[{"id":"story_1","type":"story"},{"id":"story_1","type":"story"}],"links":[]}`},
		{"bad link", `{"nodes":[{"id":"story_1","type":"story"},{"id":"story_2","type":"story"}],"links":[{"source":"story_1","target":"story_2"}]}`},
		{"link to missing node", `{"nodes":[{"id":"story_1","type":"story"}],"links":[{"source":"story_1","target":"choice_9"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Graph
			if err := json.Unmarshal([]byte(tt.data), &g); err == nil {
				t.Error("Unmarshal() error = nil, want error")
			}
		})
	}
}

// checkShape walks the whole graph and fails on any violation of the tree
// shape: alternating node types along edges, exactly one parentless story node
// as the root, at most one child per choice, and no cycles.
func checkShape(t *testing.T, g *Graph) {
	t.Helper()

	roots := 0
	for _, id := range g.order {
		n := g.nodes[id]
		pid, hasParent := g.parent[id]
		if hasParent {
			if p := g.nodes[pid]; p.Type == n.Type {
				t.Fatalf("edge %s -> %s joins two %s nodes", pid, id, n.Type)
			}
		} else if n.Type == NodeStory {
			roots++
		} else {
			t.Fatalf("choice %s has no parent", id)
		}
		if n.Type == NodeChoice && len(g.children[id]) > 1 {
			t.Fatalf("choice %s resolved %d times", id, len(g.children[id]))
		}
		for _, cid := range g.children[id] {
			if g.parent[cid] != id {
				t.Fatalf("child link %s -> %s has no matching parent link", id, cid)
			}
		}
	}
	if g.Len() > 0 && roots != 1 {
		t.Fatalf("graph has %d parentless story nodes, want exactly 1", roots)
	}
	for _, id := range g.order {
		steps := 0
		for cur := id; cur != ""; cur = g.parent[cur] {
			steps++
			if steps > g.Len() {
				t.Fatalf("parent chain from %s cycles", id)
			}
		}
	}
}

// offerChoices attaches one to three fresh choice nodes under a story node and
// returns their ids.
func offerChoices(t *testing.T, g *Graph, storyID string, rng *rand.Rand) []string {
	t.Helper()

	n := 1 + rng.Intn(3)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		c := g.AddChoiceNode(fmt.Sprintf("option %d", i))
		if err := g.AddEdge(storyID, c.ID); err != nil {
			t.Fatalf("AddEdge() error = %v", err)
		}
		ids = append(ids, c.ID)
	}
	return ids
}

func TestGraphRandomSequencesKeepShape(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		g := NewGraph()
		root := g.AddStoryNode("the journey begins")

		stories := []string{root.ID}
		open := offerChoices(t, g, root.ID, rng)
		var resolved []string
		checkShape(t, g)

		resolve := func(choiceID string) {
			s := g.AddStoryNode("a new passage")
			if err := g.AddEdge(choiceID, s.ID); err != nil {
				t.Fatalf("resolving open choice: %v", err)
			}
			stories = append(stories, s.ID)
			resolved = append(resolved, choiceID)
			open = append(open, offerChoices(t, g, s.ID, rng)...)
		}

		for step := 0; step < 40; step++ {
			switch op := rng.Intn(4); {
			case op == 0 || len(open) == 0:
				// Free-form continuation: a reader-authored choice under the
				// latest passage, resolved immediately.
				last := g.LastStoryNode()
				c := g.AddChoiceNode("something else entirely")
				if err := g.AddEdge(last.ID, c.ID); err != nil {
					t.Fatalf("attaching reader choice: %v", err)
				}
				resolve(c.ID)
			case op == 1:
				i := rng.Intn(len(open))
				choiceID := open[i]
				open = append(open[:i], open[i+1:]...)
				resolve(choiceID)
			case op == 2:
				// Another option offered under a random existing passage.
				open = append(open, offerChoices(t, g, stories[rng.Intn(len(stories))], rng)...)
			default:
				// Invalid requests must fail without changing the shape.
				edges := len(g.parent)
				var err error
				switch rng.Intn(3) {
				case 0:
					err = g.AddEdge(stories[rng.Intn(len(stories))], stories[rng.Intn(len(stories))])
				case 1:
					all := append(append([]string{}, open...), resolved...)
					err = g.AddEdge(all[rng.Intn(len(all))], root.ID)
				default:
					if len(resolved) == 0 {
						continue
					}
					err = g.AddEdge(stories[rng.Intn(len(stories))], resolved[rng.Intn(len(resolved))])
				}
				if !errors.Is(err, ErrInvalidEdge) {
					t.Fatalf("invalid AddEdge() error = %v, want ErrInvalidEdge", err)
				}
				if len(g.parent) != edges {
					t.Fatal("failed AddEdge() still mutated the graph")
				}
			}
			checkShape(t, g)
		}

		// The shape must survive a serialization roundtrip, which re-validates
		// every edge on the way back in.
		data, err := json.Marshal(g)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var restored Graph
		if err := json.Unmarshal(data, &restored); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if restored.Len() != g.Len() {
			t.Fatalf("restored Len() = %d, want %d", restored.Len(), g.Len())
		}
		checkShape(t, &restored)
	}
}

func TestSetLabel(t *testing.T) {
	g := NewGraph()
	c := g.AddChoiceNode("original")

	if err := g.SetLabel(c.ID, "rewritten"); err != nil {
		t.Fatalf("SetLabel() error = %v", err)
	}
	if got, _ := g.Node(c.ID); got.Label != "rewritten" {
		t.Errorf("label = %q, want %q", got.Label, "rewritten")
	}
	if err := g.SetLabel("choice_missing", "x"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("SetLabel() error = %v, want ErrNodeNotFound", err)
	}
}
