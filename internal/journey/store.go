package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a journey id has no saved file.
	ErrNotFound = errors.New("journey not found")
	// ErrCorpusUnavailable is returned when a saved journey references a
	// corpus that is no longer registered or active.
	ErrCorpusUnavailable = errors.New("journey corpus is unavailable")
)

const filenameSlugLen = 25

// Meta is the journey header saved alongside the graph.
type Meta struct {
	Username           string    `json:"username"`
	JourneyID          string    `json:"journey_id"`
	Timestamp          time.Time `json:"timestamp"`
	InitialPrompt      string    `json:"initial_prompt"`
	LastPrompt         string    `json:"last_prompt"`
	Persona            string    `json:"persona,omitempty"`
	CorpusName         string    `json:"corpus_name"`
	StoryNodeCount     int       `json:"story_node_count"`
	LastStoryTimestamp time.Time `json:"last_story_timestamp"`
}

// Journey is a saved branching story: metadata plus the node graph.
type Journey struct {
	Meta  Meta
	Graph *Graph

	filename string
}

// NewJourney starts an empty journey for a user.
func NewJourney(username, corpusName, persona, initialPrompt string) *Journey {
	return &Journey{
		Meta: Meta{
			Username:      username,
			JourneyID:     uuid.NewString(),
			Timestamp:     time.Now().UTC(),
			InitialPrompt: initialPrompt,
			LastPrompt:    initialPrompt,
			Persona:       persona,
			CorpusName:    corpusName,
		},
		Graph: NewGraph(),
	}
}

// CorpusChecker validates that a journey's corpus is registered and active.
type CorpusChecker interface {
	Usable(ctx context.Context, name string) (bool, error)
}

// Store persists journeys as one JSON file per journey under a per-user
// directory. Files are written atomically so a crash mid-save never corrupts
// an existing journey.
type Store struct {
	dir     string
	corpora CorpusChecker
}

// NewStore creates a journey store rooted at dir.
func NewStore(dir string, corpora CorpusChecker) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journeys directory: %w", err)
	}
	return &Store{dir: dir, corpora: corpora}, nil
}

type journeyFile struct {
	Meta  Meta   `json:"meta"`
	Graph *Graph `json:"graph"`
}

// Save writes a journey to disk. The filename is assigned on first save from
// the journey timestamp and a slug of the initial prompt, then kept stable so
// later saves overwrite in place.
func (s *Store) Save(j *Journey) error {
	userDir := filepath.Join(s.dir, j.Meta.Username)
	if err := os.MkdirAll(userDir, 0755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}

	if j.filename == "" {
		j.filename = j.Meta.Timestamp.Format("20060102_150405") + "_" + slug(j.Meta.InitialPrompt) + ".json"
	}

	j.Meta.StoryNodeCount = j.Graph.StoryCount()
	j.Meta.LastStoryTimestamp = j.Graph.LastStoryTime()

	data, err := json.MarshalIndent(journeyFile{Meta: j.Meta, Graph: j.Graph}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode journey: %w", err)
	}
	return writeFileAtomic(filepath.Join(userDir, j.filename), data)
}

// Load reads a journey by id, validating that its corpus can still serve
// requests. Returns ErrNotFound when no file matches, ErrCorpusUnavailable
// when the corpus is gone or inactive.
func (s *Store) Load(ctx context.Context, username, journeyID string) (*Journey, error) {
	j, err := s.find(username, journeyID)
	if err != nil {
		return nil, err
	}

	usable, err := s.corpora.Usable(ctx, j.Meta.CorpusName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorpusUnavailable, j.Meta.CorpusName)
	}
	if !usable {
		return nil, fmt.Errorf("%w: %s", ErrCorpusUnavailable, j.Meta.CorpusName)
	}
	return j, nil
}

// List returns the metadata of a user's journeys, newest first.
func (s *Store) List(username string) ([]Meta, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journeys directory: %w", err)
	}

	var metas []Meta
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		j, err := s.read(username, e.Name())
		if err != nil {
			// A corrupt file hides one journey, not the whole list.
			continue
		}
		metas = append(metas, j.Meta)
	}

	sort.Slice(metas, func(a, b int) bool {
		return lastActivity(metas[a]).After(lastActivity(metas[b]))
	})
	return metas, nil
}

// lastActivity is when the journey last grew a passage, or its creation time
// for journeys that never got one.
func lastActivity(m Meta) time.Time {
	if !m.LastStoryTimestamp.IsZero() {
		return m.LastStoryTimestamp
	}
	return m.Timestamp
}

// Delete removes a journey by id.
func (s *Store) Delete(username, journeyID string) error {
	j, err := s.find(username, journeyID)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, username, j.filename)); err != nil {
		return fmt.Errorf("failed to delete journey: %w", err)
	}
	return nil
}

func (s *Store) find(username, journeyID string) (*Journey, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, journeyID)
		}
		return nil, fmt.Errorf("failed to read journeys directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		j, err := s.read(username, e.Name())
		if err != nil {
			continue
		}
		if j.Meta.JourneyID == journeyID {
			return j, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, journeyID)
}

func (s *Store) read(username, filename string) (*Journey, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, username, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read journey file: %w", err)
	}

	var file journeyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode journey file %s: %w", filename, err)
	}
	if file.Graph == nil {
		file.Graph = NewGraph()
	}
	return &Journey{Meta: file.Meta, Graph: file.Graph, filename: filename}, nil
}

// slug derives a filename fragment from the initial prompt: the first 25
// characters with spaces and path separators replaced.
func slug(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > filenameSlugLen {
		runes = runes[:filenameSlugLen]
	}
	out := strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' {
			return '_'
		}
		return r
	}, string(runes))
	if out == "" {
		out = "untitled"
	}
	return out
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".journey-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
