// Package narrative turns a reader request into the next passage of a
// branching story: it loads or creates the journey, retrieves background
// material from the corpus, streams the generated passage, and extends the
// story graph with the passage and its follow-up choices.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storyweaver/internal/contextutil"
	"storyweaver/internal/journey"
	"storyweaver/internal/llm"
	"storyweaver/internal/persona"
)

const (
	// A passage longer than this gets an illustration, generated concurrently
	// while the rest of the passage streams.
	illustrationThreshold = 1200

	// Choices are derived from the tail of the passage only.
	choiceWindowChars = 4000
	choiceCount       = 3

	defaultTemperature = 0.8
	queryMaxTokens     = 60
	sceneMaxTokens     = 100
	choicesMaxTokens   = 300
)

var (
	// ErrChoiceNotFound is returned when a request names a choice id that is
	// not in the journey graph.
	ErrChoiceNotFound = errors.New("choice not found")
	// ErrChoiceResolved is returned when the named choice already leads to a
	// story passage.
	ErrChoiceResolved = errors.New("choice already resolved")
	// ErrEmptyStory is returned when the model produced no passage text.
	ErrEmptyStory = errors.New("model returned an empty story")
)

const defaultSystemPrompt = "You are a storyteller. Continue the reader's story in vivid second-person prose, staying consistent with everything that happened before. Ground details in the background material when it is relevant. Write the passage only, with no headings or meta commentary."

// Request describes one story generation call. Exactly one of three shapes is
// valid: a new journey (NewJourney with Prompt and CorpusName), picking a
// choice (JourneyID and ChoiceID), or a free continuation (JourneyID and
// Prompt).
type Request struct {
	Username    string
	JourneyID   string
	Prompt      string
	ChoiceID    string
	NewJourney  bool
	StoryLength string // "short", "medium" or "long"
	Persona     string
	CorpusName  string
}

// Pipeline runs story generation end to end. Requests touching the same
// journey are serialized; everything else runs concurrently.
type Pipeline struct {
	textGen  TextGenerator
	images   ImageGenerator
	searcher Retriever
	journeys JourneyStore
	personas *persona.Set
	locks    *lockTable
}

// New creates a Pipeline.
func New(textGen TextGenerator, images ImageGenerator, searcher Retriever, journeys JourneyStore, personas *persona.Set) *Pipeline {
	return &Pipeline{
		textGen:  textGen,
		images:   images,
		searcher: searcher,
		journeys: journeys,
		personas: personas,
		locks:    newLockTable(),
	}
}

type illustration struct {
	url    string
	prompt string
	err    error
}

type state struct {
	req  Request
	emit EmitFunc

	j        *journey.Journey
	parentID string // node the new passage attaches under, "" for the root
	prompt   string // effective generation prompt
	query    string // distilled retrieval query

	prevImagePrompt string

	background []string
	messages   []llm.Message

	story     string
	storyNode *journey.Node
	choices   []Choice

	illust      chan illustration
	imageURL    string
	imagePrompt string
}

type stage struct {
	name string
	fn   func(ctx context.Context, st *state) error
}

// Run executes the pipeline for one request, emitting progress events as it
// goes. On success the final event is EventEnd with the journey id and the
// next choices; on failure the error is returned and no end event is sent.
func (p *Pipeline) Run(ctx context.Context, req Request, emit EmitFunc) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validate(req); err != nil {
		return err
	}

	lockKey := req.Username
	if !req.NewJourney && req.JourneyID != "" {
		lockKey = req.Username + "/" + req.JourneyID
	}
	release := p.locks.acquire(lockKey)
	defer release()

	st := &state{req: req, emit: emit}
	stages := []stage{
		{"prepare_journey", p.prepareJourney},
		{"formulate_query", p.formulateQuery},
		{"retrieve_background", p.retrieveBackground},
		{"compose_prompt", p.composePrompt},
		{"generate_story", p.generateStory},
		{"save_story", p.saveStory},
		{"generate_choices", p.generateChoices},
		{"save_choices", p.saveChoices},
	}

	for _, s := range stages {
		start := time.Now()
		if err := s.fn(ctx, st); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		logger.DebugContext(ctx, "stage completed",
			slog.String("stage", s.name),
			slog.Duration("elapsed", time.Since(start)),
		)
	}

	return emit(Event{
		Type:      EventEnd,
		JourneyID: st.j.Meta.JourneyID,
		NodeID:    st.storyNode.ID,
		ImageURL:  st.imageURL,
		Choices:   st.choices,
		Graph:     st.j.Graph,
	})
}

func validate(req Request) error {
	if req.Username == "" {
		return errors.New("username is required")
	}
	if req.NewJourney {
		if req.Prompt == "" {
			return errors.New("a new journey requires a prompt")
		}
		if req.CorpusName == "" {
			return errors.New("a new journey requires a corpus")
		}
		return nil
	}
	if req.JourneyID == "" {
		return errors.New("journey id is required to continue a story")
	}
	if req.ChoiceID == "" && req.Prompt == "" {
		return errors.New("continuing a story requires a choice or a prompt")
	}
	return nil
}

// prepareJourney resolves the request into a journey, the node the new
// passage attaches under, and the effective prompt. A free-form continuation
// becomes a reader-authored choice under the latest passage, keeping story
// and choice nodes alternating.
func (p *Pipeline) prepareJourney(ctx context.Context, st *state) error {
	if st.req.NewJourney {
		st.j = journey.NewJourney(st.req.Username, st.req.CorpusName, st.req.Persona, st.req.Prompt)
		st.prompt = st.req.Prompt
		return nil
	}

	j, err := p.journeys.Load(ctx, st.req.Username, st.req.JourneyID)
	if err != nil {
		return err
	}
	st.j = j

	if st.req.ChoiceID != "" {
		node, ok := j.Graph.Node(st.req.ChoiceID)
		if !ok || node.Type != journey.NodeChoice {
			return fmt.Errorf("%w: %s", ErrChoiceNotFound, st.req.ChoiceID)
		}
		if len(j.Graph.Children(node.ID)) > 0 {
			return fmt.Errorf("%w: %s", ErrChoiceResolved, node.ID)
		}
		st.parentID = node.ID
		st.prompt = node.Label
		if st.req.Prompt != "" {
			// The reader edited the offered choice text before selecting it;
			// the edit becomes the choice's label and drives retrieval.
			if err := j.Graph.SetLabel(node.ID, st.req.Prompt); err != nil {
				return err
			}
			st.prompt = st.req.Prompt
		}
		if parent, ok := j.Graph.Parent(node.ID); ok {
			st.prevImagePrompt = parent.ImagePrompt
		}
		return nil
	}

	last := j.Graph.LastStoryNode()
	if last == nil {
		return errors.New("journey has no story to continue")
	}
	choice := j.Graph.AddChoiceNode(st.req.Prompt)
	if err := j.Graph.AddEdge(last.ID, choice.ID); err != nil {
		return err
	}
	st.parentID = choice.ID
	st.prompt = st.req.Prompt
	st.prevImagePrompt = last.ImagePrompt
	return nil
}

// formulateQuery distills the effective prompt into a short retrieval query.
// Distillation failure falls back to the raw prompt so retrieval still runs.
func (p *Pipeline) formulateQuery(ctx context.Context, st *state) error {
	logger := contextutil.LoggerFromContext(ctx)

	var out struct {
		Query string `json:"query"`
	}
	err := p.textGen.ChatJSON(ctx, []llm.Message{
		{Role: "user", Content: "Distill the following story prompt into one short search query for finding relevant background passages. Respond as JSON: {\"query\": \"...\"}.\n\nPrompt: " + st.prompt},
	}, llm.ChatParams{MaxTokens: queryMaxTokens}, &out)
	if err != nil || strings.TrimSpace(out.Query) == "" {
		logger.WarnContext(ctx, "query distillation failed, using the raw prompt", slog.Any("error", err))
		st.query = st.prompt
		return nil
	}
	st.query = strings.TrimSpace(out.Query)
	return nil
}

func (p *Pipeline) retrieveBackground(ctx context.Context, st *state) error {
	if err := st.emit(Event{Type: EventMessage, Content: "Consulting the archives..."}); err != nil {
		return err
	}

	results, err := p.searcher.Search(ctx, st.j.Meta.CorpusName, st.query)
	if err != nil {
		return err
	}
	for _, r := range results {
		block := r.BaseText
		if r.Context != "" {
			block = r.Context + "\n" + r.BaseText
		}
		st.background = append(st.background, block)
	}
	return nil
}

func (p *Pipeline) composePrompt(_ context.Context, st *state) error {
	system := defaultSystemPrompt
	if pers, ok := p.personas.Get(st.j.Meta.Persona); ok {
		system = pers.SystemPrompt
	}
	system += lengthInstruction(st.req.StoryLength)

	var sb strings.Builder
	if len(st.background) > 0 {
		sb.WriteString("Background material:\n")
		for _, b := range st.background {
			sb.WriteString("---\n")
			sb.WriteString(b)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if st.parentID != "" {
		path, err := st.j.Graph.PathTo(st.parentID)
		if err != nil {
			return err
		}
		sb.WriteString("The story so far:\n")
		for _, n := range path {
			if n.Type == journey.NodeStory {
				sb.WriteString(n.Story)
				sb.WriteString("\n\n")
			}
		}
		sb.WriteString("Continue the story: ")
	} else {
		sb.WriteString("Begin the story: ")
	}
	sb.WriteString(st.prompt)

	st.messages = []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: sb.String()},
	}
	return nil
}

func lengthInstruction(length string) string {
	switch length {
	case "short":
		return " Keep the passage brief, a few paragraphs at most."
	case "long":
		return " Write a long, richly detailed passage."
	default:
		return ""
	}
}

func (p *Pipeline) generateStory(ctx context.Context, st *state) error {
	temperature := float32(defaultTemperature)
	if pers, ok := p.personas.Get(st.j.Meta.Persona); ok && pers.Temperature > 0 {
		temperature = pers.Temperature
	}

	var sb strings.Builder
	err := p.textGen.StreamChatWithMessages(ctx, st.messages, llm.ChatParams{
		Temperature: temperature,
	}, func(chunk string) error {
		sb.WriteString(chunk)
		if sb.Len() > illustrationThreshold && st.illust == nil {
			p.startIllustration(ctx, st, sb.String())
		}
		return st.emit(Event{Type: EventStoryChunk, Content: chunk})
	})
	if err != nil {
		return err
	}

	st.story = strings.TrimSpace(sb.String())
	if st.story == "" {
		return ErrEmptyStory
	}

	if st.illust != nil {
		p.joinIllustration(ctx, st)
	}
	return nil
}

// startIllustration kicks off illustration generation concurrently with the
// remainder of the passage stream. Failures never fail the story.
func (p *Pipeline) startIllustration(ctx context.Context, st *state, excerpt string) {
	st.illust = make(chan illustration, 1)
	content := "Describe, in one vivid sentence, a single illustration for this story passage. Answer with the description only.\n\n" + excerpt
	if st.prevImagePrompt != "" {
		content += "\n\nThe previous illustration was: " + st.prevImagePrompt + ". Keep the visual style consistent."
	}
	go func() {
		scene, err := p.textGen.ChatWithMessages(ctx, []llm.Message{
			{Role: "user", Content: content},
		}, llm.ChatParams{MaxTokens: sceneMaxTokens})
		if err != nil {
			st.illust <- illustration{err: err}
			return
		}
		scene = strings.TrimSpace(scene)

		url, err := p.images.Generate(ctx, scene)
		if err != nil && ctx.Err() == nil {
			// The illustration is best-effort, but worth one more attempt.
			url, err = p.images.Generate(ctx, scene)
		}
		st.illust <- illustration{url: url, prompt: scene, err: err}
	}()
}

func (p *Pipeline) joinIllustration(ctx context.Context, st *state) {
	logger := contextutil.LoggerFromContext(ctx)

	result := <-st.illust
	if result.err != nil {
		logger.WarnContext(ctx, "illustration failed", slog.Any("error", result.err))
		return
	}
	st.imageURL = result.url
	st.imagePrompt = result.prompt
	_ = st.emit(Event{Type: EventMessage, Content: "Illustration ready", ImageURL: result.url})
}

func (p *Pipeline) saveStory(_ context.Context, st *state) error {
	node := st.j.Graph.AddStoryNode(st.story)
	node.ImageURL = st.imageURL
	node.ImagePrompt = st.imagePrompt
	if st.parentID != "" {
		if err := st.j.Graph.AddEdge(st.parentID, node.ID); err != nil {
			return err
		}
	}
	st.storyNode = node
	st.j.Meta.LastPrompt = st.prompt

	return p.journeys.Save(st.j)
}

func (p *Pipeline) generateChoices(ctx context.Context, st *state) error {
	tail := st.story
	if len(tail) > choiceWindowChars {
		tail = tail[len(tail)-choiceWindowChars:]
	}

	var out struct {
		Choices []string `json:"choices"`
	}
	err := p.textGen.ChatJSON(ctx, []llm.Message{
		{Role: "user", Content: fmt.Sprintf("Here is the latest passage of an interactive story:\n\n%s\n\nPropose exactly %d distinct actions the protagonist could take next. Respond as JSON: {\"choices\": [\"...\", \"...\", \"...\"]}. Each choice is one short imperative sentence.", tail, choiceCount)},
	}, llm.ChatParams{MaxTokens: choicesMaxTokens}, &out)
	if err != nil {
		return fmt.Errorf("failed to generate choices: %w", err)
	}

	if len(out.Choices) != choiceCount {
		return fmt.Errorf("expected %d choices, got %d", choiceCount, len(out.Choices))
	}
	for _, label := range out.Choices {
		if strings.TrimSpace(label) == "" {
			return errors.New("model returned an empty choice")
		}
	}

	for _, label := range out.Choices {
		node := st.j.Graph.AddChoiceNode(strings.TrimSpace(label))
		if err := st.j.Graph.AddEdge(st.storyNode.ID, node.ID); err != nil {
			return err
		}
		st.choices = append(st.choices, Choice{ID: node.ID, Label: node.Label})
	}
	return nil
}

func (p *Pipeline) saveChoices(_ context.Context, st *state) error {
	return p.journeys.Save(st.j)
}
