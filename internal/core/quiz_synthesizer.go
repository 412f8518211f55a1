// ABOUTME: QuizSynthesizer turns retrieved passages into validated, source-traceable questions
// ABOUTME: One passage per question; invalid output is regenerated or the quiz is capped and reported
package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/harper/study-standalone/internal/llm"
	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/models"
	"github.com/harper/study-standalone/internal/storage"
	"go.uber.org/zap"
)

const (
	// regenerationRounds is how many extra generation calls repair failed passages
	regenerationRounds = 2
	// seedsPerQuestion bounds the number of seed queries per requested question
	seedsPerQuestion = 2
	maxSeedRunes     = 200
	quizTemperature  = 0.4
)

const quizSystemPrompt = `You are a quiz generation expert. You write questions for a student using ONLY the numbered passages you are given.

Rules:
- Write exactly one question for each passage assignment, using only facts stated in that passage.
- Use the question type assigned to the passage.
- multiple_choice: give 4 options (at least 3, at most 5), exactly one correct, and set correct_answer to the text of the correct option.
- true_false: write a statement; correct_answer must be "true" or "false"; omit options.
- short_answer: the answer must be a short phrase found in or directly supported by the passage; omit options.
- Match the requested difficulty: easy tests recall of a stated fact, medium tests understanding, hard tests application or comparison.
- Give a one or two sentence explanation that points at the passage.
- Avoid trick questions and questions about the passage itself ("according to passage P1").

Return ONLY a JSON object of this form:
{"questions":[{"passage":"P1","type":"multiple_choice","prompt":"...","correct_answer":"...","options":["...","...","...","..."],"explanation":"..."}]}`

// QuizOptions configures a QuizSynthesizer
type QuizOptions struct {
	// RetrievalK is the number of passages fetched per seed query
	RetrievalK int
	// Rand shuffles multiple-choice options; nil seeds a fresh source
	Rand   *rand.Rand
	Now    func() time.Time
	Logger *zap.Logger
}

// QuizSynthesizer generates quizzes grounded in the session's index
type QuizSynthesizer struct {
	retriever  *Retriever
	index      *storage.Index
	generator  llm.Generator
	retrievalK int
	now        func() time.Time
	logger     *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewQuizSynthesizer creates a QuizSynthesizer
func NewQuizSynthesizer(retriever *Retriever, index *storage.Index, generator llm.Generator, opts QuizOptions) *QuizSynthesizer {
	if opts.RetrievalK < 1 {
		opts.RetrievalK = 4
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &QuizSynthesizer{
		retriever:  retriever,
		index:      index,
		generator:  generator,
		retrievalK: opts.RetrievalK,
		rng:        opts.Rand,
		now:        opts.Now,
		logger:     logging.OrNop(opts.Logger),
	}
}

// slot is one planned question: a distinct passage and the type to ask about it
type slot struct {
	label   string
	passage models.ScoredChunk
	qtype   models.QuestionType
}

// generatedQuestion is the model's JSON shape for one question
type generatedQuestion struct {
	Passage       string   `json:"passage"`
	Type          string   `json:"type"`
	Prompt        string   `json:"prompt"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options"`
	Explanation   string   `json:"explanation"`
}

type generatedQuiz struct {
	Questions []generatedQuestion `json:"questions"`
}

// Generate builds a quiz for req. Fewer questions than requested come back with
// UnderDelivery set; service failures are returned as errors.
func (qs *QuizSynthesizer) Generate(ctx context.Context, req models.QuizRequest) (*models.Quiz, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		ID:                "quiz_" + uuid.New().String(),
		Request:           req,
		Questions:         []models.Question{},
		RetrievedChunkIDs: []string{},
		CreatedAt:         qs.now(),
	}

	pool, err := qs.retrievePool(ctx, req)
	if err != nil {
		return nil, err
	}
	quiz.RetrievedChunkIDs = pool.IDs()

	slots := planSlots(pool, req)
	if len(slots) == 0 {
		quiz.UnderDelivery = &models.UnderDelivery{
			Requested: req.Count,
			Reason:    "no passages could be retrieved from the study materials",
		}
		return quiz, nil
	}

	accepted, err := qs.fillSlots(ctx, req, slots)
	if err != nil {
		return nil, err
	}

	for _, s := range slots {
		q, ok := accepted[s.label]
		if !ok {
			continue
		}
		q.ID = fmt.Sprintf("q%d", len(quiz.Questions)+1)
		q.Difficulty = req.Difficulty
		q.SourceChunkIDs = []string{s.passage.Chunk.ID}
		quiz.Questions = append(quiz.Questions, q)
	}

	if len(quiz.Questions) < req.Count {
		quiz.UnderDelivery = underDelivery(req.Count, len(pool), len(slots), len(quiz.Questions))
	}

	qs.logger.Info("quiz generated",
		zap.String("quiz_id", quiz.ID),
		zap.Int("requested", req.Count),
		zap.Int("delivered", len(quiz.Questions)),
		zap.Int("passages", len(pool)))
	return quiz, nil
}

func normalizeRequest(req models.QuizRequest) (models.QuizRequest, error) {
	if err := req.Validate(); err != nil {
		return req, err
	}
	d, _ := models.ParseDifficulty(string(req.Difficulty))
	req.Difficulty = d

	var types []models.QuestionType
	seen := map[models.QuestionType]bool{}
	for _, t := range req.Types {
		qt, _ := models.ParseQuestionType(string(t))
		if !seen[qt] {
			seen[qt] = true
			types = append(types, qt)
		}
	}
	req.Types = types
	req.Topic = strings.TrimSpace(req.Topic)
	return req, nil
}

// retrievePool queries the retriever with seed queries and merges the results by chunk id,
// keeping each chunk's best score. The pool is ordered by score, then id.
func (qs *QuizSynthesizer) retrievePool(ctx context.Context, req models.QuizRequest) (models.RetrievalResult, error) {
	seeds := seedQueries(req.Topic, qs.index.Chunks(), seedsPerQuestion*req.Count)
	if len(seeds) == 0 {
		return models.RetrievalResult{}, nil
	}

	results, err := qs.retriever.RetrieveMany(ctx, seeds, qs.retrievalK)
	if err != nil {
		return nil, err
	}

	best := map[string]models.ScoredChunk{}
	for _, result := range results {
		for _, sc := range result {
			if prev, ok := best[sc.Chunk.ID]; !ok || sc.Score > prev.Score {
				best[sc.Chunk.ID] = sc
			}
		}
	}

	pool := make(models.RetrievalResult, 0, len(best))
	for _, sc := range best {
		pool = append(pool, sc)
	}
	sortScored(pool)
	return pool, nil
}

// seedQueries derives up to limit queries: the topic on its own, then the leading
// sentence of evenly spaced chunks from every document
func seedQueries(topic string, chunks []models.Chunk, limit int) []string {
	var seeds []string
	if topic != "" {
		seeds = append(seeds, topic)
	}

	byDoc := map[string][]models.Chunk{}
	var docs []string
	for _, c := range chunks {
		if _, ok := byDoc[c.Document]; !ok {
			docs = append(docs, c.Document)
		}
		byDoc[c.Document] = append(byDoc[c.Document], c)
	}
	if len(docs) == 0 || limit <= len(seeds) {
		return seeds
	}

	perDoc := (limit - len(seeds) + len(docs) - 1) / len(docs)
	for _, doc := range docs {
		group := byDoc[doc]
		sort.Slice(group, func(i, j int) bool { return group[i].Sequence < group[j].Sequence })
		for _, c := range evenlySpaced(group, perDoc) {
			if len(seeds) >= limit {
				return seeds
			}
			seed := leadingSentence(c.Text)
			if topic != "" {
				seed = topic + ": " + seed
			}
			seeds = append(seeds, seed)
		}
	}
	return seeds
}

func evenlySpaced(chunks []models.Chunk, n int) []models.Chunk {
	if n >= len(chunks) {
		return chunks
	}
	out := make([]models.Chunk, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, chunks[i*len(chunks)/n])
	}
	return out
}

func leadingSentence(text string) string {
	text = strings.TrimSpace(text)
	cut := len(text)
	for _, sep := range []string{". ", "? ", "! ", "\n"} {
		if i := strings.Index(text, sep); i >= 0 && i+1 < cut {
			cut = i + 1
		}
	}
	sentence := strings.TrimSpace(text[:cut])
	if utf8.RuneCountInString(sentence) > maxSeedRunes {
		sentence = string([]rune(sentence)[:maxSeedRunes])
	}
	return sentence
}

// planSlots picks one passage per question, alternating between documents so that
// questions spread across the materials, and assigns types round-robin
func planSlots(pool models.RetrievalResult, req models.QuizRequest) []slot {
	byDoc := map[string]models.RetrievalResult{}
	var docs []string
	for _, sc := range pool {
		if _, ok := byDoc[sc.Chunk.Document]; !ok {
			docs = append(docs, sc.Chunk.Document)
		}
		byDoc[sc.Chunk.Document] = append(byDoc[sc.Chunk.Document], sc)
	}

	var slots []slot
	for round := 0; len(slots) < req.Count; round++ {
		picked := false
		for _, doc := range docs {
			group := byDoc[doc]
			if round >= len(group) || len(slots) >= req.Count {
				continue
			}
			slots = append(slots, slot{
				label:   fmt.Sprintf("P%d", len(slots)+1),
				passage: group[round],
				qtype:   req.Types[len(slots)%len(req.Types)],
			})
			picked = true
		}
		if !picked {
			break
		}
	}
	return slots
}

// fillSlots asks the model for every slot, then retries only the slots whose
// questions were missing or invalid
func (qs *QuizSynthesizer) fillSlots(ctx context.Context, req models.QuizRequest, slots []slot) (map[string]models.Question, error) {
	accepted := map[string]models.Question{}
	pending := slots

	for round := 0; round <= regenerationRounds && len(pending) > 0; round++ {
		if round > 0 {
			qs.logger.Warn("regenerating invalid questions",
				zap.Int("round", round),
				zap.Int("passages", len(pending)))
		}

		reply, err := qs.generator.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				llm.System(quizSystemPrompt),
				llm.User(quizUserPrompt(req, pending)),
			},
			Temperature: quizTemperature,
			JSON:        true,
		})
		if err != nil {
			return nil, err
		}

		var parsed generatedQuiz
		if err := decodeJSONReply(reply, &parsed); err != nil {
			qs.logger.Warn("quiz reply was not valid JSON", zap.Error(err))
			continue
		}

		open := make(map[string]slot, len(pending))
		for _, s := range pending {
			open[s.label] = s
		}
		for _, g := range parsed.Questions {
			label := strings.ToUpper(strings.TrimSpace(g.Passage))
			s, ok := open[label]
			if !ok {
				continue
			}
			q, err := qs.buildQuestion(g, s)
			if err != nil {
				qs.logger.Debug("discarding generated question", zap.String("passage", label), zap.Error(err))
				continue
			}
			accepted[label] = q
			delete(open, label)
		}

		var next []slot
		for _, s := range pending {
			if _, ok := open[s.label]; ok {
				next = append(next, s)
			}
		}
		pending = next
	}
	return accepted, nil
}

func quizUserPrompt(req models.QuizRequest, slots []slot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Difficulty: %s\n", req.Difficulty)
	if req.Topic != "" {
		fmt.Fprintf(&b, "Focus topic: %s\n", req.Topic)
	}
	fmt.Fprintf(&b, "\nWrite %d questions, one per passage below.\n", len(slots))
	for _, s := range slots {
		fmt.Fprintf(&b, "\n[%s] type=%s source=%s\n%s\n", s.label, s.qtype, s.passage.Chunk.Document, s.passage.Chunk.Text)
	}
	return b.String()
}

// buildQuestion validates one generated question against its slot
func (qs *QuizSynthesizer) buildQuestion(g generatedQuestion, s slot) (models.Question, error) {
	qtype, err := models.ParseQuestionType(g.Type)
	if err != nil {
		return models.Question{}, err
	}
	if qtype != s.qtype {
		return models.Question{}, fmt.Errorf("asked for %s, got %s", s.qtype, qtype)
	}

	correct := strings.TrimSpace(g.CorrectAnswer)
	var options []string
	if qtype == models.MultipleChoiceType {
		for _, opt := range g.Options {
			opt = strings.TrimSpace(opt)
			options = append(options, opt)
			if models.NormalizeAnswer(opt) == models.NormalizeAnswer(correct) {
				correct = opt
			}
		}
	}

	key, err := models.NewAnswerKey(qtype, correct, options)
	if err != nil {
		return models.Question{}, err
	}

	q := models.Question{
		ID:             s.label,
		Prompt:         strings.TrimSpace(g.Prompt),
		SourceChunkIDs: []string{s.passage.Chunk.ID},
		Explanation:    strings.TrimSpace(g.Explanation),
		Key:            key,
	}
	if err := q.Validate(); err != nil {
		return models.Question{}, err
	}

	if mc, ok := key.(models.MultipleChoice); ok {
		q.Key = models.MultipleChoice{Options: qs.shuffle(mc.Options), Answer: mc.Answer}
	}
	return q, nil
}

func (qs *QuizSynthesizer) shuffle(options []string) []string {
	out := make([]string, len(options))
	copy(out, options)
	qs.rngMu.Lock()
	qs.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	qs.rngMu.Unlock()
	return out
}

func underDelivery(requested, pooled, planned, delivered int) *models.UnderDelivery {
	var reasons []string
	if pooled < requested {
		reasons = append(reasons, fmt.Sprintf("the study materials yielded only %d distinct passages", pooled))
	}
	if failed := planned - delivered; failed > 0 {
		reasons = append(reasons, fmt.Sprintf("%d questions failed validation after %d regeneration attempts", failed, regenerationRounds))
	}
	return &models.UnderDelivery{
		Requested: requested,
		Delivered: delivered,
		Reason:    strings.Join(reasons, "; "),
	}
}

func sortScored(r models.RetrievalResult) {
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Score != r[j].Score {
			return r[i].Score > r[j].Score
		}
		return r[i].Chunk.ID < r[j].Chunk.ID
	})
}
