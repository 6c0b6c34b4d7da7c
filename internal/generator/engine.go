package generator

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knakagawa/parody-engine/internal/services"
	"github.com/knakagawa/parody-engine/internal/storage"
	"github.com/knakagawa/parody-engine/pkg/chat"
	"github.com/knakagawa/parody-engine/pkg/patterns"
	"github.com/knakagawa/parody-engine/pkg/prompts"
	"github.com/knakagawa/parody-engine/pkg/script"
	"github.com/knakagawa/parody-engine/pkg/session"
	"github.com/knakagawa/parody-engine/pkg/tags"
)

const (
	cacheTTL = 24 * time.Hour

	// Refinements regenerate an existing scene; they get a tighter token
	// budget than first generations.
	minRefineTokens = 256
)

// Engine runs one generation turn: context selection, tag resolution,
// prompt assembly, the LLM call, and archiving. Single-threaded per
// session; the caller owns the session for the duration of a turn.
type Engine struct {
	store         *patterns.Store
	resolver      *tags.Resolver
	library       *script.Library
	llm           services.LLMService
	cache         services.Cache  // optional
	archive       storage.Archive // optional
	logger        *slog.Logger
	contextWindow int
}

// Result is the outcome of one generation turn.
type Result struct {
	Scene  string
	Tags   []string
	Cached bool
}

// New creates an engine. Cache and archive may be nil; generation then
// skips those steps.
func New(
	store *patterns.Store,
	library *script.Library,
	llm services.LLMService,
	cache services.Cache,
	archive storage.Archive,
	logger *slog.Logger,
	contextWindow int,
) *Engine {
	if contextWindow <= 0 {
		contextWindow = 5
	}
	return &Engine{
		store:         store,
		resolver:      tags.NewResolver(store),
		library:       library,
		llm:           llm,
		cache:         cache,
		archive:       archive,
		logger:        logger,
		contextWindow: contextWindow,
	}
}

// Store exposes the loaded pattern store.
func (e *Engine) Store() *patterns.Store {
	return e.store
}

// Generate produces a scene for the session, appending userContext to its
// history first. On failure the session keeps its previous phase and scene.
func (e *Engine) Generate(ctx context.Context, s *session.Session, userContext string) (*Result, error) {
	prevPhase := s.Phase
	s.Phase = session.PhaseGenerating

	if strings.TrimSpace(userContext) != "" {
		s.AppendContext(userContext)
	}

	// A brand-new session with no context borrows relevant lines from the
	// script library.
	if len(s.ContextLines) == 0 && e.library != nil {
		for _, line := range e.library.Relevant(s.Characters, e.contextWindow) {
			s.AppendContext(line)
		}
	}

	history := script.NewHistory(s.ContextLines...)
	window := history.RecentWindow(e.contextWindow)
	contextText := strings.Join(window, "\n")

	merged := e.resolver.Resolve(s.Characters, contextText, s.Config)

	builder := prompts.New().
		WithSetting(s.Setting).
		WithCharacters(s.Characters).
		WithContext(window).
		WithTags(merged).
		WithVibes(e.store.Vibes(3)).
		WithConfig(s.Config)
	for _, c := range s.Characters {
		builder.WithCharacterTags(c, e.resolver.ForCharacter(c, contextText, s.Config))
	}

	payload, err := builder.Build()
	if err != nil {
		s.Phase = prevPhase
		return nil, err
	}

	result, err := e.complete(ctx, s, payload.Messages(), cacheKey(payload.System, payload.User), s.Config)
	if err != nil {
		s.Phase = prevPhase
		return nil, err
	}
	result.Tags = merged
	return result, nil
}

// Refine revises the session's current scene according to the notes. A
// failed refinement leaves the previous scene in place.
func (e *Engine) Refine(ctx context.Context, s *session.Session, notes string) (*Result, error) {
	if !s.CanRefine() {
		return nil, fmt.Errorf("session %s has no scene to refine", s.ID)
	}

	prevPhase := s.Phase
	s.Phase = session.PhaseGenerating

	originalInput := fmt.Sprintf("%s in %s", strings.Join(s.Characters, ", "), s.Setting)
	messages := prompts.RefinementMessages(originalInput, s.CurrentScene, notes)

	cfg := s.Config
	cfg.MaxTokens = cfg.MaxTokens / 2
	if cfg.MaxTokens < minRefineTokens {
		cfg.MaxTokens = minRefineTokens
	}

	result, err := e.complete(ctx, s, messages, cacheKey(s.CurrentScene, notes), cfg)
	if err != nil {
		s.Phase = prevPhase
		return nil, err
	}
	return result, nil
}

// complete runs the cache-check, LLM call, clean, archive, and session
// update shared by generation and refinement.
func (e *Engine) complete(
	ctx context.Context,
	s *session.Session,
	messages []chat.ChatMessage,
	key string,
	cfg session.GenerationConfig,
) (*Result, error) {
	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, key); err != nil {
			e.logger.Warn("Cache lookup failed", "key", key, "error", err)
		} else if cached != "" {
			s.SetScene(cached)
			return &Result{Scene: cached, Cached: true}, nil
		}
	}

	raw, err := e.llm.GenerateScene(ctx, messages, cfg)
	if err != nil {
		return nil, err
	}

	scene := prompts.CleanScene(raw)
	if scene == "" {
		scene = strings.TrimSpace(raw)
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, scene, cacheTTL); err != nil {
			e.logger.Warn("Cache write failed", "key", key, "error", err)
		}
	}

	if e.archive != nil {
		if err := e.archive.Save(ctx, s.ID, scene); err != nil {
			// Archiving is best-effort; the scene still reaches the user.
			e.logger.Error("Failed to archive scene", "session_id", s.ID, "error", err)
		}
	}

	s.SetScene(scene)
	return &Result{Scene: scene}, nil
}

func cacheKey(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "\x00")))
	return "scene:" + hex.EncodeToString(sum[:])
}
