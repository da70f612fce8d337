package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/export"
	"ai-chat-backend/internal/infra/metrics"
	"ai-chat-backend/internal/settings"
	"ai-chat-backend/internal/tokenizer"
)

type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatJSON     ExportFormat = "json"
	FormatCompact  ExportFormat = "compact"
)

// Artifact is a downloadable export. The compact format ships as .md with a
// Markdown MIME as a naming convenience, not a format claim.
type Artifact struct {
	Filename string
	MIME     string
	Content  string
}

type ExportUseCase interface {
	Export(ctx context.Context, userID, conversationID string, format ExportFormat) (*Artifact, error)
}

var _ ExportUseCase = (*exportUC)(nil)

type exportUC struct {
	convs            ConversationUseCase
	settings         *settings.Store
	counter          tokenizer.TokenCounter
	compactMaxTokens int
	log              *zerolog.Logger
}

func NewExportUseCase(convs ConversationUseCase, st *settings.Store, counter tokenizer.TokenCounter, compactMaxTokens int, logger *zerolog.Logger) *exportUC {
	return &exportUC{
		convs:            convs,
		settings:         st,
		counter:          counter,
		compactMaxTokens: compactMaxTokens,
		log:              logger,
	}
}

func (e *exportUC) Export(ctx context.Context, userID, conversationID string, format ExportFormat) (*Artifact, error) {
	conv, err := e.convs.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	st, err := e.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	opts := export.Options{
		IncludeTimestamps:  st.ExportTimestamps,
		IncludeTokenCounts: st.ExportTokenCounts,
	}

	base := artifactBaseName(conv.Title, conv.CreatedAt)
	switch format {
	case FormatMarkdown:
		content := export.ToMarkdown(conv, opts, e.counter)
		metrics.ObserveExport(string(format), len(content))
		return &Artifact{Filename: base + ".md", MIME: "text/markdown", Content: content}, nil

	case FormatJSON:
		content, err := export.ToJSON(conv, opts, e.counter)
		if err != nil {
			return nil, fmt.Errorf("json export: %w", err)
		}
		metrics.ObserveExport(string(format), len(content))
		return &Artifact{Filename: base + ".json", MIME: "application/json", Content: content}, nil

	case FormatCompact:
		content := export.Compact(conv, export.CompactOptions{
			MaxTokens:          e.compactMaxTokens,
			PreserveCodeBlocks: st.PreserveCodeBlocks,
		}, e.counter)
		metrics.ObserveExport(string(format), len(content))
		e.observeReduction(conv, content)
		return &Artifact{Filename: base + "-compact.md", MIME: "text/markdown", Content: content}, nil

	default:
		return nil, domain.ErrInvalidArgument
	}
}

// observeReduction records how much smaller the compact form is than the
// literal transcript, the transcoder's whole reason to exist.
func (e *exportUC) observeReduction(conv *model.Conversation, compact string) {
	literal := 0
	for i := range conv.Messages {
		literal += e.counter.Count(conv.Messages[i].Content)
	}
	if literal == 0 {
		return
	}
	got := e.counter.Count(compact)
	ratio := 1 - float64(got)/float64(literal)
	metrics.ObserveCompactReduction(ratio)
	e.log.Debug().
		Str("conversation_id", conv.ID).
		Int("literal_tokens", literal).
		Int("compact_tokens", got).
		Float64("reduction", ratio).
		Msg("compact export produced")
}

func artifactBaseName(title string, createdAt time.Time) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	if slug == "" {
		slug = "conversation"
	}
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug = strings.Trim(b.String(), "-")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		slug = "conversation"
	}
	return slug + "-" + createdAt.Format("2006-01-02")
}
