package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"multimind.ai/server/internal/media"
	"multimind.ai/server/internal/store"
	"multimind.ai/server/internal/utils"
)

// Kind is a generation operation.
type Kind string

const (
	KindArticle           Kind = "article"
	KindBlogTitle         Kind = "blog-title"
	KindImage             Kind = "image"
	KindBackgroundRemoval Kind = "background-removal"
	KindObjectRemoval     Kind = "object-removal"
	KindResumeReview      Kind = "resume-review"
)

// StoredType is the creation type persisted for k.
func (k Kind) StoredType() string {
	switch k {
	case KindArticle:
		return store.TypeArticle
	case KindBlogTitle:
		return store.TypeBlogTitle
	case KindResumeReview:
		return store.TypeResumeReview
	default:
		return store.TypeImage
	}
}

// Metered kinds consume free usage.
func (k Kind) Metered() bool {
	return k == KindArticle || k == KindBlogTitle
}

const (
	MaxResumeBytes = 5 << 20

	tokensPerWord = 2

	blogTitlePrompt     = "You are a creative blog title generator. %s Generate 5 catchy, SEO-friendly blog titles. Return only the titles, numbered 1-5."
	resumeReviewPrompt  = "Review the resume and provide feedback on clarity, structure, and professionalism."
	backgroundPrompt    = "Remove background"
	objectRemovalPrompt = "Removed %s from image"
)

var tracer = otel.Tracer("multimind.ai/server/internal/core")

type TextOptions struct {
	MaxTokens int32
}

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

type ImageHost interface {
	Host(ctx context.Context, img media.Image) (string, error)
	RemoveBackground(ctx context.Context, img media.Image) (string, error)
	RemoveObject(ctx context.Context, img media.Image, object string) (string, error)
}

type CreationStore interface {
	CreateCreation(ctx context.Context, c *store.Creation) error
}

type Gate interface {
	Evaluate(ctx context.Context, kind Kind, ent Entitlement) (Decision, error)
}

type ArticleRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length"`
}

type BlogTitleRequest struct {
	Prompt string `json:"prompt"`
}

type ImageRequest struct {
	Prompt  string `json:"prompt"`
	Publish bool   `json:"publish"`
}

type BackgroundRemovalRequest struct {
	Image media.Image
}

type ObjectRemovalRequest struct {
	Image  media.Image
	Object string
}

type ResumeReviewRequest struct {
	Document []byte
	Size     int64
}

type GatewayDeps struct {
	Gate    Gate
	Ledger  *UsageLedger
	Store   CreationStore
	Text    TextGenerator
	Images  ImageGenerator
	Host    ImageHost
	Timeout time.Duration
}

// Gateway validates, gates, executes and records generation requests.
type Gateway struct {
	gate        Gate
	ledger      *UsageLedger
	store       CreationStore
	text        TextGenerator
	images      ImageGenerator
	host        ImageHost
	timeout     time.Duration
	extractText func([]byte) (string, error)
}

func NewGateway(deps GatewayDeps) *Gateway {
	if deps.Timeout <= 0 {
		deps.Timeout = 60 * time.Second
	}
	return &Gateway{
		gate:        deps.Gate,
		ledger:      deps.Ledger,
		store:       deps.Store,
		text:        deps.Text,
		images:      deps.Images,
		host:        deps.Host,
		timeout:     deps.Timeout,
		extractText: utils.ExtractPDFText,
	}
}

// result is what a provider pipeline produced.
type result struct {
	prompt  string
	content string
}

func (g *Gateway) GenerateArticle(ctx context.Context, caller Caller, req ArticleRequest) (*store.Creation, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, NewServiceError(nil, http.StatusBadRequest, "Prompt is required.")
	}
	if req.Length < 0 {
		return nil, NewServiceError(nil, http.StatusBadRequest, "Length must not be negative.")
	}

	return g.run(ctx, caller, KindArticle, false, func(ctx context.Context) (result, error) {
		opts := TextOptions{MaxTokens: int32(min(req.Length*tokensPerWord, 1<<16))}
		content, err := g.text.GenerateText(ctx, prompt, opts)
		return result{prompt: prompt, content: content}, err
	})
}

func (g *Gateway) GenerateBlogTitle(ctx context.Context, caller Caller, req BlogTitleRequest) (*store.Creation, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, NewServiceError(nil, http.StatusBadRequest, "Prompt is required.")
	}

	return g.run(ctx, caller, KindBlogTitle, false, func(ctx context.Context) (result, error) {
		content, err := g.text.GenerateText(ctx, fmt.Sprintf(blogTitlePrompt, prompt), TextOptions{})
		return result{prompt: prompt, content: content}, err
	})
}

func (g *Gateway) GenerateImage(ctx context.Context, caller Caller, req ImageRequest) (*store.Creation, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, NewServiceError(nil, http.StatusBadRequest, "Prompt is required.")
	}

	return g.run(ctx, caller, KindImage, req.Publish, func(ctx context.Context) (result, error) {
		data, err := g.images.GenerateImage(ctx, prompt)
		if err != nil {
			return result{}, err
		}
		url, err := g.host.Host(ctx, media.Image{Data: data, ContentType: "image/png", Filename: "generated.png"})
		return result{prompt: prompt, content: url}, err
	})
}

func (g *Gateway) RemoveBackground(ctx context.Context, caller Caller, req BackgroundRemovalRequest) (*store.Creation, error) {
	if len(req.Image.Data) == 0 {
		return nil, NewServiceError(nil, http.StatusBadRequest, "Image file is required.")
	}

	return g.run(ctx, caller, KindBackgroundRemoval, false, func(ctx context.Context) (result, error) {
		url, err := g.host.RemoveBackground(ctx, req.Image)
		return result{prompt: backgroundPrompt, content: url}, err
	})
}

func (g *Gateway) RemoveObject(ctx context.Context, caller Caller, req ObjectRemovalRequest) (*store.Creation, error) {
	object := strings.Join(strings.Fields(req.Object), " ")
	if object == "" {
		return nil, NewServiceError(nil, http.StatusBadRequest, "Object name is required.")
	}
	if len(req.Image.Data) == 0 {
		return nil, NewServiceError(nil, http.StatusBadRequest, "Image file is required.")
	}

	return g.run(ctx, caller, KindObjectRemoval, false, func(ctx context.Context) (result, error) {
		url, err := g.host.RemoveObject(ctx, req.Image, object)
		return result{prompt: fmt.Sprintf(objectRemovalPrompt, object), content: url}, err
	})
}

func (g *Gateway) ReviewResume(ctx context.Context, caller Caller, req ResumeReviewRequest) (*store.Creation, error) {
	size := max(req.Size, int64(len(req.Document)))
	if size == 0 {
		return nil, NewServiceError(nil, http.StatusBadRequest, "Resume file is required.")
	}
	if size > MaxResumeBytes {
		return nil, NewServiceError(nil, http.StatusBadRequest, MsgResumeTooLarge)
	}

	return g.run(ctx, caller, KindResumeReview, false, func(ctx context.Context) (result, error) {
		text, err := g.extractText(req.Document)
		if err != nil {
			return result{}, NewServiceError(err, http.StatusBadRequest, "Could not read text from the resume PDF.")
		}
		content, err := g.text.GenerateText(ctx, resumeReviewPrompt+" Resume Content:\n\n"+text, TextOptions{})
		return result{prompt: resumeReviewPrompt, content: content}, err
	})
}

func (g *Gateway) run(ctx context.Context, caller Caller, kind Kind, publish bool, produce func(context.Context) (result, error)) (*store.Creation, error) {
	decision, err := g.gate.Evaluate(ctx, kind, caller.Entitlement)
	if err != nil {
		return nil, NewServiceError(err, http.StatusInternalServerError, "Failed to check access")
	}
	if !decision.Allow {
		return nil, NewServiceError(nil, http.StatusOK, "%s", decision.Reason)
	}

	ctx, span := tracer.Start(ctx, "generate "+string(kind), trace.WithAttributes(
		attribute.String("multimind.kind", string(kind)),
		attribute.String("multimind.plan", string(caller.Entitlement.Plan)),
	))
	defer span.End()

	providerCtx, cancel := context.WithTimeout(ctx, g.timeout)
	out, err := produce(providerCtx)
	cancel()
	if err == nil && out.content == "" {
		err = fmt.Errorf("%s provider returned empty content", kind)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		log.Error().Err(err).Str("kind", string(kind)).Str("user_id", caller.UserID()).Msg("Generation failed")
		return nil, providerFailure(err, "generate "+string(kind))
	}

	creation := &store.Creation{
		UserID:  caller.UserID(),
		Prompt:  out.prompt,
		Content: out.content,
		Type:    kind.StoredType(),
		Publish: publish,
	}
	if err := g.store.CreateCreation(ctx, creation); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, NewServiceError(err, http.StatusInternalServerError, "Failed to save creation")
	}
	span.SetAttributes(attribute.Int64("multimind.creation_id", creation.ID))

	if kind.Metered() && !caller.Entitlement.Premium() {
		g.ledger.Record(ctx, caller)
	}
	return creation, nil
}
