package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/llm"
	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/validation"
)

// platformGuidance captures per-platform length and tone constraints used
// to build the generation prompt.
type platformGuidance struct {
	maxChars int
	tone     string
}

var guidanceByPlatform = map[string]platformGuidance{
	models.PlatformTwitter:   {maxChars: 280, tone: "punchy and conversational, hashtags sparing"},
	models.PlatformFacebook:  {maxChars: 2000, tone: "friendly and narrative"},
	models.PlatformInstagram: {maxChars: 2200, tone: "visual-first, emoji-friendly, hashtag block at the end"},
	models.PlatformLinkedIn:  {maxChars: 3000, tone: "professional, insight-led, no hashtag spam"},
	models.PlatformTikTok:    {maxChars: 2200, tone: "casual and trend-aware"},
	models.PlatformYouTube:   {maxChars: 5000, tone: "descriptive, keyword-rich for search"},
	models.PlatformPinterest: {maxChars: 500, tone: "inspirational and action-oriented"},
}

const contentSystemMessage = "You are a social media copywriter. " +
	"Write ready-to-publish post copy only: no preamble, no commentary, no quotation marks around the post."

// GenerateContentInput describes a content generation request.
type GenerateContentInput struct {
	Platform string
	Topic    string
	Keywords []string
}

// GeneratedContent is the result of a content generation request.
type GeneratedContent struct {
	Platform string `json:"platform"`
	Content  string `json:"content"`
	Model    string `json:"model"`
}

// ContentService generates platform-tailored post copy.
type ContentService interface {
	Generate(ctx context.Context, principal *auth.Principal, input *GenerateContentInput) (*GeneratedContent, error)
}

type contentService struct {
	client llm.Client
	logger *zap.Logger
}

// NewContentService creates a new content service.
func NewContentService(client llm.Client, logger *zap.Logger) ContentService {
	return &contentService{
		client: client,
		logger: logger,
	}
}

// Generate builds a platform-aware prompt and returns the generated copy.
func (s *contentService) Generate(ctx context.Context, principal *auth.Principal, input *GenerateContentInput) (*GeneratedContent, error) {
	guidance, ok := guidanceByPlatform[input.Platform]
	if !ok {
		return nil, validation.NewRequestError("platform", "oneof",
			fmt.Sprintf("platform must be one of: %v", models.Platforms))
	}
	if strings.TrimSpace(input.Topic) == "" {
		return nil, validation.NewRequestError("topic", "required", "topic is required")
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Write a %s post about: %s\n", input.Platform, input.Topic)
	fmt.Fprintf(&prompt, "Tone: %s.\n", guidance.tone)
	fmt.Fprintf(&prompt, "Hard limit: %d characters.\n", guidance.maxChars)
	if len(input.Keywords) > 0 {
		fmt.Fprintf(&prompt, "Work in these keywords naturally: %s.\n", strings.Join(input.Keywords, ", "))
	}

	content, err := s.client.GenerateResponse(ctx, prompt.String(), contentSystemMessage, 0.8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	s.logger.Info("Content generated",
		zap.String("project_id", principal.ProjectID.String()),
		zap.String("platform", input.Platform),
		zap.Int("length", len(content)))

	return &GeneratedContent{
		Platform: input.Platform,
		Content:  strings.TrimSpace(content),
		Model:    s.client.GetModel(),
	}, nil
}

// Ensure contentService implements ContentService at compile time.
var _ ContentService = (*contentService)(nil)
