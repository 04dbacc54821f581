package pipeline

import (
	"context"
	"strings"

	"sentinela/internal/ai"
	"sentinela/internal/news"
)

const imageTextPrompt = `Extract every piece of readable text from the attached image.
Return only the extracted text, with no commentary. If the image contains no readable text, return exactly NONE.`

// ImageTextStage substitutes vision-extracted text as content for posts from
// media-only accounts. An item whose image yields no text is dropped: there
// is nothing left to evaluate.
type ImageTextStage struct{}

func (ImageTextStage) Name() string { return "image_text" }

func (s ImageTextStage) Run(ctx context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	kept := make([]*news.Item, 0, len(items))
	var rejected []Rejection

	for _, item := range items {
		if item.SourceType != news.SourceSocial || !item.MediaOnly {
			kept = append(kept, item)
			continue
		}

		extracted := s.extract(ctx, fc, item)
		if extracted == "" {
			rejected = append(rejected, reject(s.Name(), item, "no readable text extracted from media"))
			continue
		}

		item.Content = extracted
		kept = append(kept, item)
	}

	return kept, rejected
}

func (s ImageTextStage) extract(ctx context.Context, fc *Context, item *news.Item) string {
	var images [][]byte
	for _, ref := range item.MediaRefs {
		data, err := fc.Articles.Bytes(ref)
		if err != nil {
			fc.Logger.Warn("failed to fetch media attachment", "link", item.Link, "media", ref, "error", err)
			continue
		}
		images = append(images, data)
	}
	if len(images) == 0 {
		return ""
	}

	response, err := fc.AI.Evaluate(ctx, imageTextPrompt, ai.Options{
		Model:       fc.Config.AI.VisionModel,
		Temperature: fc.Config.AI.Temperature,
		Images:      images,
	})
	if err != nil {
		fc.Logger.Warn("image text extraction failed", "link", item.Link, "error", err)
		return ""
	}

	response = strings.TrimSpace(response)
	if response == "" || strings.EqualFold(response, "NONE") {
		return ""
	}
	return response
}
