package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"immerse-backend/internal/models"
)

var ErrNoFileSelected = errors.New("no video file selected")

type languageModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Transcribe(ctx context.Context, media io.Reader, mimeType, displayName string) (string, error)
}

type youtubeSource interface {
	GetTranscript(ctx context.Context, videoID string) (string, error)
	DownloadAudio(ctx context.Context, videoURL string) ([]byte, string, error)
	GetMetadata(ctx context.Context, videoID string) (models.YouTubeMetadata, error)
}

type videoOpener interface {
	Open(key string) (*os.File, error)
}

// Summarizer is the model-backed processing service. YouTube sources use the
// caption track, falling back to transcribing the audio stream; uploads are
// transcribed directly. The transcript is then summarized.
type Summarizer struct {
	model   languageModel
	youtube youtubeSource
	videos  videoOpener
	cache   SummaryCache
}

func NewSummarizer(model languageModel, youtube youtubeSource, videos videoOpener, cache SummaryCache) *Summarizer {
	if cache == nil {
		cache = noopCache{}
	}
	return &Summarizer{
		model:   model,
		youtube: youtube,
		videos:  videos,
		cache:   cache,
	}
}

func (s *Summarizer) Process(ctx context.Context, input models.FormInput) (string, error) {
	switch input.Source {
	case models.SourceYouTube:
		return s.processYouTube(ctx, input.YouTubeURL)
	case models.SourceUpload:
		return s.processUpload(ctx, input.File)
	default:
		return "", fmt.Errorf("unsupported source kind %q", input.Source)
	}
}

func (s *Summarizer) processYouTube(ctx context.Context, url string) (string, error) {
	videoID := ExtractVideoID(url)
	if videoID == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidYouTubeURL, url)
	}

	cacheKey := "summary:youtube:" + videoID
	if cached, ok := s.cache.Get(ctx, cacheKey); ok {
		log.Printf("Summary cache hit for video %s", videoID)
		return cached, nil
	}

	meta, err := s.youtube.GetMetadata(ctx, videoID)
	if err != nil {
		log.Printf("Metadata lookup failed for %s, continuing with defaults: %v", videoID, err)
	}

	transcript, err := s.youtube.GetTranscript(ctx, videoID)
	if err != nil {
		log.Printf("Transcript extraction failed for %s: %v", videoID, err)

		audio, mimeType, audioErr := s.youtube.DownloadAudio(ctx, url)
		if audioErr != nil {
			return "", fmt.Errorf("transcript extraction failed for video %s: %v; audio fallback download failed: %w", videoID, err, audioErr)
		}

		transcribed, transcribeErr := s.model.Transcribe(ctx, bytes.NewReader(audio), mimeType, "youtube-"+videoID)
		if transcribeErr != nil {
			return "", fmt.Errorf("transcript extraction failed for video %s: %v; audio transcription failed: %w", videoID, err, transcribeErr)
		}
		transcript = transcribed
	}

	summary, err := s.summarize(ctx, meta.Title, transcript)
	if err != nil {
		return "", err
	}

	s.cache.Set(ctx, cacheKey, summary)
	return summary, nil
}

func (s *Summarizer) processUpload(ctx context.Context, file *models.VideoFile) (string, error) {
	if file == nil || file.StorageKey == "" {
		return "", ErrNoFileSelected
	}

	f, err := s.videos.Open(file.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded video: %w", err)
	}
	defer f.Close()

	transcript, err := s.model.Transcribe(ctx, f, VideoMimeType(file.MimeType, file.Name), file.Name)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe %s: %w", file.Name, err)
	}

	return s.summarize(ctx, file.Name, transcript)
}

func (s *Summarizer) summarize(ctx context.Context, title, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("cannot summarize: transcript is empty")
	}

	summary, err := s.model.Generate(ctx, buildSummaryPrompt(title, transcript))
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "", fmt.Errorf("model returned an empty summary")
	}
	return summary, nil
}

const maxPromptTranscriptChars = 200000

func buildSummaryPrompt(title, transcript string) string {
	if len(transcript) > maxPromptTranscriptChars {
		transcript = transcript[:maxPromptTranscriptChars]
	}

	var b strings.Builder
	b.WriteString("You summarize videos for viewers who have not watched them.\n")
	b.WriteString("Write a concise summary in plain text: one short overview paragraph followed by the key points, one per line, each starting with \"- \".\n")
	b.WriteString("Do not use markdown headers, tables, or HTML. Do not invent details that are not in the transcript.\n\n")
	if title = strings.TrimSpace(title); title != "" {
		b.WriteString("Title: ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	return b.String()
}
