package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// VoiceTranscriber turns feedback voice notes into text with Assembly AI.
// It implements services.Transcriber.
type VoiceTranscriber struct {
	client *assemblyai.Client
	logger *logging.ChanneledLogger
}

// NewVoiceTranscriber creates the transcription client. Returns an error when
// no API key is configured; feedback processing then skips transcription.
func NewVoiceTranscriber(logger *logging.ChanneledLogger) (*VoiceTranscriber, error) {
	if config.AssemblyAIAPIKey == "" {
		return nil, fmt.Errorf("ASSEMBLYAI_API_KEY environment variable is required")
	}
	return &VoiceTranscriber{
		client: assemblyai.NewClient(config.AssemblyAIAPIKey),
		logger: logger,
	}, nil
}

// Transcribe submits the audio URL and waits for the transcript.
func (t *VoiceTranscriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	transcript, err := t.client.Transcripts.TranscribeFromURL(ctx, audioURL, nil)
	if err != nil {
		t.logger.Feedback().Error("Voice note transcription failed",
			"error", err.Error(), "duration", time.Since(start))
		return "", fmt.Errorf("transcribing voice note: %w", err)
	}

	if transcript.Text == nil {
		return "", fmt.Errorf("transcript contained no text")
	}
	text := strings.TrimSpace(*transcript.Text)

	t.logger.Feedback().Debug("Voice note transcribed",
		"chars", len(text), "duration", time.Since(start))
	return text, nil
}
