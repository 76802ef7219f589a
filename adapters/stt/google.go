package stt

import (
	"context"
	"fmt"
	"io"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/voxa-ai/voxa/domain/repositories"
)

// GoogleTranscriber implements Transcriber using Google Cloud Speech-to-Text.
type GoogleTranscriber struct{}

var _ repositories.Transcriber = (*GoogleTranscriber)(nil)

func clientOptions(apiKey string) []option.ClientOption {
	if apiKey == "" {
		return nil
	}
	return []option.ClientOption{option.WithAPIKey(apiKey)}
}

// Stream drives a streaming recognize session. It blocks until the frames
// channel is closed and the recognizer has flushed its final results, making
// it suitable for a dedicated worker goroutine. Recognizer events are mapped
// onto the portable TranscriptEvent variants; Google marks no separate
// "formatted" state, so final results count as formatted.
func (g *GoogleTranscriber) Stream(ctx context.Context, apiKey string, config repositories.AudioConfig, frames <-chan []byte, handle repositories.TranscriptHandler) error {
	emit := func(ev repositories.TranscriptEvent) {
		if handle != nil {
			handle(ev)
		}
	}

	client, err := speech.NewClient(ctx, clientOptions(apiKey)...)
	if err != nil {
		emit(repositories.TranscriptEvent{Kind: repositories.TranscriptError, Err: err})
		return fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		emit(repositories.TranscriptEvent{Kind: repositories.TranscriptError, Err: err})
		return fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	encoding, err := audioEncoding(config.Encoding)
	if err != nil {
		emit(repositories.TranscriptEvent{Kind: repositories.TranscriptError, Err: err})
		return err
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: int32(config.SampleRate),
					LanguageCode:    config.Language,
				},
				InterimResults: true,
			},
		},
	}); err != nil {
		emit(repositories.TranscriptEvent{Kind: repositories.TranscriptError, Err: err})
		return fmt.Errorf("failed to send streaming config: %w", err)
	}

	emit(repositories.TranscriptEvent{Kind: repositories.TranscriptBegan})
	started := time.Now()

	recvDone := make(chan error, 1)
	go func() {
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				emit(repositories.TranscriptEvent{
					Kind:            repositories.TranscriptTerminated,
					DurationSeconds: time.Since(started).Seconds(),
				})
				recvDone <- nil
				return
			}
			if err != nil {
				emit(repositories.TranscriptEvent{Kind: repositories.TranscriptError, Err: err})
				recvDone <- err
				return
			}

			for _, result := range resp.Results {
				if len(result.Alternatives) == 0 {
					continue
				}
				emit(repositories.TranscriptEvent{
					Kind:        repositories.TranscriptTurn,
					Text:        result.Alternatives[0].Transcript,
					IsFinal:     result.IsFinal,
					IsFormatted: result.IsFinal,
				})
			}
		}
	}()

	for frame := range frames {
		if len(frame) == 0 {
			continue
		}
		if err := stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
				AudioContent: frame,
			},
		}); err != nil {
			emit(repositories.TranscriptEvent{Kind: repositories.TranscriptError, Err: err})
			break
		}
	}

	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close send stream: %w", err)
	}

	return <-recvDone
}

// Transcribe converts a complete audio payload to text in one shot.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, apiKey string, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	client, err := speech.NewClient(ctx, clientOptions(apiKey)...)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	encoding, err := audioEncoding(config.Encoding)
	if err != nil {
		return "", err
	}

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(config.SampleRate),
			LanguageCode:    config.Language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognize failed: %w", err)
	}

	var text string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			text += result.Alternatives[0].Transcript
		}
	}
	if text == "" {
		return "", fmt.Errorf("no speech detected in audio")
	}
	return text, nil
}

// audioEncoding converts a string encoding to the Speech API enum
func audioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
