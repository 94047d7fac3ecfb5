// Command transcribe streams a PCM WAV file to a speech recognition
// backend and prints the aggregated transcript. With the default mock
// provider it runs entirely offline; with -provider google it streams to
// Google Cloud Speech-to-Text v2.
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"speech-cloud-sdk/internal/config"
	"speech-cloud-sdk/internal/credentials"
	"speech-cloud-sdk/internal/events"
	"speech-cloud-sdk/internal/observability"
	"speech-cloud-sdk/internal/observability/logging"
	"speech-cloud-sdk/internal/resilience"
	"speech-cloud-sdk/internal/session"
	"speech-cloud-sdk/internal/stt"
	"speech-cloud-sdk/internal/stt/google"
	"speech-cloud-sdk/internal/stt/mock"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

const chunkIntervalMs = 100

func main() {
	audioFile := flag.String("audio", "", "Path to WAV file (16-bit PCM)")
	outputFile := flag.String("output", "", "Write the transcript to this file instead of stdout")
	delimiter := flag.String("delimiter", " ", "Word delimiter for the printed transcript")
	provider := flag.String("provider", "", "STT provider: google or mock (overrides STT_PROVIDER)")
	language := flag.String("language", "", "BCP-47 language code (overrides LANGUAGE_CODE)")
	realtime := flag.Bool("realtime", true, "Pace audio chunks at playback speed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *provider != "" {
		cfg.STTProvider = *provider
	}
	if *language != "" {
		cfg.LanguageCode = *language
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger := logging.WithComponent("cmd.transcribe")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsEnabled {
		srv := observability.NewServer(cfg.MetricsAddr)
		srv.Start()
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	publisher := events.New(&events.Config{
		Enabled:        cfg.KafkaEnabled,
		Brokers:        cfg.KafkaBrokers,
		TopicUpdated:   cfg.KafkaTopicUpdated,
		TopicCompleted: cfg.KafkaTopicCompleted,
		Principal:      cfg.KafkaPrincipal,
	})
	defer publisher.Close()

	adapter, err := newAdapter(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create STT adapter")
	}

	transcriptText, err := run(ctx, cfg, adapter, publisher, *audioFile, *delimiter, *realtime)
	if err != nil {
		logger.Fatal().Err(err).Msg("Transcription failed")
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(transcriptText+"\n"), 0o644); err != nil {
			logger.Fatal().Err(err).Msg("Failed to write transcript")
		}
		logger.Info().Str("path", *outputFile).Msg("Transcript written")
		return
	}
	fmt.Println(transcriptText)
}

// newAdapter builds the configured STT adapter.
func newAdapter(ctx context.Context, cfg *config.Config) (stt.Adapter, error) {
	switch cfg.STTProvider {
	case "mock":
		return mock.New(), nil
	case "google":
		var store credentials.Store
		if cfg.GoogleCredentialsFile != "" {
			store = &credentials.FileStore{Path: cfg.GoogleCredentialsFile}
		}
		gcfg := google.Config{
			ProjectID:      cfg.GoogleProjectID,
			Location:       cfg.GoogleLocation,
			Recognizer:     cfg.GoogleRecognizer,
			Model:          cfg.GoogleModel,
			LanguageCode:   cfg.LanguageCode,
			SampleRateHz:   cfg.SampleRateHz,
			ChannelCount:   cfg.AudioChannels,
			InterimResults: true,
			Retry: resilience.RetryConfig{
				MaxAttempts:       cfg.RetryMaxAttempts,
				InitialBackoff:    cfg.RetryInitialBackoffDuration(),
				MaxBackoff:        cfg.RetryMaxBackoffDuration(),
				BackoffMultiplier: 2,
				Jitter:            true,
			},
		}
		return google.New(ctx, gcfg, store)
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.STTProvider)
	}
}

// run streams the audio file through a session and returns the final
// transcript.
func run(ctx context.Context, cfg *config.Config, adapter stt.Adapter, publisher *events.Publisher, audioPath, delimiter string, realtime bool) (string, error) {
	if audioPath == "" {
		return "", errors.New("missing -audio flag")
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	sampleRate, channels, err := readWAVHeader(f)
	if err != nil {
		return "", err
	}
	logger := logging.WithComponent("cmd.transcribe")
	if int(sampleRate) != cfg.SampleRateHz {
		logger.Warn().
			Uint32("file_rate", sampleRate).
			Int("configured_rate", cfg.SampleRateHz).
			Msg("WAV sample rate differs from configured rate")
	}

	sess := session.New(adapter, publisher)
	if err := sess.Start(ctx); err != nil {
		return "", err
	}

	// 100ms of 16-bit audio at the file's own rate.
	chunkSize := int(sampleRate) * int(channels) * 2 * chunkIntervalMs / 1000

	g, gctx := errgroup.WithContext(ctx)
	streamDone := make(chan struct{})
	g.Go(func() error {
		defer close(streamDone)
		return streamAudio(gctx, sess, f, chunkSize, realtime)
	})
	g.Go(func() error {
		select {
		case <-sess.Done():
			return sess.Err()
		case <-streamDone:
			return nil
		case <-gctx.Done():
			return nil
		}
	})

	streamErr := g.Wait()
	closeErr := sess.Close()
	if streamErr != nil {
		return "", streamErr
	}
	if closeErr != nil {
		return "", closeErr
	}
	if err := sess.Err(); err != nil {
		return "", err
	}

	logger.Info().
		Str("session_id", sess.ID()).
		Int("words", len(sess.Words())).
		Int("utterances", sess.Utterances()).
		Msg("Transcription complete")
	return sess.Text(delimiter), nil
}

// streamAudio sends the remaining file contents in fixed-size chunks,
// paced at playback speed when realtime is set.
func streamAudio(ctx context.Context, sess *session.Session, f *os.File, chunkSize int, realtime bool) error {
	chunk := make([]byte, chunkSize)
	ticker := time.NewTicker(chunkIntervalMs * time.Millisecond)
	defer ticker.Stop()

	for {
		n, err := f.Read(chunk)
		if n > 0 {
			if sendErr := sess.SendAudio(ctx, chunk[:n]); sendErr != nil {
				return fmt.Errorf("send audio: %w", sendErr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}

		if realtime {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// readWAVHeader validates a standard 44-byte PCM WAV header and returns
// the sample rate and channel count.
func readWAVHeader(f *os.File) (sampleRate uint32, channels uint16, err error) {
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, 0, fmt.Errorf("read WAV header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, 0, errors.New("not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	channels = binary.LittleEndian.Uint16(header[22:24])
	sampleRate = binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	if audioFormat != 1 { // PCM
		return 0, 0, errors.New("only PCM WAV files are supported")
	}
	if bitsPerSample != 16 {
		return 0, 0, fmt.Errorf("only 16-bit PCM is supported, got %d bits", bitsPerSample)
	}
	return sampleRate, channels, nil
}
