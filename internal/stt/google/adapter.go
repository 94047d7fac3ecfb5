// Package google provides a Google Cloud Speech-to-Text v2 adapter.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"speech-cloud-sdk/internal/credentials"
	"speech-cloud-sdk/internal/observability/logging"
	"speech-cloud-sdk/internal/observability/metrics"
	"speech-cloud-sdk/internal/resilience"
	"speech-cloud-sdk/internal/stt"
)

const speechAPIEndpointPort = 443

// Provider is the label this adapter reports in logs and metrics.
const Provider = "google"

// Config holds adapter configuration.
type Config struct {
	ProjectID    string
	Location     string // "global" or a regional endpoint
	Recognizer   string // recognizer resource ID, "_" for the default
	Model        string
	LanguageCode string
	SampleRateHz int
	ChannelCount int

	// InterimResults enables the sliding-window interim updates; without
	// them the transcript only advances on finalized results.
	InterimResults bool

	Retry resilience.RetryConfig
}

// DefaultConfig returns sensible adapter defaults.
func DefaultConfig() Config {
	return Config{
		Location:       "global",
		Recognizer:     "_",
		Model:          "long",
		LanguageCode:   "en-US",
		SampleRateHz:   16000,
		ChannelCount:   1,
		InterimResults: true,
		Retry:          resilience.DefaultRetryConfig(),
	}
}

// Adapter implements stt.Adapter using Google Cloud Speech-to-Text v2.
type Adapter struct {
	cfg    Config
	client *speech.Client
	logger zerolog.Logger
	m      *metrics.Metrics

	mu     sync.Mutex
	ctx    context.Context
	cb     stt.Callback
	stream speechpb.Speech_StreamingRecognizeClient
	window windower
	closed bool

	listeners sync.WaitGroup
}

// New creates a new Google STT adapter. A nil credential store leaves the
// client on Application Default Credentials.
func New(ctx context.Context, cfg Config, store credentials.Store) (*Adapter, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("google stt: project ID is required")
	}
	if cfg.Recognizer == "" {
		cfg.Recognizer = "_"
	}

	opts, err := credentials.ClientOptions(store)
	if err != nil {
		return nil, fmt.Errorf("google stt: load credentials: %w", err)
	}
	if cfg.Location != "" && cfg.Location != "global" {
		opts = append(opts, option.WithEndpoint(
			fmt.Sprintf("%s-speech.googleapis.com:%d", cfg.Location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google stt: create client: %w", err)
	}

	return &Adapter{
		cfg:    cfg,
		client: client,
		logger: logging.WithComponent("stt.google"),
		m:      metrics.DefaultMetrics,
	}, nil
}

// Start opens the bidi recognition stream, sends the streaming config and
// begins the receive loop.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stream != nil {
		return errors.New("google stt: adapter already started")
	}
	a.ctx = ctx
	a.cb = cb

	stream, err := a.openStream(ctx)
	if err != nil {
		return err
	}
	a.stream = stream
	a.spawnListener(stream)

	a.logger.Info().
		Str("model", a.cfg.Model).
		Str("language", a.cfg.LanguageCode).
		Str("location", a.cfg.Location).
		Msg("Recognition stream started")
	return nil
}

// SendAudio sends raw audio bytes upstream. Reconnectable stream failures
// are retried transparently with backoff; the resent frame is the one that
// failed, earlier frames are never replayed.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return io.ErrClosedPipe
	}
	if a.stream == nil {
		return errors.New("google stt: adapter not started")
	}

	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{
			Audio: audio,
		},
	}

	err := a.stream.Send(req)
	if err == nil {
		a.m.RecordAudioSent(len(audio))
		return nil
	}
	if !resilience.IsRetryableStreamError(err) {
		return fmt.Errorf("google stt: send audio: %w", err)
	}

	a.logger.Warn().Err(err).Msg("Send failed with reconnectable error, reconnecting stream")
	if err := a.reconnectLocked(ctx); err != nil {
		return fmt.Errorf("google stt: reconnect stream: %w", err)
	}
	if err := a.stream.Send(req); err != nil {
		return fmt.Errorf("google stt: send audio after reconnect: %w", err)
	}
	a.m.RecordAudioSent(len(audio))
	return nil
}

// Close half-closes the stream, waits for the receive loop to drain the
// backend's remaining responses and releases the client.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	stream := a.stream
	a.mu.Unlock()

	var err error
	if stream != nil {
		err = stream.CloseSend()
		if err == nil {
			a.listeners.Wait()
		}
	}
	if cerr := a.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *Adapter) spawnListener(stream speechpb.Speech_StreamingRecognizeClient) {
	a.listeners.Add(1)
	go func() {
		defer a.listeners.Done()
		a.listen(stream)
	}()
}

func (a *Adapter) recognizerName() string {
	return fmt.Sprintf("projects/%s/locations/%s/recognizers/%s",
		a.cfg.ProjectID, a.cfg.Location, a.cfg.Recognizer)
}

// openStream starts a recognition stream and sends the config message.
func (a *Adapter) openStream(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error) {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return nil, fmt.Errorf("google stt: open stream: %w", err)
	}

	cfgReq := &speechpb.StreamingRecognizeRequest{
		Recognizer: a.recognizerName(),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         a.cfg.Model,
					LanguageCodes: []string{a.cfg.LanguageCode},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   int32(a.cfg.SampleRateHz),
							AudioChannelCount: int32(a.cfg.ChannelCount),
						},
					},
					Features: &speechpb.RecognitionFeatures{
						EnableWordTimeOffsets: true,
						EnableWordConfidence:  true,
					},
				},
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{
					InterimResults:            a.cfg.InterimResults,
					EnableVoiceActivityEvents: true,
				},
			},
		},
	}
	if err := stream.Send(cfgReq); err != nil {
		_ = stream.CloseSend()
		return nil, fmt.Errorf("google stt: send streaming config: %w", err)
	}
	return stream, nil
}

// reconnectLocked re-establishes the stream with backoff. Must be called
// with a.mu held. Committed word indices survive the reconnect, so the
// aggregator keeps a consistent global ordering across stream rotations.
func (a *Adapter) reconnectLocked(ctx context.Context) error {
	_ = a.stream.CloseSend()

	err := resilience.Do(ctx, a.cfg.Retry, func() error {
		next, err := a.openStream(a.ctx)
		if err != nil {
			return err
		}
		a.stream = next
		a.spawnListener(next)
		return nil
	}, resilience.IsRetryableStreamError)
	if err != nil {
		return err
	}

	a.m.RecordStreamReconnect(Provider)
	a.logger.Info().Msg("Recognition stream reconnected")
	return nil
}

// listen receives recognition responses and invokes callbacks until the
// stream ends. A reconnectable end simply stops this loop; the send path
// opens the replacement stream with its own listener.
func (a *Adapter) listen(stream speechpb.Speech_StreamingRecognizeClient) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			a.handleRecvError(err)
			return
		}

		if resp.GetSpeechEventType() == speechpb.StreamingRecognizeResponse_END_OF_SINGLE_UTTERANCE ||
			resp.GetSpeechEventType() == speechpb.StreamingRecognizeResponse_SPEECH_ACTIVITY_END {
			a.cb.OnEndOfUtterance()
		}

		a.mu.Lock()
		u, ok := a.window.update(resp)
		a.mu.Unlock()
		if ok {
			a.cb.OnWordUpdate(u)
		}
	}
}

func (a *Adapter) handleRecvError(err error) {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()

	if closed || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) ||
		status.Code(err) == codes.Canceled {
		return
	}
	if resilience.IsRetryableStreamError(err) {
		// Send-side reconnect will rotate the stream.
		a.logger.Warn().Err(err).Msg("Receive loop ended with reconnectable error")
		return
	}

	a.m.RecordSTTError(Provider, status.Code(err).String())
	a.cb.OnError(err)
}
