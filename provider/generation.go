package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"genadapter/config"

	"github.com/google/uuid"
)

const (
	// DefaultNamespace is the credential namespace used when none is given.
	DefaultNamespace = "BANANA"

	// DefaultTextThinkingBudget is forwarded by GenerateText unless overridden.
	DefaultTextThinkingBudget = 1000
	// DefaultVisionThinkingBudget is forwarded by GenerateWithImage unless overridden.
	DefaultVisionThinkingBudget = 0
)

// GenerationProvider generates text, optionally conditioned on an image, for
// one fixed Identity. It is safe for concurrent use.
type GenerationProvider struct {
	identity  Identity
	namespace string
	factory   ClientFactory
	resolver  CredentialResolver
	recorder  Recorder
	cache     *clientCache
	text      Client
}

// Option configures a GenerationProvider.
type Option func(*providerOptions)

type providerOptions struct {
	namespace string
	factory   ClientFactory
	resolver  CredentialResolver
	recorder  Recorder
}

// WithFactory sets the backend client factory. Without it the provider uses
// NewSDKFactory with credentials from the resolver's store when available.
func WithFactory(f ClientFactory) Option {
	return func(o *providerOptions) { o.factory = f }
}

// WithCredentialResolver sets the credential resolver invoked before every
// client construction. Without it, and without WithFactory, keys are resolved
// from <NAMESPACE>_<SOURCE>_API_KEY and GENADAPTER_<SOURCE>_API_KEY.
func WithCredentialResolver(r CredentialResolver) Option {
	return func(o *providerOptions) { o.resolver = r }
}

// WithNamespace overrides DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(o *providerOptions) { o.namespace = ns }
}

// WithRecorder attaches a Recorder that is told about every generation.
func WithRecorder(r Recorder) Option {
	return func(o *providerOptions) { o.recorder = r }
}

// NewGenerationProvider validates the backend capability for source,
// resolves its credentials and builds the text client. Any failure is
// returned here; a provider that was constructed always has a text client.
func NewGenerationProvider(source, model string, opts ...Option) (*GenerationProvider, error) {
	o := providerOptions{namespace: DefaultNamespace}
	for _, opt := range opts {
		opt(&o)
	}

	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: source is required", ErrConfiguration)
	}

	if o.factory == nil {
		if o.resolver == nil {
			o.resolver = config.NewNamespaceResolver(nil, SourceRequiresKey)
		}
		o.factory = defaultFactory(o.resolver)
	}
	if o.factory == nil {
		return nil, fmt.Errorf("%w: no backend client factory available", ErrConfiguration)
	}
	if !o.factory.Supports(source) {
		return nil, fmt.Errorf("%w: no backend available for source %q", ErrConfiguration, source)
	}

	p := &GenerationProvider{
		identity:  Identity{Source: source, Model: model},
		namespace: o.namespace,
		factory:   o.factory,
		resolver:  o.resolver,
		recorder:  o.recorder,
		cache:     newClientCache(ModalityText, ModalityVision),
	}

	text, err := p.cache.get(ModalityText, p.builder(ModalityText))
	if err != nil {
		return nil, p.wrap("construct", ModalityText, err)
	}
	p.text = text

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Initialized %s/%s (namespace %s)", source, model, p.namespace)
	}
	return p, nil
}

// builder returns the construction function for a modality slot. Credentials
// are resolved on every attempt, so a failed lazy construction can succeed
// once the credential is supplied.
func (p *GenerationProvider) builder(m Modality) func() (Client, error) {
	return func() (Client, error) {
		if p.resolver != nil {
			if err := p.resolver.Ensure(p.identity.Source, p.namespace); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrCredential, err)
			}
		}
		c, err := p.factory.NewClient(p.identity, m)
		if err != nil {
			return nil, classify(err)
		}
		return c, nil
	}
}

// Identity returns the source and model this provider is bound to.
func (p *GenerationProvider) Identity() Identity {
	return p.identity
}

// GenerateOption adjusts a single generation call.
type GenerateOption func(*Request)

// WithThinkingBudget overrides the default thinking budget for one call.
func WithThinkingBudget(n int) GenerateOption {
	return func(r *Request) { r.ThinkingBudget = n }
}

// GenerateText sends prompt to the text client and returns the sanitized
// response.
func (p *GenerationProvider) GenerateText(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	req := Request{Prompt: prompt, ThinkingBudget: DefaultTextThinkingBudget}
	for _, opt := range opts {
		opt(&req)
	}
	return p.generate(ctx, ModalityText, p.text, req)
}

// GenerateWithImage sends prompt together with imageRef to the vision
// client, building that client first if no call has done so yet.
func (p *GenerationProvider) GenerateWithImage(ctx context.Context, prompt, imageRef string, opts ...GenerateOption) (string, error) {
	req := Request{
		Prompt:         prompt,
		Attachments:    []string{imageRef},
		ThinkingBudget: DefaultVisionThinkingBudget,
	}
	for _, opt := range opts {
		opt(&req)
	}

	vision, err := p.cache.get(ModalityVision, p.builder(ModalityVision))
	if err != nil {
		err = p.wrap("construct", ModalityVision, err)
		p.record(ctx, ModalityVision, req, 0, err)
		return "", err
	}
	return p.generate(ctx, ModalityVision, vision, req)
}

func (p *GenerationProvider) generate(ctx context.Context, m Modality, c Client, req Request) (string, error) {
	start := time.Now()
	raw, err := c.Invoke(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		err = p.wrap("invoke", m, classify(err))
		p.record(ctx, m, req, elapsed, err)
		return "", err
	}
	p.record(ctx, m, req, elapsed, nil)
	return StripThinkTags(raw), nil
}

// Ping checks the text client's backend if the client supports it.
func (p *GenerationProvider) Ping(ctx context.Context) error {
	pinger, ok := p.text.(Pinger)
	if !ok {
		return nil
	}
	if err := pinger.Ping(ctx); err != nil {
		return p.wrap("ping", ModalityText, classify(err))
	}
	return nil
}

// Stats reports the state and construction counters of each modality slot.
func (p *GenerationProvider) Stats() map[Modality]SlotStats {
	return p.cache.stats()
}

func (p *GenerationProvider) wrap(op string, m Modality, err error) error {
	return &GenerationError{
		Op:       op,
		Source:   p.identity.Source,
		Model:    p.identity.Model,
		Modality: m,
		Err:      err,
	}
}

// record forwards an event to the recorder. Recorder failures are logged and
// never change the outcome of the generation.
func (p *GenerationProvider) record(ctx context.Context, m Modality, req Request, d time.Duration, err error) {
	if p.recorder == nil {
		return
	}
	ev := Event{
		RequestID:      uuid.NewString(),
		Source:         p.identity.Source,
		Model:          p.identity.Model,
		Modality:       m,
		ThinkingBudget: req.ThinkingBudget,
		PromptChars:    len([]rune(req.Prompt)),
		Duration:       d,
		Err:            err,
	}
	if len(req.Attachments) > 0 {
		ev.ImageRef = shortRef(req.Attachments[0])
	}
	if rerr := p.recorder.Record(ctx, ev); rerr != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Warning: failed to record %s generation: %v", m, rerr)
	}
}
