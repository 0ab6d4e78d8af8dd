package place

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"
)

// Translator converts description text between languages.
type Translator interface {
	Translate(ctx context.Context, text string, source, target language.Tag) (string, error)
}

// NopTranslator returns text unchanged.
type NopTranslator struct{}

// Translate returns text as is.
func (NopTranslator) Translate(_ context.Context, text string, _, _ language.Tag) (string, error) {
	return text, nil
}

// GoogleTranslator uses the Cloud Translation v2 API.
type GoogleTranslator struct {
	svc *translate.Service
}

// NewGoogleTranslator creates a translator authenticated with an API key.
func NewGoogleTranslator(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GoogleTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("translate API key is required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := translate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translate service: %w", err)
	}
	return &GoogleTranslator{svc: svc}, nil
}

// Translate sends one text segment for translation.
func (t *GoogleTranslator) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	resp, err := t.svc.Translations.List([]string{text}, target.String()).
		Source(source.String()).
		Format("text").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("translate API error: %w", err)
	}
	if len(resp.Translations) == 0 {
		return "", fmt.Errorf("translate returned no translations")
	}
	return resp.Translations[0].TranslatedText, nil
}

// CachedTranslator memoizes translations in process.
type CachedTranslator struct {
	next  Translator
	cache *cache.Cache
}

// NewCachedTranslator wraps next with a TTL cache.
func NewCachedTranslator(next Translator, ttl time.Duration) *CachedTranslator {
	return &CachedTranslator{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Translate returns a cached translation or asks the wrapped translator.
func (t *CachedTranslator) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	key := source.String() + "|" + target.String() + "|" + text
	if v, ok := t.cache.Get(key); ok {
		return v.(string), nil
	}
	out, err := t.next.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}
	t.cache.SetDefault(key, out)
	return out, nil
}
