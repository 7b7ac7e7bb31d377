package game

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Translator resolves the set of acceptable translations for a word.
type Translator interface {
	Translate(word string) ([]string, error)
}

// Normalize puts an answer into canonical form for comparison: NFC,
// lowercased, surrounding whitespace removed.
func Normalize(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(s)))
}

// LookupClient fetches translations from the mymemory translation API and
// caches the results so that repeated matches over a small dictionary do
// not hammer the remote service.
type LookupClient struct {
	baseURL string
	client  *http.Client
	cache   *cache.Cache
}

func NewLookupClient(baseURL string) *LookupClient {
	return &LookupClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache.New(time.Hour, 2*time.Hour),
	}
}

type lookupResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	Matches []struct {
		Segment     string `json:"segment"`
		Translation string `json:"translation"`
	} `json:"matches"`
}

// Translate returns every candidate translation the service offers for
// word. An answer matching any of them counts as correct.
func (l *LookupClient) Translate(word string) ([]string, error) {
	if cached, found := l.cache.Get(word); found {
		return cached.([]string), nil
	}

	requestURL := fmt.Sprintf("%s?q=%s&langpair=it|en", l.baseURL, url.QueryEscape(word))
	resp, err := l.client.Get(requestURL)
	if err != nil {
		return nil, fmt.Errorf("error requesting translation for %q: %w", word, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("translation service returned status %d for %q", resp.StatusCode, word)
	}

	var parsed lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error decoding translation response for %q: %w", word, err)
	}

	var translations []string
	seen := make(map[string]struct{})
	add := func(translation string) {
		normalized := Normalize(translation)
		if normalized == "" {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		translations = append(translations, normalized)
	}

	add(parsed.ResponseData.TranslatedText)
	for _, match := range parsed.Matches {
		if Normalize(match.Segment) == Normalize(word) {
			add(match.Translation)
		}
	}

	if len(translations) == 0 {
		return nil, fmt.Errorf("translation service returned no translations for %q", word)
	}

	l.cache.Set(word, translations, cache.DefaultExpiration)
	return translations, nil
}
