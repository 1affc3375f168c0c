package analytics

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"

	"github.com/hitoshi/tubedash/internal/model"
)

// WordCount is one word-cloud entry.
type WordCount struct {
	Word  string
	Count int
}

// WordFrequencies tokenizes texts on whitespace, folds tokens to lower-case
// ASCII, drops English stop words and returns the limit most frequent words.
// Ties are ordered alphabetically. limit <= 0 returns every word.
func WordFrequencies(texts []string, limit int) []WordCount {
	counts := make(map[string]int)
	for _, text := range texts {
		for _, tok := range strings.Fields(text) {
			w := normalizeToken(tok)
			if w == "" {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			counts[w]++
		}
	}

	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// TitleTexts returns every present title.
func TitleTexts(records []model.VideoRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if t, ok := r.Title.Get(); ok {
			out = append(out, t)
		}
	}
	return out
}

// TagTexts returns every tag of every record.
func TagTexts(records []model.VideoRecord) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Tags.Or(nil)...)
	}
	return out
}

func normalizeToken(tok string) string {
	w := strings.ToLower(unidecode.Unidecode(tok))
	w = strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(w) < 2 {
		return ""
	}
	return w
}

// stopWords is the English stop-word list used for word clouds.
var stopWords = func() map[string]struct{} {
	words := strings.Fields(`
		i me my myself we our ours ourselves you your yours yourself yourselves
		he him his himself she her hers herself it its itself they them their
		theirs themselves what which who whom this that these those am is are
		was were be been being have has had having do does did doing a an the
		and but if or because as until while of at by for with about against
		between into through during before after above below to from up down in
		out on off over under again further then once here there when where why
		how all any both each few more most other some such no nor not only own
		same so than too very s t can will just don should now d ll m o re ve y
		ain aren couldn didn doesn hadn hasn haven isn ma mightn mustn needn shan
		shouldn wasn weren won wouldn
	`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
