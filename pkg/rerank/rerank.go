package rerank

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zen-systems/tripmate/pkg/adapter"
	"github.com/zen-systems/tripmate/pkg/place"
)

var tagPattern = regexp.MustCompile(`\[P(\d+)\]`)

// Reranker asks a generation model to reorder candidates.
type Reranker struct {
	gen    adapter.Generator
	logger func(format string, args ...any)
}

// Option configures a Reranker.
type Option func(*Reranker)

// WithLogger sets a custom logger.
func WithLogger(logger func(format string, args ...any)) Option {
	return func(r *Reranker) {
		r.logger = logger
	}
}

// New creates a reranker backed by gen.
func New(gen adapter.Generator, opts ...Option) *Reranker {
	r := &Reranker{gen: gen, logger: log.Printf}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank returns places in the order the model prefers for the personality.
// Places the model does not mention are dropped. When the reply mentions none
// of them, the input order is returned unchanged.
func (r *Reranker) Rerank(ctx context.Context, places []place.Place, p Personality) ([]place.Place, error) {
	directive := Directive(p)
	if len(places) <= 1 || directive == "" {
		return places, nil
	}

	resp, err := r.gen.Generate(ctx, BuildPrompt(directive, places))
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	ordered := Reassociate(resp.Content, places)
	if len(ordered) == 0 {
		r.logger("[rerank] reply matched no candidates; keeping provider order")
		return places, nil
	}
	if dropped := len(places) - len(ordered); dropped > 0 {
		r.logger("[rerank] %d candidates missing from model order were dropped", dropped)
	}
	return ordered, nil
}

// BuildPrompt serializes the candidates, each prefixed with a [P<n>] tag the
// model must echo.
func BuildPrompt(directive string, places []place.Place) string {
	var sb strings.Builder
	sb.WriteString(directive)
	sb.WriteString("\n장소 목록:\n")
	for i, p := range places {
		fmt.Fprintf(&sb, "[P%d] 장소 이름: %s\n", i+1, p.Title)
		if p.Rating != nil {
			fmt.Fprintf(&sb, "    별점: %s\n", strconv.FormatFloat(*p.Rating, 'f', -1, 64))
		} else {
			sb.WriteString("    별점: 없음\n")
		}
		fmt.Fprintf(&sb, "    주소: %s\n", p.Address)
		fmt.Fprintf(&sb, "    설명: %s\n", p.Description)
		price := p.Price
		if price == "" {
			price = "없음"
		}
		fmt.Fprintf(&sb, "    가격: %s\n", price)
	}
	sb.WriteString("\n위 성향에 맞게 장소 목록을 재정렬해주세요. 해당 성향에 적합한 장소를 먼저 정렬해주세요. ")
	sb.WriteString("모든 장소를 사용해야하고 중복되지 않게 해주세요. 이 장소 말고 다른 장소는 추가해서 안돼. ")
	sb.WriteString("한 줄에 한 장소씩, 각 줄은 반드시 [P번호] 태그로 시작해주세요.")
	return sb.String()
}

// Reassociate maps each reply line back to a candidate. A [P<n>] tag wins;
// otherwise the longest candidate title contained in the line is used, so a
// title that prefixes another cannot steal its line. Identical titles bind in
// input order. Each candidate is emitted at most once.
func Reassociate(reply string, places []place.Place) []place.Place {
	byLength := make([]int, len(places))
	for i := range byLength {
		byLength[i] = i
	}
	sort.SliceStable(byLength, func(a, b int) bool {
		return len(places[byLength[a]].Title) > len(places[byLength[b]].Title)
	})

	used := make([]bool, len(places))
	var out []place.Place
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := matchTag(line, len(places))
		if idx < 0 {
			idx = matchTitle(line, places, byLength, used)
		}
		if idx < 0 || used[idx] {
			continue
		}
		used[idx] = true
		out = append(out, places[idx])
	}
	return out
}

func matchTag(line string, n int) int {
	m := tagPattern.FindStringSubmatch(line)
	if m == nil {
		return -1
	}
	num, err := strconv.Atoi(m[1])
	if err != nil || num < 1 || num > n {
		return -1
	}
	return num - 1
}

func matchTitle(line string, places []place.Place, byLength []int, used []bool) int {
	matched := -1
	for _, i := range byLength {
		title := places[i].Title
		if title == "" {
			continue
		}
		if matched >= 0 && len(title) < matched {
			break
		}
		if strings.Contains(line, title) {
			if !used[i] {
				return i
			}
			matched = len(title)
		}
	}
	return -1
}
