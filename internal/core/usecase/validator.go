package usecase

import (
	"context"
	"strings"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
)

const defaultValidatorThreshold = 0.8

// EntityValidator audits department names in a drafted answer against
// the entity names actually observed in tool output during the turn.
// Relaxed policy rewrites near-misses above the threshold; strict policy
// additionally strikes names with no evidence at all.
type EntityValidator struct {
	registry  ports.NameRegistry
	matcher   *DepartmentMatcher
	policy    domain.ValidatorPolicy
	threshold float64
}

func NewEntityValidator(registry ports.NameRegistry, matcher *DepartmentMatcher, policy domain.ValidatorPolicy, threshold float64) *EntityValidator {
	if threshold <= 0 || threshold > 1 {
		threshold = defaultValidatorThreshold
	}
	if policy == "" {
		policy = domain.ValidatorRelaxed
	}
	return &EntityValidator{
		registry:  registry,
		matcher:   matcher,
		policy:    policy,
		threshold: threshold,
	}
}

// ValidateAnswer returns the answer with unverifiable department names
// corrected or removed, plus one record per intervention. With no
// observed names, relaxed policy passes the answer through: no evidence
// means nothing to check against. Strict policy treats the empty set as
// evidence of nothing, so every department mention is unverified and
// gets removed.
func (v *EntityValidator) ValidateAnswer(ctx context.Context, answer string, observed []string) (string, []domain.NameCorrection) {
	if answer == "" {
		return answer, nil
	}
	if len(observed) == 0 && v.policy != domain.ValidatorStrict {
		return answer, nil
	}

	observedSet := make(map[string]struct{}, len(observed))
	for _, name := range observed {
		observedSet[name] = struct{}{}
		for _, variant := range v.registry.AllDepartmentVariants(name) {
			observedSet[variant] = struct{}{}
		}
	}

	mentions := extractDepartmentMentions(answer)

	var corrections []domain.NameCorrection
	result := answer
	seen := make(map[string]struct{}, len(mentions))
	for _, mention := range mentions {
		if _, done := seen[mention]; done {
			continue
		}
		seen[mention] = struct{}{}

		if _, ok := observedSet[mention]; ok {
			continue
		}

		candidates := v.matcher.MatchWithin(ctx, mention, observed)
		if len(candidates) > 0 && candidates[0].FusedScore >= v.threshold {
			best := candidates[0]
			result = strings.ReplaceAll(result, mention, best.Name)
			corrections = append(corrections, domain.NameCorrection{
				Original:   mention,
				ReplacedBy: best.Name,
				FusedScore: best.FusedScore,
			})
			continue
		}

		if v.policy == domain.ValidatorStrict {
			result = removeMention(result, mention)
			corrections = append(corrections, domain.NameCorrection{
				Original: mention,
				Removed:  true,
			})
		}
	}
	return result, corrections
}

// extractDepartmentMentions pulls department-shaped tokens out of answer
// prose with the same patterns the resolver applies to questions.
func extractDepartmentMentions(text string) []string {
	var mentions []string
	for i, re := range departmentRes {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			raw := text[m[2]:m[3]]
			if i == len(departmentRes)-1 {
				rest := text[m[3]:]
				if strings.HasPrefix(rest, "과") || strings.HasPrefix(rest, "부") || strings.HasPrefix(rest, "학") {
					continue
				}
			}
			token := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
			if len([]rune(token)) < 2 {
				continue
			}
			if _, stop := departmentStopwords[token]; stop {
				continue
			}
			switch i {
			case 0:
				token += "과"
			case 1:
				token += "부"
			case 2:
				token += "학과"
			case 3:
				token += "학부"
			}
			mentions = append(mentions, token)
		}
	}
	return dedupStrings(mentions)
}

func dedupStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Particles that attach directly to a department name. Ordered longest
// first so 에서는 wins over 에서 wins over 는.
var trailingParticles = []string{
	"에서는", "으로는", "이라는", "에서", "으로", "라는",
	"에는", "은", "는", "이", "가", "을", "를", "과", "와", "의", "도", "에", "로",
}

// removeMention strikes the name and any particle glued to it from the
// text, collapsing doubled separators left behind.
func removeMention(text, mention string) string {
	for {
		idx := strings.Index(text, mention)
		if idx < 0 {
			break
		}
		end := idx + len(mention)
		for _, p := range trailingParticles {
			if strings.HasPrefix(text[end:], p) {
				end += len(p)
				break
			}
		}
		if end < len(text) && text[end] == ' ' {
			end++
		}
		text = text[:idx] + text[end:]
	}
	text = strings.ReplaceAll(text, ", ,", ",")
	text = strings.ReplaceAll(text, " ,", ",")
	text = strings.ReplaceAll(text, "  ", " ")
	return strings.TrimSpace(text)
}
