package entity

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"kosmos-go/internal/model"
)

// 模式抽取使用的领域词表，取自空间生物学语料的高频实体。
var (
	organismPatterns = compileAll(
		`\b(?:mus musculus|mouse|mice)\b`,
		`\b(?:homo sapiens|human|humans)\b`,
		`\b(?:rattus norvegicus|rat|rats)\b`,
		`\b(?:drosophila|fruit fly|flies)\b`,
		`\b(?:caenorhabditis elegans|c\.?\s*elegans|nematode)\b`,
		`\b(?:arabidopsis|plant|plants)\b`,
		`\b(?:zebrafish|danio rerio)\b`,
		`\b(?:saccharomyces cerevisiae|yeast)\b`,
	)

	tissuePatterns = compileAll(
		`\b(?:bone|bones|skeletal)\b`,
		`\b(?:muscle|muscles|muscular)\b`,
		`\b(?:brain|neural|neuronal)\b`,
		`\b(?:heart|cardiac|cardiovascular)\b`,
		`\b(?:liver|hepatic)\b`,
		`\b(?:kidney|renal)\b`,
		`\b(?:lung|pulmonary|respiratory)\b`,
		`\b(?:skin|dermal|epidermal)\b`,
		`\b(?:blood|hematologic|immune)\b`,
		`\b(?:stem cell|stem-cell)\b`,
	)

	missionPatterns = compileAll(
		`\b(?:iss|international space station)\b`,
		`\b(?:space shuttle|shuttle)\b`,
		`\b(?:apollo|gemini|mercury)\b`,
		`\b(?:mars|lunar|moon)\b`,
		`\b(?:spacex|dragon)\b`,
		`\b(?:soyuz|progress)\b`,
	)

	gravityPatterns = map[string][]*regexp.Regexp{
		model.GravityMicro: compileAll(
			`\bmicrogravity\b`, `\bzero.?g\b`, `\bspace.?flight\b`,
			`\bweightless\b`, `\borbital\b`,
		),
		model.GravityPartial: compileAll(
			`\bpartial.?gravity\b`, `\breduced.?gravity\b`,
			`\blunar.?gravity\b`, `\bmars.?gravity\b`,
		),
		model.GravityHyper: compileAll(
			`\bhypergravity\b`, `\bcentrifuge\b`, `\bincreased.?gravity\b`,
		),
	}

	studyPatterns = map[string][]*regexp.Regexp{
		model.StudyExperimental:  compileAll(`\bexperiment\b`, `\btrial\b`, `\btreatment\b`),
		model.StudyObservational: compileAll(`\bobservation\b`, `\bobserved\b`, `\bsurvey\b`),
		model.StudyComputational: compileAll(`\bmodel\b`, `\bsimulation\b`, `\bcomputational\b`),
		model.StudyReview:        compileAll(`\breview\b`, `\bmeta.?analysis\b`, `\bsystematic\b`),
	}

	// 重力/研究类型的判定顺序，保证结果确定。
	gravityOrder = []string{model.GravityMicro, model.GravityPartial, model.GravityHyper}
	studyOrder   = []string{model.StudyExperimental, model.StudyObservational, model.StudyComputational, model.StudyReview}

	genePattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,9}\b`)

	// 常见的非基因缩写，从基因候选中剔除。
	nonGenes = map[string]struct{}{
		"DNA": {}, "RNA": {}, "PCR": {}, "RT": {}, "PBS": {},
		"NASA": {}, "ISS": {}, "USA": {},
	}
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// PatternExtractor 基于正则模式抽取实体，无外部依赖、始终可用。
type PatternExtractor struct{}

// NewPatternExtractor 创建一个模式抽取器。
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract 对文本执行模式抽取，各类别结果去重并排序。
func (e *PatternExtractor) Extract(_ context.Context, text string) (model.Entities, error) {
	if text == "" {
		return model.Entities{}, nil
	}
	lower := strings.ToLower(text)

	entities := model.Entities{
		Organisms: matchAll(organismPatterns, lower),
		Tissues:   matchAll(tissuePatterns, lower),
		Missions:  matchAll(missionPatterns, lower),
		Genes:     extractGenes(text),
	}
	entities.GravityCondition = firstMatch(gravityPatterns, gravityOrder, lower)
	entities.StudyType = firstMatch(studyPatterns, studyOrder, lower)
	return entities, nil
}

func matchAll(patterns []*regexp.Regexp, lower string) []string {
	seen := make(map[string]struct{})
	for _, p := range patterns {
		for _, m := range p.FindAllString(lower, -1) {
			seen[m] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func extractGenes(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range genePattern.FindAllString(text, -1) {
		if _, skip := nonGenes[m]; skip {
			continue
		}
		seen[m] = struct{}{}
	}
	return sortedKeys(seen)
}

func firstMatch(patterns map[string][]*regexp.Regexp, order []string, lower string) string {
	for _, key := range order {
		for _, p := range patterns[key] {
			if p.MatchString(lower) {
				return key
			}
		}
	}
	return ""
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
