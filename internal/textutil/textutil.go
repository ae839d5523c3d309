// Package textutil 提供文本清洗、关键词提取与分块等基础工具。
package textutil

import (
	"regexp"
	"sort"
	"strings"
)

var (
	reSpace    = regexp.MustCompile(`\s+`)
	reKeep     = regexp.MustCompile(`[^\w\s\-\.\(\)\[\]\/\+\=\<\>]`)
	reWord     = regexp.MustCompile(`\b[a-zA-Z]{2,}\b`)
	reSentence = regexp.MustCompile(`[.!?]+`)
	reURL      = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)
	reDOI      = regexp.MustCompile(`10\.\d{4,}/[^\s]+`)
	reYear     = regexp.MustCompile(`\b(19[0-9]{2}|20[0-2][0-9]|2030)\b`)
	reNamePunc = regexp.MustCompile(`[^\w\s\-\.]`)
)

// 关键词提取时忽略的常见功能词。
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "may": {}, "might": {}, "must": {}, "can": {},
	"cannot": {}, "not": {}, "no": {}, "yes": {}, "we": {}, "our": {},
	"us": {}, "i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "they": {},
	"them": {}, "his": {}, "her": {}, "its": {}, "their": {},
}

// CleanText 归一空白并去除无关符号，保留科学记号常用的括号与运算符。
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = reSpace.ReplaceAllString(strings.TrimSpace(text), " ")
	return reKeep.ReplaceAllString(text, "")
}

// ExtractSentences 按句末标点简单切句。
func ExtractSentences(text string) []string {
	if text == "" {
		return nil
	}
	var sentences []string
	for _, s := range reSentence.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// ExtractKeywords 基于词频提取关键词，过滤停用词。
// 同频词按首次出现顺序排列，结果确定。
func ExtractKeywords(text string, maxKeywords int) []string {
	if text == "" || maxKeywords <= 0 {
		return nil
	}
	cleaned := CleanText(strings.ToLower(text))

	counts := make(map[string]int)
	var order []string
	for _, word := range reWord.FindAllString(cleaned, -1) {
		if _, skip := stopWords[word]; skip || len(word) <= 2 {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}

// ChunkText 将长文本切分为带重叠的分块，尽量在词边界断开。
// 每块长度不超过 chunkSize，相邻块重叠不超过 overlap。
func ChunkText(text string, chunkSize, overlap int) []string {
	if text == "" {
		return nil
	}
	if chunkSize <= 0 || len(text) <= chunkSize {
		return []string{text}
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end < len(text) {
			// 在块内回找空格，避免切断单词；要求断点在重叠区之后，保证推进
			if spacePos := strings.LastIndex(text[start:end], " "); spacePos > overlap {
				end = start + spacePos
			}
		} else {
			end = len(text)
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(text) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// ExtractURLs 提取文本中的 URL，去重并保持首次出现顺序。
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var urls []string
	for _, u := range reURL.FindAllString(text, -1) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

// ExtractDOI 提取文本中的第一个 DOI，没有则返回空串。
func ExtractDOI(text string) string {
	return reDOI.FindString(text)
}

// ExtractYears 提取 1900-2030 范围内的年份，去重并保持首次出现顺序。
func ExtractYears(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var years []string
	for _, y := range reYear.FindAllString(text, -1) {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	return years
}

// NormalizeAuthorName 规范化作者姓名：去除杂符、归一空白、首字母大写。
func NormalizeAuthorName(name string) string {
	if name == "" {
		return ""
	}
	name = reNamePunc.ReplaceAllString(strings.TrimSpace(name), "")
	name = reSpace.ReplaceAllString(name, " ")

	parts := strings.Fields(name)
	for i, part := range parts {
		if len(part) == 1 || (len(part) == 2 && strings.HasSuffix(part, ".")) {
			// 姓名缩写
			parts[i] = strings.ToUpper(part)
		} else {
			parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return strings.Join(parts, " ")
}

// TextSimilarity 计算两段文本的 Jaccard 词重叠相似度，范围 [0,1]。
func TextSimilarity(text1, text2 string) float64 {
	if text1 == "" || text2 == "" {
		return 0
	}
	words1 := wordSet(text1)
	words2 := wordSet(text2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0
	}

	intersection := 0
	for w := range words1 {
		if _, ok := words2[w]; ok {
			intersection++
		}
	}
	union := len(words1) + len(words2) - intersection
	return float64(intersection) / float64(union)
}

var reAnyWord = regexp.MustCompile(`\b\w+\b`)

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range reAnyWord.FindAllString(strings.ToLower(text), -1) {
		set[w] = struct{}{}
	}
	return set
}
