// Package textnorm 提供跨站点比较用的字符串规范化与语言启发式。
//
// 所有函数都是纯函数，阈值为固定常量（测试依赖其精确值）。
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// JapaneseKanaRatio：假名占比严格大于该值才视为日文。
	JapaneseKanaRatio = 0.05
	// EnglishASCIIRatio：ASCII 字母/空格/逗号/句点占比严格大于该值才视为英文。
	EnglishASCIIRatio = 0.8
)

// punctuation 是 Normalize 会删除的固定标点集合（ASCII + 常见全角/CJK 标点）。
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~" +
	"、。，．・：；？！「」『』【】（）〈〉《》〔〕～－—‘’“”…·"

var punctSet = func() map[rune]struct{} {
	m := make(map[rune]struct{}, utf8.RuneCountInString(punctuation))
	for _, r := range punctuation {
		m[r] = struct{}{}
	}
	return m
}()

// Normalize 把字符串变为比较用的规范形态：NFKC、小写、去掉空白与固定标点。
//
// 幂等：Normalize(Normalize(s)) == Normalize(s)。
// 删除字符后可能出现新的可组合序列，因此末尾再做一次 NFKC。
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if _, ok := punctSet[r]; ok {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFKC.String(b.String())
}

var (
	brRE      = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlTagRE = regexp.MustCompile(`<[^>]*>`)
	bracketRE = regexp.MustCompile(`\[[^\]]*\]`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
)

// Clean 把富文本（HTML / BBCode / VNDB 标记）清理为纯文本。
//
// 顺序固定：<br> 换行 → 去 HTML 标签 → 解码固定实体 → 去 [...] 标记 → trim。
// 输入为空或清理后为空时返回 nil。
func Clean(rich string) *string {
	if strings.TrimSpace(rich) == "" {
		return nil
	}
	s := brRE.ReplaceAllString(rich, "\n")
	s = htmlTagRE.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	s = bracketRE.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// LooksJapanese：假名（U+3040–U+30FF）占总字符数的比例严格大于 JapaneseKanaRatio。
func LooksJapanese(text string) bool {
	total, kana := 0, 0
	for _, r := range text {
		total++
		if r >= 0x3040 && r <= 0x30FF {
			kana++
		}
	}
	if total == 0 {
		return false
	}
	return float64(kana)/float64(total) > JapaneseKanaRatio
}

// LooksEnglish：ASCII 字母、空格、逗号、句点占总字符数的比例严格大于 EnglishASCIIRatio。
func LooksEnglish(text string) bool {
	total, ascii := 0, 0
	for _, r := range text {
		total++
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == ' ', r == ',', r == '.':
			ascii++
		}
	}
	if total == 0 {
		return false
	}
	return float64(ascii)/float64(total) > EnglishASCIIRatio
}
