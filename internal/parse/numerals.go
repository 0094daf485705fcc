package parse

import (
	"sort"
	"strings"
)

// Spoken Korean numbers arrive in two systems: Sino-Korean (일, 이,
// 삼 with 십/백 place units) and native (하나, 둘, 셋). Both are
// normalized to Arabic digits before reference extraction. Whisper
// also mishears a handful of frequent Sino forms; those are corrected
// to canonical spellings first.

// sttCorrections fixes common STT substitutions before conversion.
var sttCorrections = map[string]string{
	"신육": "십육", "시육": "십육", "심육": "십육", "시뉵": "십육",
	"신칠": "십칠", "심칠": "십칠",
	"신팔": "십팔",
	"신구": "십구",
}

// sinoDigits maps single Sino-Korean digit syllables.
var sinoDigits = map[rune]int{
	'일': 1, '이': 2, '삼': 3, '사': 4, '오': 5,
	'육': 6, '륙': 6, '칠': 7, '팔': 8, '구': 9,
}

// sinoUnits maps Sino-Korean place units.
var sinoUnits = map[rune]int{
	'십': 10, '백': 100, '천': 1000,
}

// nativeOnes and nativeTens cover the native Korean system, which
// composes as tens-word + ones-word (열여섯 = 16).
var nativeOnes = map[string]int{
	"하나": 1, "한": 1, "둘": 2, "두": 2, "셋": 3, "세": 3, "넷": 4, "네": 4,
	"다섯": 5, "여섯": 6, "일곱": 7, "여덟": 8, "아홉": 9,
}

var nativeTens = map[string]int{
	"열": 10, "스물": 20, "서른": 30, "마흔": 40, "쉰": 50,
	"예순": 60, "일흔": 70, "여든": 80, "아흔": 90,
}

var (
	correctionReplacer *strings.Replacer
	nativeReplacer     *strings.Replacer
)

func init() {
	pairs := make([]string, 0, len(sttCorrections)*2)
	for from, to := range sttCorrections {
		pairs = append(pairs, from, to)
	}
	correctionReplacer = strings.NewReplacer(pairs...)
	nativeReplacer = buildNativeReplacer()
}

func buildNativeReplacer() *strings.Replacer {
	type repl struct {
		from string
		to   string
	}
	var rs []repl
	for tw, tv := range nativeTens {
		for ow, ov := range nativeOnes {
			rs = append(rs, repl{tw + ow, itoa(tv + ov)})
		}
		rs = append(rs, repl{tw, itoa(tv)})
	}
	for ow, ov := range nativeOnes {
		// Single-syllable determiner forms (한, 두, 세, 네) are too
		// common in ordinary speech to rewrite in isolation.
		if len([]rune(ow)) < 2 {
			continue
		}
		rs = append(rs, repl{ow, itoa(ov)})
	}
	// Longest pattern first so 열여섯 wins over 열.
	sort.Slice(rs, func(i, j int) bool { return len(rs[i].from) > len(rs[j].from) })
	pairs := make([]string, 0, len(rs)*2)
	for _, r := range rs {
		pairs = append(pairs, r.from, r.to)
	}
	return strings.NewReplacer(pairs...)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// NormalizeNumbers rewrites spoken Korean numerals in text to Arabic
// digits. Runs of Sino-Korean syllables are composed positionally
// (삼십육 → 36, 백오십 → 150); whitespace splits runs, so "삼 십육"
// stays two numbers (3 16).
func NormalizeNumbers(text string) string {
	text = correctionReplacer.Replace(text)
	text = nativeReplacer.Replace(text)

	var out strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if _, ok := sinoDigits[runes[i]]; !ok {
			if _, ok := sinoUnits[runes[i]]; !ok {
				out.WriteRune(runes[i])
				i++
				continue
			}
		}
		j := i
		for j < len(runes) {
			if _, ok := sinoDigits[runes[j]]; ok {
				j++
				continue
			}
			if _, ok := sinoUnits[runes[j]]; ok {
				j++
				continue
			}
			break
		}
		out.WriteString(itoa(composeSino(runes[i:j])))
		i = j
	}
	return out.String()
}

// composeSino evaluates one run of Sino-Korean numeral syllables.
func composeSino(run []rune) int {
	value, current := 0, 0
	for _, r := range run {
		if d, ok := sinoDigits[r]; ok {
			current = current*10 + d
			continue
		}
		unit := sinoUnits[r]
		if current == 0 {
			current = 1
		}
		value += current * unit
		current = 0
	}
	return value + current
}
