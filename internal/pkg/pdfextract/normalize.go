package pdfextract

import "strings"

// DigitRunMark prefixes every digit run NormalizeArabic has already reversed.
const DigitRunMark = '\u200E'

const (
	reversedRiyal = "لاير"
	riyal         = "ريال"
)

// NormalizeArabic fixes the right-to-left extraction artifacts of Arabic PDFs:
// the reversed riyal word and runs of Arabic-Indic digits that come out backwards.
// Corrected runs of two or more digits are marked with DigitRunMark so a second
// pass leaves them alone.
func NormalizeArabic(text string) string {
	text = strings.ReplaceAll(text, reversedRiyal, riyal)

	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text) + 8)

	for i := 0; i < len(runes); {
		if !isArabicDigit(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isArabicDigit(runes[j]) {
			j++
		}
		run := runes[i:j]
		marked := i > 0 && runes[i-1] == DigitRunMark
		if len(run) < 2 || marked {
			b.WriteString(string(run))
		} else {
			b.WriteRune(DigitRunMark)
			for k := len(run) - 1; k >= 0; k-- {
				b.WriteRune(run[k])
			}
		}
		i = j
	}
	return b.String()
}

func isArabicDigit(r rune) bool {
	return r >= '٠' && r <= '٩'
}
