package bot

import (
	"strings"
	"unicode/utf16"
)

// maxMessageLength - предел длины текста сообщения Telegram в кодовых единицах UTF-16.
const maxMessageLength = 4096

// splitMessage делит текст на части не длиннее limit, разрывая его по
// границам строк. Строка длиннее limit режется по символам.
func splitMessage(text string, limit int) []string {
	if utf16Len(text) <= limit {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		lineLen := utf16Len(line)
		if lineLen > limit {
			flush()
			chunks = append(chunks, splitLine(line, limit)...)
			continue
		}

		sep := 0
		if current.Len() > 0 {
			sep = 1
		}
		if size+sep+lineLen > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
		size += sep + lineLen
	}
	flush()
	return chunks
}

func splitLine(line string, limit int) []string {
	var (
		parts []string
		part  []rune
		size  int
	)
	for _, r := range line {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if size+n > limit {
			parts = append(parts, string(part))
			part, size = part[:0], 0
		}
		part = append(part, r)
		size += n
	}
	if len(part) > 0 {
		parts = append(parts, string(part))
	}
	return parts
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}
