// Package parser содержит утилиты для разбора структурированных ответов
// языковой модели. Модель регулярно оборачивает JSON в markdown-ограждения,
// добавляет пояснительный текст до/после и обрывает ответ на середине,
// поэтому каждая точка извлечения проходит один и тот же конвейер:
// снять ограждения -> вырезать JSON-объект -> починить скобки -> декодировать.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// StripCodeFences удаляет markdown-ограждения ```json ... ``` вокруг текста.
// Текст без ограждений возвращается без изменений.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	// Срезаем открывающее ограждение вместе с меткой языка (```json, ``` и т.п.)
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if firstLine == "" || isFenceLanguage(firstLine) {
			trimmed = trimmed[idx+1:]
		}
	} else {
		trimmed = strings.TrimSpace(trimmed)
	}

	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func isFenceLanguage(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ExtractJSONObject находит в тексте первый '{' и соответствующую ему
// закрывающую скобку, учитывая строки и экранирование. Если баланс не
// сходится (обрезанный ответ), возвращает текст от первой '{' до конца -
// дальше его чинит RepairJSON.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	// Закрывающая скобка не найдена - отдаем хвост как есть.
	return text[start:], true
}

// RepairJSON дописывает недостающие закрывающие скобки в конец строки.
// Скобки внутри строковых литералов не учитываются.
func RepairJSON(jsonStr string) string {
	if jsonStr == "" {
		return jsonStr
	}

	counts := map[byte]int{'{': 0, '}': 0, '[': 0, ']': 0}
	inString := false
	escaped := false
	for i := 0; i < len(jsonStr); i++ {
		c := jsonStr[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		default:
			if !inString {
				if _, ok := counts[c]; ok {
					counts[c]++
				}
			}
		}
	}

	fixed := jsonStr
	if n := counts['['] - counts[']']; n > 0 {
		fixed += strings.Repeat("]", n)
	}
	if n := counts['{'] - counts['}']; n > 0 {
		fixed += strings.Repeat("}", n)
	}
	if fixed != jsonStr {
		zap.L().Debug("repaired unbalanced JSON brackets",
			zap.Int("original_len", len(jsonStr)),
			zap.Int("fixed_len", len(fixed)))
	}
	return fixed
}

// DecodeObject прогоняет сырой ответ модели через полный конвейер очистки
// и декодирует результат в v. Вызывающая сторона при ошибке применяет
// собственный fallback.
func DecodeObject(raw string, v interface{}) error {
	cleaned := StripCodeFences(raw)
	extracted, ok := ExtractJSONObject(cleaned)
	if !ok {
		return fmt.Errorf("no JSON object found in response")
	}
	repaired := RepairJSON(extracted)
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("failed to unmarshal model response: %w", err)
	}
	return nil
}

// EnsureArray нормализует JSON, в котором вместо ожидаемого массива
// пришел одиночный объект: оборачивает его в массив из одного элемента.
func EnsureArray(jsonStr string) string {
	trimmed := strings.TrimSpace(jsonStr)
	if strings.HasPrefix(trimmed, "[") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "{") {
		return "[" + trimmed + "]"
	}
	return trimmed
}

// SplitNumberedList разбирает нумерованный список вида "1. foo\n2. bar"
// в срез строк. Нумерация и маркеры срезаются, пустые элементы отбрасываются.
func SplitNumberedList(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = trimListMarker(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

// trimListMarker срезает префикс "1.", "2)", "-", "*" в начале строки.
func trimListMarker(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	if len(line) > 1 && (line[0] == '-' || line[0] == '*') && line[1] == ' ' {
		return strings.TrimSpace(line[1:])
	}
	return strings.TrimSpace(line)
}

// SplitHashtags разбирает строку хэштегов, разделенных запятыми или
// пробелами, нормализуя каждый тег к виду "#tag".
func SplitHashtags(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	var tags []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		f = strings.TrimPrefix(f, "#")
		if f == "" {
			continue
		}
		tags = append(tags, "#"+f)
	}
	return tags
}

// FirstSentences возвращает первые n предложений текста. Используется для
// синтеза summary, когда модель его не вернула.
func FirstSentences(text string, n int) string {
	if n <= 0 {
		return ""
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	count := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		// Группы знаков ("?!", "...") считаем одним концом предложения.
		for i+1 < len(text) {
			next := text[i+1]
			if next != '.' && next != '!' && next != '?' {
				break
			}
			i++
		}
		count++
		if count == n {
			return strings.TrimSpace(text[:i+1])
		}
	}
	// Предложений меньше, чем запрошено - возвращаем весь текст.
	return text
}

// WordCount считает слова по пробельным разделителям.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// SplitParagraphs разбивает текст главы на абзацы по пустым строкам.
func SplitParagraphs(text string) []string {
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}
