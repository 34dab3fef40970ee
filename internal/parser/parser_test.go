package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	t.Run("removes json fence", func(t *testing.T) {
		input := "```json\n{\"title\": \"Тест\"}\n```"
		assert.Equal(t, `{"title": "Тест"}`, StripCodeFences(input))
	})

	t.Run("removes bare fence", func(t *testing.T) {
		input := "```\n{\"a\": 1}\n```"
		assert.Equal(t, `{"a": 1}`, StripCodeFences(input))
	})

	t.Run("leaves plain text untouched", func(t *testing.T) {
		assert.Equal(t, `{"a": 1}`, StripCodeFences(`{"a": 1}`))
	})
}

func TestExtractJSONObject(t *testing.T) {
	t.Run("extracts object with prose around it", func(t *testing.T) {
		input := `Вот ваша глава: {"title": "Начало", "number": 1} Надеюсь, понравится!`
		got, ok := ExtractJSONObject(input)
		require.True(t, ok)
		assert.Equal(t, `{"title": "Начало", "number": 1}`, got)
	})

	t.Run("handles nested objects", func(t *testing.T) {
		input := `{"a": {"b": {"c": 1}}, "d": 2}`
		got, ok := ExtractJSONObject(input)
		require.True(t, ok)
		assert.Equal(t, input, got)
	})

	t.Run("ignores braces inside strings", func(t *testing.T) {
		input := `{"text": "пример со скобкой } внутри"} хвост`
		got, ok := ExtractJSONObject(input)
		require.True(t, ok)
		assert.Equal(t, `{"text": "пример со скобкой } внутри"}`, got)
	})

	t.Run("ignores escaped quotes", func(t *testing.T) {
		input := `{"text": "она сказала \"привет\" и {ушла"} done`
		got, ok := ExtractJSONObject(input)
		require.True(t, ok)
		assert.Equal(t, `{"text": "она сказала \"привет\" и {ушла"}`, got)
	})

	t.Run("truncated object returns tail", func(t *testing.T) {
		input := `prefix {"title": "Обрыв", "content": "текст`
		got, ok := ExtractJSONObject(input)
		require.True(t, ok)
		assert.Equal(t, `{"title": "Обрыв", "content": "текст`, got)
	})

	t.Run("no object", func(t *testing.T) {
		_, ok := ExtractJSONObject("просто текст без JSON")
		assert.False(t, ok)
	})
}

func TestRepairJSON(t *testing.T) {
	t.Run("appends missing closing braces", func(t *testing.T) {
		input := `{"a": {"b": 1}`
		fixed := RepairJSON(input)
		var v map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(fixed), &v))
	})

	t.Run("appends missing brackets then braces", func(t *testing.T) {
		input := `{"items": [1, 2`
		fixed := RepairJSON(input)
		assert.Equal(t, `{"items": [1, 2]}`, fixed)
	})

	t.Run("balanced input unchanged", func(t *testing.T) {
		input := `{"a": 1}`
		assert.Equal(t, input, RepairJSON(input))
	})

	t.Run("braces in strings not counted", func(t *testing.T) {
		input := `{"text": "скобка {"}`
		assert.Equal(t, input, RepairJSON(input))
	})
}

func TestDecodeObject(t *testing.T) {
	type chapter struct {
		Title  string `json:"title"`
		Number int    `json:"number"`
	}

	t.Run("full pipeline with fences and prose", func(t *testing.T) {
		raw := "Конечно! Вот результат:\n```json\n{\"title\": \"Глава\", \"number\": 3}\n```"
		var ch chapter
		require.NoError(t, DecodeObject(raw, &ch))
		assert.Equal(t, "Глава", ch.Title)
		assert.Equal(t, 3, ch.Number)
	})

	t.Run("truncated response repaired", func(t *testing.T) {
		raw := `{"title": "Глава", "number": 5`
		var ch chapter
		require.NoError(t, DecodeObject(raw, &ch))
		assert.Equal(t, 5, ch.Number)
	})

	t.Run("irrecoverable input returns error", func(t *testing.T) {
		var ch chapter
		err := DecodeObject("никакого JSON здесь нет", &ch)
		require.Error(t, err)
	})
}

func TestEnsureArray(t *testing.T) {
	assert.Equal(t, `[{"a": 1}]`, EnsureArray(`{"a": 1}`))
	assert.Equal(t, `[{"a": 1}]`, EnsureArray(`[{"a": 1}]`))
	assert.Equal(t, "plain", EnsureArray("plain"))
}

func TestSplitNumberedList(t *testing.T) {
	t.Run("numbered list", func(t *testing.T) {
		input := "1. Первый заголовок\n2. Второй заголовок\n3. Третий"
		assert.Equal(t, []string{"Первый заголовок", "Второй заголовок", "Третий"}, SplitNumberedList(input))
	})

	t.Run("mixed markers and empty lines", func(t *testing.T) {
		input := "1) Один\n\n- Два\n* Три\n\n"
		assert.Equal(t, []string{"Один", "Два", "Три"}, SplitNumberedList(input))
	})

	t.Run("plain lines kept as is", func(t *testing.T) {
		assert.Equal(t, []string{"Просто строка"}, SplitNumberedList("Просто строка"))
	})
}

func TestSplitHashtags(t *testing.T) {
	assert.Equal(t,
		[]string{"#story", "#shorts", "#ai"},
		SplitHashtags("#story, shorts #ai"))
	assert.Empty(t, SplitHashtags("  , ,, "))
}

func TestFirstSentences(t *testing.T) {
	text := "Первое предложение. Второе предложение! Третье? Четвертое."

	t.Run("takes requested count", func(t *testing.T) {
		assert.Equal(t, "Первое предложение. Второе предложение! Третье?", FirstSentences(text, 3))
	})

	t.Run("fewer sentences than requested", func(t *testing.T) {
		assert.Equal(t, text, FirstSentences(text, 10))
	})

	t.Run("ellipsis counted once", func(t *testing.T) {
		assert.Equal(t, "Он ушел...", FirstSentences("Он ушел... Она осталась.", 1))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", FirstSentences("", 3))
		assert.Equal(t, "", FirstSentences("текст", 0))
	})
}

func TestSplitParagraphs(t *testing.T) {
	input := "Первый абзац.\n\nВторой абзац.\n\n\n\nТретий."
	assert.Equal(t, []string{"Первый абзац.", "Второй абзац.", "Третий."}, SplitParagraphs(input))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 4, WordCount("раз  два\nтри четыре"))
	assert.Equal(t, 0, WordCount("   "))
}
