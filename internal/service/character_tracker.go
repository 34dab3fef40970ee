package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shorts-server/internal/ai"
	"shorts-server/internal/domain"
	"shorts-server/internal/parser"
)

// characterPayload - детали персонажа в ответе модели.
type characterPayload struct {
	Name           string `json:"name"`
	Age            string `json:"age,omitempty"`
	SkinTone       string `json:"skin_tone,omitempty"`
	Ethnicity      string `json:"ethnicity,omitempty"`
	Attire         string `json:"attire,omitempty"`
	FacialFeatures string `json:"facial_features,omitempty"`
	PhysicalTraits string `json:"physical_traits,omitempty"`
	OtherDetails   string `json:"other_details,omitempty"`
}

// characterExtractionResponse хранит characters сырым фрагментом:
// модель иногда возвращает одиночный объект вместо массива, и перед
// декодированием фрагмент нормализуется через parser.EnsureArray.
type characterExtractionResponse struct {
	Characters json.RawMessage `json:"characters"`
}

func decodeCharacterList(raw json.RawMessage) []characterPayload {
	if len(raw) == 0 {
		return nil
	}
	var characters []characterPayload
	if err := json.Unmarshal([]byte(parser.EnsureArray(string(raw))), &characters); err != nil {
		return nil
	}
	return characters
}

// fieldDecision - решение по одному полю, вычисляется один раз для всего
// слияния и применяется единообразно к каждому полю.
type fieldDecision int

const (
	// decisionFillIfEmpty заполняет только пустые поля.
	decisionFillIfEmpty fieldDecision = iota
	// decisionOverwriteWithReason перезаписывает и заполненные поля,
	// фиксируя главу и причину изменения.
	decisionOverwriteWithReason
)

// mergePolicy описывает, как сливать входящие детали с каноническими.
type mergePolicy struct {
	decision      fieldDecision
	chapterNumber int
	reason        string
}

// extractionPolicy - политика пути извлечения из промптов: только
// дозаполнение, никаких перезаписей.
func extractionPolicy() mergePolicy {
	return mergePolicy{decision: decisionFillIfEmpty}
}

// chapterPolicy - политика пути генерации главы: перезапись заполненных
// полей разрешена только когда назначение главы по аутлайну - климакс или
// развязка. В остальных случаях дозаполнение.
func chapterPolicy(chapterNumber int, purpose string) mergePolicy {
	if purpose == domain.PurposeClimax || purpose == domain.PurposeResolution {
		return mergePolicy{
			decision:      decisionOverwriteWithReason,
			chapterNumber: chapterNumber,
			reason:        fmt.Sprintf("changed during %s chapter %d", purpose, chapterNumber),
		}
	}
	return mergePolicy{decision: decisionFillIfEmpty, chapterNumber: chapterNumber}
}

// mergeCharacterDetails сливает входящие детали в канонический набор.
// Идентичность персонажа - имя без регистра. Идемпотентно: повторное
// слияние тех же данных ничего не меняет.
func mergeCharacterDetails(details map[string]domain.CharacterDetail, incoming []characterPayload, policy mergePolicy) {
	for _, in := range incoming {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			continue
		}
		key := domain.CharacterKey(name)

		current, exists := details[key]
		if !exists {
			current = domain.CharacterDetail{Name: name}
		}

		changed := false
		overwritten := false
		apply := func(dst *string, src string) {
			src = strings.TrimSpace(src)
			if src == "" || src == *dst {
				return
			}
			if *dst == "" {
				*dst = src
				changed = true
				return
			}
			if policy.decision == decisionOverwriteWithReason {
				*dst = src
				changed = true
				overwritten = true
			}
		}

		apply(&current.Age, in.Age)
		apply(&current.SkinTone, in.SkinTone)
		apply(&current.Ethnicity, in.Ethnicity)
		apply(&current.Attire, in.Attire)
		apply(&current.FacialFeatures, in.FacialFeatures)
		apply(&current.PhysicalTraits, in.PhysicalTraits)
		apply(&current.OtherDetails, in.OtherDetails)

		if overwritten {
			current.LastUpdatedChapter = policy.chapterNumber
			current.UpdateReason = policy.reason
		}
		if changed || !exists {
			details[key] = current
		}
	}
}

// ExtractCharacterDetails просит модель вычитать детали персонажей из
// готовых промптов изображений. Ответ разбирается терпимо: частичные данные
// и отсутствие персонажей - не ошибка.
func (s *StoryService) ExtractCharacterDetails(ctx context.Context, prompts []string, names []string) ([]domain.CharacterDetail, error) {
	if len(prompts) == 0 {
		return nil, nil
	}

	raw, err := s.generator.Complete(ctx, ai.CompletionRequest{
		SystemPrompt: characterExtractionSystemPrompt,
		UserPrompt:   buildCharacterExtractionUserPrompt(prompts, names),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения деталей персонажей: %w", err)
	}

	var resp characterExtractionResponse
	if err := parser.DecodeObject(raw, &resp); err != nil {
		// Нечитаемый ответ не срывает основную операцию.
		s.logger.Warn("Failed to parse character extraction response", zap.Error(err))
		return nil, nil
	}

	var result []domain.CharacterDetail
	for _, c := range decodeCharacterList(resp.Characters) {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		result = append(result, domain.CharacterDetail{
			Name:           strings.TrimSpace(c.Name),
			Age:            c.Age,
			SkinTone:       c.SkinTone,
			Ethnicity:      c.Ethnicity,
			Attire:         c.Attire,
			FacialFeatures: c.FacialFeatures,
			PhysicalTraits: c.PhysicalTraits,
			OtherDetails:   c.OtherDetails,
		})
	}
	return result, nil
}

// detailsToPayload конвертирует извлеченные детали в формат слияния.
func detailsToPayload(details []domain.CharacterDetail) []characterPayload {
	payload := make([]characterPayload, 0, len(details))
	for _, d := range details {
		payload = append(payload, characterPayload{
			Name:           d.Name,
			Age:            d.Age,
			SkinTone:       d.SkinTone,
			Ethnicity:      d.Ethnicity,
			Attire:         d.Attire,
			FacialFeatures: d.FacialFeatures,
			PhysicalTraits: d.PhysicalTraits,
			OtherDetails:   d.OtherDetails,
		})
	}
	return payload
}
