package station

import "strings"

// CategoryMatcher решает, подходит ли позиция заказа станции.
// Отдельный интерфейс, чтобы алгоритм подбора можно было заменить,
// не трогая маршрутизацию
type CategoryMatcher interface {
	// Match возвращает сработавшее ключевое слово
	Match(itemName string, categories []string) (string, bool)
}

// substringMatcher ищет ключевые слова категорий как подстроки
// названия позиции без учета регистра. При нескольких совпадениях
// выбирается самое длинное слово
type substringMatcher struct{}

func NewSubstringMatcher() CategoryMatcher {
	return substringMatcher{}
}

func (substringMatcher) Match(itemName string, categories []string) (string, bool) {
	name := strings.ToLower(itemName)

	var best string
	for _, category := range categories {
		keyword := strings.ToLower(strings.TrimSpace(category))
		if keyword == "" {
			continue
		}
		if strings.Contains(name, keyword) && len(keyword) > len(best) {
			best = keyword
		}
	}
	return best, best != ""
}
