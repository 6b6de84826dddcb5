package plate

// orderedSet сохраняет порядок вставки: первое совпадение в реестре воспроизводимо.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet(exclude ...string) *orderedSet {
	s := &orderedSet{seen: make(map[string]struct{}, len(exclude))}
	for _, e := range exclude {
		s.seen[e] = struct{}{}
	}
	return s
}

func (s *orderedSet) add(v string) bool {
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Variants строит варианты исправленного номера с заменой одного символа.
// Позиции обходятся слева направо, буквы в порядке digitConfusions,
// для номеров JTL в конец добавляются misreadFamilyVariants.
// Сам вход и дубликаты не возвращаются, каждый вариант проходит грамматику.
func Variants(corrected string) []string {
	set := newOrderedSet(corrected)
	chars := []rune(corrected)

	for i, c := range chars {
		for _, letter := range digitConfusions[c] {
			candidate := make([]rune, len(chars))
			copy(candidate, chars)
			candidate[i] = letter
			if v := string(candidate); IsValid(v) {
				set.add(v)
			}
		}
	}

	for _, v := range misreadFamilyVariants(corrected) {
		if IsValid(v) {
			set.add(v)
		}
	}
	return set.items
}
