package plate

// suffixCorrections: буква, которую OCR читает вместо цифры.
// Применяется только к числовой части.
var suffixCorrections = map[rune]rune{
	'O': '0',
	'I': '1',
	'Z': '2',
	'E': '3',
	'G': '6',
	'S': '5',
	'T': '7',
	'B': '8',
}

// strayPunctuation удаляется из числовой части.
var strayPunctuation = map[rune]struct{}{
	':': {},
	'-': {},
}

// prefixCorrections: отдельная узкая таблица для трёх первых символов.
var prefixCorrections = map[rune]rune{
	'[': 'J',
	'{': 'J',
}

// digitConfusions: цифра и буквы, из которых она могла получиться.
// Это не обратная suffixCorrections: 0 также получается из D, 1 из L.
// Порядок в срезе задаёт порядок генерации вариантов.
var digitConfusions = map[rune][]rune{
	'0': {'O', 'D'},
	'1': {'I', 'L'},
	'2': {'Z'},
	'3': {'E'},
	'5': {'S'},
	'6': {'G'},
	'7': {'T'},
	'8': {'B'},
}

func repairPrefix(prefix []rune) []rune {
	out := make([]rune, len(prefix))
	for i, c := range prefix {
		if fixed, ok := prefixCorrections[c]; ok {
			c = fixed
		}
		out[i] = c
	}
	return out
}

func repairSuffix(suffix []rune) []rune {
	out := make([]rune, 0, len(suffix))
	for _, c := range suffix {
		if _, drop := strayPunctuation[c]; drop {
			continue
		}
		if fixed, ok := suffixCorrections[c]; ok {
			c = fixed
		}
		out = append(out, c)
	}
	return out
}
