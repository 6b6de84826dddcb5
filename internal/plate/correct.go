package plate

import "plate-service/internal/utils"

// Correct приводит сырое чтение OCR к кандидату в номер.
//
// Чтение с артефактом скобка-двоеточие и хотя бы тремя цифрами даёт
// MisreadPrefix и три последние цифры. Иначе текст очищается, от него
// остаются последние Length символов (OCR добавляет мусор в начало),
// числовая часть исправляется по таблице. Короткие чтения отбрасываются,
// ничего не дописывается.
//
// Результат не проверяется грамматикой, вызывающий код обязан вызвать IsValid.
func Correct(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if candidate, ok := MisreadCandidate(raw, Length-prefixLength); ok {
		return candidate, true
	}

	cleaned := []rune(utils.NormalizePlate(raw))
	if len(cleaned) < Length {
		return "", false
	}
	cleaned = cleaned[len(cleaned)-Length:]

	prefix := repairPrefix(cleaned[:prefixLength])
	suffix := repairSuffix(cleaned[prefixLength:])
	return string(prefix) + string(suffix), true
}
