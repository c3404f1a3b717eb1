package domain

import (
	"path"
	"strings"
)

// BaseFileName сводит имя файла к базовому (защита от path traversal).
// Обратные слэши считаем разделителями. Пустая строка — имя невалидно.
func BaseFileName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	base := path.Base(path.Clean("/" + name))
	switch base {
	case "", ".", "..", "/":
		return ""
	}
	if strings.ContainsRune(base, 0) {
		return ""
	}
	return base
}

func ValidPage(page, limit int) bool {
	return page >= 1 && limit >= 1 && limit <= 1000
}
