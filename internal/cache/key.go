package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"telegram-entity-parser/internal/domain"
)

// CalculateHash возвращает hex SHA-256 содержимого.
func CalculateHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func CalculateHashFromString(s string) string {
	return CalculateHash([]byte(s))
}

// CombineHashes строит ключ кэша для набора файлов и фильтра типов.
// Порядок файлов значим, порядок и повторы типов в фильтре нет.
func CombineHashes(fileHashes []string, types []domain.EntityType) string {
	filter := make([]string, 0, len(types))
	for _, t := range types {
		filter = append(filter, string(t))
	}
	slices.Sort(filter)
	filter = slices.Compact(filter)

	return CalculateHashFromString(strings.Join(fileHashes, ",") + "|" + strings.Join(filter, ","))
}
