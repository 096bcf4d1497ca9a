package reflection

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// ComputeSeed превращает эмоциональный профиль и запрошенные эмоции в семя выбора.
//
// Без запрошенных эмоций возвращается равномерно случайное 32-битное значение из rnd.
// Иначе каждая эмоция вносит count*len(name), и сверху добавляется один случайный байт,
// чтобы одинаковые профили не давали одну и ту же фразу. Это эвристика, смещающая выбор
// к часто отмечаемым эмоциям, а не статистическая гарантия.
//
// requested должен быть уже приведён к нижнему регистру.
func ComputeSeed(profile map[string]int, requested []string, rnd io.Reader) (uint64, error) {
	if len(requested) == 0 {
		var buf [4]byte
		if _, err := io.ReadFull(rnd, buf[:]); err != nil {
			return 0, fmt.Errorf("random seed: %w", err)
		}
		return uint64(binary.BigEndian.Uint32(buf[:])), nil
	}

	var base uint64
	for _, name := range requested {
		count := profile[name]
		if count <= 0 {
			continue
		}
		base += uint64(count) * uint64(utf8.RuneCountInString(name))
	}

	var salt [1]byte
	if _, err := io.ReadFull(rnd, salt[:]); err != nil {
		return 0, fmt.Errorf("random salt: %w", err)
	}
	return base + uint64(salt[0]), nil
}

// IndexFor отображает семя на смещение в коллекции из total элементов (total > 0).
func IndexFor(seed uint64, total int64) int64 {
	return int64(seed % uint64(total))
}
